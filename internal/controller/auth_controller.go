// FILE: internal/controller/auth_controller.go
package controller

import (
	"net/url"

	"medimate-be/internal/dto"
	"medimate-be/internal/pkg/serverutils"
	"medimate-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAuthController interface {
	RegisterRoutes(r fiber.Router)
	SignUp(ctx *fiber.Ctx) error
	SignIn(ctx *fiber.Ctx) error
	Refresh(ctx *fiber.Ctx) error
	SignOut(ctx *fiber.Ctx) error
	VerifyEmailLink(ctx *fiber.Ctx) error
	VerifyEmail(ctx *fiber.Ctx) error
	ResendVerification(ctx *fiber.Ctx) error
	CheckVerification(ctx *fiber.Ctx) error
	Session(ctx *fiber.Ctx) error
}

type authController struct {
	service   service.IAuthService
	clientURL string
	jwt       fiber.Handler
}

func NewAuthController(service service.IAuthService, clientURL string, jwt fiber.Handler) IAuthController {
	return &authController{service: service, clientURL: clientURL, jwt: jwt}
}

func (c *authController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/auth")
	h.Post("/sign-up", c.SignUp)
	h.Post("/sign-in", c.SignIn)
	h.Post("/refresh", c.Refresh)
	h.Get("/verify-email", c.VerifyEmailLink)
	h.Post("/verify-email", c.VerifyEmail)

	h.Post("/sign-out", c.jwt, c.SignOut)
	h.Post("/verification/resend", c.jwt, c.ResendVerification)
	h.Post("/verification/check", c.jwt, c.CheckVerification)
	h.Get("/session", c.jwt, c.Session)
}

func (c *authController) SignUp(ctx *fiber.Ctx) error {
	var req dto.SignUpRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}

	res, err := c.service.SignUp(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Account created. Check your inbox to verify your email.", res))
}

func (c *authController) SignIn(ctx *fiber.Ctx) error {
	var req dto.SignInRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}

	res, err := c.service.SignIn(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Signed in", res))
}

func (c *authController) Refresh(ctx *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := serverutils.ParseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.Refresh(ctx.UserContext(), req.RefreshToken)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Token refreshed", res))
}

func (c *authController) SignOut(ctx *fiber.Ctx) error {
	if err := c.service.SignOut(ctx.UserContext(), serverutils.UserID(ctx)); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Signed out", nil))
}

// VerifyEmailLink handles the link from the verification email and sends
// the browser back to the client with the outcome.
func (c *authController) VerifyEmailLink(ctx *fiber.Ctx) error {
	status := "success"
	if err := c.service.VerifyEmail(ctx.UserContext(), ctx.Query("token")); err != nil {
		status = "error"
	}
	return ctx.Redirect(c.clientURL+"/verify-email?status="+url.QueryEscape(status), fiber.StatusTemporaryRedirect)
}

func (c *authController) VerifyEmail(ctx *fiber.Ctx) error {
	var req struct {
		Token string `json:"token"`
	}
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}

	if err := c.service.VerifyEmail(ctx.UserContext(), req.Token); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Email verified", nil))
}

func (c *authController) ResendVerification(ctx *fiber.Ctx) error {
	if err := c.service.ResendVerification(ctx.UserContext(), serverutils.UserID(ctx)); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Verification email sent", nil))
}

func (c *authController) CheckVerification(ctx *fiber.Ctx) error {
	res, err := c.service.CheckVerification(ctx.UserContext(), serverutils.UserID(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Verification status", res))
}

func (c *authController) Session(ctx *fiber.Ctx) error {
	res, err := c.service.Session(ctx.UserContext(), serverutils.UserID(ctx), ctx.Query("view"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Session", res))
}
