// FILE: internal/controller/oauth_controller.go
package controller

import (
	"net/url"

	"medimate-be/internal/pkg/logger"
	"medimate-be/internal/pkg/serverutils"
	"medimate-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IOAuthController interface {
	RegisterRoutes(r fiber.Router)
	Login(ctx *fiber.Ctx) error
	Callback(ctx *fiber.Ctx) error
}

type oauthController struct {
	service   service.IOAuthService
	clientURL string
	logger    logger.ILogger
}

func NewOAuthController(service service.IOAuthService, clientURL string, log logger.ILogger) IOAuthController {
	return &oauthController{service: service, clientURL: clientURL, logger: log}
}

func (c *oauthController) RegisterRoutes(r fiber.Router) {
	// e.g., /auth/google/login
	h := r.Group("/auth")
	h.Get("/:provider/login", c.Login)
	h.Get("/:provider/callback", c.Callback)
}

func (c *oauthController) Login(ctx *fiber.Ctx) error {
	target, err := c.service.GetLoginURL(ctx.Params("provider"))
	if err != nil {
		return err
	}
	return ctx.Redirect(target, fiber.StatusTemporaryRedirect)
}

// Callback finishes the provider flow and hands the tokens to the client
// through the redirect URL.
func (c *oauthController) Callback(ctx *fiber.Ctx) error {
	provider := ctx.Params("provider")
	code := ctx.Query("code")
	if code == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Missing code"))
	}

	res, err := c.service.HandleCallback(ctx.UserContext(), provider, code)
	if err != nil {
		c.logger.Warn("OAuth", "Callback failed", map[string]interface{}{
			"provider": provider,
			"error":    err.Error(),
		})
		return ctx.Redirect(c.clientURL+"/sign-in?error=oauth_failed", fiber.StatusTemporaryRedirect)
	}

	q := url.Values{}
	q.Set("access_token", res.AccessToken)
	q.Set("refresh_token", res.RefreshToken)
	return ctx.Redirect(c.clientURL+"/oauth/callback?"+q.Encode(), fiber.StatusTemporaryRedirect)
}
