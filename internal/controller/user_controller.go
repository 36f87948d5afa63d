// FILE: internal/controller/user_controller.go
package controller

import (
	"medimate-be/internal/dto"
	"medimate-be/internal/pkg/serverutils"
	"medimate-be/internal/service"
	"medimate-be/pkg/profile"

	"github.com/gofiber/fiber/v2"
)

type IUserController interface {
	RegisterRoutes(r fiber.Router)
	GetProfile(ctx *fiber.Ctx) error
	UpdateProfile(ctx *fiber.Ctx) error
	UploadPicture(ctx *fiber.Ctx) error
	UploadProgress(ctx *fiber.Ctx) error
	ListActivity(ctx *fiber.Ctx) error
}

type userController struct {
	service  service.IUserService
	jwt      fiber.Handler
	verified fiber.Handler
}

func NewUserController(service service.IUserService, jwt, verified fiber.Handler) IUserController {
	return &userController{service: service, jwt: jwt, verified: verified}
}

func (c *userController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/user")
	h.Use(c.jwt)
	h.Get("/profile", c.GetProfile)
	h.Get("/activity", c.ListActivity)

	// Settings sit behind the verification gate.
	h.Put("/profile", c.verified, c.UpdateProfile)
	h.Post("/profile/picture", c.verified, c.UploadPicture)
	h.Get("/profile/picture/progress", c.verified, c.UploadProgress)
}

func (c *userController) GetProfile(ctx *fiber.Ctx) error {
	res, err := c.service.GetProfile(ctx.UserContext(), serverutils.UserID(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("User profile", res))
}

// UpdateProfile answers with the saved result even when the password step
// failed, since the profile fields were already written.
func (c *userController) UpdateProfile(ctx *fiber.Ctx) error {
	var req profile.Edits
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}

	res, err := c.service.SaveProfile(ctx.UserContext(), serverutils.UserID(ctx), req)
	if err != nil {
		if res == nil {
			return err
		}
		body := serverutils.ErrorFrom(err)
		body.Data = res
		return ctx.Status(body.Code).JSON(body)
	}
	return ctx.JSON(serverutils.SuccessResponse("Profile updated", res))
}

func (c *userController) UploadPicture(ctx *fiber.Ctx) error {
	file, err := ctx.FormFile("picture")
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Image file is required"))
	}
	body, err := file.Open()
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Image file is unreadable"))
	}
	defer body.Close()

	res, err := c.service.UploadPicture(ctx.UserContext(), serverutils.UserID(ctx), profile.Picture{
		Filename:    file.Filename,
		ContentType: file.Header.Get(fiber.HeaderContentType),
		Size:        file.Size,
		Body:        body,
	})
	if err != nil {
		if res == nil {
			return err
		}
		errBody := serverutils.ErrorFrom(err)
		errBody.Data = res
		return ctx.Status(errBody.Code).JSON(errBody)
	}
	return ctx.JSON(serverutils.SuccessResponse("Picture uploaded", res))
}

func (c *userController) UploadProgress(ctx *fiber.Ctx) error {
	res, err := c.service.UploadProgress(ctx.UserContext(), serverutils.UserID(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Upload progress", res))
}

func (c *userController) ListActivity(ctx *fiber.Ctx) error {
	limit := ctx.QueryInt("limit", 20)
	offset := ctx.QueryInt("offset", 0)

	items, total, err := c.service.ListActivity(ctx.UserContext(), serverutils.UserID(ctx), limit, offset)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Activity", dto.ActivityPage{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}))
}
