package controller

import (
	"medimate-be/internal/apperror"
	"medimate-be/internal/dto"
	"medimate-be/internal/pkg/serverutils"
	"medimate-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	List(ctx *fiber.Ctx) error
	Create(ctx *fiber.Ctx) error
	Rename(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	Transcript(ctx *fiber.Ctx) error
	Send(ctx *fiber.Ctx) error
}

type chatController struct {
	service  service.IChatService
	jwt      fiber.Handler
	verified fiber.Handler
}

func NewChatController(service service.IChatService, jwt, verified fiber.Handler) IChatController {
	return &chatController{service: service, jwt: jwt, verified: verified}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chats")
	h.Use(c.jwt, c.verified)
	h.Get("/", c.List)
	h.Post("/", c.Create)
	h.Get("/:id", c.Transcript)
	h.Patch("/:id", c.Rename)
	h.Delete("/:id", c.Delete)
	h.Post("/:id/messages", c.Send)
}

func chatID(ctx *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, apperror.New(apperror.KindChatNotFound, "Chat not found.")
	}
	return id, nil
}

func (c *chatController) List(ctx *fiber.Ctx) error {
	res, err := c.service.List(ctx.UserContext(), serverutils.UserID(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Chats", res))
}

func (c *chatController) Create(ctx *fiber.Ctx) error {
	res, err := c.service.Create(ctx.UserContext(), serverutils.UserID(ctx))
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Chat created", res))
}

func (c *chatController) Rename(ctx *fiber.Ctx) error {
	id, err := chatID(ctx)
	if err != nil {
		return err
	}
	var req dto.RenameChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}

	if err := c.service.Rename(ctx.UserContext(), serverutils.UserID(ctx), id, req.Title); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Chat renamed", nil))
}

// Delete takes the chat the client currently has open in ?open= so it can
// tell the client to navigate away.
func (c *chatController) Delete(ctx *fiber.Ctx) error {
	id, err := chatID(ctx)
	if err != nil {
		return err
	}
	openID, _ := uuid.Parse(ctx.Query("open"))

	res, err := c.service.Delete(ctx.UserContext(), serverutils.UserID(ctx), id, openID)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Chat deleted", res))
}

func (c *chatController) Transcript(ctx *fiber.Ctx) error {
	id, err := chatID(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.Transcript(ctx.UserContext(), serverutils.UserID(ctx), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Chat", res))
}

func (c *chatController) Send(ctx *fiber.Ctx) error {
	id, err := chatID(ctx)
	if err != nil {
		return err
	}
	var req dto.SendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}

	res, err := c.service.Send(ctx.UserContext(), serverutils.UserID(ctx), id, req.Content)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Message sent", res))
}
