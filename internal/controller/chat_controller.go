package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"crm-assistant-be/internal/dto"
	"crm-assistant-be/internal/pkg/serverutils"
	"crm-assistant-be/internal/service"
)

type IChatController interface {
	RegisterRoutes(api fiber.Router)
	SendMessage(ctx *fiber.Ctx) error
	ResetSession(ctx *fiber.Ctx) error
	GetSuggestions(ctx *fiber.Ctx) error
}

type chatController struct {
	assistantService service.IAssistantService
}

func NewChatController(assistantService service.IAssistantService) IChatController {
	return &chatController{assistantService: assistantService}
}

func (c *chatController) RegisterRoutes(api fiber.Router) {
	chat := api.Group("/chat")
	chat.Post("/message", c.SendMessage)
	chat.Post("/reset", c.ResetSession)
	chat.Get("/suggestions", c.GetSuggestions)
}

// userID comes from the gateway-injected header; request auth lives
// upstream of this service
func userID(ctx *fiber.Ctx) string {
	return ctx.Get("X-User-ID")
}

func (c *chatController) SendMessage(ctx *fiber.Ctx) error {
	uid := userID(ctx)
	if uid == "" {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Missing X-User-ID header"))
	}

	var req dto.SendChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	res, err := c.assistantService.SendMessage(ctx.UserContext(), uid, req)
	if err != nil {
		if errors.Is(err, service.ErrRateLimited) {
			return ctx.Status(fiber.StatusTooManyRequests).JSON(serverutils.ErrorResponse(429, err.Error()))
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}

	return ctx.JSON(serverutils.SuccessResponse("Message processed", res))
}

func (c *chatController) ResetSession(ctx *fiber.Ctx) error {
	uid := userID(ctx)
	if uid == "" {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Missing X-User-ID header"))
	}

	var req dto.ResetChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	if err := c.assistantService.ResetSession(ctx.UserContext(), uid, req.SessionID); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Session reset", nil))
}

func (c *chatController) GetSuggestions(ctx *fiber.Ctx) error {
	uid := userID(ctx)
	if uid == "" {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Missing X-User-ID header"))
	}

	sessionID := ctx.Query("session_id")
	if sessionID == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "session_id query parameter is required"))
	}

	res, err := c.assistantService.Suggestions(ctx.UserContext(), uid, sessionID)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}

	return ctx.JSON(serverutils.SuccessResponse("Suggestions", res))
}
