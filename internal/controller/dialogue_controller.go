package controller

import (
	"noa-assistant-be/internal/dto"
	"noa-assistant-be/internal/pkg/logger"
	"noa-assistant-be/internal/pkg/serverutils"
	"noa-assistant-be/internal/service"
	internalWS "noa-assistant-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type IDialogueController interface {
	RegisterRoutes(r fiber.Router)
	Turn(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Reset(ctx *fiber.Ctx) error
	Clear(ctx *fiber.Ctx) error
	Report(ctx *fiber.Ctx) error
	Stream(ctx *fiber.Ctx) error
}

type dialogueController struct {
	service service.IDialogueService
	logger  logger.ILogger
}

func NewDialogueController(service service.IDialogueService, log logger.ILogger) IDialogueController {
	return &dialogueController{service: service, logger: log}
}

func (c *dialogueController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/dialogue/v1")
	h.Post("/turn", c.Turn)
	h.Get("/session/:id", c.Show)
	h.Post("/session/:id/reset", c.Reset)
	h.Delete("/session/:id", c.Clear)
	h.Get("/session/:id/report", c.Report)
	h.Get("/ws", c.Stream)
}

func (c *dialogueController) Turn(ctx *fiber.Ctx) error {
	var req dto.TurnRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.HandleTurn(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success handle turn", res))
}

func (c *dialogueController) Show(ctx *fiber.Ctx) error {
	res, err := c.service.Snapshot(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get session", res))
}

func (c *dialogueController) Reset(ctx *fiber.Ctx) error {
	res, err := c.service.Reset(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success reset interview", res))
}

func (c *dialogueController) Clear(ctx *fiber.Ctx) error {
	if err := c.service.Clear(ctx.UserContext(), ctx.Params("id")); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Session cleared", nil))
}

func (c *dialogueController) Report(ctx *fiber.Ctx) error {
	res, err := c.service.Report(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success build report", res))
}

// Stream upgrades to a websocket that runs one turn per text frame.
func (c *dialogueController) Stream(ctx *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(ctx) {
		return websocket.New(func(conn *websocket.Conn) {
			internalWS.ServeWs(conn, c.service, c.logger)
			c.logger.Info("DIALOGUE", "Dialogue connection closed", nil)
		})(ctx)
	}
	return fiber.ErrUpgradeRequired
}
