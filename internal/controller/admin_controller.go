package controller

import (
	"strconv"

	"noa-assistant-be/internal/dto"
	"noa-assistant-be/internal/pkg/logger"
	"noa-assistant-be/internal/pkg/serverutils"
	"noa-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAdminController interface {
	RegisterRoutes(r fiber.Router)
	ForceMode(ctx *fiber.Ctx) error
	GetTransitions(ctx *fiber.Ctx) error
	GetLogs(ctx *fiber.Ctx) error
}

type adminController struct {
	service     service.IDialogueService
	logger      logger.ILogger
	jwtSecret   string
	logFilePath string
}

func NewAdminController(service service.IDialogueService, log logger.ILogger, jwtSecret, logFilePath string) IAdminController {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &adminController{
		service:     service,
		logger:      log,
		jwtSecret:   jwtSecret,
		logFilePath: logFilePath,
	}
}

// RegisterRoutes mounts nothing when no JWT secret is configured, since any
// token signed with an empty key would pass.
func (c *adminController) RegisterRoutes(r fiber.Router) {
	if c.jwtSecret == "" {
		c.logger.Warn("ADMIN", "JWT_SECRET not set, admin routes disabled", nil)
		return
	}

	h := r.Group("/admin/v1")
	h.Use(serverutils.AdminMiddleware(c.jwtSecret))

	h.Post("/session/:id/mode", c.ForceMode)
	h.Get("/transitions", c.GetTransitions)
	h.Get("/logs", c.GetLogs)
}

func (c *adminController) ForceMode(ctx *fiber.Ctx) error {
	var req dto.ForceModeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.ForceMode(ctx.UserContext(), ctx.Params("id"), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Mode changed", res))
}

func (c *adminController) GetTransitions(ctx *fiber.Ctx) error {
	limit, _ := strconv.Atoi(ctx.Query("limit", "50"))

	res, err := c.service.Transitions(ctx.UserContext(), ctx.Query("session_id"), limit)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Mode transitions", res))
}

func (c *adminController) GetLogs(ctx *fiber.Ctx) error {
	page, _ := strconv.Atoi(ctx.Query("page", "1"))
	limit, _ := strconv.Atoi(ctx.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 20
	}

	logs, err := logger.ReadLogs(c.logFilePath, logger.LogQuery{
		Level:  ctx.Query("level"),
		Module: ctx.Query("module"),
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("System logs", logs))
}
