package serverutils

import (
	"errors"

	"noa-assistant-be/pkg/ai/router"
	"noa-assistant-be/pkg/session"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns errors returned by handlers into JSON
// responses.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code, message := StatusFor(err)
		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}

// StatusFor maps a handler error to an HTTP status and a client message.
func StatusFor(err error) (int, string) {
	var (
		fiberErr *fiber.Error
		validErr *ValidationError
	)
	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code, fiberErr.Message
	case errors.As(err, &validErr):
		return fiber.StatusBadRequest, validErr.Error()
	case errors.Is(err, session.ErrSessionNotFound):
		return fiber.StatusNotFound, err.Error()
	case errors.Is(err, router.ErrUnknownMode):
		return fiber.StatusBadRequest, err.Error()
	default:
		return fiber.StatusInternalServerError, "Internal server error"
	}
}
