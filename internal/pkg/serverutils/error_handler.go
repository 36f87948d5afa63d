package serverutils

import (
	"medimate-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns errors returned by later handlers into the
// standard error body. Server-side failures are logged when log is set.
func ErrorHandlerMiddleware(log ...logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		res := ErrorFrom(err)
		if res.Code >= fiber.StatusInternalServerError && len(log) > 0 {
			log[0].Error("HTTP", "Request failed", map[string]interface{}{
				"method": ctx.Method(),
				"path":   ctx.Path(),
				"error":  err,
			})
		}
		return ctx.Status(res.Code).JSON(res)
	}
}
