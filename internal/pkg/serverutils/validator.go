package serverutils

import (
	"medimate-be/internal/apperror"
	"medimate-be/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

func ValidateRequest(req interface{}) error {
	return validation.Check(req)
}

// ParseBody decodes the JSON body into req and validates it.
func ParseBody(ctx *fiber.Ctx, req interface{}) error {
	if err := ctx.BodyParser(req); err != nil {
		return apperror.Wrap(apperror.KindValidation, "Invalid request body", err)
	}
	return ValidateRequest(req)
}
