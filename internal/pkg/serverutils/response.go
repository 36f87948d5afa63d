// FILE: internal/pkg/serverutils/response.go
package serverutils

import (
	"errors"

	"medimate-be/internal/apperror"

	"github.com/gofiber/fiber/v2"
)

type BaseResponse[T any] struct {
	Success   bool   `json:"success"`
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Data      T      `json:"data"`
	ErrorCode string `json:"error_code,omitempty"`
	Field     string `json:"field,omitempty"`
	Details   any    `json:"details,omitempty"`
}

func SuccessResponse[T any](message string, data T) BaseResponse[T] {
	return BaseResponse[T]{
		Success: true,
		Code:    fiber.StatusOK,
		Message: message,
		Data:    data,
	}
}

func ErrorResponse(code int, message string) BaseResponse[any] {
	return BaseResponse[any]{
		Success: false,
		Code:    code,
		Message: message,
	}
}

// ErrorFrom renders any error as a response. Errors outside the taxonomy
// surface as a generic internal error so no driver text leaks out.
func ErrorFrom(err error) BaseResponse[any] {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		res := ErrorResponse(appErr.Status(), appErr.Message)
		res.ErrorCode = string(appErr.Kind)
		res.Field = appErr.Field
		res.Details = appErr.Details
		return res
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return ErrorResponse(fiberErr.Code, fiberErr.Message)
	}

	res := ErrorResponse(fiber.StatusInternalServerError, "Something went wrong.")
	res.ErrorCode = string(apperror.KindInternal)
	return res
}

// Fail writes err with its status code.
func Fail(ctx *fiber.Ctx, err error) error {
	res := ErrorFrom(err)
	return ctx.Status(res.Code).JSON(res)
}
