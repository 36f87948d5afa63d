package validation

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"medimate-be/internal/apperror"

	"github.com/go-playground/validator/v10"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	mobilePattern   = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

	once     sync.Once
	instance *validator.Validate
)

// Validator returns the shared validator with the "username" and "mobile"
// tags registered.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return IsUsername(fl.Field().String())
		})
		_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
			value := fl.Field().String()
			return value == "" || IsMobile(value)
		})
		instance = v
	})
	return instance
}

func IsUsername(value string) bool {
	return len(value) >= 3 && usernamePattern.MatchString(value)
}

func IsMobile(value string) bool {
	return mobilePattern.MatchString(value)
}

// FieldErrors flattens validator errors into field -> tag pairs.
func FieldErrors(err error) map[string]string {
	out := map[string]string{}
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return out
	}
	for _, fe := range validationErrors {
		out[fe.Field()] = fe.Tag()
	}
	return out
}

// Check validates v and reports the first failing field as a validation
// error. Details carries a message for every failing field.
func Check(v interface{}) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperror.Wrap(apperror.KindValidation, "Invalid request", err)
	}

	details := map[string]string{}
	first := ""
	for _, fe := range validationErrors {
		field := lowerFirst(fe.Field())
		details[field] = message(field, fe)
		if first == "" {
			first = field
		}
	}
	return apperror.FieldError(apperror.KindValidation, first, details[first]).WithDetails(details)
}

func message(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return field + " is required."
	case "email":
		return "Invalid email address."
	case "min":
		return fmt.Sprintf("%s must be at least %s characters.", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", field, fe.Param())
	case "username":
		return "Username must be at least 3 characters and use only letters, numbers and underscores."
	case "mobile":
		return "Invalid mobile number format (e.g., +1234567890)."
	}
	return field + " is invalid."
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
