package apperror

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type Kind string

const (
	KindAuthInvalidCredential Kind = "AUTH_INVALID_CREDENTIAL"
	KindAuthEmailInUse        Kind = "AUTH_EMAIL_IN_USE"
	KindUsernameTaken         Kind = "USERNAME_TAKEN"
	KindAuthUnverified        Kind = "AUTH_UNVERIFIED"
	KindReauthRequired        Kind = "REAUTH_REQUIRED"
	KindPermissionDenied      Kind = "PERMISSION_DENIED"
	KindNotFound              Kind = "NOT_FOUND"
	KindNetworkUnavailable    Kind = "NETWORK_UNAVAILABLE"
	KindConfiguration         Kind = "CONFIGURATION_ERROR"

	KindChatNotFound      Kind = "CHAT_NOT_FOUND"
	KindRenameFailed      Kind = "RENAME_FAILED"
	KindValidation        Kind = "VALIDATION_FAILED"
	KindUploadFailed      Kind = "UPLOAD_FAILED"
	KindProfileSyncFailed Kind = "PROFILE_SYNC_FAILED"
	KindInternal          Kind = "INTERNAL"
)

var statusByKind = map[Kind]int{
	KindAuthInvalidCredential: fiber.StatusUnauthorized,
	KindAuthEmailInUse:        fiber.StatusConflict,
	KindUsernameTaken:         fiber.StatusConflict,
	KindAuthUnverified:        fiber.StatusForbidden,
	KindReauthRequired:        fiber.StatusUnauthorized,
	KindPermissionDenied:      fiber.StatusForbidden,
	KindNotFound:              fiber.StatusNotFound,
	KindNetworkUnavailable:    fiber.StatusServiceUnavailable,
	KindConfiguration:         fiber.StatusServiceUnavailable,
	KindChatNotFound:          fiber.StatusNotFound,
	KindRenameFailed:          fiber.StatusBadRequest,
	KindValidation:            fiber.StatusBadRequest,
	KindUploadFailed:          fiber.StatusBadGateway,
	KindProfileSyncFailed:     fiber.StatusBadGateway,
	KindInternal:              fiber.StatusInternalServerError,
}

// Error is the only error shape that crosses an operation boundary.
// Field names the form input an error belongs to, when there is one.
type Error struct {
	Kind    Kind
	Message string
	Field   string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status returns the HTTP status for the error kind.
func (e *Error) Status() int {
	if status, ok := statusByKind[e.Kind]; ok {
		return status
	}
	return fiber.StatusInternalServerError
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func FieldError(kind Kind, field, message string) *Error {
	return &Error{Kind: kind, Field: field, Message: message}
}

func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// KindOf returns the kind of the first *Error in the chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// Translate maps store, network and provider failures into the taxonomy.
// Errors that already carry a kind pass through untouched.
func Translate(err error, message string) error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return Wrap(KindNotFound, message, err)
	case IsNetwork(err):
		return Wrap(KindNetworkUnavailable, message, err)
	default:
		return Wrap(KindInternal, message, err)
	}
}

// IsNetwork reports transient connectivity failures.
func IsNetwork(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
