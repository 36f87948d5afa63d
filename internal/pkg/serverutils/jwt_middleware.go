// FILE: internal/pkg/serverutils/jwt_middleware.go
package serverutils

import (
	"context"
	"strings"

	"medimate-be/internal/apperror"
	"medimate-be/pkg/session"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const userIDKey = "user_id"

type TokenVerifier interface {
	VerifyAccessToken(token string) (uuid.UUID, error)
}

// SessionResolver reloads the caller's identity.
type SessionResolver interface {
	Resolve(ctx context.Context, uid uuid.UUID) session.State
}

// BearerToken reads the access token from the Authorization header, or from
// the token query parameter for clients that cannot set headers (browser
// websockets).
func BearerToken(ctx *fiber.Ctx) string {
	if h := ctx.Get(fiber.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ctx.Query("token")
}

func JwtMiddleware(verifier TokenVerifier) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		tokenStr := BearerToken(ctx)
		if tokenStr == "" {
			return Fail(ctx, apperror.New(apperror.KindAuthInvalidCredential, "Missing token"))
		}

		uid, err := verifier.VerifyAccessToken(tokenStr)
		if err != nil {
			return Fail(ctx, apperror.Wrap(apperror.KindAuthInvalidCredential, "Invalid token", err))
		}

		ctx.Locals(userIDKey, uid)
		return ctx.Next()
	}
}

// RequireVerified lets only verified identities through. It must run after
// JwtMiddleware.
func RequireVerified(resolver SessionResolver) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if err := GateError(resolver.Resolve(ctx.UserContext(), UserID(ctx))); err != nil {
			return Fail(ctx, err)
		}
		return ctx.Next()
	}
}

// GateError is nil for a ready session and otherwise the error that keeps
// the caller out.
func GateError(state session.State) *apperror.Error {
	switch state.Status {
	case session.StatusReady:
		return nil
	case session.StatusUnverified:
		return apperror.New(apperror.KindAuthUnverified, "Please verify your email address first.")
	default:
		return apperror.New(apperror.KindAuthInvalidCredential, "You are signed out.")
	}
}

// UserID is the caller set by JwtMiddleware, or uuid.Nil.
func UserID(ctx *fiber.Ctx) uuid.UUID {
	uid, _ := ctx.Locals(userIDKey).(uuid.UUID)
	return uid
}
