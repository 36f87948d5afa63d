package contract

import (
	"context"
	"time"

	"medimate-be/internal/entity"

	"github.com/google/uuid"
)

// RefreshSessionRepository stores refresh tokens by hash. Lookup returns
// nil, nil for a missing or expired token.
type RefreshSessionRepository interface {
	Save(ctx context.Context, tokenHash string, userId uuid.UUID, expiresAt time.Time) error
	Lookup(ctx context.Context, tokenHash string) (*entity.RefreshSession, error)
	Revoke(ctx context.Context, tokenHash string) error
	RevokeAll(ctx context.Context, userId uuid.UUID) error
	// HasActive reports whether the user holds any unexpired session.
	HasActive(ctx context.Context, userId uuid.UUID) (bool, error)
}

type UploadProgressRepository interface {
	Save(progress *entity.UploadProgress)
	Get(userId uuid.UUID) (*entity.UploadProgress, bool)
}
