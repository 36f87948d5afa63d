package contract

import (
	"context"

	"medimate-be/internal/entity"
	"medimate-be/internal/repository/specification"

	"github.com/google/uuid"
)

// UserRepository stores user profiles.
type UserRepository interface {
	Create(ctx context.Context, profile *entity.UserProfile) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.UserProfile, error)
	// UpdateFields writes only the given columns. Returns gorm.ErrRecordNotFound
	// when no profile matched.
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
}
