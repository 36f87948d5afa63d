package contract

import (
	"context"

	"medimate-be/internal/entity"
	"medimate-be/internal/repository/specification"

	"github.com/google/uuid"
)

type AuthAccountRepository interface {
	Create(ctx context.Context, account *entity.AuthAccount) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.AuthAccount, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error

	CreateVerificationToken(ctx context.Context, token *entity.EmailVerificationToken) error
	FindVerificationToken(ctx context.Context, specs ...specification.Specification) (*entity.EmailVerificationToken, error)
	DeleteVerificationTokens(ctx context.Context, userId uuid.UUID) error
}
