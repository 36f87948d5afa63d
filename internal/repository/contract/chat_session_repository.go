package contract

import (
	"context"

	"medimate-be/internal/entity"
	"medimate-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ChatSessionRepository interface {
	Create(ctx context.Context, session *entity.ChatSession) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error)
	// UpdateTitle returns the number of sessions owned by userId that matched.
	UpdateTitle(ctx context.Context, id, userId uuid.UUID, title string) (int64, error)
	// UpdateTitleIfDefault only replaces the placeholder title.
	UpdateTitleIfDefault(ctx context.Context, id uuid.UUID, title string) (bool, error)
	Delete(ctx context.Context, id, userId uuid.UUID) (int64, error)
}
