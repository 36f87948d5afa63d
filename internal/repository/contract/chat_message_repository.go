package contract

import (
	"context"

	"medimate-be/internal/entity"
	"medimate-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ChatMessageRepository interface {
	// Append adds msg to the end of its session. Appending a message whose
	// id is already stored is a no-op.
	Append(ctx context.Context, msg *entity.ChatMessage) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error)
	DeleteBySessionId(ctx context.Context, sessionId uuid.UUID) error
}
