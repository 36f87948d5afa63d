package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

type ChatMessage struct {
	Id            uuid.UUID
	Seq           int64
	ChatSessionId uuid.UUID
	Role          string
	Content       string
	Source        *string
	CreatedAt     time.Time
}
