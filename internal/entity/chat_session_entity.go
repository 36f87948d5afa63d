package entity

import (
	"time"

	"github.com/google/uuid"
)

// DefaultChatTitle is the placeholder a new chat carries until its first
// user message names it.
const DefaultChatTitle = "New Chat"

type ChatSession struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	Title     string
	CreatedAt time.Time
}
