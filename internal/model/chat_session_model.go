package model

import (
	"time"

	"github.com/google/uuid"
)

type ChatSession struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId    uuid.UUID `gorm:"type:uuid;not null;index"`
	Title     string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"index"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}

// ChatMessage rows are append-only. Seq is assigned by the store and gives
// the transcript order; Id is generated by the sender and makes a repeated
// append of the same message a no-op.
type ChatMessage struct {
	Seq           int64     `gorm:"primaryKey;autoIncrement"`
	Id            uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	ChatSessionId uuid.UUID `gorm:"type:uuid;not null;index"`
	Role          string    `gorm:"type:varchar(20);not null"`
	Content       string    `gorm:"type:text;not null"`
	Source        *string   `gorm:"type:text"`
	CreatedAt     time.Time
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
