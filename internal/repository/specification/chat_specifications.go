package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ByChatSessionID struct {
	ChatSessionID uuid.UUID
}

func (s ByChatSessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chat_session_id = ?", s.ChatSessionID)
}

// NewestChatsFirst orders chat sessions by creation time descending, with
// the id as a tie-breaker so equal timestamps keep a stable order.
type NewestChatsFirst struct{}

func (s NewestChatsFirst) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC").Order("id DESC")
}

// TranscriptOrder orders messages by their store-assigned sequence.
type TranscriptOrder struct{}

func (s TranscriptOrder) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("seq ASC")
}

// ForUpdate locks the selected rows until the transaction ends. SQLite has
// no row locks and drops the clause.
type ForUpdate struct{}

func (s ForUpdate) Apply(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
}
