package unitofwork

import (
	"context"

	"medimate-be/internal/repository/contract"
)

// UnitOfWork groups repository writes into one all-or-nothing batch.
// Without Begin every repository call runs on its own.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() contract.UserRepository
	UsernameRepository() contract.UsernameRepository
	AuthAccountRepository() contract.AuthAccountRepository
	ChatSessionRepository() contract.ChatSessionRepository
	ChatMessageRepository() contract.ChatMessageRepository
	NotificationRepository() contract.NotificationRepository
}
