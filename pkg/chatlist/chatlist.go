package chatlist

import (
	"context"
	"iter"
	"strings"
	"sync"

	"medimate-be/internal/apperror"
	"medimate-be/internal/entity"
	"medimate-be/internal/pkg/logger"
	"medimate-be/internal/repository/specification"
	"medimate-be/pkg/backend"
	"medimate-be/pkg/feed"
	"medimate-be/pkg/subscription"

	"github.com/google/uuid"
)

// Mirror holds one user's chat list, newest first. Every snapshot replaces
// the whole list.
type Mirror struct {
	client *backend.Client
	owner  uuid.UUID
	logger logger.ILogger

	mu     sync.RWMutex
	chats  []*entity.ChatSession
	openID uuid.UUID
}

func NewMirror(client *backend.Client, owner uuid.UUID, log logger.ILogger) *Mirror {
	return &Mirror{client: client, owner: owner, logger: log}
}

func (m *Mirror) load(ctx context.Context) ([]*entity.ChatSession, error) {
	uow := m.client.Store.NewUnitOfWork(ctx)
	chats, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: m.owner},
		specification.NewestChatsFirst{},
	)
	if err != nil {
		return nil, apperror.Translate(err, "Failed to load chats")
	}
	return chats, nil
}

func (m *Mirror) replace(chats []*entity.ChatSession) {
	m.mu.Lock()
	m.chats = chats
	m.mu.Unlock()
}

// Load reads the list once and replaces the local copy.
func (m *Mirror) Load(ctx context.Context) ([]*entity.ChatSession, error) {
	chats, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	m.replace(chats)
	return chats, nil
}

// Watch yields the full list now and after every change.
func (m *Mirror) Watch(ctx context.Context) iter.Seq2[[]*entity.ChatSession, error] {
	source := subscription.New(m.client.Feed, m.load, feed.ChatListTopic(m.owner))
	return func(yield func([]*entity.ChatSession, error) bool) {
		for chats, err := range source.Snapshots(ctx) {
			if err == nil {
				m.replace(chats)
			}
			if !yield(chats, err) {
				return
			}
		}
	}
}

// Chats returns the last snapshot.
func (m *Mirror) Chats() []*entity.ChatSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*entity.ChatSession(nil), m.chats...)
}

// SetOpen records which chat the caller is looking at. uuid.Nil means none.
func (m *Mirror) SetOpen(id uuid.UUID) {
	m.mu.Lock()
	m.openID = id
	m.mu.Unlock()
}

func (m *Mirror) OpenID() uuid.UUID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.openID
}

// Create stores an empty chat with the placeholder title. The caller
// navigates to the returned chat.
func (m *Mirror) Create(ctx context.Context) (*entity.ChatSession, error) {
	chat := &entity.ChatSession{
		Id:        uuid.New(),
		UserId:    m.owner,
		Title:     entity.DefaultChatTitle,
		CreatedAt: m.client.Clock(),
	}

	uow := m.client.Store.NewUnitOfWork(ctx)
	if err := uow.ChatSessionRepository().Create(ctx, chat); err != nil {
		return nil, apperror.Translate(err, "Failed to create chat")
	}

	m.notify(ctx, feed.ChatListTopic(m.owner))
	return chat, nil
}

func (m *Mirror) Rename(ctx context.Context, id uuid.UUID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return apperror.FieldError(apperror.KindValidation, "title", "Chat title cannot be empty.")
	}

	uow := m.client.Store.NewUnitOfWork(ctx)
	n, err := uow.ChatSessionRepository().UpdateTitle(ctx, id, m.owner, title)
	if err != nil {
		return apperror.Wrap(apperror.KindRenameFailed, "Could not rename chat.", err)
	}
	if n == 0 {
		return apperror.New(apperror.KindRenameFailed, "Could not rename chat.")
	}

	m.notify(ctx, feed.ChatListTopic(m.owner), feed.ChatTopic(id))
	return nil
}

// Delete removes the chat and its messages. navigateAway is true when the
// deleted chat was the open one.
func (m *Mirror) Delete(ctx context.Context, id uuid.UUID) (navigateAway bool, err error) {
	uow := m.client.Store.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return false, apperror.Translate(err, "Failed to delete chat")
	}
	defer uow.Rollback()

	// Ownership is checked before any message goes.
	chat, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.UserOwnedBy{UserID: m.owner},
	)
	if err != nil {
		return false, apperror.Translate(err, "Failed to delete chat")
	}
	if chat == nil {
		return false, apperror.New(apperror.KindChatNotFound, "Chat not found.")
	}

	if err := uow.ChatMessageRepository().DeleteBySessionId(ctx, id); err != nil {
		return false, apperror.Translate(err, "Failed to delete chat")
	}
	if _, err := uow.ChatSessionRepository().Delete(ctx, id, m.owner); err != nil {
		return false, apperror.Translate(err, "Failed to delete chat")
	}
	if err := uow.Commit(); err != nil {
		return false, apperror.Translate(err, "Failed to delete chat")
	}

	m.notify(ctx, feed.ChatListTopic(m.owner), feed.ChatTopic(id))
	return m.OpenID() == id, nil
}

func (m *Mirror) notify(ctx context.Context, topics ...string) {
	if err := m.client.Notify(ctx, topics...); err != nil {
		m.logger.Warn("ChatList", "Failed to publish change", map[string]interface{}{
			"user_id": m.owner.String(),
			"error":   err.Error(),
		})
	}
}
