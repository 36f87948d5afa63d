package transcript

import (
	"context"
	"errors"
	"iter"
	"slices"
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

const (
	titleLength = 30
	ellipsis    = "..."
)

// DeriveTitle names a chat after its first message: the first 30
// characters, with an ellipsis when the message is longer.
func DeriveTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= titleLength {
		return text
	}
	return string(runes[:titleLength]) + ellipsis
}

// Snapshot is the full state of one chat.
type Snapshot struct {
	Chat     *entity.ChatSession   `json:"chat"`
	Messages []*entity.ChatMessage `json:"messages"`
}

// Mirror follows one chat. The subscription is the source of truth; sends
// append optimistically and the next snapshot replaces whatever is held
// locally.
type Mirror struct {
	client *backend.Client
	owner  uuid.UUID
	chatID uuid.UUID
	logger logger.ILogger

	mu       sync.Mutex
	chat     *entity.ChatSession
	messages []*entity.ChatMessage
	sending  bool
	onLocal  func()
}

func NewMirror(client *backend.Client, owner, chatID uuid.UUID, log logger.ILogger) *Mirror {
	return &Mirror{client: client, owner: owner, chatID: chatID, logger: log}
}

func (m *Mirror) ChatID() uuid.UUID {
	return m.chatID
}

func chatNotFound() *apperror.Error {
	return apperror.New(apperror.KindChatNotFound, "Chat not found.")
}

func (m *Mirror) load(ctx context.Context) (*Snapshot, error) {
	uow := m.client.Store.NewUnitOfWork(ctx)
	chat, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: m.chatID},
		specification.UserOwnedBy{UserID: m.owner},
	)
	if err != nil {
		return nil, apperror.Translate(err, "Failed to load chat")
	}
	if chat == nil {
		return nil, chatNotFound()
	}

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: m.chatID},
		specification.TranscriptOrder{},
	)
	if err != nil {
		return nil, apperror.Translate(err, "Failed to load messages")
	}
	return &Snapshot{Chat: chat, Messages: messages}, nil
}

func (m *Mirror) replace(s *Snapshot) {
	m.mu.Lock()
	m.chat = s.Chat
	m.messages = s.Messages
	m.mu.Unlock()
}

func (m *Mirror) clear() {
	m.mu.Lock()
	m.chat = nil
	m.messages = nil
	m.mu.Unlock()
}

// Load reads the chat once. A missing or foreign chat is ChatNotFound.
func (m *Mirror) Load(ctx context.Context) (*Snapshot, error) {
	s, err := m.load(ctx)
	if err != nil {
		if apperror.Is(err, apperror.KindChatNotFound) {
			m.clear()
		}
		return nil, err
	}
	m.replace(s)
	return s, nil
}

// Watch yields the full chat now and after every change. A ChatNotFound
// error is yielded once and ends the sequence; the caller leaves the chat.
func (m *Mirror) Watch(ctx context.Context) iter.Seq2[*Snapshot, error] {
	source := subscription.New(m.client.Feed, m.load, feed.ChatTopic(m.chatID))
	return func(yield func(*Snapshot, error) bool) {
		for s, err := range source.Snapshots(ctx) {
			if err != nil {
				if apperror.Is(err, apperror.KindChatNotFound) {
					m.clear()
				}
				yield(nil, err)
				return
			}
			m.replace(s)
			if !yield(s, nil) {
				return
			}
		}
	}
}

// Local returns what the mirror currently shows, optimistic messages
// included.
func (m *Mirror) Local() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{Chat: m.chat, Messages: slices.Clone(m.messages)}
}

func (m *Mirror) Sending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sending
}

// OnLocalChange registers f to run after a send changes Local without a
// snapshot: once for the optimistic append and once more if it is rolled
// back. f runs on the sending goroutine.
func (m *Mirror) OnLocalChange(f func()) {
	m.mu.Lock()
	m.onLocal = f
	m.mu.Unlock()
}

func (m *Mirror) localChanged() {
	m.mu.Lock()
	f := m.onLocal
	m.mu.Unlock()
	if f != nil {
		f()
	}
}

// beginSend applies the optimistic append. It returns nil when the send is
// rejected.
func (m *Mirror) beginSend(text string) (msg *entity.ChatMessage, firstUserMessage bool, title string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if strings.TrimSpace(text) == "" || m.sending || m.chat == nil {
		return nil, false, ""
	}

	firstUserMessage = !slices.ContainsFunc(m.messages, func(existing *entity.ChatMessage) bool {
		return existing.Role == entity.ChatRoleUser
	})

	msg = &entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: m.chatID,
		Role:          entity.ChatRoleUser,
		Content:       text,
		CreatedAt:     m.client.Clock(),
	}
	m.messages = append(m.messages, msg)
	m.sending = true
	return msg, firstUserMessage, m.chat.Title
}

// rollback drops the optimistic message. A snapshot may already have
// replaced the list, so it is removed by id rather than by position.
func (m *Mirror) rollback(id uuid.UUID) {
	m.mu.Lock()
	m.messages = slices.DeleteFunc(m.messages, func(msg *entity.ChatMessage) bool {
		return msg.Id == id
	})
	m.mu.Unlock()
	m.localChanged()
}

func (m *Mirror) endSend() {
	m.mu.Lock()
	m.sending = false
	m.mu.Unlock()
}

// Send posts text as a user message and appends the assistant's answer.
// It reports false without doing anything when text is blank, a send is
// already running or no chat is loaded.
//
// The user message is stored before the question is asked, and the answer
// is stored after it arrives. On failure the optimistic message is
// removed and the error is returned; whatever did reach the store shows up
// in the next snapshot.
func (m *Mirror) Send(ctx context.Context, text string) (bool, error) {
	msg, firstUserMessage, title := m.beginSend(text)
	if msg == nil {
		return false, nil
	}
	defer m.endSend()
	m.localChanged()

	if err := m.store(ctx, msg, firstUserMessage && title == entity.DefaultChatTitle, "Failed to send message"); err != nil {
		m.rollback(msg.Id)
		return true, err
	}

	answer, err := m.client.Answerer.Answer(ctx, text)
	if err != nil {
		m.rollback(msg.Id)
		m.logger.Error("ChatTranscript", "Answer failed", map[string]interface{}{
			"chat_id": m.chatID.String(),
			"error":   err,
		})
		return true, apperror.Translate(err, "The assistant could not answer right now.")
	}

	reply := &entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: m.chatID,
		Role:          entity.ChatRoleAssistant,
		Content:       answer.Text,
		Source:        answer.Source,
		CreatedAt:     m.client.Clock(),
	}
	if err := m.store(ctx, reply, false, "Failed to save the answer"); err != nil {
		m.rollback(msg.Id)
		return true, err
	}
	return true, nil
}

// store appends msg and, when nameChat is set, titles an untitled chat in
// the same transaction. The chat row stays locked until commit so writers
// to one chat commit in seq order.
func (m *Mirror) store(ctx context.Context, msg *entity.ChatMessage, nameChat bool, failure string) error {
	uow := m.client.Store.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return apperror.Translate(err, failure)
	}
	defer uow.Rollback()

	chat, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: m.chatID},
		specification.UserOwnedBy{UserID: m.owner},
		specification.ForUpdate{},
	)
	if err != nil {
		return apperror.Translate(err, failure)
	}
	if chat == nil {
		return chatNotFound()
	}

	if err := uow.ChatMessageRepository().Append(ctx, msg); err != nil {
		return apperror.Translate(err, failure)
	}

	renamed := false
	if nameChat {
		renamed, err = uow.ChatSessionRepository().UpdateTitleIfDefault(ctx, m.chatID, DeriveTitle(msg.Content))
		if err != nil {
			return apperror.Translate(err, failure)
		}
	}

	if err := uow.Commit(); err != nil {
		return apperror.Translate(err, failure)
	}

	topics := []string{feed.ChatTopic(m.chatID)}
	if renamed {
		topics = append(topics, feed.ChatListTopic(m.owner))
	}
	m.notify(ctx, topics...)
	return nil
}

func (m *Mirror) notify(ctx context.Context, topics ...string) {
	if err := m.client.Notify(ctx, topics...); err != nil {
		m.logger.Warn("ChatTranscript", "Failed to publish change", map[string]interface{}{
			"chat_id": m.chatID.String(),
			"error":   err.Error(),
		})
	}
}

// IsNotFound reports whether err means the chat is gone.
func IsNotFound(err error) bool {
	var appErr *apperror.Error
	return errors.As(err, &appErr) && appErr.Kind == apperror.KindChatNotFound
}
