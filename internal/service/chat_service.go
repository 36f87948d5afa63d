package service

import (
	"context"

	"medimate-be/internal/dto"
	"medimate-be/internal/pkg/logger"
	"medimate-be/pkg/backend"
	"medimate-be/pkg/chatlist"
	"medimate-be/pkg/events"
	"medimate-be/pkg/transcript"

	"github.com/google/uuid"
)

type IChatService interface {
	List(ctx context.Context, uid uuid.UUID) ([]dto.ChatSessionResponse, error)
	Create(ctx context.Context, uid uuid.UUID) (*dto.ChatSessionResponse, error)
	Rename(ctx context.Context, uid, chatID uuid.UUID, title string) error
	// Delete reports navigateAway when chatID is the chat the caller has open.
	Delete(ctx context.Context, uid, chatID, openID uuid.UUID) (*dto.DeleteChatResponse, error)
	Transcript(ctx context.Context, uid, chatID uuid.UUID) (*dto.TranscriptResponse, error)
	Send(ctx context.Context, uid, chatID uuid.UUID, content string) (*dto.SendMessageResponse, error)
}

// chatService runs the chat mirrors for one request at a time. Realtime
// connections keep their own long-lived mirrors instead.
type chatService struct {
	client    *backend.Client
	publisher events.Publisher
	logger    logger.ILogger
}

func NewChatService(client *backend.Client, publisher events.Publisher, log logger.ILogger) IChatService {
	return &chatService{client: client, publisher: publisher, logger: log}
}

func (s *chatService) List(ctx context.Context, uid uuid.UUID) ([]dto.ChatSessionResponse, error) {
	chats, err := chatlist.NewMirror(s.client, uid, s.logger).Load(ctx)
	if err != nil {
		return nil, err
	}
	return dto.ChatSessionsFrom(chats), nil
}

func (s *chatService) Create(ctx context.Context, uid uuid.UUID) (*dto.ChatSessionResponse, error) {
	chat, err := chatlist.NewMirror(s.client, uid, s.logger).Create(ctx)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.ChatCreated, uid, chat.Id)
	res := dto.ChatSessionFrom(chat)
	return &res, nil
}

func (s *chatService) Rename(ctx context.Context, uid, chatID uuid.UUID, title string) error {
	if err := chatlist.NewMirror(s.client, uid, s.logger).Rename(ctx, chatID, title); err != nil {
		return err
	}
	s.publish(ctx, events.ChatRenamed, uid, chatID)
	return nil
}

func (s *chatService) Delete(ctx context.Context, uid, chatID, openID uuid.UUID) (*dto.DeleteChatResponse, error) {
	mirror := chatlist.NewMirror(s.client, uid, s.logger)
	mirror.SetOpen(openID)
	navigateAway, err := mirror.Delete(ctx, chatID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.ChatDeleted, uid, chatID)
	return &dto.DeleteChatResponse{NavigateAway: navigateAway}, nil
}

func (s *chatService) Transcript(ctx context.Context, uid, chatID uuid.UUID) (*dto.TranscriptResponse, error) {
	snapshot, err := transcript.NewMirror(s.client, uid, chatID, s.logger).Load(ctx)
	if err != nil {
		return nil, err
	}
	return dto.TranscriptFrom(snapshot), nil
}

func (s *chatService) Send(ctx context.Context, uid, chatID uuid.UUID, content string) (*dto.SendMessageResponse, error) {
	mirror := transcript.NewMirror(s.client, uid, chatID, s.logger)
	if _, err := mirror.Load(ctx); err != nil {
		return nil, err
	}

	sent, err := mirror.Send(ctx, content)
	if err != nil {
		return nil, err
	}
	if !sent {
		return &dto.SendMessageResponse{Sent: false}, nil
	}

	snapshot, err := mirror.Load(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.SendMessageResponse{Sent: true, Transcript: dto.TranscriptFrom(snapshot)}, nil
}

func (s *chatService) publish(ctx context.Context, eventType string, uid, chatID uuid.UUID) {
	publishEvent(ctx, s.publisher, s.logger, events.ForUser(eventType, uid, s.client.Clock(), map[string]interface{}{
		"chat_id": chatID.String(),
	}))
}
