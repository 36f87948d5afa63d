package dto

import (
	"time"

	"medimate-be/internal/entity"
	"medimate-be/pkg/transcript"

	"github.com/google/uuid"
)

type ChatSessionResponse struct {
	Id        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

func ChatSessionFrom(s *entity.ChatSession) ChatSessionResponse {
	return ChatSessionResponse{Id: s.Id, Title: s.Title, CreatedAt: s.CreatedAt}
}

func ChatSessionsFrom(sessions []*entity.ChatSession) []ChatSessionResponse {
	out := make([]ChatSessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, ChatSessionFrom(s))
	}
	return out
}

type ChatMessageResponse struct {
	Id        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Source    *string   `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type TranscriptResponse struct {
	Chat     ChatSessionResponse   `json:"chat"`
	Messages []ChatMessageResponse `json:"messages"`
	Sending  bool                  `json:"sending,omitempty"`
}

func TranscriptFrom(s *transcript.Snapshot) *TranscriptResponse {
	if s == nil || s.Chat == nil {
		return nil
	}
	messages := make([]ChatMessageResponse, 0, len(s.Messages))
	for _, m := range s.Messages {
		messages = append(messages, ChatMessageResponse{
			Id:        m.Id,
			Role:      m.Role,
			Content:   m.Content,
			Source:    m.Source,
			CreatedAt: m.CreatedAt,
		})
	}
	return &TranscriptResponse{Chat: ChatSessionFrom(s.Chat), Messages: messages}
}

type RenameChatRequest struct {
	Title string `json:"title"`
}

type SendMessageRequest struct {
	Content string `json:"content"`
}

type SendMessageResponse struct {
	Sent       bool                `json:"sent"`
	Transcript *TranscriptResponse `json:"transcript,omitempty"`
}

type DeleteChatResponse struct {
	NavigateAway bool `json:"navigate_away"`
}
