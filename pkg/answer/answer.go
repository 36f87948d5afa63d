package answer

import (
	"context"
	"strings"

	"medimate-be/pkg/backend"
	"medimate-be/pkg/llm"
)

const systemPrompt = `You are MediMate, a medical information assistant.
Answer the user's health question clearly and accurately in plain language.
Do not diagnose. When symptoms could be serious, tell the user to seek professional care.
If your answer relies on a well-known reference (for example the CDC, WHO, NHS or Mayo Clinic),
end with a final line of the form "Source: <name>". Otherwise do not add a source line.`

const sourcePrefix = "source:"

// Service answers medical questions with a chat model.
type Service struct {
	provider llm.LLMProvider
	options  []llm.Option
}

var _ backend.Answerer = (*Service)(nil)

func NewService(provider llm.LLMProvider, opts ...llm.Option) *Service {
	if len(opts) == 0 {
		opts = []llm.Option{llm.WithTemperature(0.3)}
	}
	return &Service{provider: provider, options: opts}
}

func (s *Service) Answer(ctx context.Context, question string) (*backend.Answer, error) {
	reply, err := s.provider.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: question},
	}, s.options...)
	if err != nil {
		return nil, err
	}
	return Parse(reply), nil
}

// Parse splits a trailing "Source: ..." line off the model's reply.
func Parse(reply string) *backend.Answer {
	text := strings.TrimSpace(reply)
	idx := strings.LastIndex(text, "\n")
	last := text[idx+1:]

	trimmed := strings.TrimSpace(strings.Trim(last, "*_ "))
	if !strings.HasPrefix(strings.ToLower(trimmed), sourcePrefix) {
		return &backend.Answer{Text: text}
	}

	source := strings.TrimSpace(trimmed[len(sourcePrefix):])
	body := ""
	if idx >= 0 {
		body = strings.TrimSpace(text[:idx])
	}
	if source == "" {
		return &backend.Answer{Text: body}
	}
	return &backend.Answer{Text: body, Source: &source}
}
