package service

import (
	"context"
	"errors"
	"testing"

	"medimate-be/internal/apperror"
	"medimate-be/internal/entity"
	"medimate-be/internal/pkg/logger"
	"medimate-be/internal/testutil"
	"medimate-be/pkg/backend"
	"medimate-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChatFixture(t *testing.T) (*testutil.Backend, backend.Identity, *testutil.RecordingPublisher, IChatService) {
	b := testutil.NewBackend(t)
	id := b.SeedUser(t, "jo@example.com", "jo_99", true)
	publisher := &testutil.RecordingPublisher{}
	return b, id, publisher, NewChatService(b.Client, publisher, logger.NewNopLogger())
}

func TestChatServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	_, id, publisher, svc := newChatFixture(t)

	first, err := svc.Create(ctx, id.UID)
	require.NoError(t, err)
	assert.Equal(t, entity.DefaultChatTitle, first.Title)
	second, err := svc.Create(ctx, id.UID)
	require.NoError(t, err)

	chats, err := svc.List(ctx, id.UID)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, second.Id, chats[0].Id)

	require.NoError(t, svc.Rename(ctx, id.UID, first.Id, "  Headache notes "))
	chats, err = svc.List(ctx, id.UID)
	require.NoError(t, err)
	assert.Equal(t, "Headache notes", chats[1].Title)

	res, err := svc.Delete(ctx, id.UID, second.Id, second.Id)
	require.NoError(t, err)
	assert.True(t, res.NavigateAway)

	res, err = svc.Delete(ctx, id.UID, first.Id, uuid.Nil)
	require.NoError(t, err)
	assert.False(t, res.NavigateAway)

	chats, err = svc.List(ctx, id.UID)
	require.NoError(t, err)
	assert.Empty(t, chats)

	assert.Equal(t, []string{
		events.ChatCreated, events.ChatCreated, events.ChatRenamed, events.ChatDeleted, events.ChatDeleted,
	}, publisher.Types())
}

func TestChatServiceOwnership(t *testing.T) {
	ctx := context.Background()
	b, id, publisher, svc := newChatFixture(t)
	stranger := b.SeedUser(t, "kai@example.com", "kai_1", true)

	chat, err := svc.Create(ctx, id.UID)
	require.NoError(t, err)

	err = svc.Rename(ctx, stranger.UID, chat.Id, "Mine now")
	assert.True(t, apperror.Is(err, apperror.KindRenameFailed))

	_, err = svc.Delete(ctx, stranger.UID, chat.Id, uuid.Nil)
	assert.True(t, apperror.Is(err, apperror.KindChatNotFound))

	_, err = svc.Transcript(ctx, stranger.UID, chat.Id)
	assert.True(t, apperror.Is(err, apperror.KindChatNotFound))

	assert.Equal(t, []string{events.ChatCreated}, publisher.Types())
}

func TestChatServiceSend(t *testing.T) {
	ctx := context.Background()
	b, id, _, svc := newChatFixture(t)

	chat, err := svc.Create(ctx, id.UID)
	require.NoError(t, err)

	res, err := svc.Send(ctx, id.UID, chat.Id, "What helps with a mild fever at night?")
	require.NoError(t, err)
	assert.True(t, res.Sent)
	require.NotNil(t, res.Transcript)
	assert.Equal(t, "What helps with a mild fever a...", res.Transcript.Chat.Title)
	require.Len(t, res.Transcript.Messages, 2)
	assert.Equal(t, entity.ChatRoleUser, res.Transcript.Messages[0].Role)
	assert.Equal(t, entity.ChatRoleAssistant, res.Transcript.Messages[1].Role)
	assert.Equal(t, "Answer: What helps with a mild fever at night?", res.Transcript.Messages[1].Content)

	// The title is only derived from the first message.
	res, err = svc.Send(ctx, id.UID, chat.Id, "And for a child?")
	require.NoError(t, err)
	assert.Equal(t, "What helps with a mild fever a...", res.Transcript.Chat.Title)
	assert.Len(t, res.Transcript.Messages, 4)

	assert.Len(t, b.Answerer.Questions(), 2)
}

func TestChatServiceSendBlankIsIgnored(t *testing.T) {
	ctx := context.Background()
	b, id, _, svc := newChatFixture(t)

	chat, err := svc.Create(ctx, id.UID)
	require.NoError(t, err)

	res, err := svc.Send(ctx, id.UID, chat.Id, "   ")
	require.NoError(t, err)
	assert.False(t, res.Sent)
	assert.Empty(t, b.Answerer.Questions())
}

func TestChatServiceSendAnswerFailure(t *testing.T) {
	ctx := context.Background()
	b, id, _, svc := newChatFixture(t)
	b.Answerer.Func = func(string) (*backend.Answer, error) {
		return nil, errors.New("model offline")
	}

	chat, err := svc.Create(ctx, id.UID)
	require.NoError(t, err)

	_, err = svc.Send(ctx, id.UID, chat.Id, "Is ibuprofen safe?")
	require.Error(t, err)

	// The user message was stored before the answer was requested.
	tr, err := svc.Transcript(ctx, id.UID, chat.Id)
	require.NoError(t, err)
	require.Len(t, tr.Messages, 1)
	assert.Equal(t, entity.ChatRoleUser, tr.Messages[0].Role)
}
