package service

import (
	"context"
	"testing"
	"time"

	"medimate-be/internal/dto"
	"medimate-be/internal/pkg/logger"
	"medimate-be/internal/repository/specification"
	"medimate-be/internal/testutil"
	"medimate-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityServiceHandleEvent(t *testing.T) {
	ctx := context.Background()
	_, store := testutil.NewStore(t)
	pusher := &testutil.RecordingPusher{}
	svc := NewActivityService(store, events.NewLocalBus(logger.NewNopLogger()), pusher, logger.NewNopLogger())
	uid := uuid.New()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("records known events", func(t *testing.T) {
		chatID := uuid.NewString()
		err := svc.HandleEvent(ctx, events.ForUser(events.ChatRenamed, uid, at, map[string]interface{}{"chat_id": chatID}))
		require.NoError(t, err)

		items, err := store.NewUnitOfWork(ctx).NotificationRepository().FindAll(ctx, specification.UserOwnedBy{UserID: uid})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, events.ChatRenamed, items[0].TypeCode)
		assert.Equal(t, "Chat renamed", items[0].Title)
		assert.Equal(t, chatID, items[0].Metadata["chat_id"])
		assert.NotContains(t, items[0].Metadata, "user_id")

		frames := pusher.Frames("activity")
		require.Len(t, frames, 1)
		assert.Equal(t, uid, frames[0].UserID)
		assert.Equal(t, events.ChatRenamed, frames[0].Data.(dto.ActivityResponse).Type)
	})

	t.Run("ignores unknown types", func(t *testing.T) {
		err := svc.HandleEvent(ctx, events.ForUser("NOTE_CREATED", uid, at, nil))
		require.NoError(t, err)
		assert.Len(t, pusher.Frames("activity"), 1)
	})

	t.Run("ignores events without a user", func(t *testing.T) {
		err := svc.HandleEvent(ctx, events.BaseEvent{Type: events.ChatCreated, Data: map[string]interface{}{}, OccurredAt: at})
		require.NoError(t, err)
		assert.Len(t, pusher.Frames("activity"), 1)
	})
}

func TestActivityServiceConsumesLocalBus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, store := testutil.NewStore(t)
	bus := events.NewLocalBus(logger.NewNopLogger())
	pusher := &testutil.RecordingPusher{}
	svc := NewActivityService(store, bus, pusher, logger.NewNopLogger())
	require.NoError(t, svc.Start(ctx))

	uid := uuid.New()
	require.NoError(t, bus.Publish(ctx, events.ForUser(events.UserSignedUp, uid, time.Now(), nil)))

	assert.Eventually(t, func() bool {
		return len(pusher.Frames("activity")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	total, err := store.NewUnitOfWork(ctx).NotificationRepository().Count(ctx, specification.UserOwnedBy{UserID: uid})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}
