package feed

import (
	"context"
	"testing"
	"time"

	"medimate-be/internal/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitSignal(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case _, ok := <-ch:
		require.True(t, ok, "signal channel closed")
	case <-time.After(2 * time.Second):
		t.Fatal("no signal received")
	}
}

func TestBusDeliversToTopicSubscribers(t *testing.T) {
	bus := NewBus(logger.NewNopLogger())
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	uid := uuid.New()
	signals, err := bus.Subscribe(ctx, ChatListTopic(uid))
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, ChatListTopic(uid)))
	waitSignal(t, signals)
}

func TestBusIgnoresOtherTopics(t *testing.T) {
	bus := NewBus(logger.NewNopLogger())
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals, err := bus.Subscribe(ctx, ChatTopic(uuid.New()))
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, ChatTopic(uuid.New())))

	select {
	case <-signals:
		t.Fatal("unexpected signal for another topic")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBusCoalescesBursts(t *testing.T) {
	bus := NewBus(logger.NewNopLogger())
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	topic := UserTopic(uuid.New())
	signals, err := bus.Subscribe(ctx, topic)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, bus.Publish(ctx, topic))
	}

	waitSignal(t, signals)
	assert.LessOrEqual(t, len(signals), 1)
}

func TestBusClosesSignalOnCancel(t *testing.T) {
	bus := NewBus(logger.NewNopLogger())
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	signals, err := bus.Subscribe(ctx, IdentityTopic(uuid.New()))
	require.NoError(t, err)

	cancel()

	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-signals:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRedisBridgeReplaysRemotePublishes(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	newBridge := func() (*RedisBridge, *Bus) {
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { rdb.Close() })
		bus := NewBus(logger.NewNopLogger())
		t.Cleanup(func() { bus.Close() })
		return NewRedisBridge(bus, rdb, logger.NewNopLogger()), bus
	}

	first, _ := newBridge()
	second, _ := newBridge()
	require.NoError(t, first.Start(ctx))
	require.NoError(t, second.Start(ctx))

	topic := ChatTopic(uuid.New())
	remote, err := second.Subscribe(ctx, topic)
	require.NoError(t, err)
	local, err := first.Subscribe(ctx, topic)
	require.NoError(t, err)

	require.NoError(t, first.Publish(ctx, topic))

	waitSignal(t, local)
	waitSignal(t, remote)
}
