package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"medimate-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultBridgeChannel = "medimate:feed"

type bridgeEnvelope struct {
	Origin string   `json:"origin"`
	Topics []string `json:"topics"`
}

// RedisBridge fans local publishes out to other instances over Redis pub/sub
// and replays their publishes on the local bus.
type RedisBridge struct {
	bus     *Bus
	rdb     *redis.Client
	channel string
	origin  string
	logger  logger.ILogger
}

func NewRedisBridge(bus *Bus, rdb *redis.Client, log logger.ILogger) *RedisBridge {
	return &RedisBridge{
		bus:     bus,
		rdb:     rdb,
		channel: defaultBridgeChannel,
		origin:  uuid.NewString(),
		logger:  log,
	}
}

// Publish always delivers locally. A Redis failure is returned after the
// local delivery so callers can log it without undoing their write.
func (b *RedisBridge) Publish(ctx context.Context, topics ...string) error {
	if err := b.bus.Publish(ctx, topics...); err != nil {
		return err
	}
	payload, err := json.Marshal(bridgeEnvelope{Origin: b.origin, Topics: topics})
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis fan-out: %w", err)
	}
	return nil
}

func (b *RedisBridge) Subscribe(ctx context.Context, topics ...string) (<-chan struct{}, error) {
	return b.bus.Subscribe(ctx, topics...)
}

// Start subscribes to the Redis channel and returns once the subscription is
// confirmed. Remote publishes are replayed until ctx ends.
func (b *RedisBridge) Start(ctx context.Context) error {
	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var env bridgeEnvelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					b.logger.Warn("FeedBridge", "Dropping malformed envelope", map[string]interface{}{"error": err.Error()})
					continue
				}
				if env.Origin == b.origin {
					continue
				}
				if err := b.bus.Publish(ctx, env.Topics...); err != nil {
					b.logger.Error("FeedBridge", "Local replay failed", map[string]interface{}{"error": err, "topics": env.Topics})
				}
			}
		}
	}()

	b.logger.Info("FeedBridge", "Redis bridge started", map[string]interface{}{"channel": b.channel, "origin": b.origin})
	return nil
}
