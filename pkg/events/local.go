package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"medimate-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// allEvents is the single gochannel topic every local event goes through;
// subject filtering happens on the subscriber side.
const allEvents = "events"

// LocalBus carries domain events inside the process. It stands in for NATS
// when no NATS URL is configured. Events are lost on restart.
type LocalBus struct {
	pubSub *gochannel.GoChannel
	logger logger.ILogger
}

var (
	_ Publisher  = (*LocalBus)(nil)
	_ Subscriber = (*LocalBus)(nil)
)

func NewLocalBus(log logger.ILogger) *LocalBus {
	return &LocalBus{
		pubSub: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 128}, watermill.NopLogger{}),
		logger: log,
	}
}

func (b *LocalBus) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(ToEnvelope(event))
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("subject", Subject(event.EventType()))
	return b.pubSub.Publish(allEvents, msg)
}

func (b *LocalBus) Subscribe(ctx context.Context, subject, durableName string, handler Handler) error {
	messages, err := b.pubSub.Subscribe(ctx, allEvents)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			if !MatchSubject(subject, msg.Metadata.Get("subject")) {
				msg.Ack()
				continue
			}
			var env Envelope
			if err := json.Unmarshal(msg.Payload, &env); err != nil {
				b.logger.Error("EventBus", "Dropping malformed event", map[string]interface{}{"error": err.Error()})
				msg.Ack()
				continue
			}
			if err := handler(ctx, env.Event()); err != nil {
				b.logger.Warn("EventBus", "Handler failed", map[string]interface{}{
					"consumer": durableName,
					"type":     env.Type,
					"error":    err.Error(),
				})
			}
			msg.Ack()
		}
	}()
	return nil
}

func (b *LocalBus) Close() error {
	return b.pubSub.Close()
}

// MatchSubject implements NATS subject wildcards: "*" matches one token,
// a trailing ">" matches one or more.
func MatchSubject(pattern, subject string) bool {
	p := strings.Split(pattern, ".")
	s := strings.Split(subject, ".")
	for i, tok := range p {
		if tok == ">" {
			return len(s) > i
		}
		if i >= len(s) {
			return false
		}
		if tok != "*" && tok != s[i] {
			return false
		}
	}
	return len(p) == len(s)
}
