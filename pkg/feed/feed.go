package feed

import (
	"context"
	"fmt"
	"sync"

	"medimate-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Feed tells subscribers that something under a topic changed. It carries
// no data; subscribers reload what they watch.
type Feed interface {
	Publish(ctx context.Context, topics ...string) error
	// Subscribe returns a channel that receives at least one signal after
	// every publish on any of the topics. Bursts coalesce into one signal.
	// The channel closes when ctx ends.
	Subscribe(ctx context.Context, topics ...string) (<-chan struct{}, error)
}

// Bus is the in-process feed.
type Bus struct {
	pubSub *gochannel.GoChannel
	logger logger.ILogger
}

func NewBus(log logger.ILogger) *Bus {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NopLogger{},
	)
	return &Bus{pubSub: pubSub, logger: log}
}

func (b *Bus) Publish(ctx context.Context, topics ...string) error {
	for _, topic := range topics {
		msg := message.NewMessage(watermill.NewUUID(), message.Payload(topic))
		msg.SetContext(ctx)
		if err := b.pubSub.Publish(topic, msg); err != nil {
			return fmt.Errorf("publish %s: %w", topic, err)
		}
	}
	return nil
}

func (b *Bus) Subscribe(ctx context.Context, topics ...string) (<-chan struct{}, error) {
	ctx, cancel := context.WithCancel(ctx)
	signal := make(chan struct{}, 1)

	var wg sync.WaitGroup
	for _, topic := range topics {
		messages, err := b.pubSub.Subscribe(ctx, topic)
		if err != nil {
			cancel()
			wg.Wait()
			return nil, fmt.Errorf("subscribe %s: %w", topic, err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			for msg := range messages {
				msg.Ack()
				select {
				case signal <- struct{}{}:
				default:
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		cancel()
		close(signal)
	}()

	return signal, nil
}

func (b *Bus) Close() error {
	return b.pubSub.Close()
}
