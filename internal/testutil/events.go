package testutil

import (
	"context"
	"sync"

	"medimate-be/pkg/events"

	"github.com/google/uuid"
)

// RecordingPublisher keeps every published event.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *RecordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *RecordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

type Frame struct {
	UserID uuid.UUID
	Type   string
	Data   interface{}
}

// RecordingPusher keeps every realtime frame pushed to a user.
type RecordingPusher struct {
	mu     sync.Mutex
	frames []Frame
}

func (p *RecordingPusher) Push(userID uuid.UUID, frameType string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, Frame{UserID: userID, Type: frameType, Data: data})
}

func (p *RecordingPusher) Frames(frameType string) []Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Frame
	for _, f := range p.frames {
		if f.Type == frameType {
			out = append(out, f)
		}
	}
	return out
}
