package subscription

import (
	"context"
	"iter"

	"medimate-be/pkg/feed"
)

// Loader reads the full current state of the watched entity.
type Loader[T any] func(ctx context.Context) (T, error)

// Source turns feed signals into a stream of full snapshots.
type Source[T any] struct {
	feed   feed.Feed
	load   Loader[T]
	topics []string
}

func New[T any](f feed.Feed, load Loader[T], topics ...string) *Source[T] {
	return &Source[T]{feed: f, load: load, topics: topics}
}

// Snapshots yields the current snapshot, then a freshly loaded snapshot after
// every change. Nothing happens until the sequence is ranged over, and every
// range starts an independent subscription.
//
// The sequence ends when ctx ends, when the consumer stops, or right after a
// failed load has been yielded.
func (s *Source[T]) Snapshots(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		// Subscribe before the first load so no change slips in between.
		signals, err := s.feed.Subscribe(ctx, s.topics...)
		if err != nil {
			var zero T
			yield(zero, err)
			return
		}

		for {
			snapshot, err := s.load(ctx)
			if ctx.Err() != nil {
				return
			}
			if !yield(snapshot, err) || err != nil {
				return
			}

			select {
			case <-ctx.Done():
				return
			case _, ok := <-signals:
				if !ok {
					return
				}
			}
		}
	}
}
