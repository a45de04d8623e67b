package waveapp

import "github.com/wavecollab/wave/pkg/world"

// MutationEvent is what the mutation stream delivers: the world that
// just became (or re-became) live, and the wave tag the triggering
// call resolved to — or the synthetic tag "undo" for undo/redo
// replays.
type MutationEvent struct {
	World *world.World
	Tag   string
}

// subscriber wraps a callback so Unsubscribe can identify it by
// pointer identity even though func values aren't comparable.
type subscriber[T any] struct {
	fn func(T)
}

// Stream delivers pushes to every current subscriber, synchronously
// and in subscription order. It assumes the single-threaded
// cooperative model the core runs under, so it takes no lock —
// matching the teacher pack's Unbuffered broadcaster in spirit but
// simplified since WaveApp never pushes from more than one goroutine.
type Stream[T any] struct {
	subs []*subscriber[T]
}

// NewStream returns an empty Stream.
func NewStream[T any]() *Stream[T] {
	return &Stream[T]{}
}

// Subscribe registers fn and returns a closure that unsubscribes it.
// Unsubscribe is O(n) in the current subscriber count, identifying
// the entry to remove by the pointer returned here rather than by fn
// itself.
func (s *Stream[T]) Subscribe(fn func(T)) func() {
	sub := &subscriber[T]{fn: fn}
	s.subs = append(s.subs, sub)
	return func() {
		for i, cur := range s.subs {
			if cur == sub {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Push delivers v to every current subscriber in order. A subscriber
// that unsubscribes itself mid-push is respected for subsequent
// deliveries of this same Push but a panicking subscriber is not
// recovered here — hosts that want watcher isolation should wrap their
// own callback.
func (s *Stream[T]) Push(v T) {
	for _, sub := range append([]*subscriber[T](nil), s.subs...) {
		sub.fn(v)
	}
}
