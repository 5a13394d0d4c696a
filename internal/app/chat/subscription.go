package chat

import (
	"sync"

	"chatroom/internal/app/user"
)

// Subscription is a live, cancellable view of the feed for one viewer.
//
// Updates delivers complete snapshots with latest-wins semantics: a consumer
// that falls behind skips stale snapshots but never misses a message, since
// each snapshot contains the whole list. The channel is never closed; wait on
// Done to learn that the subscription ended, then check Err.
type Subscription struct {
	feed   *Feed
	viewer user.Identity

	updates chan Snapshot
	done    chan struct{}

	once sync.Once
	mu   sync.Mutex
	err  error

	stopOnCancel func() bool
}

func newSubscription(f *Feed, viewer user.Identity) *Subscription {
	return &Subscription{
		feed:    f,
		viewer:  viewer,
		updates: make(chan Snapshot, 1),
		done:    make(chan struct{}),
	}
}

// Viewer returns the identity the subscription was opened for.
func (s *Subscription) Viewer() user.Identity {
	return s.viewer
}

// Updates returns the snapshot channel.
func (s *Subscription) Updates() <-chan Snapshot {
	return s.updates
}

// Done is closed when the subscription ends.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err returns why the subscription ended: nil after Stop or feed shutdown,
// an ErrSubscriptionLost error when the feed could not keep it up to date.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Stop ends the subscription and removes it from the feed. Safe to call more than once.
func (s *Subscription) Stop() {
	if !s.terminate(nil) {
		return
	}

	select {
	case s.feed.unregister <- s:
	case <-s.feed.closed:
	}
}

func (s *Subscription) setStopOnCancel(stop func() bool) {
	s.mu.Lock()
	s.stopOnCancel = stop
	s.mu.Unlock()
}

// terminate closes done exactly once and reports whether this call did it.
func (s *Subscription) terminate(err error) bool {
	first := false
	s.once.Do(func() {
		first = true

		s.mu.Lock()
		s.err = err
		stop := s.stopOnCancel
		s.mu.Unlock()

		if stop != nil {
			stop()
		}
		close(s.done)
	})
	return first
}

// push replaces any undelivered snapshot with snap. Only the feed loop calls it.
func (s *Subscription) push(snap Snapshot) {
	select {
	case <-s.done:
		return
	default:
	}

	select {
	case <-s.updates:
	default:
	}
	s.updates <- snap
}
