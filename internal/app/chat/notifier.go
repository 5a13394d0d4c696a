package chat

import (
	"context"
	"sync"
)

// Notifier carries "the message list changed" signals from the Composer to
// the Feed. Signals carry no data and may be coalesced.
type Notifier interface {
	// Publish announces a change.
	Publish(ctx context.Context) error

	// Listen returns a stream of change signals. The stream is closed when
	// ctx is cancelled or the underlying transport gives up.
	Listen(ctx context.Context) (<-chan struct{}, error)
}

// LocalNotifier is an in-process Notifier for single-node deployments.
// Each listener has a one-slot buffer, so a burst of publishes collapses
// into a single pending signal.
type LocalNotifier struct {
	mu        sync.Mutex
	listeners map[chan struct{}]struct{}
}

func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{listeners: make(map[chan struct{}]struct{})}
}

func (n *LocalNotifier) Publish(_ context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	for ch := range n.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

func (n *LocalNotifier) Listen(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)

	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()

	context.AfterFunc(ctx, func() {
		n.mu.Lock()
		delete(n.listeners, ch)
		close(ch)
		n.mu.Unlock()
	})

	return ch, nil
}
