package chat

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"chatroom/internal/app/user"
	"chatroom/internal/pkg/errs"
	"chatroom/internal/pkg/logx"
)

const defaultRelistenDelay = 2 * time.Second

// ErrFeedClosed is returned by Subscribe after Run has returned.
var ErrFeedClosed = errors.New("chat: feed is closed")

// Feed keeps every live Subscription up to date with the ordered message list.
//
// All subscription bookkeeping happens on the Run goroutine: registration,
// removal and change notifications are serialized through channels, and the
// store is read once per notification no matter how many subscriptions exist.
type Feed struct {
	store    MessageStore
	notifier Notifier

	register   chan *Subscription
	unregister chan *Subscription

	// subs is owned by the Run goroutine.
	subs   map[*Subscription]struct{}
	active atomic.Int64

	relistenDelay time.Duration
	closed        chan struct{}

	logger zerolog.Logger
}

// NewFeed creates a Feed. Run must be started before Subscribe is used.
func NewFeed(store MessageStore, notifier Notifier) *Feed {
	return &Feed{
		store:         store,
		notifier:      notifier,
		register:      make(chan *Subscription),
		unregister:    make(chan *Subscription),
		subs:          make(map[*Subscription]struct{}),
		relistenDelay: defaultRelistenDelay,
		closed:        make(chan struct{}),
		logger:        logx.Component("feed"),
	}
}

// Active returns the number of live subscriptions.
func (f *Feed) Active() int {
	return int(f.active.Load())
}

// Subscribe opens a live subscription for viewer. The first value on
// Updates is the full ordered snapshot; a fresh one follows every change.
// The subscription stops when ctx is cancelled or Stop is called.
func (f *Feed) Subscribe(ctx context.Context, viewer user.Identity) (*Subscription, error) {
	if viewer.ID == "" {
		return nil, ErrNoIdentity
	}

	sub := newSubscription(f, viewer)
	sub.setStopOnCancel(context.AfterFunc(ctx, sub.Stop))

	select {
	case f.register <- sub:
		return sub, nil
	case <-f.closed:
		sub.terminate(nil)
		return nil, ErrFeedClosed
	case <-ctx.Done():
		sub.terminate(nil)
		return nil, ctx.Err()
	}
}

// Run is the feed's event loop. It returns when ctx is cancelled, after
// stopping every live subscription.
func (f *Feed) Run(ctx context.Context) {
	defer close(f.closed)
	defer f.stopAll()

	f.logger.Info().Msg("Feed loop started.")

	notes, relisten := f.listen(ctx)

	for {
		select {
		case <-ctx.Done():
			f.logger.Info().Msg("Feed loop stopped.")
			return

		case sub := <-f.register:
			if f.add(sub) {
				f.deliverInitial(ctx, sub)
			}

		case sub := <-f.unregister:
			f.remove(sub)

		case _, ok := <-notes:
			if !ok {
				f.logger.Warn().Msg("Change notification stream ended. Failing live subscriptions.")
				f.failAll(errs.NewError(errs.ErrSubscriptionLost))
				notes, relisten = nil, time.After(f.relistenDelay)
				continue
			}
			f.refresh(ctx)

		case <-relisten:
			notes, relisten = f.listen(ctx)
		}
	}
}

// listen opens the notification stream. On failure it returns a nil stream
// and a timer for the next attempt.
func (f *Feed) listen(ctx context.Context) (<-chan struct{}, <-chan time.Time) {
	notes, err := f.notifier.Listen(ctx)
	if err != nil {
		f.logger.Error().Err(err).Dur("retry_in", f.relistenDelay).Msg("Failed to listen for change notifications.")
		return nil, time.After(f.relistenDelay)
	}
	return notes, nil
}

// add tracks sub and reports whether it is still live. A subscription stopped
// before its registration reached the loop is dropped.
func (f *Feed) add(sub *Subscription) bool {
	select {
	case <-sub.done:
		return false
	default:
	}

	f.subs[sub] = struct{}{}
	f.active.Store(int64(len(f.subs)))

	f.logger.Debug().
		Str("viewer_id", sub.viewer.ID).
		Int("active", len(f.subs)).
		Msg("Subscription registered.")
	return true
}

func (f *Feed) remove(sub *Subscription) {
	if _, ok := f.subs[sub]; !ok {
		return
	}
	delete(f.subs, sub)
	f.active.Store(int64(len(f.subs)))

	f.logger.Debug().
		Str("viewer_id", sub.viewer.ID).
		Int("active", len(f.subs)).
		Msg("Subscription removed.")
}

func (f *Feed) load(ctx context.Context) (Snapshot, error) {
	messages, err := f.store.List(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Messages: messages, LoadedAt: time.Now()}, nil
}

func (f *Feed) deliverInitial(ctx context.Context, sub *Subscription) {
	snap, err := f.load(ctx)
	if err != nil {
		f.logger.Error().Err(err).Str("viewer_id", sub.viewer.ID).Msg("Failed to load initial snapshot.")
		f.fail(sub, errs.NewError(errs.ErrSubscriptionLost))
		return
	}
	sub.push(snap)
}

// refresh reloads the list once and pushes it to every subscription.
func (f *Feed) refresh(ctx context.Context) {
	if len(f.subs) == 0 {
		return
	}

	snap, err := f.load(ctx)
	if err != nil {
		f.logger.Error().Err(err).Int("active", len(f.subs)).Msg("Failed to reload messages after change notification.")
		f.failAll(errs.NewError(errs.ErrSubscriptionLost))
		return
	}

	for sub := range f.subs {
		sub.push(snap)
	}
}

func (f *Feed) fail(sub *Subscription, err error) {
	sub.terminate(err)
	f.remove(sub)
}

func (f *Feed) failAll(err error) {
	for sub := range f.subs {
		f.fail(sub, err)
	}
}

func (f *Feed) stopAll() {
	for sub := range f.subs {
		f.fail(sub, nil)
	}
}
