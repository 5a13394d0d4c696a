package render_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatroom/internal/app/chat"
	"chatroom/internal/app/identity"
	"chatroom/internal/app/memstore"
	"chatroom/internal/app/render"
)

// Two users in the room: A posts before B ever signs up, B opens the feed
// and sees A's message aligned to the left.
func TestTwoUserScenario(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := memstore.New()
	svc := identity.NewService(identity.Config{JWTSecret: "secret"}, identity.Deps{
		Accounts: store,
		Profiles: store,
		Sessions: identity.NewMemorySessionStore(),
	})
	notifier := chat.NewLocalNotifier()
	feed := chat.NewFeed(store, notifier)
	go feed.Run(ctx)
	composer := chat.NewComposer(store, notifier)
	presenter := render.NewPresenter(time.UTC)

	_, err := svc.SignUp(ctx, identity.SignUpInput{Email: "a@x.com", Password: "secret1", DisplayName: "alice"})
	require.NoError(t, err)
	a, err := svc.SignIn(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	_, err = composer.Send(ctx, a.Identity, "hi")
	require.NoError(t, err)

	b, err := svc.SignUp(ctx, identity.SignUpInput{Email: "b@x.com", Password: "secret2", DisplayName: "bob"})
	require.NoError(t, err)

	sub, err := feed.Subscribe(ctx, b.Identity)
	require.NoError(t, err)
	defer sub.Stop()

	var snap chat.Snapshot
	select {
	case snap = <-sub.Updates():
	case <-time.After(2 * time.Second):
		t.Fatal("no initial snapshot")
	}

	view := presenter.RenderSnapshot(snap, b.Identity).(render.SnapshotView)
	require.Len(t, view.Messages, 1)

	msg := view.Messages[0]
	assert.Equal(t, "hi", msg.Text)
	assert.Equal(t, "alice", msg.SenderName)
	assert.Equal(t, a.Identity.ID, msg.SenderID)
	assert.False(t, msg.Own)
	assert.Equal(t, render.AlignLeft, msg.Align)
	assert.Equal(t, "A", msg.AvatarFallback)

	own := presenter.RenderSnapshot(snap, a.Identity).(render.SnapshotView)
	assert.Equal(t, render.AlignRight, own.Messages[0].Align)
}
