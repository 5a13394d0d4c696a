package render

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatroom/internal/app/chat"
	"chatroom/internal/app/user"
)

func TestViewAlignment(t *testing.T) {
	p := NewPresenter(time.UTC)
	msg := chat.Message{ID: "m1", SenderID: "alice", SenderName: "alice", Text: "hi", SentAt: time.Now()}

	cases := []struct {
		name   string
		viewer user.Identity
		own    bool
		align  string
	}{
		{"sender sees own", user.Identity{ID: "alice"}, true, AlignRight},
		{"other viewer", user.Identity{ID: "bob"}, false, AlignLeft},
		{"anonymous viewer", user.Identity{}, false, AlignLeft},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := p.View(msg, tc.viewer)
			assert.Equal(t, tc.own, v.Own)
			assert.Equal(t, tc.align, v.Align)
			assert.Equal(t, tc.align, v.AvatarSide)
		})
	}

	anon := p.View(chat.Message{SenderID: ""}, user.Identity{})
	assert.False(t, anon.Own, "empty ids never match")
}

func TestClock(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	at := time.Date(2026, 7, 4, 19, 5, 0, 0, time.UTC)

	cases := []struct {
		loc  *time.Location
		want string
	}{
		{time.UTC, "07:05 PM"},
		{ny, "03:05 PM"},
		{time.FixedZone("UTC+6", 6*3600), "01:05 AM"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NewPresenter(tc.loc).Clock(at), tc.loc.String())
	}
}

func TestAvatarFallback(t *testing.T) {
	p := NewPresenter(time.UTC)

	v := p.View(chat.Message{SenderName: "zoë"}, user.Identity{})
	assert.Equal(t, "Z", v.AvatarFallback)
	assert.Empty(t, v.AvatarURL)

	v = p.View(chat.Message{SenderName: "zoë", SenderAvatar: "https://cdn/x.png"}, user.Identity{})
	assert.Empty(t, v.AvatarFallback)
	assert.Equal(t, "https://cdn/x.png", v.AvatarURL)

	v = p.View(chat.Message{SenderName: ""}, user.Identity{})
	assert.Equal(t, "?", v.AvatarFallback)
}

func TestRenderSnapshot(t *testing.T) {
	p := NewPresenter(time.UTC)

	empty := p.RenderSnapshot(chat.Snapshot{}, user.Identity{ID: "a"}).(SnapshotView)
	assert.True(t, empty.Empty)
	assert.NotNil(t, empty.Messages)
	assert.Empty(t, empty.Messages)

	snap := chat.Snapshot{Messages: []chat.Message{
		{ID: "1", SenderID: "a", Text: "first"},
		{ID: "2", SenderID: "b", Text: "second"},
	}}
	got := p.RenderSnapshot(snap, user.Identity{ID: "a"}).(SnapshotView)
	assert.False(t, got.Empty)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "1", got.Messages[0].ID)
	assert.True(t, got.Messages[0].Own)
	assert.False(t, got.Messages[1].Own)
}
