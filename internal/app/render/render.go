// Package render turns stored messages into what a particular viewer sees.
package render

import (
	"time"

	"github.com/samber/lo"

	"chatroom/internal/app/chat"
	"chatroom/internal/app/user"
)

// TimeLayout is the hh:mm AM/PM clock shown next to every message.
const TimeLayout = "03:04 PM"

const (
	AlignLeft  = "left"
	AlignRight = "right"
)

// MessageView is one message as presented to a viewer.
type MessageView struct {
	ID             string    `json:"id"`
	SenderID       string    `json:"senderId"`
	SenderName     string    `json:"senderName"`
	Text           string    `json:"text"`
	Own            bool      `json:"own"`
	Align          string    `json:"align"`
	AvatarSide     string    `json:"avatarSide"`
	AvatarURL      string    `json:"avatarUrl,omitempty"`
	AvatarFallback string    `json:"avatarFallback,omitempty"`
	Time           string    `json:"time"`
	SentAt         time.Time `json:"sentAt"`
}

// SnapshotView is the payload of a snapshot frame.
type SnapshotView struct {
	Messages []MessageView `json:"messages"`
	Empty    bool          `json:"empty"`
}

// Presenter renders messages in a fixed display location.
type Presenter struct {
	loc *time.Location
}

// NewPresenter returns a Presenter for loc. A nil loc means time.Local.
func NewPresenter(loc *time.Location) *Presenter {
	if loc == nil {
		loc = time.Local
	}
	return &Presenter{loc: loc}
}

// Present renders messages for viewer, keeping their order.
func (p *Presenter) Present(messages []chat.Message, viewer user.Identity) []MessageView {
	return lo.Map(messages, func(m chat.Message, _ int) MessageView {
		return p.View(m, viewer)
	})
}

// View renders a single message. A message is the viewer's own only when
// the viewer is signed in and sent it.
func (p *Presenter) View(m chat.Message, viewer user.Identity) MessageView {
	own := viewer.ID != "" && m.SenderID == viewer.ID
	side := lo.Ternary(own, AlignRight, AlignLeft)

	v := MessageView{
		ID:         m.ID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		Text:       m.Text,
		Own:        own,
		Align:      side,
		AvatarSide: side,
		AvatarURL:  m.SenderAvatar,
		Time:       p.Clock(m.SentAt),
		SentAt:     m.SentAt,
	}
	if v.AvatarURL == "" {
		v.AvatarFallback = user.FallbackLetter(m.SenderName)
	}
	return v
}

// Clock formats t as hh:mm AM/PM in the presenter's location.
func (p *Presenter) Clock(t time.Time) string {
	return t.In(p.loc).Format(TimeLayout)
}

// RenderSnapshot implements chat.SnapshotRenderer.
func (p *Presenter) RenderSnapshot(snap chat.Snapshot, viewer user.Identity) any {
	return SnapshotView{
		Messages: p.Present(snap.Messages, viewer),
		Empty:    snap.Len() == 0,
	}
}
