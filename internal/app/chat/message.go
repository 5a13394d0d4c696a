/*
Package chat implements the shared chat room: the message model, the live
feed of ordered snapshots, the composer that appends messages, and the
WebSocket clients that connect a browser to both.
*/
package chat

import (
	"context"
	"errors"
	"time"
)

// MaxContentBytes is the maximum allowed size (in bytes) for message text.
const MaxContentBytes = 5000

// ErrNoIdentity is returned when a feed or composer operation has no authenticated identity.
var ErrNoIdentity = errors.New("chat: no authenticated identity")

// Message is one chat line. Messages are immutable once stored.
type Message struct {
	ID           string    `json:"id"`
	Seq          int64     `json:"-"`
	SenderID     string    `json:"senderId"`
	SenderName   string    `json:"senderName"`
	SenderAvatar string    `json:"senderAvatar,omitempty"`
	Text         string    `json:"text"`
	SentAt       time.Time `json:"sentAt"`
}

// Snapshot is the complete ordered message list at one point in time.
type Snapshot struct {
	Messages []Message
	LoadedAt time.Time
}

// Len returns the number of messages in the snapshot.
func (s Snapshot) Len() int {
	return len(s.Messages)
}

// Last returns the newest message, if any.
func (s Snapshot) Last() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// MessageStore is the append-only message collection.
type MessageStore interface {
	// Append stores msg and returns it with its store-assigned sequence number.
	Append(ctx context.Context, msg Message) (Message, error)

	// List returns every message ordered by SentAt, ties broken by Seq.
	List(ctx context.Context) ([]Message, error)
}
