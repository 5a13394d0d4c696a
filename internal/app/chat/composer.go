package chat

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"chatroom/internal/app/user"
	"chatroom/internal/pkg/errs"
	"chatroom/internal/pkg/logx"
	"chatroom/internal/pkg/randx"
)

// Composer validates and appends messages, then tells the feed to refresh.
type Composer struct {
	store    MessageStore
	notifier Notifier
	now      func() time.Time
	logger   zerolog.Logger
}

func NewComposer(store MessageStore, notifier Notifier) *Composer {
	return &Composer{
		store:    store,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logx.Component("composer"),
	}
}

// Send appends text as a message from sender. Blank text is rejected with
// ErrMessageEmpty and nothing is written. The stored text is kept verbatim.
func (c *Composer) Send(ctx context.Context, sender user.Identity, text string) (Message, error) {
	if sender.ID == "" {
		return Message{}, ErrNoIdentity
	}

	if strings.TrimSpace(text) == "" {
		return Message{}, errs.NewError(errs.ErrMessageEmpty)
	}

	if len(text) > MaxContentBytes {
		return Message{}, errs.NewError(errs.ErrMessageContentTooLong, MaxContentBytes)
	}

	msg, err := c.store.Append(ctx, Message{
		ID:           randx.NewID(),
		SenderID:     sender.ID,
		SenderName:   sender.DisplayName,
		SenderAvatar: sender.AvatarURL,
		Text:         text,
		SentAt:       c.now(),
	})
	if err != nil {
		c.logger.Error().Err(err).Str("sender_id", sender.ID).Msg("Failed to store message.")
		return Message{}, errs.NewError(errs.ErrMessageSendFailed)
	}

	if err := c.notifier.Publish(ctx); err != nil {
		c.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("Message stored but change notification failed.")
	}

	return msg, nil
}
