package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gosuda/releasebot/internal/messenger"
)

// ErrNoChannel is reported when the notifier has no destination channel.
var ErrNoChannel = errors.New("notify: no destination channel") //nolint:gochecknoglobals // sentinel error

// Result reports the outcome of a best-effort notification.
// Callers are free to ignore it.
type Result struct {
	MessageID messenger.MessageID
	Err       error
}

// Notifier posts advisory status lines to a fixed channel.
// Notification is never part of the success contract of the caller: failures
// are logged and returned in the Result, never raised.
type Notifier struct {
	messenger messenger.Messenger
	channelID string
}

// New creates a Notifier that posts to channelID through msg.
func New(msg messenger.Messenger, channelID string) *Notifier {
	return &Notifier{
		messenger: msg,
		channelID: channelID,
	}
}

// Notify posts text to the destination channel.
func (n *Notifier) Notify(ctx context.Context, text string) Result {
	if n.channelID == "" {
		zerolog.Ctx(ctx).Warn().Str("text", text).Msg("notify: dropping notification")
		return Result{Err: ErrNoChannel}
	}

	id, err := n.messenger.PostMessage(ctx, n.channelID, messenger.Message{Text: text})
	if err != nil {
		err = fmt.Errorf("notify.Notifier.Notify: %w", err)
		zerolog.Ctx(ctx).Error().Err(err).
			Str("platform", n.messenger.Platform()).
			Str("channel", n.channelID).
			Msg("notification failed")
		return Result{Err: err}
	}

	return Result{MessageID: id}
}
