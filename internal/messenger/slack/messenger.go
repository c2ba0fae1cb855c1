package slack

import (
	"context"
	"fmt"

	slacklib "github.com/slack-go/slack"

	"github.com/gosuda/releasebot/internal/messenger"
)

// SlackAPI abstracts the subset of the Slack client used by SlackMessenger.
// This allows testing without real HTTP calls.
type SlackAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slacklib.MsgOption) (string, string, error)
	UpdateMessageContext(ctx context.Context, channelID, timestamp string, options ...slacklib.MsgOption) (string, string, string, error)
	PostEphemeralContext(ctx context.Context, channelID, userID string, options ...slacklib.MsgOption) (string, error)
}

// SlackMessenger implements messenger.Messenger for Slack.
type SlackMessenger struct {
	api SlackAPI
}

// Compile-time interface check.
var _ messenger.Messenger = (*SlackMessenger)(nil) //nolint:gochecknoglobals // compile-time check

// NewSlackMessenger creates a SlackMessenger with the given API client.
func NewSlackMessenger(api SlackAPI) *SlackMessenger {
	return &SlackMessenger{api: api}
}

// PostMessage posts a Block Kit message to a Slack channel and returns the message timestamp as MessageID.
func (m *SlackMessenger) PostMessage(ctx context.Context, channelID string, msg messenger.Message) (messenger.MessageID, error) {
	_, ts, err := m.api.PostMessageContext(ctx, channelID, msgOptions(msg)...)
	if err != nil {
		return "", fmt.Errorf("slack.SlackMessenger.PostMessage: %w", err)
	}

	return messenger.MessageID(ts), nil
}

// UpdateMessage rewrites an existing Slack message, replacing both its text and blocks.
func (m *SlackMessenger) UpdateMessage(ctx context.Context, channelID string, messageID messenger.MessageID, msg messenger.Message) error {
	_, _, _, err := m.api.UpdateMessageContext(ctx, channelID, string(messageID), msgOptions(msg)...)
	if err != nil {
		return fmt.Errorf("slack.SlackMessenger.UpdateMessage: %w", err)
	}

	return nil
}

// PostEphemeral posts a message only userID can see in channelID.
func (m *SlackMessenger) PostEphemeral(ctx context.Context, channelID, userID, text string) error {
	_, err := m.api.PostEphemeralContext(ctx, channelID, userID, slacklib.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("slack.SlackMessenger.PostEphemeral: %w", err)
	}

	return nil
}

// Platform returns the messenger platform identifier.
func (m *SlackMessenger) Platform() string {
	return "slack"
}
