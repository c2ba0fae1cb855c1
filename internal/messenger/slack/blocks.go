package slack

import (
	slacklib "github.com/slack-go/slack"

	"github.com/gosuda/releasebot/internal/messenger"
)

// actionsBlockID identifies the button row so interaction payloads can be traced back to it.
const actionsBlockID = "releasebot_actions"

// BuildMessageBlocks builds Slack Block Kit blocks for a message.
// The body becomes a markdown section; if buttons are present an action block is appended.
// A message without a body falls back to its plain text.
func BuildMessageBlocks(msg messenger.Message) []slacklib.Block {
	body := msg.Body
	if body == "" {
		body = msg.Text
	}

	textBlock := slacklib.NewSectionBlock(
		slacklib.NewTextBlockObject(slacklib.MarkdownType, body, false, false),
		nil,
		nil,
	)

	if len(msg.Buttons) == 0 {
		return []slacklib.Block{textBlock}
	}

	buttons := make([]slacklib.BlockElement, 0, len(msg.Buttons))
	for _, b := range msg.Buttons {
		value := b.Value
		if value == "" {
			value = b.ActionID
		}
		btn := slacklib.NewButtonBlockElement(
			b.ActionID,
			value,
			slacklib.NewTextBlockObject(slacklib.PlainTextType, b.Label, true, false),
		)
		if b.Style != messenger.ButtonStyleDefault {
			btn = btn.WithStyle(slacklib.Style(b.Style))
		}
		buttons = append(buttons, btn)
	}

	actionBlock := slacklib.NewActionBlock(actionsBlockID, buttons...)

	return []slacklib.Block{textBlock, actionBlock}
}

// msgOptions converts a message into the options shared by post and update calls.
func msgOptions(msg messenger.Message) []slacklib.MsgOption {
	return []slacklib.MsgOption{
		slacklib.MsgOptionText(msg.Text, false),
		slacklib.MsgOptionBlocks(BuildMessageBlocks(msg)...),
	}
}
