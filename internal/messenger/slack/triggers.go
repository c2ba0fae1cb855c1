package slack

import (
	"context"

	slacklib "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"github.com/gosuda/releasebot/internal/messenger"
	"github.com/gosuda/releasebot/internal/release"
)

// TriggerHandler receives the triggers decoded by the Slack transports.
// release.Controller implements it.
type TriggerHandler interface {
	Handle(ctx context.Context, ev release.TriggerEvent)
	ReportPlatformError(ctx context.Context, err error)
}

// mentionTrigger converts an app_mention into a trigger. Mentions posted by
// bots, including this one, are dropped.
func mentionTrigger(ev *slackevents.AppMentionEvent) (release.TriggerEvent, bool) {
	if ev == nil || ev.BotID != "" {
		return release.TriggerEvent{}, false
	}

	return release.TriggerEvent{
		Kind:    release.KindMention,
		Channel: ev.Channel,
		User:    ev.User,
	}, true
}

// clickTrigger converts the first block action of a block_actions callback
// into a trigger. ack is attached as the trigger's Ack.
func clickTrigger(cb *slacklib.InteractionCallback, ack func()) (release.TriggerEvent, bool) {
	if cb.Type != slacklib.InteractionTypeBlockActions || len(cb.ActionCallback.BlockActions) == 0 {
		return release.TriggerEvent{}, false
	}

	action := cb.ActionCallback.BlockActions[0]

	channel := cb.Channel.ID
	if channel == "" {
		channel = cb.Container.ChannelID
	}

	ts := cb.Container.MessageTs
	if ts == "" {
		ts = cb.Message.Timestamp
	}

	return release.TriggerEvent{
		Kind:     release.KindButtonClick,
		Channel:  channel,
		User:     cb.User.ID,
		ActionID: release.ActionID(action.ActionID),
		Message:  release.MessageRef{Channel: channel, Timestamp: messenger.MessageID(ts)},
		Ack:      ack,
	}, true
}
