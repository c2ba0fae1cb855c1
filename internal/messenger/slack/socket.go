package slack

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	slacklib "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"golang.org/x/sync/errgroup"

	"github.com/gosuda/releasebot/internal/release"
)

// ErrInvalidAuth is reported when Slack rejects the app-level token.
var ErrInvalidAuth = errors.New("slack: socket mode authentication rejected") //nolint:gochecknoglobals // sentinel error

// Listener receives triggers over a Socket Mode connection.
type Listener struct {
	run      func(ctx context.Context) error
	events   <-chan socketmode.Event
	ack      func(req socketmode.Request)
	triggers TriggerHandler
	inflight sync.WaitGroup
}

// NewListener creates a Listener on client. client must have been created
// from a slack.Client carrying an app-level token.
func NewListener(client *socketmode.Client, triggers TriggerHandler) *Listener {
	return &Listener{
		run:      client.RunContext,
		events:   client.Events,
		ack:      func(req socketmode.Request) { client.Ack(req) },
		triggers: triggers,
	}
}

// Run holds the connection open until ctx is cancelled, then waits for
// in-flight triggers to finish.
func (l *Listener) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := l.run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("slack.Listener.Run: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		l.consume(gctx)
		return nil
	})

	err := g.Wait()
	l.inflight.Wait()

	return err
}

func (l *Listener) consume(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-l.events:
			if !ok {
				return
			}
			l.handleEvent(ctx, evt)
		}
	}
}

func (l *Listener) handleEvent(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		log.Info().Msg("connecting to slack socket mode")

	case socketmode.EventTypeConnected:
		log.Info().Msg("connected to slack socket mode")

	case socketmode.EventTypeConnectionError:
		l.triggers.ReportPlatformError(ctx, fmt.Errorf("slack socket mode connection: %v", evt.Data))

	case socketmode.EventTypeInvalidAuth:
		l.triggers.ReportPlatformError(ctx, ErrInvalidAuth)

	case socketmode.EventTypeEventsAPI:
		event, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok || evt.Request == nil {
			return
		}
		l.ack(*evt.Request)

		if event.Type != slackevents.CallbackEvent {
			return
		}
		mention, ok := event.InnerEvent.Data.(*slackevents.AppMentionEvent)
		if !ok {
			return
		}
		if trigger, ok := mentionTrigger(mention); ok {
			l.dispatch(ctx, trigger)
		}

	case socketmode.EventTypeInteractive:
		callback, ok := evt.Data.(slacklib.InteractionCallback)
		if !ok || evt.Request == nil {
			return
		}
		req := *evt.Request
		var once sync.Once
		ack := func() { once.Do(func() { l.ack(req) }) }

		trigger, ok := clickTrigger(&callback, ack)
		if !ok {
			ack()
			return
		}
		l.dispatch(ctx, trigger)

	default:
		log.Debug().Str("type", string(evt.Type)).Msg("ignoring socket mode event")
	}
}

// dispatch runs the trigger on its own goroutine. Shutdown does not cancel
// a trigger that has already started.
func (l *Listener) dispatch(ctx context.Context, trigger release.TriggerEvent) {
	l.inflight.Add(1)
	go func() {
		defer l.inflight.Done()
		l.triggers.Handle(context.WithoutCancel(ctx), trigger)
	}()
}
