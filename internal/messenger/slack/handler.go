package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	slacklib "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

// DefaultAckTimeout bounds how long an interaction response waits for the
// controller to acknowledge. Slack gives up after three seconds.
const DefaultAckTimeout = 2500 * time.Millisecond

// Handler processes Slack webhook events (Events API + Interactive Components).
type Handler struct {
	signingSecret string
	triggers      TriggerHandler
	ackTimeout    time.Duration
	inflight      sync.WaitGroup
}

// NewHandler creates a new Slack webhook handler.
func NewHandler(signingSecret string, triggers TriggerHandler) *Handler {
	return &Handler{
		signingSecret: signingSecret,
		triggers:      triggers,
		ackTimeout:    DefaultAckTimeout,
	}
}

// WithAckTimeout overrides DefaultAckTimeout.
func (h *Handler) WithAckTimeout(d time.Duration) *Handler {
	h.ackTimeout = d
	return h
}

// Wait blocks until every trigger dispatched by the handler has finished.
func (h *Handler) Wait() {
	h.inflight.Wait()
}

// HandleEvents is an http.HandlerFunc for POST /slack/events.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if verifyErr := h.verifySignature(r.Header, body); verifyErr != nil {
		log.Warn().Err(verifyErr).Msg("slack event rejected")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	switch event.Type {
	case slackevents.URLVerification:
		h.handleURLVerification(w, body)
		return
	case slackevents.CallbackEvent:
		// Events are acknowledged by the 200 below; the trigger runs detached.
		if mention, ok := event.InnerEvent.Data.(*slackevents.AppMentionEvent); ok {
			if trigger, ok := mentionTrigger(mention); ok {
				h.dispatch(context.WithoutCancel(r.Context()), func(ctx context.Context) {
					h.triggers.Handle(ctx, trigger)
				})
			}
		}
	default:
		log.Debug().Str("type", event.Type).Msg("ignoring slack event")
	}

	w.WriteHeader(http.StatusOK)
}

// handleURLVerification responds to Slack's URL verification challenge.
func (h *Handler) handleURLVerification(w http.ResponseWriter, body []byte) {
	var challenge slackevents.ChallengeResponse
	if err := json.Unmarshal(body, &challenge); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	if _, err := w.Write([]byte(challenge.Challenge)); err != nil {
		log.Error().Err(err).Msg("write url verification response")
	}
}

// HandleInteractions is an http.HandlerFunc for POST /slack/interactions.
// The response is held until the controller acknowledges the click or the
// ack timeout passes, whichever comes first.
func (h *Handler) HandleInteractions(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if verifyErr := h.verifySignature(r.Header, body); verifyErr != nil {
		log.Warn().Err(verifyErr).Msg("slack interaction rejected")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	payload := extractFormPayload(string(body))
	if payload == "" {
		http.Error(w, "missing payload", http.StatusBadRequest)
		return
	}

	var callback slacklib.InteractionCallback
	if unmarshalErr := json.Unmarshal([]byte(payload), &callback); unmarshalErr != nil {
		http.Error(w, "invalid payload JSON", http.StatusBadRequest)
		return
	}

	acked := make(chan struct{})
	var once sync.Once
	ack := func() { once.Do(func() { close(acked) }) }

	trigger, ok := clickTrigger(&callback, ack)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}

	h.dispatch(context.WithoutCancel(r.Context()), func(ctx context.Context) {
		defer ack()
		h.triggers.Handle(ctx, trigger)
	})

	timer := time.NewTimer(h.ackTimeout)
	defer timer.Stop()

	select {
	case <-acked:
	case <-timer.C:
		log.Warn().Str("action", string(trigger.ActionID)).Msg("ack timeout elapsed, acknowledging interaction")
	case <-r.Context().Done():
		return
	}

	w.WriteHeader(http.StatusOK)
}

// dispatch runs fn on its own goroutine, tracked by Wait.
func (h *Handler) dispatch(ctx context.Context, fn func(ctx context.Context)) {
	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		fn(ctx)
	}()
}

// verifySignature validates the Slack request signature using the signing secret.
func (h *Handler) verifySignature(header http.Header, body []byte) error {
	sv, err := slacklib.NewSecretsVerifier(header, h.signingSecret)
	if err != nil {
		return fmt.Errorf("slack.Handler.verifySignature: create verifier: %w", err)
	}

	if _, writeErr := sv.Write(body); writeErr != nil {
		return fmt.Errorf("slack.Handler.verifySignature: write body: %w", writeErr)
	}

	if ensureErr := sv.Ensure(); ensureErr != nil {
		return fmt.Errorf("slack.Handler.verifySignature: ensure: %w", ensureErr)
	}

	return nil
}

// extractFormPayload parses the "payload" value from a URL-encoded form body.
func extractFormPayload(body string) string {
	values, err := url.ParseQuery(body)
	if err != nil {
		return ""
	}

	return values.Get("payload")
}
