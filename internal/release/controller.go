// Package release drives the branch lock interaction: it authorizes chat
// triggers, walks the triggering message through its rendered states and
// calls the workflow client and notifier along the way.
package release

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/releasebot/internal/config"
	"github.com/gosuda/releasebot/internal/messenger"
	"github.com/gosuda/releasebot/internal/notify"
	"github.com/gosuda/releasebot/internal/workflow"
)

// WorkflowClient is the subset of the workflow client used by the controller.
type WorkflowClient interface {
	Dispatch(ctx context.Context, req workflow.Request) (*workflow.DispatchResult, error)
	LatestRunReference(ctx context.Context, workflowFile string) *workflow.RunReference
}

// Notifier posts best-effort status lines.
type Notifier interface {
	Notify(ctx context.Context, text string) notify.Result
}

// failureTimeout bounds the error report sent after a trigger fails.
const failureTimeout = 10 * time.Second

// actionHandler handles one button click that passed authorization.
type actionHandler func(ctx context.Context, ev TriggerEvent)

// operation is the fixed description of one workflow-backed action.
type operation struct {
	option workflow.LockOption
	// intents are posted through the notifier before dispatch.
	intents func(branch string) []string
	// failure is the notifier line on error; %s is the error text.
	failure string
}

var (
	lockOperation = operation{ //nolint:gochecknoglobals // immutable action description
		option:  workflow.LockOptionLock,
		intents: func(branch string) []string {
			return []string{fmt.Sprintf("🔒 Triggering workflow to lock %s branch...", branch)}
		},
		failure: "❌ Error during release process: %s",
	}
	unlockOperation = operation{ //nolint:gochecknoglobals // immutable action description
		option: workflow.LockOptionUnlock,
		intents: func(branch string) []string {
			return []string{
				"🚀 Starting unlock process...",
				fmt.Sprintf("🔓 Triggering workflow to unlock %s branch...", branch),
			}
		},
		failure: "❌ Error during unlock process: %s",
	}
)

// Controller owns the per-trigger state machine. It holds no per-trigger
// state, so Handle may run concurrently for independent triggers.
type Controller struct {
	messenger         messenger.Messenger
	workflows         WorkflowClient
	notifier          Notifier
	authorizedChannel string
	workflowFile      string
	workflowRef       string
	branch            string
	settleDelay       time.Duration
	actions           map[ActionID]actionHandler
}

// NewController creates a Controller from the startup configuration.
func NewController(cfg *config.Config, msg messenger.Messenger, workflows WorkflowClient, notifier Notifier) *Controller {
	c := &Controller{
		messenger:         msg,
		workflows:         workflows,
		notifier:          notifier,
		authorizedChannel: cfg.Slack.AuthorizedChannelID,
		workflowFile:      cfg.Workflow.File,
		workflowRef:       cfg.Workflow.Ref,
		branch:            cfg.Workflow.Branch,
		settleDelay:       cfg.Workflow.SettleDelay,
	}

	c.actions = map[ActionID]actionHandler{
		ActionLockBranch:        c.operationHandler(lockOperation),
		ActionStartRelease:      c.operationHandler(lockOperation),
		ActionUnlockBranch:      c.operationHandler(unlockOperation),
		ActionProcessingRelease: c.alreadyProcessing,
		ActionProcessingUnlock:  c.alreadyProcessing,
	}
	for _, id := range placeholderActions() {
		c.actions[id] = c.comingSoon
	}

	return c
}

// Handles reports whether id has an entry in the dispatch table.
func (c *Controller) Handles(id ActionID) bool {
	_, ok := c.actions[id]
	return ok
}

// Handle processes one trigger to completion. It never returns an error:
// every outcome is rendered into the chat or logged.
func (c *Controller) Handle(ctx context.Context, ev TriggerEvent) {
	logger := log.With().
		Str("trigger_id", uuid.NewString()).
		Stringer("kind", ev.Kind).
		Str("action", string(ev.ActionID)).
		Str("channel", ev.Channel).
		Str("user", ev.User).
		Logger()
	ctx = logger.WithContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			c.ReportPlatformError(ctx, fmt.Errorf("release.Controller.Handle: panic: %v", r))
		}
	}()

	switch ev.Kind {
	case KindMention:
		c.handleMention(ctx, ev)
	case KindButtonClick:
		c.handleClick(ctx, ev)
	default:
		ev.ack()
		logger.Warn().Msg("ignoring trigger of unknown kind")
	}
}

// ReportPlatformError is the catch-all for errors raised by the chat
// platform layer. It logs and notifies; it never stops the process.
func (c *Controller) ReportPlatformError(ctx context.Context, err error) {
	zerolog.Ctx(ctx).Error().Err(err).Msg("unhandled platform error")
	c.notifier.Notify(ctx, "❌ An error occurred: "+err.Error())
}

func (c *Controller) handleMention(ctx context.Context, ev TriggerEvent) {
	ev.ack()

	if err := c.authorize(ev); err != nil {
		c.deny(ctx, ev)
		return
	}

	if _, err := c.messenger.PostMessage(ctx, ev.Channel, BuildIdleMenu(c.branch)); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("posting release menu failed")
		c.notifier.Notify(ctx, "❌ Error showing release options.")
		return
	}

	zerolog.Ctx(ctx).Info().Msg("release menu posted")
}

func (c *Controller) handleClick(ctx context.Context, ev TriggerEvent) {
	// Acknowledge before anything else; unacknowledged clicks are redelivered.
	ev.ack()

	if err := c.authorize(ev); err != nil {
		c.deny(ctx, ev)
		return
	}

	handler, ok := c.actions[ev.ActionID]
	if !ok {
		zerolog.Ctx(ctx).Warn().Msg("no handler for action")
		return
	}

	handler(ctx, ev)
}

func (c *Controller) authorize(ev TriggerEvent) error {
	if ev.Channel == "" || ev.Channel != c.authorizedChannel {
		return ErrUnauthorizedChannel
	}
	return nil
}

func (c *Controller) deny(ctx context.Context, ev TriggerEvent) {
	zerolog.Ctx(ctx).Info().Err(ErrUnauthorizedChannel).Msg("trigger denied")
	c.ephemeral(ctx, ev, fmt.Sprintf("⛔ Sorry, release actions are only available in <#%s>.", c.authorizedChannel))
}

func (c *Controller) comingSoon(ctx context.Context, ev TriggerEvent) {
	c.ephemeral(ctx, ev, fmt.Sprintf("🚧 *%s* is coming soon.", ev.ActionID.Label()))
}

func (c *Controller) alreadyProcessing(ctx context.Context, ev TriggerEvent) {
	c.ephemeral(ctx, ev, "⏳ This request is already being processed. Please wait for it to finish.")
}

// ephemeral posts a notice only the triggering user can see. Failures are logged.
func (c *Controller) ephemeral(ctx context.Context, ev TriggerEvent, text string) {
	if err := c.messenger.PostEphemeral(ctx, ev.Channel, ev.User, text); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("ephemeral notice failed")
	}
}

// operationHandler binds op into an actionHandler.
func (c *Controller) operationHandler(op operation) actionHandler {
	return func(ctx context.Context, ev TriggerEvent) {
		if ev.Message.IsZero() {
			zerolog.Ctx(ctx).Warn().Msg("click carries no message reference")
			c.ephemeral(ctx, ev, "⚠️ Please use the buttons on the release menu message.")
			return
		}
		c.run(ctx, ev.Message, op)
	}
}

// run drives ref from Processing to a terminal state. Every failure after
// leaving Idle, including a panic, ends in the Error rendering.
func (c *Controller) run(ctx context.Context, ref MessageRef, op operation) {
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			c.fail(ctx, ref, op, err)
		}
	}()

	err = c.execute(ctx, ref, op)
}

func (c *Controller) execute(ctx context.Context, ref MessageRef, op operation) error {
	if err := c.render(ctx, ref, StateProcessing, op.option); err != nil {
		return err
	}

	for _, intent := range op.intents(c.branch) {
		c.notifier.Notify(ctx, intent)
	}

	req := c.request(op.option)
	if _, err := c.workflows.Dispatch(ctx, req); err != nil {
		return err
	}

	// The run listing lags behind the dispatch; wait once, then look.
	if err := sleep(ctx, c.settleDelay); err != nil {
		return fmt.Errorf("waiting for workflow run: %w", err)
	}

	notice := "✅ Workflow triggered successfully!"
	if run := c.workflows.LatestRunReference(ctx, req.WorkflowFile); run != nil {
		zerolog.Ctx(ctx).Info().
			Str("run_url", run.URL).
			Str("run_name", run.Name).
			Str("run_path", run.Path).
			Msg("workflow run resolved")
		notice += "\n🔗 Workflow run URL: " + run.URL
	}
	c.notifier.Notify(ctx, notice)

	return c.render(ctx, ref, StateSuccess, op.option)
}

// fail reports err and renders the Error state. The trigger context may
// already be cancelled, so the report runs on a detached one.
func (c *Controller) fail(ctx context.Context, ref MessageRef, op operation, err error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureTimeout)
	defer cancel()

	zerolog.Ctx(ctx).Error().Err(err).Str("lock_option", string(op.option)).Msg("release action failed")
	c.notifier.Notify(ctx, fmt.Sprintf(op.failure, err.Error()))

	if renderErr := c.render(ctx, ref, StateError, op.option); renderErr != nil {
		zerolog.Ctx(ctx).Error().Err(renderErr).Msg("message left without terminal rendering")
	}
}

// render rewrites the message at ref to the rendering of state.
func (c *Controller) render(ctx context.Context, ref MessageRef, state MessageState, opt workflow.LockOption) error {
	if err := c.messenger.UpdateMessage(ctx, ref.Channel, ref.Timestamp, Render(state, opt, c.branch)); err != nil {
		return fmt.Errorf("render %s: %w", state, err)
	}

	level := zerolog.DebugLevel
	if state.Terminal() {
		level = zerolog.InfoLevel
	}
	zerolog.Ctx(ctx).WithLevel(level).
		Stringer("state", state).
		Str("message_ts", string(ref.Timestamp)).
		Msg("message state changed")

	return nil
}

// request builds the fixed dispatch request for opt.
func (c *Controller) request(opt workflow.LockOption) workflow.Request {
	return workflow.Request{
		WorkflowFile: c.workflowFile,
		Ref:          c.workflowRef,
		LockOption:   opt,
		Branch:       c.branch,
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
