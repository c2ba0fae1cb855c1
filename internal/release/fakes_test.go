package release_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/gosuda/releasebot/internal/config"
	"github.com/gosuda/releasebot/internal/messenger"
	"github.com/gosuda/releasebot/internal/notify"
	"github.com/gosuda/releasebot/internal/release"
	"github.com/gosuda/releasebot/internal/workflow"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	authorizedChannel = "C0RELEASE"
	otherChannel      = "C0RANDOM"
	testUser          = "U0OPERATOR"
	menuTS            = messenger.MessageID("1700000000.000100")
)

// journal records every outbound call across fakes in order.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(entry string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
}

func (j *journal) all() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

// --- messenger ---

type update struct {
	channelID string
	messageID messenger.MessageID
	msg       messenger.Message
}

type ephemeralNotice struct {
	channelID string
	userID    string
	text      string
}

type fakeMessenger struct {
	j *journal

	mu         sync.Mutex
	posts      []messenger.Message
	postCh     []string
	updates    []update
	ephemerals []ephemeralNotice

	postErr error
	// updateErrs is consumed one entry per UpdateMessage call; nil entries succeed.
	updateErrs []error
}

// The fakes fail on a done context the way a network client does.

func (m *fakeMessenger) PostMessage(ctx context.Context, channelID string, msg messenger.Message) (messenger.MessageID, error) {
	m.j.add("post")
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.postErr != nil {
		return "", m.postErr
	}
	m.posts = append(m.posts, msg)
	m.postCh = append(m.postCh, channelID)
	return menuTS, nil
}

func (m *fakeMessenger) UpdateMessage(ctx context.Context, channelID string, messageID messenger.MessageID, msg messenger.Message) error {
	m.j.add("update:" + stateOf(msg).String())
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.updateErrs) > 0 {
		err := m.updateErrs[0]
		m.updateErrs = m.updateErrs[1:]
		if err != nil {
			return err
		}
	}
	m.updates = append(m.updates, update{channelID: channelID, messageID: messageID, msg: msg})
	return nil
}

func (m *fakeMessenger) PostEphemeral(ctx context.Context, channelID, userID, text string) error {
	m.j.add("ephemeral")
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ephemerals = append(m.ephemerals, ephemeralNotice{channelID: channelID, userID: userID, text: text})
	return nil
}

func (m *fakeMessenger) Platform() string { return "fake" }

// states returns the rendered states of successful updates in order.
func (m *fakeMessenger) states() []release.MessageState {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]release.MessageState, 0, len(m.updates))
	for _, u := range m.updates {
		out = append(out, stateOf(u.msg))
	}
	return out
}

// stateOf maps a rendered message back to its state via the fallback text.
func stateOf(msg messenger.Message) release.MessageState {
	switch {
	case strings.HasSuffix(msg.Text, "- Processing"):
		return release.StateProcessing
	case strings.HasSuffix(msg.Text, "- Success"):
		return release.StateSuccess
	case strings.HasSuffix(msg.Text, "- Error"):
		return release.StateError
	default:
		return release.StateIdle
	}
}

// --- workflow client ---

type fakeWorkflows struct {
	j *journal

	mu          sync.Mutex
	requests    []workflow.Request
	lookups     []string
	dispatchErr error
	panicMsg    string
	run         *workflow.RunReference
	dispatchAt  time.Time
	lookupAt    time.Time
}

func (w *fakeWorkflows) Dispatch(_ context.Context, req workflow.Request) (*workflow.DispatchResult, error) {
	w.j.add("dispatch")
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.panicMsg != "" {
		panic(w.panicMsg)
	}
	w.requests = append(w.requests, req)
	w.dispatchAt = time.Now()
	if w.dispatchErr != nil {
		return nil, w.dispatchErr
	}
	return &workflow.DispatchResult{StatusCode: 204, AcceptedAt: time.Now()}, nil
}

func (w *fakeWorkflows) LatestRunReference(_ context.Context, workflowFile string) *workflow.RunReference {
	w.j.add("lookup")
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lookups = append(w.lookups, workflowFile)
	w.lookupAt = time.Now()
	return w.run
}

// --- notifier ---

type fakeNotifier struct {
	j *journal

	mu    sync.Mutex
	lines []string
}

func (n *fakeNotifier) Notify(ctx context.Context, text string) notify.Result {
	n.j.add("notify")
	if err := ctx.Err(); err != nil {
		return notify.Result{Err: err}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.lines = append(n.lines, text)
	return notify.Result{MessageID: "1700000000.000200"}
}

func (n *fakeNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.lines...)
}

// --- harness ---

type harness struct {
	j          *journal
	messenger  *fakeMessenger
	workflows  *fakeWorkflows
	notifier   *fakeNotifier
	controller *release.Controller
	acks       int
}

func newHarness(t *testing.T, mutate ...func(cfg *config.Config)) *harness {
	t.Helper()

	cfg := &config.Config{
		Slack: config.SlackConfig{
			NotifyChannelID:     "C0NOTIFY",
			AuthorizedChannelID: authorizedChannel,
		},
		Workflow: config.WorkflowConfig{
			File:   "change-branch-lock-status.yml",
			Ref:    "master",
			Branch: "develop/subscriptions",
		},
	}
	for _, fn := range mutate {
		fn(cfg)
	}

	j := &journal{}
	h := &harness{
		j:         j,
		messenger: &fakeMessenger{j: j},
		workflows: &fakeWorkflows{j: j},
		notifier:  &fakeNotifier{j: j},
	}
	h.controller = release.NewController(cfg, h.messenger, h.workflows, h.notifier)
	return h
}

// click builds a button click in channel, with an Ack that counts calls.
func (h *harness) click(channel string, action release.ActionID) release.TriggerEvent {
	return release.TriggerEvent{
		Kind:     release.KindButtonClick,
		Channel:  channel,
		User:     testUser,
		ActionID: action,
		Message:  release.MessageRef{Channel: channel, Timestamp: menuTS},
		Ack: func() {
			h.acks++
			h.j.add("ack")
		},
	}
}

func (h *harness) mention(channel string) release.TriggerEvent {
	return release.TriggerEvent{
		Kind:    release.KindMention,
		Channel: channel,
		User:    testUser,
	}
}
