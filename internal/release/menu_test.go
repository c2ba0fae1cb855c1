package release_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/releasebot/internal/messenger"
	"github.com/gosuda/releasebot/internal/release"
	"github.com/gosuda/releasebot/internal/workflow"
)

func TestBuildIdleMenu(t *testing.T) {
	t.Parallel()

	msg := release.BuildIdleMenu("develop/subscriptions")

	assert.Equal(t,
		[]string{"lock_branch", "unlock_branch", "prism_develop", "prism_release", "hotfix_release"},
		buttonIDs(msg),
	)
	assert.Equal(t, "Release Management", msg.Text)
	assert.Contains(t, msg.Body, "Release Management")
	assert.Contains(t, msg.Body, "develop/subscriptions")

	assert.Equal(t, messenger.ButtonStylePrimary, msg.Buttons[0].Style)
	assert.Equal(t, messenger.ButtonStylePrimary, msg.Buttons[1].Style)
	for _, b := range msg.Buttons[2:] {
		assert.Equal(t, messenger.ButtonStyleDefault, b.Style, "placeholder %q", b.ActionID)
	}

	assert.Equal(t, msg, release.BuildIdleMenu("develop/subscriptions"), "menu is a pure function of the branch")
}

func TestBuildProcessingMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		opt       workflow.LockOption
		wantBody  string
		wantID    release.ActionID
		wantStyle messenger.ButtonStyle
	}{
		{
			name:      "lock",
			opt:       workflow.LockOptionLock,
			wantBody:  "Locking branch in progress...",
			wantID:    release.ActionProcessingRelease,
			wantStyle: messenger.ButtonStylePrimary,
		},
		{
			name:      "unlock",
			opt:       workflow.LockOptionUnlock,
			wantBody:  "Unlocking branch in progress...",
			wantID:    release.ActionProcessingUnlock,
			wantStyle: messenger.ButtonStyleDanger,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			msg := release.BuildProcessingMessage(tc.opt)
			assert.Equal(t, "Release Management - Processing", msg.Text)
			assert.Contains(t, msg.Body, tc.wantBody)
			require.Len(t, msg.Buttons, 1)
			assert.Equal(t, string(tc.wantID), msg.Buttons[0].ActionID)
			assert.Equal(t, "Processing...", msg.Buttons[0].Label)
			assert.Equal(t, tc.wantStyle, msg.Buttons[0].Style)
		})
	}
}

func TestBuildSuccessMessage(t *testing.T) {
	t.Parallel()

	lock := release.BuildSuccessMessage(workflow.LockOptionLock)
	assert.Equal(t, "Release Management - Success", lock.Text)
	assert.Contains(t, lock.Body, "Release process completed successfully!")
	assert.Equal(t, []string{"start_release", "unlock_branch"}, buttonIDs(lock))
	assert.Equal(t, messenger.ButtonStylePrimary, lock.Buttons[1].Style)

	unlock := release.BuildSuccessMessage(workflow.LockOptionUnlock)
	assert.Contains(t, unlock.Body, "Unlock process completed successfully!")
	assert.Equal(t, []string{"start_release", "unlock_branch"}, buttonIDs(unlock))
	assert.Equal(t, "Start Release (Lock)", unlock.Buttons[0].Label)
	assert.Equal(t, messenger.ButtonStyleDanger, unlock.Buttons[1].Style)
}

func TestBuildErrorMessage(t *testing.T) {
	t.Parallel()

	for _, opt := range []workflow.LockOption{workflow.LockOptionLock, workflow.LockOptionUnlock} {
		msg := release.BuildErrorMessage(opt)
		assert.Equal(t, "Release Management - Error", msg.Text)
		assert.Contains(t, msg.Body, "Please try again.")
		assert.Equal(t, []string{"lock_branch", "unlock_branch"}, buttonIDs(msg))
		for _, b := range msg.Buttons {
			assert.NotContains(t, b.ActionID, "processing", "error menu offers no processing affordance")
		}
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	const branch = "develop/subscriptions"

	assert.Equal(t, release.BuildIdleMenu(branch), release.Render(release.StateIdle, workflow.LockOptionUnlock, branch))
	assert.Equal(t, release.BuildProcessingMessage(workflow.LockOptionLock), release.Render(release.StateProcessing, workflow.LockOptionLock, branch))
	assert.Equal(t, release.BuildSuccessMessage(workflow.LockOptionUnlock), release.Render(release.StateSuccess, workflow.LockOptionUnlock, branch))
	assert.Equal(t, release.BuildErrorMessage(workflow.LockOptionLock), release.Render(release.StateError, workflow.LockOptionLock, branch))
}

func TestMessageState(t *testing.T) {
	t.Parallel()

	assert.False(t, release.StateIdle.Terminal())
	assert.False(t, release.StateProcessing.Terminal())
	assert.True(t, release.StateSuccess.Terminal())
	assert.True(t, release.StateError.Terminal())
	assert.Equal(t, "unknown", release.MessageState(42).String())
}

func TestActionLabels(t *testing.T) {
	t.Parallel()

	for _, id := range release.ActionIDs() {
		assert.NotEqual(t, string(id), id.Label(), "action %q has no label", id)
	}
	assert.Equal(t, "deploy_prod", release.ActionID("deploy_prod").Label())
}
