package release

import (
	"fmt"

	"github.com/gosuda/releasebot/internal/messenger"
	"github.com/gosuda/releasebot/internal/workflow"
)

const header = "🚀 *Release Management*"

// Fallback texts, one per rendered state.
const (
	textIdle       = "Release Management"
	textProcessing = "Release Management - Processing"
	textSuccess    = "Release Management - Success"
	textError      = "Release Management - Error"
)

func button(id ActionID, style messenger.ButtonStyle) messenger.Button {
	return messenger.Button{ActionID: string(id), Label: id.Label(), Style: style}
}

// BuildIdleMenu builds the release menu posted on mention. It is a pure
// function of branch.
func BuildIdleMenu(branch string) messenger.Message {
	buttons := []messenger.Button{
		button(ActionLockBranch, messenger.ButtonStylePrimary),
		button(ActionUnlockBranch, messenger.ButtonStylePrimary),
	}
	for _, id := range placeholderActions() {
		buttons = append(buttons, button(id, messenger.ButtonStyleDefault))
	}

	return messenger.Message{
		Text:    textIdle,
		Body:    fmt.Sprintf("%s\nClick a button below to lock or unlock the %s branch.", header, branch),
		Buttons: buttons,
	}
}

// BuildProcessingMessage renders the in-flight state. The single button is an
// affordance only; lock and unlock differ in wording and emphasis.
func BuildProcessingMessage(opt workflow.LockOption) messenger.Message {
	if opt == workflow.LockOptionUnlock {
		return messenger.Message{
			Text:    textProcessing,
			Body:    header + "\nUnlocking branch in progress...",
			Buttons: []messenger.Button{button(ActionProcessingUnlock, messenger.ButtonStyleDanger)},
		}
	}

	return messenger.Message{
		Text:    textProcessing,
		Body:    header + "\nLocking branch in progress...",
		Buttons: []messenger.Button{button(ActionProcessingRelease, messenger.ButtonStylePrimary)},
	}
}

// BuildSuccessMessage renders the completed state with the next actions.
func BuildSuccessMessage(opt workflow.LockOption) messenger.Message {
	if opt == workflow.LockOptionUnlock {
		startRelease := button(ActionStartRelease, messenger.ButtonStylePrimary)
		startRelease.Label = "Start Release (Lock)"
		return messenger.Message{
			Text: textSuccess,
			Body: header + "\nUnlock process completed successfully!",
			Buttons: []messenger.Button{
				startRelease,
				button(ActionUnlockBranch, messenger.ButtonStyleDanger),
			},
		}
	}

	return messenger.Message{
		Text: textSuccess,
		Body: header + "\nRelease process completed successfully!",
		Buttons: []messenger.Button{
			button(ActionStartRelease, messenger.ButtonStylePrimary),
			button(ActionUnlockBranch, messenger.ButtonStylePrimary),
		},
	}
}

// BuildErrorMessage renders the failed state with a retry menu. Only actions
// that start work are offered.
func BuildErrorMessage(opt workflow.LockOption) messenger.Message {
	body := header + "\n❌ Release process failed. Please try again."
	if opt == workflow.LockOptionUnlock {
		body = header + "\n❌ Unlock process failed. Please try again."
	}

	return messenger.Message{
		Text: textError,
		Body: body,
		Buttons: []messenger.Button{
			button(ActionLockBranch, messenger.ButtonStylePrimary),
			button(ActionUnlockBranch, messenger.ButtonStyleDanger),
		},
	}
}

// Render returns the message for state. Idle ignores opt.
func Render(state MessageState, opt workflow.LockOption, branch string) messenger.Message {
	switch state {
	case StateProcessing:
		return BuildProcessingMessage(opt)
	case StateSuccess:
		return BuildSuccessMessage(opt)
	case StateError:
		return BuildErrorMessage(opt)
	default:
		return BuildIdleMenu(branch)
	}
}
