package release

// ActionID is the identifier a button delivers back on click.
type ActionID string

const (
	ActionLockBranch   ActionID = "lock_branch"
	ActionUnlockBranch ActionID = "unlock_branch"
	// ActionStartRelease locks the branch under a release label.
	ActionStartRelease ActionID = "start_release"

	// Processing affordances. They are clickable on Slack but carry no work.
	ActionProcessingRelease ActionID = "processing_release"
	ActionProcessingUnlock  ActionID = "processing_unlock"

	// Placeholders for features that are not available yet.
	ActionPrismDevelop  ActionID = "prism_develop"
	ActionPrismRelease  ActionID = "prism_release"
	ActionHotfixRelease ActionID = "hotfix_release"
)

// ActionIDs lists every action the controller knows about.
func ActionIDs() []ActionID {
	return []ActionID{
		ActionLockBranch,
		ActionUnlockBranch,
		ActionStartRelease,
		ActionProcessingRelease,
		ActionProcessingUnlock,
		ActionPrismDevelop,
		ActionPrismRelease,
		ActionHotfixRelease,
	}
}

// placeholderActions are shown on the idle menu and answer with a "coming soon" notice.
func placeholderActions() []ActionID {
	return []ActionID{ActionPrismDevelop, ActionPrismRelease, ActionHotfixRelease}
}

// Label returns the button text for the action.
func (a ActionID) Label() string {
	switch a {
	case ActionLockBranch:
		return "Lock Branch"
	case ActionUnlockBranch:
		return "Unlock Branch"
	case ActionStartRelease:
		return "Start Release"
	case ActionProcessingRelease, ActionProcessingUnlock:
		return "Processing..."
	case ActionPrismDevelop:
		return "Prism Develop"
	case ActionPrismRelease:
		return "Prism Release"
	case ActionHotfixRelease:
		return "Hotfix Release"
	default:
		return string(a)
	}
}
