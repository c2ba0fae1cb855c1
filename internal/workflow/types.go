package workflow

import (
	"fmt"
	"strings"
	"time"
)

// LockOption is the LockStatus input of the branch lock workflow.
type LockOption string

const (
	LockOptionLock   LockOption = "lock"
	LockOptionUnlock LockOption = "unlock"
)

// Request describes one workflow dispatch. It is built once per trigger and not mutated.
type Request struct {
	WorkflowFile string     // workflow file name, e.g. change-branch-lock-status.yml
	Ref          string     // branch the workflow itself runs on
	LockOption   LockOption // lock or unlock
	Branch       string     // branch whose lock flag is changed
}

// Validate reports a missing or unknown field.
func (r Request) Validate() error {
	switch {
	case r.WorkflowFile == "":
		return fmt.Errorf("%w: workflow file is empty", ErrInvalidRequest)
	case r.Ref == "":
		return fmt.Errorf("%w: ref is empty", ErrInvalidRequest)
	case r.Branch == "":
		return fmt.Errorf("%w: target branch is empty", ErrInvalidRequest)
	case r.LockOption != LockOptionLock && r.LockOption != LockOptionUnlock:
		return fmt.Errorf("%w: lock option %q", ErrInvalidRequest, r.LockOption)
	}
	return nil
}

// DispatchResult acknowledges that GitHub accepted a dispatch.
// Acceptance says nothing about whether the run has started.
type DispatchResult struct {
	StatusCode int
	AcceptedAt time.Time
}

// DispatchError is returned when a dispatch could not be delivered or was rejected.
type DispatchError struct {
	Workflow   string
	StatusCode int    // zero when no response was received
	Body       string // excerpt of the response body, if any
	Err        error  // underlying transport or validation error, if any
}

func (e *DispatchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "dispatch %s", e.Workflow)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
		if e.Body != "" {
			fmt.Fprintf(&b, ": %s", e.Body)
		}
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// Run is one entry of the repository's workflow run listing.
type Run struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	HTMLURL string `json:"html_url"`
}

// RunReference identifies a workflow run by its web URL.
type RunReference struct {
	URL  string
	Name string
	Path string
}

// SelectRun picks the run for workflowFile out of a newest-first listing:
// the first run whose name equals the file name or whose path ends with it,
// otherwise the newest run. A match without a URL falls back to the newest
// run. An empty listing, or no usable URL, yields nil.
func SelectRun(runs []Run, workflowFile string) *RunReference {
	if len(runs) == 0 {
		return nil
	}

	chosen := runs[0]
	for _, run := range runs {
		if run.Name == workflowFile || (workflowFile != "" && strings.HasSuffix(run.Path, workflowFile)) {
			chosen = run
			break
		}
	}

	if chosen.HTMLURL == "" {
		chosen = runs[0]
	}
	if chosen.HTMLURL == "" {
		return nil
	}

	return &RunReference{URL: chosen.HTMLURL, Name: chosen.Name, Path: chosen.Path}
}
