// Package workflow triggers GitHub Actions workflow dispatches and resolves
// the URL of the most recent run.
package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// apiVersion pins the GitHub REST API version for consistent behavior.
const apiVersion = "2022-11-28"

// DefaultBaseURL is the public GitHub API root.
const DefaultBaseURL = "https://api.github.com"

// maxErrorBody caps how much of a failed response body is kept in errors.
const maxErrorBody = 4 << 10

// maxResponseSize caps how much of a run listing is read.
const maxResponseSize = 10 << 20

// ErrLookup marks a failed run-reference lookup. It is logged, never returned to callers.
var ErrLookup = errors.New("workflow: run lookup failed") //nolint:gochecknoglobals // sentinel error

// ErrInvalidRequest is wrapped by a DispatchError when the request is missing a field.
var ErrInvalidRequest = errors.New("workflow: invalid request") //nolint:gochecknoglobals // sentinel error

// Config holds the static identity and credential of the remote repository.
type Config struct {
	BaseURL string
	Token   string //nolint:gosec // G117: API token config
	Owner   string
	Repo    string

	// Timeout bounds each outbound call. Zero means no client-side timeout.
	Timeout time.Duration
	// RunsPageSize is the per_page value of the run listing. Defaults to 1.
	RunsPageSize int
	// HTTPClient is the base client whose transport carries the requests.
	// Defaults to http.DefaultClient's transport.
	HTTPClient *http.Client
}

// Client calls the GitHub Actions REST API for a single repository.
// All calls are authenticated with a static bearer token.
type Client struct {
	baseURL      string
	owner        string
	repo         string
	runsPageSize int
	http         *http.Client
}

// NewClient creates a Client from the given configuration.
func NewClient(cfg Config) *Client {
	base := cfg.HTTPClient
	if base == nil {
		base = http.DefaultClient
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	pageSize := cfg.RunsPageSize
	if pageSize < 1 {
		pageSize = 1
	}

	// oauth2 picks up the base transport from the context; the token never expires.
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	authed := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}))
	authed.Timeout = cfg.Timeout

	return &Client{
		baseURL:      baseURL,
		owner:        cfg.Owner,
		repo:         cfg.Repo,
		runsPageSize: pageSize,
		http:         authed,
	}
}

// repoPath returns the "/repos/{owner}/{repo}" path prefix.
func (c *Client) repoPath() string {
	return "/repos/" + url.PathEscape(c.owner) + "/" + url.PathEscape(c.repo)
}

// newRequest builds an authenticated-by-transport request with the GitHub headers set.
func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// dispatchBody is the JSON body of a workflow_dispatch call.
type dispatchBody struct {
	Ref    string         `json:"ref"`
	Inputs dispatchInputs `json:"inputs"`
}

type dispatchInputs struct {
	LockStatus string `json:"LockStatus"`
	Branch     string `json:"Branch"`
}

// Dispatch starts the workflow named in req. Any transport failure or non-2xx
// response is returned as a *DispatchError. There is no retry.
func (c *Client) Dispatch(ctx context.Context, req Request) (*DispatchResult, error) {
	if err := req.Validate(); err != nil {
		return nil, &DispatchError{Workflow: req.WorkflowFile, Err: err}
	}

	path := c.repoPath() + "/actions/workflows/" + url.PathEscape(req.WorkflowFile) + "/dispatches"
	body := dispatchBody{
		Ref: req.Ref,
		Inputs: dispatchInputs{
			LockStatus: string(req.LockOption),
			Branch:     req.Branch,
		},
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, &DispatchError{Workflow: req.WorkflowFile, Err: err}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &DispatchError{Workflow: req.WorkflowFile, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &DispatchError{
			Workflow:   req.WorkflowFile,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(excerpt)),
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	zerolog.Ctx(ctx).Debug().
		Str("workflow", req.WorkflowFile).
		Str("ref", req.Ref).
		Str("lock_option", string(req.LockOption)).
		Str("branch", req.Branch).
		Int("status", resp.StatusCode).
		Msg("workflow dispatch accepted")

	return &DispatchResult{StatusCode: resp.StatusCode, AcceptedAt: time.Now()}, nil
}

// runsResponse is the subset of the run listing this client reads.
type runsResponse struct {
	WorkflowRuns []Run `json:"workflow_runs"`
}

// LatestRunReference returns the most recent run of workflowFile, or nil when
// none can be resolved. Lookup failures are logged and swallowed: the link is
// cosmetic and must never fail the caller.
func (c *Client) LatestRunReference(ctx context.Context, workflowFile string) *RunReference {
	runs, err := c.listRuns(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("workflow", workflowFile).Msg("workflow run lookup failed")
		return nil
	}

	return SelectRun(runs, workflowFile)
}

// listRuns fetches the newest page of the repository's run listing.
func (c *Client) listRuns(ctx context.Context) ([]Run, error) {
	path := c.repoPath() + "/actions/runs?per_page=" + strconv.Itoa(c.runsPageSize)

	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLookup, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLookup, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: status %d: %s", ErrLookup, resp.StatusCode, strings.TrimSpace(string(excerpt)))
	}

	var out runsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode runs: %w", ErrLookup, err)
	}

	return out.WorkflowRuns, nil
}
