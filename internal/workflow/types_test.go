package workflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/releasebot/internal/workflow"
)

func TestSelectRun(t *testing.T) {
	t.Parallel()

	t.Run("path match beats a more recent non-matching run", func(t *testing.T) {
		t.Parallel()

		runs := []workflow.Run{
			{Name: "CI", Path: ".github/workflows/ci.yml", HTMLURL: "https://example.test/runs/2"},
			{Name: "Lock", Path: ".github/workflows/change-branch-lock-status.yml", HTMLURL: "https://example.test/runs/1"},
		}

		ref := workflow.SelectRun(runs, testWorkflow)

		require.NotNil(t, ref)
		assert.Equal(t, "https://example.test/runs/1", ref.URL)
	})

	t.Run("name match is accepted", func(t *testing.T) {
		t.Parallel()

		runs := []workflow.Run{
			{Name: "CI", HTMLURL: "https://example.test/runs/2"},
			{Name: testWorkflow, HTMLURL: "https://example.test/runs/1"},
		}

		ref := workflow.SelectRun(runs, testWorkflow)

		require.NotNil(t, ref)
		assert.Equal(t, "https://example.test/runs/1", ref.URL)
	})

	t.Run("no match falls back to the most recent run", func(t *testing.T) {
		t.Parallel()

		runs := []workflow.Run{
			{Name: "CI", Path: ".github/workflows/ci.yml", HTMLURL: "https://example.test/runs/9"},
			{Name: "Deploy", Path: ".github/workflows/deploy.yml", HTMLURL: "https://example.test/runs/8"},
		}

		ref := workflow.SelectRun(runs, testWorkflow)

		require.NotNil(t, ref)
		assert.Equal(t, "https://example.test/runs/9", ref.URL)
	})

	t.Run("empty listing is absent", func(t *testing.T) {
		t.Parallel()

		assert.Nil(t, workflow.SelectRun(nil, testWorkflow))
		assert.Nil(t, workflow.SelectRun([]workflow.Run{}, testWorkflow))
	})

	t.Run("run without a URL is absent", func(t *testing.T) {
		t.Parallel()

		assert.Nil(t, workflow.SelectRun([]workflow.Run{{Name: "CI"}}, testWorkflow))
	})

	t.Run("match without a URL falls back to the newest run", func(t *testing.T) {
		t.Parallel()

		runs := []workflow.Run{
			{Name: "CI", Path: ".github/workflows/ci.yml", HTMLURL: "https://example.test/runs/9"},
			{Name: testWorkflow, Path: ".github/workflows/" + testWorkflow},
		}

		ref := workflow.SelectRun(runs, testWorkflow)

		require.NotNil(t, ref)
		assert.Equal(t, "https://example.test/runs/9", ref.URL)
		assert.Equal(t, "CI", ref.Name)
	})
}

func TestRequest_Validate(t *testing.T) {
	t.Parallel()

	valid := workflow.Request{
		WorkflowFile: testWorkflow,
		Ref:          "master",
		LockOption:   workflow.LockOptionUnlock,
		Branch:       "develop/subscriptions",
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(r *workflow.Request)
	}{
		{name: "empty workflow file", mutate: func(r *workflow.Request) { r.WorkflowFile = "" }},
		{name: "empty ref", mutate: func(r *workflow.Request) { r.Ref = "" }},
		{name: "empty branch", mutate: func(r *workflow.Request) { r.Branch = "" }},
		{name: "unknown lock option", mutate: func(r *workflow.Request) { r.LockOption = "freeze" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := valid
			tc.mutate(&req)
			assert.ErrorIs(t, req.Validate(), workflow.ErrInvalidRequest)
		})
	}
}
