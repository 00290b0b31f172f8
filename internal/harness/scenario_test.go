package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestLoadScenario_WorkflowFileRelative verifies workflow_file resolves
// against the scenario's directory.
func TestLoadScenario_WorkflowFileRelative(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/hcl_phases.yaml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "workflows", "phases.hcl"), scenario.WorkflowFile)
	assert.Len(t, scenario.Catalog, 1)
}

// TestLoadScenario_Invalid verifies validation errors.
func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "unknown field",
			content: "name: x\ndescription: y\nworkflow: {jobs: []}\nassertion: []\n",
			want:    "failed to parse YAML",
		},
		{
			name:    "missing name",
			content: "description: y\nworkflow: {jobs: []}\nassertions: [{type: event_exists, event: E}]\n",
			want:    "name is required",
		},
		{
			name:    "missing description",
			content: "name: x\nworkflow: {jobs: []}\nassertions: [{type: event_exists, event: E}]\n",
			want:    "description is required",
		},
		{
			name:    "no workflow",
			content: "name: x\ndescription: y\nassertions: [{type: event_exists, event: E}]\n",
			want:    "exactly one of workflow and workflow_file",
		},
		{
			name:    "both workflows",
			content: "name: x\ndescription: y\nworkflow: {jobs: []}\nworkflow_file: wf.yaml\nassertions: [{type: event_exists, event: E}]\n",
			want:    "exactly one of workflow and workflow_file",
		},
		{
			name:    "missing workflow file",
			content: "name: x\ndescription: y\nworkflow_file: nope.yaml\nassertions: [{type: event_exists, event: E}]\n",
			want:    "workflow file not found",
		},
		{
			name:    "no assertions",
			content: "name: x\ndescription: y\nworkflow: {jobs: []}\n",
			want:    "assertions list is required",
		},
		{
			name:    "unknown assertion",
			content: "name: x\ndescription: y\nworkflow: {jobs: []}\nassertions: [{type: trace_contains}]\n",
			want:    `unknown assertion type "trace_contains"`,
		},
		{
			name:    "job assertion without job",
			content: "name: x\ndescription: y\nworkflow: {jobs: []}\nassertions: [{type: job_waits, event: E}]\n",
			want:    "job is required for job_waits",
		},
		{
			name:    "runs without statuses",
			content: "name: x\ndescription: y\nworkflow: {jobs: []}\nassertions: [{type: runs}]\n",
			want:    "statuses list is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

// TestAssertionError_Format verifies the failure message layout.
func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertEventExists,
		Expected: `event "A-TO-B"`,
		Actual:   "event not synthesized",
		Events:   []string{"A-TO-C"},
	}
	want := "Assertion failed: event_exists\n" +
		"  Expected: event \"A-TO-B\"\n" +
		"  Actual: event not synthesized\n" +
		"\nEvents:\n" +
		"  [1] A-TO-C\n"
	assert.Equal(t, want, err.Error())
}
