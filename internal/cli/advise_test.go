package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/roach88/ctmflow/internal/ir"
)

func decodeWorkflow(t *testing.T, data string) ir.WorkflowSpec {
	t.Helper()
	var spec ir.WorkflowSpec
	require.NoError(t, yaml.Unmarshal([]byte(data), &spec))
	return spec
}

func jobIDs(spec ir.WorkflowSpec) []string {
	ids := make([]string, len(spec.Jobs))
	for i, j := range spec.Jobs {
		ids[i] = j.ID
	}
	return ids
}

// TestAdvise_NoAdvisorKeepsOrder verifies the job types are chained as
// given when no advisor is configured.
func TestAdvise_NoAdvisorKeepsOrder(t *testing.T) {
	stdout, _, err := execute(t, NewAdviseCommand, &RootOptions{}, "Data_Oracle", "Summary_Power_BI")
	require.NoError(t, err)

	spec := decodeWorkflow(t, stdout)
	assert.Equal(t, []string{"Data_Oracle", "Summary_Power_BI"}, jobIDs(spec))
	assert.Empty(t, spec.Jobs[0].Name)
}

// TestAdvise_ReplyFile verifies a chatty reply is parsed for both order
// and names.
func TestAdvise_ReplyFile(t *testing.T) {
	reply := writeFile(t, t.TempDir(), "reply.txt", `Here is the plan:
{"workflow_order": ["Data_SFDC", "Data_Oracle", "Summary_Power_BI"],
 "renamed_technologies": {"Data_Oracle": "Store Sales", "Summary_Power_BI": "Sales Dashboard"}}
Hope this helps!`)

	stdout, _, err := execute(t, NewAdviseCommand, &RootOptions{},
		"Data_Oracle", "Summary_Power_BI", "Data_SFDC", "--reply-file", reply, "--use-case", "sales")
	require.NoError(t, err)

	spec := decodeWorkflow(t, stdout)
	assert.Equal(t, []string{"Data_SFDC", "Data_Oracle", "Summary_Power_BI"}, jobIDs(spec))
	assert.Equal(t, "", spec.Jobs[0].Name)
	assert.Equal(t, "Store Sales", spec.Jobs[1].Name)
	assert.Equal(t, "Sales Dashboard", spec.Jobs[2].Name)
}

// TestAdvise_IncompleteReplyFallsBack verifies an order that drops a job
// type is ignored.
func TestAdvise_IncompleteReplyFallsBack(t *testing.T) {
	reply := writeFile(t, t.TempDir(), "reply.json", `{"workflow_order": ["Summary_Power_BI"]}`)

	stdout, _, err := execute(t, NewAdviseCommand, &RootOptions{},
		"Data_Oracle", "Summary_Power_BI", "--reply-file", reply, "--no-rename")
	require.NoError(t, err)

	spec := decodeWorkflow(t, stdout)
	assert.Equal(t, []string{"Data_Oracle", "Summary_Power_BI"}, jobIDs(spec))
}

// TestAdvise_Command verifies the advisor program receives the prompt on
// stdin and its stdout is the reply.
func TestAdvise_Command(t *testing.T) {
	dir := t.TempDir()
	prompt := filepath.Join(dir, "prompt.json")
	bin := fakeCTM(t, `cat > `+prompt+`; echo '{"workflow_order": ["Summary_Power_BI", "Data_Oracle"]}'`)

	stdout, _, err := execute(t, NewAdviseCommand, &RootOptions{Format: "json"},
		"Data_Oracle", "Summary_Power_BI", "--command", bin, "--use-case", "forecast", "--no-rename")
	require.NoError(t, err)

	var resp struct {
		Data AdviseResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, []string{"Summary_Power_BI", "Data_Oracle"}, resp.Data.Order)

	var sent struct {
		System string
		User   string
	}
	require.NoError(t, json.Unmarshal([]byte(readFile(t, prompt)), &sent))
	assert.Contains(t, sent.User, "Technologies: Data_Oracle, Summary_Power_BI")
	assert.Contains(t, sent.User, "Use Case: forecast")
}

func TestAdvise_OutputFileCompiles(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "workflow.yaml")

	stdout, _, err := execute(t, NewAdviseCommand, &RootOptions{}, "Data_Oracle", "Data_Oracle", "-o", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ Wrote 2 job(s) to "+out)

	spec := decodeWorkflow(t, readFile(t, out))
	assert.Equal(t, []string{"Data_Oracle", "Data_Oracle_2"}, jobIDs(spec))

	_, _, err = execute(t, NewCompileCommand, &RootOptions{}, out)
	require.NoError(t, err)
}

func TestAdvise_UnknownType(t *testing.T) {
	stdout, _, err := execute(t, NewAdviseCommand, &RootOptions{}, "Frobnicator")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "UnknownJobType")
}
