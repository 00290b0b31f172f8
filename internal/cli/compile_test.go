package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ctmflow/internal/document"
)

func TestCompile_TextWritesDocumentToStdout(t *testing.T) {
	dir := t.TempDir()
	wf := writeFile(t, dir, "wf.yaml", chainWorkflow)

	stdout, stderr, err := execute(t, NewCompileCommand, &RootOptions{}, wf)
	require.NoError(t, err)

	var doc document.Document
	require.NoError(t, json.Unmarshal([]byte(stdout), &doc))
	assert.Equal(t, "LBA_DEMGEN_VB", doc.Folder())
	assert.Contains(t, stdout, `"zzt-Extract"`)
	assert.Contains(t, stdout, `"A-TO-B"`)

	assert.Contains(t, stderr, "✓ Compiled 2 job(s), 1 event(s) into LBA_DEMGEN_VB")
	assert.Contains(t, stderr, "Plan hash: ")
}

func TestCompile_OutputFile(t *testing.T) {
	dir := t.TempDir()
	wf := writeFile(t, dir, "wf.yaml", chainWorkflow)
	out := filepath.Join(dir, "folder.json")

	stdout, _, err := execute(t, NewCompileCommand, &RootOptions{}, wf, "-o", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ Compiled 2 job(s)")
	assert.Contains(t, stdout, "Wrote document to "+out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}

func TestCompile_Deterministic(t *testing.T) {
	dir := t.TempDir()
	wf := writeFile(t, dir, "wf.yaml", chainWorkflow)

	first, _, err := execute(t, NewCompileCommand, &RootOptions{}, wf)
	require.NoError(t, err)
	second, _, err := execute(t, NewCompileCommand, &RootOptions{}, wf)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCompile_JSON(t *testing.T) {
	dir := t.TempDir()
	wf := writeFile(t, dir, "wf.yaml", chainWorkflow)

	stdout, _, err := execute(t, NewCompileCommand, &RootOptions{Format: "json"}, wf)
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Folder   string         `json:"folder"`
			Hash     string         `json:"hash"`
			Jobs     int            `json:"jobs"`
			Events   int            `json:"events"`
			Document map[string]any `json:"document"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "LBA_DEMGEN_VB", resp.Data.Folder)
	assert.Len(t, resp.Data.Hash, 64)
	assert.Equal(t, 2, resp.Data.Jobs)
	assert.Equal(t, 1, resp.Data.Events)
	assert.Contains(t, resp.Data.Document, "LBA_DEMGEN_VB")
}

func TestCompile_ConfigOverridesFolder(t *testing.T) {
	dir := t.TempDir()
	wf := writeFile(t, dir, "wf.yaml", chainWorkflow)
	cfg := writeFile(t, dir, "ctmflow.yaml", "user_code: \"\"\nfolder: NIGHTLY\nenvironment: vse_qa\njob_prefix: \"\"\n")

	stdout, _, err := execute(t, NewCompileCommand, &RootOptions{Config: cfg}, wf)
	require.NoError(t, err)

	var doc map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &doc))
	require.Contains(t, doc, "NIGHTLY")
	assert.Equal(t, "QA", doc["NIGHTLY"]["ControlmServer"])
	assert.Contains(t, doc["NIGHTLY"], "Extract")
}

func TestCompile_CompileErrors(t *testing.T) {
	dir := t.TempDir()
	wf := writeFile(t, dir, "wf.yaml", cycleWorkflow)

	stdout, _, err := execute(t, NewCompileCommand, &RootOptions{}, wf)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "✗ Compilation failed")
	assert.Contains(t, stdout, "CyclicDependency")
}

func TestCompile_CompileErrorsJSON(t *testing.T) {
	dir := t.TempDir()
	wf := writeFile(t, dir, "wf.yaml", "jobs:\n  - { id: A, type: Frobnicator }\n")

	stdout, _, err := execute(t, NewCompileCommand, &RootOptions{Format: "json"}, wf)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UnknownJobType", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "Frobnicator")
}

func TestCompile_LoadErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
		code string
	}{
		{"missing file", filepath.Join(dir, "nope.yaml"), "E005"},
		{"unsupported extension", writeFile(t, dir, "wf.toml", "jobs = []\n"), "E002"},
		{"no jobs", writeFile(t, dir, "empty.yaml", "jobs: []\n"), "E003"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := execute(t, NewCompileCommand, &RootOptions{}, tt.path)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, stdout, tt.code)
		})
	}
}

func TestCompile_BadConfig(t *testing.T) {
	dir := t.TempDir()
	wf := writeFile(t, dir, "wf.yaml", chainWorkflow)
	cfg := writeFile(t, dir, "ctmflow.yaml", "environment: mars\n")

	stdout, _, err := execute(t, NewCompileCommand, &RootOptions{Config: cfg}, wf)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "unknown environment")
}
