package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScaffold_Compiles verifies the sample workflow compiles with the
// built-in catalog.
func TestScaffold_Compiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workflow.yaml")

	stdout, _, err := execute(t, NewScaffoldCommand, &RootOptions{}, path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ Wrote sample workflow to "+path)

	stdout, _, err = execute(t, NewValidateCommand, &RootOptions{}, path, "--strict")
	require.NoError(t, err)
	assert.Contains(t, stdout, "is valid (5 job(s))")
}

func TestScaffold_Stdout(t *testing.T) {
	stdout, _, err := execute(t, NewScaffoldCommand, &RootOptions{})
	require.NoError(t, err)
	assert.Equal(t, string(scaffoldWorkflow), stdout)
}

func TestScaffold_RefusesOverwrite(t *testing.T) {
	path := writeFile(t, t.TempDir(), "workflow.yaml", "keep me\n")

	stdout, _, err := execute(t, NewScaffoldCommand, &RootOptions{}, path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "already exists")
	assert.Equal(t, "keep me\n", readFile(t, path))

	_, _, err = execute(t, NewScaffoldCommand, &RootOptions{}, path, "--force")
	require.NoError(t, err)
	assert.Equal(t, string(scaffoldWorkflow), readFile(t, path))
}
