package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCTM writes a shell script standing in for the ctm client and
// returns its path. The script body sees the verb as $1 and the
// document path as $2.
func fakeCTM(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "ctm")
	script := "#!/bin/sh\n" + strings.ReplaceAll(body, "$DIR", dir) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

// TestCTM_BuildPassesDocument verifies the document reaches the client
// and extra args follow the document path.
func TestCTM_BuildPassesDocument(t *testing.T) {
	bin := fakeCTM(t, `cp "$2" "$DIR/doc.json"; echo "$1 $3 $4" > "$DIR/args.txt"; echo '[{"deploymentFile":"doc.json","successfulFoldersCount":1}]'`)
	c := &CTM{Binary: bin, Args: []string{"-e", "qa"}, TempDir: t.TempDir()}

	doc := []byte(`{"F":{"Type":"Folder"}}`)
	require.NoError(t, c.Build(context.Background(), doc))

	got, err := os.ReadFile(filepath.Join(filepath.Dir(bin), "doc.json"))
	require.NoError(t, err)
	assert.Equal(t, doc, got)

	args, err := os.ReadFile(filepath.Join(filepath.Dir(bin), "args.txt"))
	require.NoError(t, err)
	assert.Equal(t, "build -e qa\n", string(args))
}

// TestCTM_RemovesTempFile verifies no document is left behind.
func TestCTM_RemovesTempFile(t *testing.T) {
	tmp := t.TempDir()
	c := &CTM{Binary: fakeCTM(t, "exit 0"), TempDir: tmp}

	require.NoError(t, c.Deploy(context.Background(), []byte("{}")))

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// TestCTM_JSONErrors verifies the client's error list is surfaced verbatim.
func TestCTM_JSONErrors(t *testing.T) {
	bin := fakeCTM(t, `echo '{"errors":[{"message":"Folder LBA_DEMGEN_VB: unknown ControlmServer","file":"doc.json","line":3},{"message":"Job zzt-A: Host is missing"}]}'; exit 1`)
	c := &CTM{Binary: bin, TempDir: t.TempDir()}

	err := c.Build(context.Background(), []byte("{}"))
	require.Error(t, err)
	assert.True(t, IsBuildError(err))
	assert.False(t, IsDeployError(err))

	var ee *Error
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, []string{
		"Folder LBA_DEMGEN_VB: unknown ControlmServer",
		"Job zzt-A: Host is missing",
	}, ee.Messages)
}

// TestCTM_PlainOutputErrors verifies non-JSON output is split into lines,
// stderr first.
func TestCTM_PlainOutputErrors(t *testing.T) {
	bin := fakeCTM(t, `echo "deploy refused" >&2; echo "see log"; exit 3`)
	c := &CTM{Binary: bin, TempDir: t.TempDir()}

	err := c.Deploy(context.Background(), []byte("{}"))
	require.Error(t, err)
	assert.True(t, IsDeployError(err))
	assert.Equal(t, []string{"deploy refused", "see log"}, Messages(err))
}

// TestCTM_SilentFailure verifies the exit status is reported when the
// client prints nothing.
func TestCTM_SilentFailure(t *testing.T) {
	c := &CTM{Binary: fakeCTM(t, "exit 2"), TempDir: t.TempDir()}

	err := c.Build(context.Background(), []byte("{}"))
	require.Error(t, err)
	assert.Equal(t, []string{"exit status 2"}, Messages(err))
}

// TestCTM_MissingBinary verifies a client that cannot start is not an
// engine error.
func TestCTM_MissingBinary(t *testing.T) {
	c := &CTM{Binary: filepath.Join(t.TempDir(), "nope"), TempDir: t.TempDir()}

	err := c.Build(context.Background(), []byte("{}"))
	require.Error(t, err)
	assert.False(t, IsBuildError(err))
}

// TestError_Format covers the message layouts.
func TestError_Format(t *testing.T) {
	assert.Equal(t, "EngineBuildError", (&Error{Code: ErrCodeBuild}).Error())
	assert.Equal(t, "EngineDeployError: boom", (&Error{Code: ErrCodeDeploy, Messages: []string{"boom"}}).Error())
	assert.Equal(t, "EngineBuildError:\n  a\n  b", (&Error{Code: ErrCodeBuild, Messages: []string{"a", "b"}}).Error())
	assert.Nil(t, Messages(nil))
	assert.Equal(t, []string{"plain"}, Messages(errors.New("plain")))
}
