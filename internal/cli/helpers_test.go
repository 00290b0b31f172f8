package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// chainWorkflow compiles to two jobs joined by one edge event, A-TO-B.
const chainWorkflow = `jobs:
  - id: A
    name: Extract
    type: Command
  - id: B
    type: Command
`

const cycleWorkflow = `jobs:
  - { id: A, type: Command, dependencies: [B] }
  - { id: B, type: Command, dependencies: [A] }
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// fakeCTM writes a shell script standing in for the ctm client.
func fakeCTM(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ctm")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

// writeConfig writes a config file with the ledger in dir and the given
// ctm binary, followed by extra YAML lines.
func writeConfig(t *testing.T, dir, ctmBinary string, extra ...string) string {
	t.Helper()
	lines := []string{
		fmt.Sprintf("ledger: %s", filepath.Join(dir, "ledger.db")),
		"ctm:",
		fmt.Sprintf("  binary: %s", ctmBinary),
	}
	lines = append(lines, extra...)
	return writeFile(t, dir, "ctmflow.yaml", strings.Join(lines, "\n")+"\n")
}

// execute runs a command built from opts and returns stdout, stderr and
// the command error.
func execute(t *testing.T, newCmd func(*RootOptions) *cobra.Command, opts *RootOptions, args ...string) (string, string, error) {
	t.Helper()
	if opts.Format == "" {
		opts.Format = "text"
	}
	var out, errOut bytes.Buffer
	cmd := newCmd(opts)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
