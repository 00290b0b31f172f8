package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// Engine builds and deploys rendered plan documents.
type Engine interface {
	// Build asks the engine to validate doc without deploying it.
	Build(ctx context.Context, doc []byte) error

	// Deploy installs doc on the engine.
	Deploy(ctx context.Context, doc []byte) error
}

// CTM runs the ctm command line client: "ctm build <file>" and
// "ctm deploy <file>". The document is written to a temporary file
// that is removed after each call.
type CTM struct {
	// Binary is the ctm executable. Empty means "ctm" on PATH.
	Binary string

	// Args are appended after the document path, e.g. ["-e", "qa"].
	Args []string

	// TempDir holds the temporary documents. Empty uses os.TempDir.
	TempDir string

	// Logger receives the client's stdout at debug level. Nil uses
	// slog.Default().
	Logger *slog.Logger
}

// Build runs "ctm build".
func (c *CTM) Build(ctx context.Context, doc []byte) error {
	return c.run(ctx, "build", ErrCodeBuild, doc)
}

// Deploy runs "ctm deploy".
func (c *CTM) Deploy(ctx context.Context, doc []byte) error {
	return c.run(ctx, "deploy", ErrCodeDeploy, doc)
}

func (c *CTM) run(ctx context.Context, verb string, code ErrorCode, doc []byte) error {
	f, err := os.CreateTemp(c.TempDir, "ctmflow-*.json")
	if err != nil {
		return fmt.Errorf("ctm %s: %w", verb, err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(doc); err != nil {
		f.Close()
		return fmt.Errorf("ctm %s: write document: %w", verb, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("ctm %s: write document: %w", verb, err)
	}

	binary := c.Binary
	if binary == "" {
		binary = "ctm"
	}
	args := append([]string{verb, path}, c.Args...)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("running ctm", "verb", verb, "binary", binary, "args", c.Args)

	err = cmd.Run()
	if err == nil {
		logger.Debug("ctm succeeded", "verb", verb, "output", strings.TrimSpace(stdout.String()))
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("ctm %s: %w", verb, ctxErr)
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		// The client never ran (missing binary, permissions).
		return fmt.Errorf("ctm %s: %w", verb, err)
	}

	msgs := parseMessages(stdout.Bytes(), stderr.Bytes())
	if len(msgs) == 0 {
		msgs = []string{exitErr.Error()}
	}
	return &Error{Code: code, Messages: msgs}
}

// ctmErrors is the error body the ctm client prints on failure.
type ctmErrors struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// parseMessages extracts diagnostics from the client output: the JSON
// error list when stdout carries one, otherwise the non-empty lines of
// stderr followed by stdout.
func parseMessages(stdout, stderr []byte) []string {
	var body ctmErrors
	if err := json.Unmarshal(bytes.TrimSpace(stdout), &body); err == nil {
		var msgs []string
		for _, e := range body.Errors {
			if e.Message != "" {
				msgs = append(msgs, e.Message)
			}
		}
		if len(msgs) > 0 {
			return msgs
		}
	}

	var msgs []string
	for _, out := range [][]byte{stderr, stdout} {
		for _, line := range strings.Split(string(out), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				msgs = append(msgs, line)
			}
		}
	}
	return msgs
}
