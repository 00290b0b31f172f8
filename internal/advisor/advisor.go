package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"slices"
	"strings"
)

// ErrNoJSON is returned when a reply contains no JSON object.
var ErrNoJSON = errors.New("advisor: no JSON object in reply")

// Prompt is one request to the suggestion service.
type Prompt struct {
	System string `json:"system"`
	User   string `json:"user"`
}

// Service answers prompts with free text.
type Service interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

// Text is a Service that always replies with the same text. It replays
// a saved reply from a file or stdin.
type Text string

// Complete returns t.
func (t Text) Complete(context.Context, Prompt) (string, error) {
	return string(t), nil
}

// Command is a Service backed by an external program. The prompt is
// written to its stdin as JSON and stdout is the reply.
type Command struct {
	Path string
	Args []string
}

// Complete runs the program once.
func (c Command) Complete(ctx context.Context, p Prompt) (string, error) {
	in, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("advisor: %w", err)
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Stdin = bytes.NewReader(in)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("advisor: %s: %w: %s", c.Path, err, msg)
		}
		return "", fmt.Errorf("advisor: %s: %w", c.Path, err)
	}
	return stdout.String(), nil
}

// ExtractJSON returns the text between the first '{' and the last '}'.
func ExtractJSON(text string) ([]byte, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, ErrNoJSON
	}
	return []byte(text[start : end+1]), nil
}

// ParseOrder extracts "workflow_order" from a reply.
func ParseOrder(text string) ([]string, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	var reply struct {
		WorkflowOrder []string `json:"workflow_order"`
	}
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("advisor: parse order: %w", err)
	}
	return reply.WorkflowOrder, nil
}

// ParseRenames extracts the renamed job types from a reply. Both the
// {"renamed_technologies": {...}} wrapper and a bare mapping are accepted.
func ParseRenames(text string) (map[string]string, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	var wrapped struct {
		Renamed map[string]string `json:"renamed_technologies"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Renamed != nil {
		return wrapped.Renamed, nil
	}
	var bare map[string]string
	if err := json.Unmarshal(raw, &bare); err != nil {
		return nil, fmt.Errorf("advisor: parse renames: %w", err)
	}
	return bare, nil
}

// Reconcile returns proposed when it is a permutation of requested, and
// requested otherwise. The bool reports whether proposed was kept.
func Reconcile(requested, proposed []string) ([]string, bool) {
	if len(requested) != len(proposed) {
		return slices.Clone(requested), false
	}
	a, b := slices.Clone(requested), slices.Clone(proposed)
	slices.Sort(a)
	slices.Sort(b)
	if !slices.Equal(a, b) {
		return slices.Clone(requested), false
	}
	return slices.Clone(proposed), true
}

// Advisor asks a Service for an execution order and business names.
type Advisor struct {
	svc    Service
	logger *slog.Logger
}

// New creates an Advisor. Nil logger uses slog.Default().
func New(svc Service, logger *slog.Logger) *Advisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Advisor{svc: svc, logger: logger}
}

// Order asks for the execution order of types. Unparseable or
// incomplete replies fall back to the requested order; only a service
// failure is an error.
func (a *Advisor) Order(ctx context.Context, types []string, useCase string) ([]string, error) {
	reply, err := a.svc.Complete(ctx, OrderPrompt(types, useCase))
	if err != nil {
		return nil, err
	}
	proposed, err := ParseOrder(reply)
	if err != nil {
		a.logger.Warn("unusable order reply, keeping requested order", "error", err)
		return slices.Clone(types), nil
	}
	order, ok := Reconcile(types, proposed)
	if !ok {
		a.logger.Warn("order reply does not match requested job types, keeping requested order",
			"requested", types,
			"proposed", proposed)
	}
	return order, nil
}

// Rename asks for business names for each type. Unparseable replies
// yield no renames.
func (a *Advisor) Rename(ctx context.Context, types []string, useCase string) (map[string]string, error) {
	reply, err := a.svc.Complete(ctx, RenamePrompt(types, useCase))
	if err != nil {
		return nil, err
	}
	renames, err := ParseRenames(reply)
	if err != nil {
		a.logger.Warn("unusable rename reply, keeping type names", "error", err)
		return map[string]string{}, nil
	}
	return renames, nil
}

// OrderPrompt builds the ordering request.
func OrderPrompt(types []string, useCase string) Prompt {
	return Prompt{
		System: "You determine the execution order of Control-M job types from their data and resource dependencies. " +
			"Include every job type exactly once and add none. The same input must always produce the same order.",
		User: fmt.Sprintf("Technologies: %s\nUse Case: %s\n"+
			`Reply with JSON only: {"workflow_order": ["Technology1", "Technology2"]}`,
			strings.Join(types, ", "), useCase),
	}
}

// RenamePrompt builds the naming request.
func RenamePrompt(types []string, useCase string) Prompt {
	return Prompt{
		System: "You rename Control-M job types to short business names, under three words, relevant to the use case.",
		User: fmt.Sprintf("Technologies: %s\nUse Case: %s\n"+
			`Reply with JSON only: {"renamed_technologies": {"original_name": "new_name"}}`,
			strings.Join(types, ", "), useCase),
	}
}
