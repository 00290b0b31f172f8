package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/ctmflow/internal/compiler"
	"github.com/roach88/ctmflow/internal/config"
	"github.com/roach88/ctmflow/internal/document"
	"github.com/roach88/ctmflow/internal/ir"
	"github.com/roach88/ctmflow/internal/loader"
)

// Build is a workflow taken through load, compile and render.
type Build struct {
	Config   config.Config
	Plan     *ir.CompiledPlan
	Document document.Document
	Bytes    []byte // document.Marshal output
	Hash     string
}

// buildWorkflow loads the config and the workflow at path, compiles it
// and renders the document. Errors are typed: *loader.Error,
// compiler.Errors or a wrapped config/render error.
func buildWorkflow(opts *RootOptions, path string, logger *slog.Logger) (*Build, error) {
	cfg, err := opts.LoadConfig()
	if err != nil {
		return nil, err
	}
	reg, err := cfg.Registry()
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	spec, err := loader.Load(path)
	if err != nil {
		return nil, err
	}

	plan, err := compiler.Compile(spec, cfg.CompilerOptions(reg, logger))
	if err != nil {
		return nil, err
	}

	doc, err := document.Render(plan)
	if err != nil {
		return nil, err
	}
	data, err := document.Marshal(doc)
	if err != nil {
		return nil, err
	}
	hash, err := document.Hash(doc)
	if err != nil {
		return nil, err
	}

	return &Build{Config: cfg, Plan: plan, Document: doc, Bytes: data, Hash: hash}, nil
}

// buildErrors flattens a buildWorkflow error into CLI errors, one per
// compile finding.
func buildErrors(err error) []CLIError {
	var ces compiler.Errors
	if errors.As(err, &ces) {
		out := make([]CLIError, len(ces))
		for i, ce := range ces {
			out[i] = CLIError{Code: string(ce.Code), Message: ce.Message}
			if len(ce.JobIDs) > 0 || len(ce.Events) > 0 {
				out[i].Details = map[string][]string{"job_ids": ce.JobIDs, "events": ce.Events}
			}
		}
		return out
	}

	var le *loader.Error
	if errors.As(err, &le) {
		ce := CLIError{Code: le.Code, Message: le.Message}
		if le.Pos.IsValid() {
			ce.Details = map[string]any{
				"file":   le.Pos.Filename(),
				"line":   le.Pos.Line(),
				"column": le.Pos.Column(),
			}
		}
		return []CLIError{ce}
	}

	if errors.Is(err, document.ErrKeyConflict) {
		return []CLIError{{Code: "KeyConflict", Message: err.Error()}}
	}
	return []CLIError{{Code: loader.ErrCodeGeneric, Message: err.Error()}}
}

// outputBuildErrors reports errs in the configured format and returns
// an ExitError with exitCode.
func outputBuildErrors(formatter *OutputFormatter, err error, exitCode int, verb string) error {
	errs := buildErrors(err)

	if formatter.Format == "json" {
		if encErr := formatter.encode(CLIResponse{
			Status: "error",
			Error:  &errs[0],
			Data:   errs, // Include all errors in data
		}); encErr != nil {
			return encErr
		}
		return WrapExitError(exitCode, fmt.Sprintf("%s failed with %d error(s)", verb, len(errs)), err)
	}

	fmt.Fprintf(formatter.Writer, "✗ %s failed\n\n", capitalize(verb))
	for _, e := range errs {
		if d, ok := e.Details.(map[string]any); ok {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n", d["file"], d["line"], d["column"])
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", e.Code, e.Message)
	}
	return WrapExitError(exitCode, fmt.Sprintf("%s failed with %d error(s)", verb, len(errs)), err)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
