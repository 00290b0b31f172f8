package compiler

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/ctmflow/internal/ir"
)

//go:embed workflow.cue
var workflowSchema string

// CompileWorkflow decodes a CUE value into a WorkflowSpec.
// Uses the CUE SDK's Go API directly (not a CLI subprocess).
//
// The value is either the workflow struct itself or a struct with a
// top-level "workflow" field:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`workflow: { folder: "DEMGEN", jobs: [...] }`)
//	spec, err := CompileWorkflow(v)
//
// The value is unified with the #Workflow schema first, so unknown fields
// and missing ids or types are reported with their source position.
func CompileWorkflow(v cue.Value) (*ir.WorkflowSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	if wf := v.LookupPath(cue.ParsePath("workflow")); wf.Exists() {
		v = wf
	}

	schema := v.Context().CompileString(workflowSchema, cue.Filename("workflow.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("workflow schema: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Workflow")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var spec ir.WorkflowSpec
	if err := unified.Decode(&spec); err != nil {
		return nil, formatCUEError(err)
	}
	return &spec, nil
}

// SourceError is a workflow decoding error with source position.
type SourceError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *SourceError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &SourceError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
