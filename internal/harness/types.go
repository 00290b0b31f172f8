package harness

import (
	"github.com/roach88/ctmflow/internal/document"
	"github.com/roach88/ctmflow/internal/ir"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every assertion held.
	Pass bool `json:"pass"`

	// Errors contains assertion failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Codes are the compile error codes when compilation failed.
	Codes []string `json:"codes,omitempty"`

	// CompileError is the compile failure text, if any.
	CompileError string `json:"compile_error,omitempty"`

	// Plan, Document and Hash are set when compilation succeeded.
	Plan     *ir.CompiledPlan  `json:"-"`
	Document document.Document `json:"-"`
	Hash     string            `json:"hash,omitempty"`

	// Runs holds one status per deploy attempt: a ledger status or
	// "skipped".
	Runs []string `json:"runs,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Compiled reports whether the scenario produced a plan.
func (r *Result) Compiled() bool {
	return r.Plan != nil
}
