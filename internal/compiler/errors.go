package compiler

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrorCode classifies a compile failure.
type ErrorCode string

// Fatal validation codes. Any of these aborts compilation before
// serialization.
const (
	UnknownJobType     ErrorCode = "UnknownJobType"
	UnknownSubfolder   ErrorCode = "UnknownSubfolder"
	CyclicDependency   ErrorCode = "CyclicDependency"
	EventNameCollision ErrorCode = "EventNameCollision"
	DuplicateJobID     ErrorCode = "DuplicateJobID"
	DuplicateJobName   ErrorCode = "DuplicateJobName"
	DuplicatePhase     ErrorCode = "DuplicatePhase"
	InvalidPhase       ErrorCode = "InvalidPhase"
	UnknownDependency  ErrorCode = "UnknownDependency"
	UnknownBarrier     ErrorCode = "UnknownBarrier"
	MissingJobID       ErrorCode = "MissingJobID"
	MissingJobField    ErrorCode = "MissingJobField"
	InvalidJobField    ErrorCode = "InvalidJobField"
	ObjectNameConflict ErrorCode = "ObjectNameConflict"
)

// Warning codes. Warnings never abort compilation.
const (
	DanglingPhaseGate ErrorCode = "DanglingPhaseGate"
	EventRenamed      ErrorCode = "EventRenamed"
	UnusedBarrier     ErrorCode = "UnusedBarrier"
)

// CompileError is one fatal finding, naming the offending job ids and
// event names where they apply.
type CompileError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	JobIDs  []string  `json:"job_ids,omitempty"`
	Events  []string  `json:"events,omitempty"`
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Errors aggregates every fatal finding of one compile call.
type Errors []*CompileError

// Error implements the error interface.
func (es Errors) Error() string {
	switch len(es) {
	case 0:
		return "no errors"
	case 1:
		return es[0].Error()
	}
	lines := make([]string, len(es))
	for i, e := range es {
		lines[i] = e.Error()
	}
	return fmt.Sprintf("%d compile errors:\n  %s", len(es), strings.Join(lines, "\n  "))
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (es Errors) Unwrap() []error {
	out := make([]error, len(es))
	for i, e := range es {
		out[i] = e
	}
	return out
}

// HasCode reports whether err is, or aggregates, a CompileError with code.
func HasCode(err error, code ErrorCode) bool {
	return slices.Contains(Codes(err), code)
}

// Codes returns the codes of every CompileError carried by err, in order.
func Codes(err error) []ErrorCode {
	var es Errors
	if errors.As(err, &es) {
		codes := make([]ErrorCode, len(es))
		for i, e := range es {
			codes[i] = e.Code
		}
		return codes
	}
	var ce *CompileError
	if errors.As(err, &ce) {
		return []ErrorCode{ce.Code}
	}
	return nil
}
