package ir

import "strings"

// WorkflowSpec is the flat description of batch jobs accepted by the compiler.
type WorkflowSpec struct {
	// Folder overrides the configured root folder name when set.
	Folder string `json:"folder,omitempty" yaml:"folder,omitempty"`

	// Chain enables positional chaining of jobs without explicit
	// dependencies. Nil means enabled.
	Chain *bool `json:"chain,omitempty" yaml:"chain,omitempty"`

	// StrictPhases requires every subfolder referenced by a job to be
	// declared in Phases, even when Phases is empty.
	StrictPhases bool `json:"strict_phases,omitempty" yaml:"strict_phases,omitempty"`

	Phases []PhaseSpec `json:"phases,omitempty" yaml:"phases,omitempty"`
	Jobs   []JobSpec   `json:"jobs" yaml:"jobs"`
}

// ChainEnabled reports whether positional chaining applies.
func (w WorkflowSpec) ChainEnabled() bool {
	return w.Chain == nil || *w.Chain
}

// JobSpec is one caller-supplied unit of batch work.
type JobSpec struct {
	ID               string         `json:"id" yaml:"id"`
	Name             string         `json:"name,omitempty" yaml:"name,omitempty"`
	Type             string         `json:"type" yaml:"type"`
	Subfolder        string         `json:"subfolder,omitempty" yaml:"subfolder,omitempty"`
	ConcurrencyGroup string         `json:"concurrency_group,omitempty" yaml:"concurrency_group,omitempty"`
	Dependencies     []string       `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	AfterGroups      []string       `json:"after_groups,omitempty" yaml:"after_groups,omitempty"` // "subfolder/group"
	AfterPhases      []string       `json:"after_phases,omitempty" yaml:"after_phases,omitempty"` // phases that must complete first
	Fields           map[string]any `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Group returns the concurrency group label, defaulting to the job id.
func (j JobSpec) Group() string {
	if j.ConcurrencyGroup == "" {
		return j.ID
	}
	return j.ConcurrencyGroup
}

// Label returns the business name, defaulting to the job id.
func (j JobSpec) Label() string {
	if j.Name == "" {
		return j.ID
	}
	return j.Name
}

// PhaseSpec declares a subfolder: one stage of a multi-stage workflow.
type PhaseSpec struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	After       []string `json:"after,omitempty" yaml:"after,omitempty"`               // phases that must complete first
	AfterGroups []string `json:"after_groups,omitempty" yaml:"after_groups,omitempty"` // "subfolder/group"
	Events      EventSet `json:"events,omitempty" yaml:"events,omitempty"`
}

// EventSet holds user-declared event names gating entry and exit of a phase.
type EventSet struct {
	Add    []string `json:"add,omitempty" yaml:"add,omitempty"`
	Wait   []string `json:"wait,omitempty" yaml:"wait,omitempty"`
	Delete []string `json:"delete,omitempty" yaml:"delete,omitempty"`
}

// GroupRef identifies a concurrency group by its (subfolder, group) key.
type GroupRef struct {
	Subfolder string
	Group     string
}

// ParseGroupRef parses "subfolder/group". A ref without a slash names a
// group of root-level jobs. Phase names cannot contain '/', so the group
// part keeps any further slashes.
func ParseGroupRef(s string) GroupRef {
	sub, group, ok := strings.Cut(s, "/")
	if !ok {
		return GroupRef{Group: s}
	}
	return GroupRef{Subfolder: sub, Group: group}
}

// String formats the ref in the same form ParseGroupRef accepts.
func (g GroupRef) String() string {
	if g.Subfolder == "" {
		return g.Group
	}
	return g.Subfolder + "/" + g.Group
}
