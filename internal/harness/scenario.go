package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ctmflow/internal/ir"
	"github.com/roach88/ctmflow/internal/registry"
)

// Scenario defines one compile (and optionally deploy) test.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalog holds job types registered over the built-in catalog.
	Catalog []registry.Definition `yaml:"catalog,omitempty"`

	// Workflow is the inline workflow. Exactly one of Workflow and
	// WorkflowFile is set.
	Workflow *ir.WorkflowSpec `yaml:"workflow,omitempty"`

	// WorkflowFile is a workflow file in any loader format, relative to
	// the scenario file.
	WorkflowFile string `yaml:"workflow_file,omitempty"`

	// Options override the default compile options.
	Options Options `yaml:"options,omitempty"`

	// Deploy runs the compiled document through a recording engine.
	Deploy *DeployStep `yaml:"deploy,omitempty"`

	// Assertions validate the result.
	Assertions []Assertion `yaml:"assertions"`
}

// Options override the default configuration for one scenario.
type Options struct {
	Folder           string  `yaml:"folder,omitempty"`
	JobPrefix        *string `yaml:"job_prefix,omitempty"`
	EventPrefix      string  `yaml:"event_prefix,omitempty"`
	StrictEventNames bool    `yaml:"strict_event_names,omitempty"`
}

// DeployStep deploys the compiled document Times times.
type DeployStep struct {
	Times int  `yaml:"times,omitempty"` // default 1
	Force bool `yaml:"force,omitempty"`

	// BuildErrors and DeployErrors make the engine reject the document
	// with these messages.
	BuildErrors  []string `yaml:"build_errors,omitempty"`
	DeployErrors []string `yaml:"deploy_errors,omitempty"`
}

// Assertion validates one aspect of the result.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	Event   string `yaml:"event,omitempty"`
	Kind    string `yaml:"kind,omitempty"`
	Job     string `yaml:"job,omitempty"`
	Phase   string `yaml:"phase,omitempty"`
	Code    string `yaml:"code,omitempty"`
	Subject string `yaml:"subject,omitempty"`
	Count   int    `yaml:"count,omitempty"`

	// Statuses is the expected deploy outcome sequence (runs).
	Statuses []string `yaml:"statuses,omitempty"`
}

// Assertion type constants.
const (
	AssertEventExists  = "event_exists"
	AssertEventAbsent  = "event_absent"
	AssertJobAdds      = "job_adds"
	AssertJobWaits     = "job_waits"
	AssertJobDeletes   = "job_deletes"
	AssertPhaseAdds    = "phase_adds"
	AssertPhaseWaits   = "phase_waits"
	AssertAdderCount   = "adder_count"
	AssertCompileError = "compile_error"
	AssertWarning      = "warning"
	AssertRuns         = "runs"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected and WorkflowFile is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.WorkflowFile != "" && !filepath.IsAbs(scenario.WorkflowFile) {
		scenario.WorkflowFile = filepath.Join(filepath.Dir(path), scenario.WorkflowFile)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if (s.Workflow == nil) == (s.WorkflowFile == "") {
		return fmt.Errorf("exactly one of workflow and workflow_file is required")
	}
	if s.WorkflowFile != "" {
		if _, err := os.Stat(s.WorkflowFile); err != nil {
			return fmt.Errorf("workflow file not found: %s", s.WorkflowFile)
		}
	}
	if s.Deploy != nil && s.Deploy.Times < 0 {
		return fmt.Errorf("deploy.times must be non-negative")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion) error {
	need := func(field, value string) error {
		if value == "" {
			return fmt.Errorf("assertions[%d]: %s is required for %s", index, field, a.Type)
		}
		return nil
	}

	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertEventExists, AssertEventAbsent:
		return need("event", a.Event)
	case AssertJobAdds, AssertJobWaits, AssertJobDeletes:
		if err := need("job", a.Job); err != nil {
			return err
		}
		return need("event", a.Event)
	case AssertPhaseAdds, AssertPhaseWaits:
		if err := need("phase", a.Phase); err != nil {
			return err
		}
		return need("event", a.Event)
	case AssertAdderCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
		return need("event", a.Event)
	case AssertCompileError, AssertWarning:
		return need("code", a.Code)
	case AssertRuns:
		if len(a.Statuses) == 0 {
			return fmt.Errorf("assertions[%d]: statuses list is required for %s", index, a.Type)
		}
		return nil
	}
	return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
}
