package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/ctmflow/internal/document"
)

// RunWithGolden executes a scenario and compares the rendered document
// against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails or the scenario does not
// compile. Test failure (via goldie) occurs if the document differs.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already executed result's document against
// a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	if !result.Compiled() {
		return &AssertionError{
			Type:     "golden",
			Expected: "a compiled plan",
			Actual:   "compile failed: " + result.CompileError,
		}
	}
	data, err := document.Marshal(result.Document)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
