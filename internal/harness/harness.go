package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/ctmflow/internal/compiler"
	"github.com/roach88/ctmflow/internal/config"
	"github.com/roach88/ctmflow/internal/document"
	"github.com/roach88/ctmflow/internal/engine"
	"github.com/roach88/ctmflow/internal/ir"
	"github.com/roach88/ctmflow/internal/loader"
	"github.com/roach88/ctmflow/internal/store"
	"github.com/roach88/ctmflow/internal/testutil"
)

// StatusSkipped is recorded in Result.Runs for a deploy that found the
// plan hash already deployed.
const StatusSkipped = "skipped"

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Load the workflow (inline or from workflow_file)
//  2. Build the registry: built-in catalog plus the scenario's catalog
//  3. Compile with the default configuration and the scenario's options
//  4. Render and hash the document
//  5. Deploy it deploy.times times into a fresh in-memory ledger
//  6. Evaluate assertions
//
// Compile failures are not errors: they are recorded in the result so
// compile_error assertions can check them. Errors are returned only for
// scenarios that cannot be executed at all.
func Run(scenario *Scenario) (*Result, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests

	spec, err := scenarioWorkflow(scenario)
	if err != nil {
		return nil, err
	}

	cfg := config.Default()
	reg, err := cfg.Registry()
	if err != nil {
		return nil, fmt.Errorf("failed to build registry: %w", err)
	}
	for i, def := range scenario.Catalog {
		if err := reg.Register(def); err != nil {
			return nil, fmt.Errorf("catalog[%d]: %w", i, err)
		}
	}

	opts := cfg.CompilerOptions(reg, logger)
	applyOptions(&opts, scenario.Options)

	result := NewResult()
	plan, compileErr := compiler.Compile(spec, opts)
	if compileErr != nil {
		result.CompileError = compileErr.Error()
		for _, code := range compiler.Codes(compileErr) {
			result.Codes = append(result.Codes, string(code))
		}
		if len(result.Codes) == 0 {
			return nil, fmt.Errorf("compile: %w", compileErr)
		}
	} else {
		result.Plan = plan
		if err := render(result); err != nil {
			return nil, err
		}
		if scenario.Deploy != nil {
			if err := deploy(result, scenario.Deploy, logger); err != nil {
				return nil, err
			}
		}
	}

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}

func scenarioWorkflow(s *Scenario) (*ir.WorkflowSpec, error) {
	if s.Workflow != nil {
		return s.Workflow, nil
	}
	spec, err := loader.Load(s.WorkflowFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow: %w", err)
	}
	return spec, nil
}

func applyOptions(opts *compiler.Options, o Options) {
	if o.Folder != "" {
		opts.Folder.Name = o.Folder
	}
	if o.JobPrefix != nil {
		opts.JobPrefix = *o.JobPrefix
	}
	if o.EventPrefix != "" {
		opts.EventPrefix = o.EventPrefix
	}
	if o.StrictEventNames {
		opts.StrictEventNames = true
	}
}

func render(result *Result) error {
	doc, err := document.Render(result.Plan)
	if err != nil {
		return fmt.Errorf("failed to render document: %w", err)
	}
	hash, err := document.Hash(doc)
	if err != nil {
		return fmt.Errorf("failed to hash document: %w", err)
	}
	result.Document = doc
	result.Hash = hash
	return nil
}

// deploy runs the document through a recording engine. Each scenario
// gets a fresh in-memory ledger and fixed run ids.
func deploy(result *Result, step *DeployStep, logger *slog.Logger) error {
	st, err := store.Open(":memory:", store.WithClock(testutil.NewDeterministicClock().Now))
	if err != nil {
		return fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	eng := &testutil.RecordingEngine{}
	if len(step.BuildErrors) > 0 {
		eng.BuildErr = &engine.Error{Code: engine.ErrCodeBuild, Messages: step.BuildErrors}
	}
	if len(step.DeployErrors) > 0 {
		eng.DeployErr = &engine.Error{Code: engine.ErrCodeDeploy, Messages: step.DeployErrors}
	}

	times := step.Times
	if times == 0 {
		times = 1
	}
	ids := make([]string, times)
	for i := range ids {
		ids[i] = fmt.Sprintf("run-%d", i+1)
	}

	data, err := document.Marshal(result.Document)
	if err != nil {
		return err
	}

	d := engine.NewDeployer(eng, st, engine.NewFixedGenerator(ids...), logger)
	ctx := context.Background()
	for i := 0; i < times; i++ {
		res, err := d.Deploy(ctx, engine.Request{
			Document: data,
			Folder:   result.Document.Folder(),
			PlanHash: result.Hash,
			Force:    step.Force,
		})
		if res == nil {
			return fmt.Errorf("deploy: %w", err)
		}
		if res.Skipped {
			result.Runs = append(result.Runs, StatusSkipped)
			continue
		}
		result.Runs = append(result.Runs, string(res.Status))
	}
	return nil
}
