package compiler

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/ctmflow/internal/ir"
	"github.com/roach88/ctmflow/internal/registry"
)

// Options configure one compile call. Nothing is shared between calls.
type Options struct {
	// Folder holds the root folder attributes. WorkflowSpec.Folder
	// overrides Folder.Name when set.
	Folder ir.Folder

	// FolderPrefix is prepended to WorkflowSpec.Folder so an override gets
	// the same user-code qualification as the configured folder ("LBA_").
	FolderPrefix string

	// Registry resolves job types. Nil uses the built-in catalog.
	Registry registry.Registry

	// JobPrefix is prepended to job object names ("zzt" gives "zzt-Load").
	JobPrefix string

	// EventPrefix is prepended verbatim to every synthesized event name.
	EventPrefix string

	// StrictEventNames makes event name collisions fatal.
	StrictEventNames bool

	// Logger receives debug output for each stage. Nil uses slog.Default().
	Logger *slog.Logger
}

// ErrNoFolder is returned when neither the workflow nor the options name
// a root folder.
var ErrNoFolder = errors.New("compiler: root folder name is required")

// Compile validates a workflow and compiles it into an event-wired plan.
//
// The pipeline is: graph building (type, subfolder and dependency
// checks plus cycle detection), concurrency partitioning, event
// synthesis and phase gate wiring. Fatal findings are returned together
// as Errors; no partial plan is ever returned.
func Compile(spec *ir.WorkflowSpec, opts Options) (*ir.CompiledPlan, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	reg := opts.Registry
	if reg == nil {
		builtin, err := registry.Builtin()
		if err != nil {
			return nil, fmt.Errorf("compiler: %w", err)
		}
		reg = builtin
	}

	folder := opts.Folder
	if spec.Folder != "" {
		folder.Name = opts.FolderPrefix + spec.Folder
	}
	if folder.Name == "" {
		return nil, ErrNoFolder
	}

	g, errs := BuildGraph(spec, reg)
	errs = append(errs, checkObjectNames(g, opts.JobPrefix)...)
	logger.Debug("graph built",
		"folder", folder.Name,
		"jobs", len(g.Nodes),
		"edges", len(g.Edges),
		"phases", len(g.Phases),
		"groups", len(g.Groups),
		"errors", len(errs))
	if len(errs) > 0 {
		return nil, errs
	}

	w, errs, warnings := Synthesize(g, g.Groups, SynthOptions{
		RootFolder:       folder.Name,
		EventPrefix:      opts.EventPrefix,
		StrictEventNames: opts.StrictEventNames,
	})
	logger.Debug("events synthesized",
		"events", len(w.Events),
		"errors", len(errs))
	if len(errs) > 0 {
		return nil, errs
	}

	plan := assemble(g, w, folder, opts.JobPrefix)
	plan.Warnings = append(warnings, WirePhases(plan, g.Phases)...)

	for _, warning := range plan.Warnings {
		logger.Debug("compile warning",
			"code", warning.Code,
			"subject", warning.Subject,
			"message", warning.Message)
	}
	logger.Debug("plan compiled",
		"folder", folder.Name,
		"events", len(plan.Events),
		"warnings", len(plan.Warnings))

	return plan, nil
}

func assemble(g *Graph, w *Wiring, folder ir.Folder, jobPrefix string) *ir.CompiledPlan {
	plan := &ir.CompiledPlan{
		Folder: folder,
		Events: w.Events,
		Groups: w.Groups,
	}

	phases := make(map[string]*ir.PlanPhase, len(g.Phases))
	for _, spec := range g.Phases {
		ph := &ir.PlanPhase{
			Name:        spec.Name,
			Description: spec.Description,
			Events:      *w.Phases[spec.Name],
		}
		phases[spec.Name] = ph
		plan.Phases = append(plan.Phases, ph)
	}

	for _, n := range g.Nodes {
		job := &ir.PlanJob{
			ID:         n.ID(),
			ObjectName: ObjectName(jobPrefix, n.Spec.Label()),
			Type:       n.Spec.Type,
			EngineType: n.Job.EngineType(),
			Subfolder:  n.Spec.Subfolder,
			Group:      n.Spec.Group(),
			Fields:     n.Job.Fields(),
			Events:     *w.Jobs[n.ID()],
		}
		if ph, ok := phases[n.Spec.Subfolder]; ok {
			ph.Jobs = append(ph.Jobs, job)
		} else {
			plan.Jobs = append(plan.Jobs, job)
		}
	}

	return plan
}
