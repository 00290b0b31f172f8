package compiler

import (
	"fmt"
	"slices"

	"github.com/roach88/ctmflow/internal/ir"
)

// wirePhaseGates emits "{P}_OK" for every phase another phase or a job
// runs after. P adds it; each dependent waits for it and deletes it.
func (s *synthesizer) wirePhaseGates() {
	for _, src := range s.g.Phases {
		var phases, jobs []string
		for _, ph := range s.g.Phases {
			if slices.Contains(ph.After, src.Name) {
				phases = append(phases, ph.Name)
			}
		}
		for _, n := range s.g.Nodes {
			if slices.Contains(n.Spec.AfterPhases, src.Name) {
				jobs = append(jobs, n.ID())
			}
		}
		if len(phases) == 0 && len(jobs) == 0 {
			continue
		}

		name := s.allocate(src.Name+"_OK", fmt.Sprintf("phase gate of %q", src.Name), jobs)
		s.w.Phases[src.Name].AddEvent(name)
		for _, dep := range phases {
			s.w.Phases[dep].WaitFor(name)
		}
		for _, id := range jobs {
			s.w.Jobs[id].WaitFor(name)
		}
		s.record(ir.SyncEvent{Name: name, Kind: ir.EventPhaseGate, Source: src.Name, Waiters: append(phases, jobs...)})
	}
}

// WirePhases copies author-declared events onto the plan's phases and
// reports every phase wait that no add in the plan can satisfy, or that
// only the waiting phase itself satisfies.
func WirePhases(plan *ir.CompiledPlan, phases []ir.PhaseSpec) []ir.Warning {
	for _, spec := range phases {
		ph := plan.Phase(spec.Name)
		if ph == nil {
			continue
		}
		for _, name := range spec.Events.Add {
			ph.Events.AddEvent(name)
		}
		for _, name := range spec.Events.Wait {
			ph.Events.AddWait(name)
		}
		for _, name := range spec.Events.Delete {
			ph.Events.DeleteEvent(name)
		}
	}

	// adders maps an event to the phases that add it; a job's add counts
	// for its phase ("" for root-level jobs).
	adders := make(map[string][]string)
	for _, ph := range plan.Phases {
		for _, name := range ph.Events.Add {
			adders[name] = append(adders[name], ph.Name)
		}
	}
	for _, j := range plan.AllJobs() {
		for _, name := range j.Events.Add {
			adders[name] = append(adders[name], j.Subfolder)
		}
	}

	var warnings []ir.Warning
	for _, ph := range plan.Phases {
		for _, name := range ph.Events.Wait {
			owners := adders[name]
			switch {
			case len(owners) == 0:
				warnings = append(warnings, ir.Warning{
					Code:    string(DanglingPhaseGate),
					Message: fmt.Sprintf("phase %q waits for %q, which nothing in the plan adds", ph.Name, name),
					Subject: ph.Name,
					Level:   "warning",
				})
			case !slices.ContainsFunc(owners, func(o string) bool { return o != ph.Name }):
				warnings = append(warnings, ir.Warning{
					Code:    string(DanglingPhaseGate),
					Message: fmt.Sprintf("phase %q waits for %q, which only the phase itself adds", ph.Name, name),
					Subject: ph.Name,
					Level:   "warning",
				})
			}
		}
	}
	return warnings
}
