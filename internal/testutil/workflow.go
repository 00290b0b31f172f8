package testutil

import "github.com/roach88/ctmflow/internal/ir"

// Job returns a Command job with the given id and dependencies.
func Job(id string, deps ...string) ir.JobSpec {
	return ir.JobSpec{ID: id, Type: "Command", Dependencies: deps}
}

// PhaseJob returns a Command job in a subfolder.
func PhaseJob(id, subfolder string, deps ...string) ir.JobSpec {
	return ir.JobSpec{ID: id, Type: "Command", Subfolder: subfolder, Dependencies: deps}
}

// Unchained disables positional chaining on w and returns it.
func Unchained(w ir.WorkflowSpec) ir.WorkflowSpec {
	off := false
	w.Chain = &off
	return w
}

// BarrierScenario is the reference fan-in workflow: A feeds B and C, which
// form the "default" barrier group in S1; D in S2 waits for the group.
func BarrierScenario() ir.WorkflowSpec {
	return ir.WorkflowSpec{
		Phases: []ir.PhaseSpec{{Name: "S1"}, {Name: "S2"}},
		Jobs: []ir.JobSpec{
			{ID: "A", Type: "Command", Subfolder: "S1"},
			{ID: "B", Type: "Command", Subfolder: "S1", ConcurrencyGroup: "default", Dependencies: []string{"A"}},
			{ID: "C", Type: "Command", Subfolder: "S1", ConcurrencyGroup: "default", Dependencies: []string{"A"}},
			{ID: "D", Type: "Command", Subfolder: "S2", AfterGroups: []string{"S1/default"}},
		},
	}
}
