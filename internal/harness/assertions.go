package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/ctmflow/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Events   []string // Synthesized event names for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Events) > 0 {
		fmt.Fprintf(&buf, "\nEvents:\n")
		for i, name := range e.Events {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, name)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against result and returns
// one message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d (%s): %s", i, a.Type, err))
		}
	}
	return errs
}

func evaluate(r *Result, a Assertion) error {
	switch a.Type {
	case AssertCompileError:
		return assertCompileError(r, a)
	case AssertRuns:
		return assertRuns(r, a)
	}

	// Every other assertion inspects the plan.
	if !r.Compiled() {
		return &AssertionError{
			Type:     a.Type,
			Expected: "a compiled plan",
			Actual:   "compile failed: " + r.CompileError,
		}
	}

	switch a.Type {
	case AssertEventExists:
		return assertEventExists(r.Plan, a)
	case AssertEventAbsent:
		return assertEventAbsent(r.Plan, a)
	case AssertJobAdds, AssertJobWaits, AssertJobDeletes:
		job := r.Plan.Job(a.Job)
		if job == nil {
			return notFound(r.Plan, a.Type, "job", a.Job)
		}
		return assertList(r.Plan, a, listFor(a.Type, job.Events))
	case AssertPhaseAdds, AssertPhaseWaits:
		phase := r.Plan.Phase(a.Phase)
		if phase == nil {
			return notFound(r.Plan, a.Type, "phase", a.Phase)
		}
		return assertList(r.Plan, a, listFor(a.Type, phase.Events))
	case AssertAdderCount:
		return assertAdderCount(r.Plan, a)
	case AssertWarning:
		return assertWarning(r.Plan, a)
	}
	return fmt.Errorf("unknown assertion type: %s", a.Type)
}

func eventNames(plan *ir.CompiledPlan) []string {
	names := make([]string, len(plan.Events))
	for i, ev := range plan.Events {
		names[i] = ev.Name
	}
	return names
}

func notFound(plan *ir.CompiledPlan, typ, what, name string) error {
	return &AssertionError{
		Type:     typ,
		Expected: fmt.Sprintf("%s %q in plan", what, name),
		Actual:   fmt.Sprintf("no %s %q", what, name),
		Events:   eventNames(plan),
	}
}

func assertEventExists(plan *ir.CompiledPlan, a Assertion) error {
	ev, ok := plan.Event(a.Event)
	if !ok {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("event %q", a.Event),
			Actual:   "event not synthesized",
			Events:   eventNames(plan),
		}
	}
	if a.Kind != "" && string(ev.Kind) != a.Kind {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("event %q of kind %s", a.Event, a.Kind),
			Actual:   fmt.Sprintf("kind %s", ev.Kind),
		}
	}
	return nil
}

func assertEventAbsent(plan *ir.CompiledPlan, a Assertion) error {
	if _, ok := plan.Event(a.Event); ok {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("no event %q", a.Event),
			Actual:   "event synthesized",
			Events:   eventNames(plan),
		}
	}
	return nil
}

func listFor(typ string, ev ir.EventLists) []string {
	switch typ {
	case AssertJobAdds, AssertPhaseAdds:
		return ev.Add
	case AssertJobWaits, AssertPhaseWaits:
		return ev.Wait
	}
	return ev.Delete
}

func assertList(plan *ir.CompiledPlan, a Assertion, list []string) error {
	if slices.Contains(list, a.Event) {
		return nil
	}
	owner := a.Job
	if owner == "" {
		owner = a.Phase
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%s lists %q", owner, a.Event),
		Actual:   fmt.Sprintf("%v", list),
		Events:   eventNames(plan),
	}
}

// assertAdderCount counts the jobs and phases that add the event.
func assertAdderCount(plan *ir.CompiledPlan, a Assertion) error {
	n := 0
	for _, j := range plan.AllJobs() {
		if slices.Contains(j.Events.Add, a.Event) {
			n++
		}
	}
	for _, ph := range plan.Phases {
		if slices.Contains(ph.Events.Add, a.Event) {
			n++
		}
	}
	if n != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d adders of %q", a.Count, a.Event),
			Actual:   fmt.Sprintf("%d adders", n),
			Events:   eventNames(plan),
		}
	}
	return nil
}

func assertWarning(plan *ir.CompiledPlan, a Assertion) error {
	var got []string
	for _, w := range plan.Warnings {
		if w.Code == a.Code && (a.Subject == "" || w.Subject == a.Subject) {
			return nil
		}
		got = append(got, w.Code+"("+w.Subject+")")
	}
	expected := a.Code
	if a.Subject != "" {
		expected += " about " + a.Subject
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: "warning " + expected,
		Actual:   fmt.Sprintf("%v", got),
	}
}

func assertCompileError(r *Result, a Assertion) error {
	if slices.Contains(r.Codes, a.Code) {
		return nil
	}
	actual := "compiled successfully"
	if len(r.Codes) > 0 {
		actual = strings.Join(r.Codes, ", ")
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: "compile error " + a.Code,
		Actual:   actual,
	}
}

func assertRuns(r *Result, a Assertion) error {
	if slices.Equal(r.Runs, a.Statuses) {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%v", a.Statuses),
		Actual:   fmt.Sprintf("%v", r.Runs),
	}
}
