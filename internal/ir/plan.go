package ir

import "slices"

// EventKind classifies a synthesized SyncEvent.
type EventKind string

const (
	EventEdge      EventKind = "edge"       // one dependency a → b
	EventBarrier   EventKind = "barrier"    // fan-in of a concurrency group
	EventPhaseGate EventKind = "phase-gate" // phase completion gating a phase or job
	EventDeclared  EventKind = "declared"   // named by the workflow author
)

// SyncEvent is a named signal the orchestration engine uses to gate job
// start on other jobs' completion. Names are unique within a compile run.
type SyncEvent struct {
	Name    string    `json:"name"`
	Kind    EventKind `json:"kind"`
	Source  string    `json:"source"`            // job id, group ref or phase name that adds the event
	Waiters []string  `json:"waiters,omitempty"` // job ids or phase names that wait for it
}

// EventLists are the resolved event actions carried by a job or phase.
type EventLists struct {
	Add    []string `json:"events_to_add,omitempty"`
	Wait   []string `json:"wait_for_events,omitempty"`
	Delete []string `json:"delete_events_list,omitempty"`
}

// AddEvent records that the owner signals name on completion.
func (l *EventLists) AddEvent(name string) {
	l.Add = appendUnique(l.Add, name)
}

// WaitFor records that the owner waits for name and consumes it.
// Synthesized waits always go through WaitFor so a recurring run never
// sees a stale event from the previous run.
func (l *EventLists) WaitFor(name string) {
	l.Wait = appendUnique(l.Wait, name)
	l.Delete = appendUnique(l.Delete, name)
}

// AddWait records a wait without the paired delete.
func (l *EventLists) AddWait(name string) {
	l.Wait = appendUnique(l.Wait, name)
}

// DeleteEvent records a delete without a wait.
func (l *EventLists) DeleteEvent(name string) {
	l.Delete = appendUnique(l.Delete, name)
}

// Empty reports whether no event action is attached.
func (l EventLists) Empty() bool {
	return len(l.Add) == 0 && len(l.Wait) == 0 && len(l.Delete) == 0
}

func appendUnique(list []string, name string) []string {
	if slices.Contains(list, name) {
		return list
	}
	return append(list, name)
}

// Folder holds the root folder attributes rendered into the document.
type Folder struct {
	Name           string `json:"name"`
	ControlmServer string `json:"controlm_server"`
	OrderMethod    string `json:"order_method"`
	SiteStandard   string `json:"site_standard,omitempty"`
	Application    string `json:"application,omitempty"`
	SubApplication string `json:"sub_application,omitempty"`
	RunAs          string `json:"run_as,omitempty"`
	Host           string `json:"host,omitempty"`
}

// PlanJob is a job with its engine-native fields and resolved events.
type PlanJob struct {
	ID         string         `json:"id"`
	ObjectName string         `json:"object_name"`
	Type       string         `json:"type"`        // registry type tag
	EngineType string         `json:"engine_type"` // e.g. "Job:Command"
	Subfolder  string         `json:"subfolder,omitempty"`
	Group      string         `json:"group"`
	Fields     map[string]any `json:"fields,omitempty"`
	Events     EventLists     `json:"events"`
}

// PlanPhase is a subfolder with its member jobs in declaration order.
type PlanPhase struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Jobs        []*PlanJob `json:"jobs"`
	Events      EventLists `json:"events"`
}

// Group is one (subfolder, concurrency_group) partition.
type Group struct {
	Subfolder string   `json:"subfolder,omitempty"`
	Name      string   `json:"name"`
	Members   []string `json:"members"`         // job ids, declaration order
	Event     string   `json:"event,omitempty"` // barrier event, set for barrier groups
}

// Ref returns the group's key.
func (g Group) Ref() GroupRef {
	return GroupRef{Subfolder: g.Subfolder, Group: g.Name}
}

// Barrier reports whether the group synchronizes two or more jobs.
func (g Group) Barrier() bool {
	return len(g.Members) > 1
}

// Warning is a non-fatal finding reported alongside a plan.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Subject string `json:"subject,omitempty"` // phase, job or event the warning is about
	Level   string `json:"level"`             // "warning" or "info"
}

// CompiledPlan is the fully resolved workflow ready for serialization.
// It is owned by one compile call and discarded after serialization.
type CompiledPlan struct {
	Folder   Folder       `json:"folder"`
	Phases   []*PlanPhase `json:"phases"`
	Jobs     []*PlanJob   `json:"jobs"` // root-level jobs
	Events   []SyncEvent  `json:"events"`
	Groups   []Group      `json:"groups"`
	Warnings []Warning    `json:"warnings,omitempty"`
}

// Phase returns the named phase or nil.
func (p *CompiledPlan) Phase(name string) *PlanPhase {
	for _, ph := range p.Phases {
		if ph.Name == name {
			return ph
		}
	}
	return nil
}

// Job returns the job with the given id or nil.
func (p *CompiledPlan) Job(id string) *PlanJob {
	for _, j := range p.AllJobs() {
		if j.ID == id {
			return j
		}
	}
	return nil
}

// AllJobs returns root-level jobs followed by phase members in phase order.
func (p *CompiledPlan) AllJobs() []*PlanJob {
	all := make([]*PlanJob, 0, len(p.Jobs))
	all = append(all, p.Jobs...)
	for _, ph := range p.Phases {
		all = append(all, ph.Jobs...)
	}
	return all
}

// Event returns the synthesized event with the given name.
func (p *CompiledPlan) Event(name string) (SyncEvent, bool) {
	for _, ev := range p.Events {
		if ev.Name == name {
			return ev, true
		}
	}
	return SyncEvent{}, false
}
