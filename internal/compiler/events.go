package compiler

import (
	"fmt"
	"slices"

	"github.com/roach88/ctmflow/internal/ir"
)

// SynthOptions control event naming.
type SynthOptions struct {
	// RootFolder stands in for the subfolder in barrier names of
	// root-level groups.
	RootFolder string

	// EventPrefix is prepended verbatim to every synthesized name.
	EventPrefix string

	// StrictEventNames turns name collisions into EventNameCollision
	// errors instead of renaming.
	StrictEventNames bool
}

// Wiring holds the event actions attached to every job and phase.
type Wiring struct {
	Jobs   map[string]*ir.EventLists
	Phases map[string]*ir.EventLists
	Events []ir.SyncEvent
	Groups []ir.Group // Event is set on barrier groups
}

// Synthesize converts the graph's edges, barrier groups, group waits and
// phase gates into named events and attaches add, wait and delete
// actions to the jobs and phases involved.
func Synthesize(g *Graph, groups []ir.Group, opts SynthOptions) (*Wiring, Errors, []ir.Warning) {
	s := &synthesizer{
		g:      g,
		opts:   opts,
		names:  newEventNamer(opts.EventPrefix, opts.StrictEventNames),
		byName: make(map[string]int),
		w: &Wiring{
			Jobs:   make(map[string]*ir.EventLists, len(g.Nodes)),
			Phases: make(map[string]*ir.EventLists, len(g.Phases)),
			Groups: slices.Clone(groups),
		},
		barriers: make(map[ir.GroupRef]string),
	}
	for _, n := range g.Nodes {
		s.w.Jobs[n.ID()] = &ir.EventLists{}
	}
	for _, ph := range g.Phases {
		s.w.Phases[ph.Name] = &ir.EventLists{}
	}

	s.reserveDeclared()
	s.wireEdges()
	s.wireBarriers()
	s.wireGroupWaits()
	s.wirePhaseGates()
	s.reportUnusedBarriers()

	return s.w, s.errs, s.warnings
}

type synthesizer struct {
	g        *Graph
	opts     SynthOptions
	names    *eventNamer
	w        *Wiring
	byName   map[string]int // event name -> index in w.Events
	barriers map[ir.GroupRef]string
	errs     Errors
	warnings []ir.Warning
}

// allocate names one synthesized event, recording any collision.
func (s *synthesizer) allocate(base, owner string, jobIDs []string) string {
	name, err, warning := s.names.allocate(base, owner, jobIDs)
	if err != nil {
		s.errs = append(s.errs, err)
	}
	if warning != nil {
		s.warnings = append(s.warnings, *warning)
	}
	return name
}

func (s *synthesizer) record(ev ir.SyncEvent) {
	s.byName[ev.Name] = len(s.w.Events)
	s.w.Events = append(s.w.Events, ev)
}

func (s *synthesizer) addWaiter(name, waiter string) {
	i := s.byName[name]
	s.w.Events[i].Waiters = append(s.w.Events[i].Waiters, waiter)
}

// reserveDeclared claims every event name written by the workflow author
// so synthesized names never shadow them.
func (s *synthesizer) reserveDeclared() {
	for _, ph := range s.g.Phases {
		for _, name := range ph.Events.Add {
			if _, ok := s.byName[name]; !ok {
				s.names.reserve(name, fmt.Sprintf("an event declared by phase %q", ph.Name))
				s.record(ir.SyncEvent{Name: name, Kind: ir.EventDeclared, Source: ph.Name})
			}
		}
	}
	for _, ph := range s.g.Phases {
		for _, name := range ph.Events.Wait {
			if _, ok := s.byName[name]; !ok {
				s.names.reserve(name, fmt.Sprintf("an event declared by phase %q", ph.Name))
				s.record(ir.SyncEvent{Name: name, Kind: ir.EventDeclared})
			}
			s.addWaiter(name, ph.Name)
		}
		for _, name := range ph.Events.Delete {
			s.names.reserve(name, fmt.Sprintf("an event declared by phase %q", ph.Name))
		}
	}
}

// wireEdges emits "{a}-TO-{b}" for every edge: a adds it, b waits for it
// and deletes it.
func (s *synthesizer) wireEdges() {
	for _, e := range s.g.Edges {
		name := s.allocate(e.From+"-TO-"+e.To,
			fmt.Sprintf("edge %s → %s", e.From, e.To), []string{e.From, e.To})
		s.w.Jobs[e.From].AddEvent(name)
		s.w.Jobs[e.To].WaitFor(name)
		s.record(ir.SyncEvent{Name: name, Kind: ir.EventEdge, Source: e.From, Waiters: []string{e.To}})
	}
}

// wireBarriers emits "{subfolder}_{group}_COMPLETE" for every barrier
// group and adds it on every member.
func (s *synthesizer) wireBarriers() {
	for i, grp := range s.w.Groups {
		if !grp.Barrier() {
			continue
		}
		sub := grp.Subfolder
		if sub == "" {
			sub = s.opts.RootFolder
		}
		name := s.allocate(sub+"_"+grp.Name+"_COMPLETE",
			fmt.Sprintf("barrier %s", grp.Ref()), grp.Members)
		s.w.Groups[i].Event = name
		s.barriers[grp.Ref()] = name
		for _, m := range grp.Members {
			s.w.Jobs[m].AddEvent(name)
		}
		s.record(ir.SyncEvent{Name: name, Kind: ir.EventBarrier, Source: grp.Ref().String()})
	}
}

// wireGroupWaits attaches a wait and delete of the barrier event to each
// job and phase declaring after_groups.
func (s *synthesizer) wireGroupWaits() {
	for _, n := range s.g.Nodes {
		for _, ref := range n.AfterGroups {
			name := s.barriers[ref]
			s.w.Jobs[n.ID()].WaitFor(name)
			s.addWaiter(name, n.ID())
		}
	}
	for _, ph := range s.g.Phases {
		for _, ref := range s.g.PhaseAfterGroups[ph.Name] {
			name := s.barriers[ref]
			s.w.Phases[ph.Name].WaitFor(name)
			s.addWaiter(name, ph.Name)
		}
	}
}

func (s *synthesizer) reportUnusedBarriers() {
	for _, grp := range s.w.Groups {
		if grp.Event == "" {
			continue
		}
		if ev := s.w.Events[s.byName[grp.Event]]; len(ev.Waiters) == 0 {
			s.warnings = append(s.warnings, ir.Warning{
				Code:    string(UnusedBarrier),
				Message: fmt.Sprintf("barrier %q of group %s has no waiter", grp.Event, grp.Ref()),
				Subject: grp.Event,
				Level:   "info",
			})
		}
	}
}

// eventNamer hands out unique event names for one compile run.
type eventNamer struct {
	prefix string
	strict bool
	owners map[string]string // name -> description of its first owner
}

func newEventNamer(prefix string, strict bool) *eventNamer {
	return &eventNamer{prefix: prefix, strict: strict, owners: make(map[string]string)}
}

func (n *eventNamer) reserve(name, owner string) {
	if _, taken := n.owners[name]; !taken {
		n.owners[name] = owner
	}
}

// allocate returns prefix+base when free. A taken name is either an
// EventNameCollision error (strict) or renamed with the first free
// "_2", "_3", ... suffix and reported as a warning.
func (n *eventNamer) allocate(base, owner string, jobIDs []string) (string, *CompileError, *ir.Warning) {
	name := n.prefix + base
	prev, taken := n.owners[name]
	if !taken {
		n.owners[name] = owner
		return name, nil, nil
	}

	if n.strict {
		return name, &CompileError{
			Code:    EventNameCollision,
			Message: fmt.Sprintf("event %q for %s is already used by %s", name, owner, prev),
			JobIDs:  slices.Clone(jobIDs),
			Events:  []string{name},
		}, nil
	}

	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d", name, i)
		if _, used := n.owners[candidate]; used {
			continue
		}
		n.owners[candidate] = owner
		return candidate, nil, &ir.Warning{
			Code:    string(EventRenamed),
			Message: fmt.Sprintf("event %q for %s is already used by %s; renamed to %q", name, owner, prev, candidate),
			Subject: candidate,
			Level:   "warning",
		}
	}
}
