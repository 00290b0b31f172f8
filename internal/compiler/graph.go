package compiler

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/ctmflow/internal/ir"
	"github.com/roach88/ctmflow/internal/registry"
)

// Node is one job in the dependency graph.
type Node struct {
	Spec        ir.JobSpec
	Index       int // declaration index in the workflow
	Definition  *registry.Definition
	Job         registry.Job
	AfterGroups []ir.GroupRef
}

// ID returns the job id.
func (n *Node) ID() string { return n.Spec.ID }

// Ref returns the key of the concurrency group the job belongs to.
func (n *Node) Ref() ir.GroupRef {
	return ir.GroupRef{Subfolder: n.Spec.Subfolder, Group: n.Spec.Group()}
}

// Edge orders two jobs: From completes before To starts.
type Edge struct {
	From    string
	To      string
	Chained bool // added by positional chaining, not declared
}

// Graph is the validated dependency graph of one workflow.
type Graph struct {
	// Phases in declaration order, including implicitly created ones.
	Phases []ir.PhaseSpec

	// Nodes in declaration order.
	Nodes []*Node

	// Edges ordered by target declaration, then predecessor order.
	Edges []Edge

	// Groups as computed by Partition.
	Groups []ir.Group

	// PhaseAfterGroups holds the parsed after_groups of each phase.
	PhaseAfterGroups map[string][]ir.GroupRef

	byID  map[string]*Node
	preds map[string][]Edge
}

// Node returns the node for id or nil.
func (g *Graph) Node(id string) *Node {
	return g.byID[id]
}

// HasPhase reports whether name is a declared or implicit phase.
func (g *Graph) HasPhase(name string) bool {
	return slices.ContainsFunc(g.Phases, func(p ir.PhaseSpec) bool { return p.Name == name })
}

// Members returns the jobs of a phase in declaration order. The empty
// phase name selects root-level jobs.
func (g *Graph) Members(phase string) []*Node {
	var out []*Node
	for _, n := range g.Nodes {
		if n.Spec.Subfolder == phase {
			out = append(out, n)
		}
	}
	return out
}

// Group returns the group with the given key.
func (g *Graph) Group(ref ir.GroupRef) (ir.Group, bool) {
	for _, grp := range g.Groups {
		if grp.Ref() == ref {
			return grp, true
		}
	}
	return ir.Group{}, false
}

// Predecessors returns the ids of jobs with an edge into id.
func (g *Graph) Predecessors(id string) []string {
	out := make([]string, 0, len(g.preds[id]))
	for _, e := range g.preds[id] {
		out = append(out, e.From)
	}
	return out
}

// BuildGraph validates a workflow against the registry and builds its
// dependency graph. All findings are collected; the graph is only usable
// when the returned Errors is empty.
func BuildGraph(spec *ir.WorkflowSpec, reg registry.Registry) (*Graph, Errors) {
	b := &graphBuilder{
		spec: spec,
		reg:  reg,
		g: &Graph{
			PhaseAfterGroups: make(map[string][]ir.GroupRef),
			byID:             make(map[string]*Node),
			preds:            make(map[string][]Edge),
		},
	}

	b.resolvePhases()
	b.addJobs()
	b.g.Groups = Partition(b.g)
	b.addDependencies()
	b.addChaining()
	b.resolveGroupRefs()
	b.collectEdges()
	b.errs = append(b.errs, checkCycles(b.g)...)

	return b.g, b.errs
}

type graphBuilder struct {
	spec *ir.WorkflowSpec
	reg  registry.Registry
	g    *Graph
	errs Errors
}

func (b *graphBuilder) fail(code ErrorCode, jobIDs []string, format string, args ...any) {
	b.errs = append(b.errs, &CompileError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		JobIDs:  jobIDs,
	})
}

// resolvePhases collects declared phases. A workflow without declared
// phases gets one implicit phase per referenced subfolder, in first-seen
// order, unless strict_phases is set.
func (b *graphBuilder) resolvePhases() {
	seen := make(map[string]bool)
	for i, ph := range b.spec.Phases {
		switch {
		case strings.TrimSpace(ph.Name) == "":
			b.fail(InvalidPhase, nil, "phases[%d] has no name", i)
			continue
		case strings.Contains(ph.Name, "/"):
			b.fail(InvalidPhase, nil, "phase name %q must not contain '/'", ph.Name)
			continue
		case seen[ph.Name]:
			b.fail(DuplicatePhase, nil, "phase %q is declared more than once", ph.Name)
			continue
		}
		seen[ph.Name] = true
		b.g.Phases = append(b.g.Phases, ph)
	}

	if len(b.spec.Phases) == 0 && !b.spec.StrictPhases {
		for _, j := range b.spec.Jobs {
			if j.Subfolder != "" && !seen[j.Subfolder] && !strings.Contains(j.Subfolder, "/") {
				seen[j.Subfolder] = true
				b.g.Phases = append(b.g.Phases, ir.PhaseSpec{Name: j.Subfolder})
			}
		}
	}

	for _, ph := range b.g.Phases {
		for _, dep := range ph.After {
			if !seen[dep] {
				b.fail(UnknownSubfolder, nil, "phase %q runs after unknown phase %q", ph.Name, dep)
			}
		}
	}
}

func (b *graphBuilder) addJobs() {
	names := make(map[string]string) // sanitized name -> job id

	for i, spec := range b.spec.Jobs {
		id := spec.ID
		if strings.TrimSpace(id) == "" {
			b.fail(MissingJobID, nil, "jobs[%d] has no id", i)
			continue
		}
		if _, dup := b.g.byID[id]; dup {
			b.fail(DuplicateJobID, []string{id}, "job id %q is used more than once", id)
			continue
		}

		node := &Node{Spec: spec, Index: i}
		b.g.byID[id] = node
		b.g.Nodes = append(b.g.Nodes, node)

		name := sanitizeName(spec.Label())
		if other, dup := names[name]; dup {
			b.fail(DuplicateJobName, []string{other, id},
				"jobs %q and %q both render as object name %q", other, id, name)
		} else {
			names[name] = id
		}

		if spec.Subfolder != "" && !b.g.HasPhase(spec.Subfolder) {
			b.fail(UnknownSubfolder, []string{id}, "job %q names unknown subfolder %q", id, spec.Subfolder)
		}
		for _, ph := range spec.AfterPhases {
			if !b.g.HasPhase(ph) {
				b.fail(UnknownSubfolder, []string{id}, "job %q runs after unknown phase %q", id, ph)
			}
		}

		b.resolveType(node)
	}
}

func (b *graphBuilder) resolveType(n *Node) {
	id := n.ID()
	if n.Spec.Type == "" {
		b.fail(UnknownJobType, []string{id}, "job %q has no type", id)
		return
	}

	def, err := b.reg.Lookup(n.Spec.Type)
	if err != nil {
		b.fail(UnknownJobType, []string{id}, "job %q has unknown type %q", id, n.Spec.Type)
		return
	}
	n.Definition = def

	job, err := def.New(n.Spec.Fields)
	switch {
	case err == nil:
		n.Job = job
	case errors.Is(err, registry.ErrMissingField):
		b.fail(MissingJobField, []string{id}, "job %q: %v", id, err)
	default:
		b.fail(InvalidJobField, []string{id}, "job %q: %v", id, err)
	}
}

func (b *graphBuilder) addEdge(from, to string, chained bool) {
	for _, e := range b.g.preds[to] {
		if e.From == from {
			return
		}
	}
	b.g.preds[to] = append(b.g.preds[to], Edge{From: from, To: to, Chained: chained})
}

func (b *graphBuilder) addDependencies() {
	for _, n := range b.g.Nodes {
		for _, dep := range n.Spec.Dependencies {
			if b.g.byID[dep] == nil {
				b.fail(UnknownDependency, []string{n.ID()}, "job %q depends on unknown job %q", n.ID(), dep)
				continue
			}
			b.addEdge(dep, n.ID(), false)
		}
	}
}

// addChaining links every job without declared ordering to the preceding
// row of its phase. A barrier member declared after another member of its
// group shares that member's row, so the group stays concurrent.
func (b *graphBuilder) addChaining() {
	if !b.spec.ChainEnabled() {
		return
	}

	containers := []string{""}
	for _, ph := range b.g.Phases {
		containers = append(containers, ph.Name)
	}

	for _, phase := range containers {
		members := b.g.Members(phase)
		for i, n := range members {
			if i == 0 || declaresOrder(n.Spec) {
				continue
			}
			row, lead := i, n
			if k := firstOfGroup(members[:i], n.Ref()); k >= 0 {
				row, lead = k, members[k]
			}
			for _, pred := range b.g.chainPredecessors(members[:row], lead) {
				b.addEdge(pred, n.ID(), true)
			}
		}
	}
}

func declaresOrder(j ir.JobSpec) bool {
	return len(j.Dependencies) > 0 || len(j.AfterGroups) > 0 || len(j.AfterPhases) > 0
}

// firstOfGroup returns the index of the first job in nodes belonging to
// ref, or -1.
func firstOfGroup(nodes []*Node, ref ir.GroupRef) int {
	return slices.IndexFunc(nodes, func(m *Node) bool { return m.Ref() == ref })
}

// chainPredecessors walks back from n, skipping members of n's own group.
// When the nearest preceding job belongs to a barrier group, every member
// of that group declared before n is a predecessor.
func (g *Graph) chainPredecessors(before []*Node, n *Node) []string {
	own := n.Ref()
	for k := len(before) - 1; k >= 0; k-- {
		p := before[k]
		ref := p.Ref()
		if ref == own {
			continue
		}
		if grp, ok := g.Group(ref); !ok || !grp.Barrier() {
			return []string{p.ID()}
		}
		var ids []string
		for _, m := range before {
			if m.Ref() == ref {
				ids = append(ids, m.ID())
			}
		}
		return ids
	}
	return nil
}

func (b *graphBuilder) resolveGroupRefs() {
	for _, n := range b.g.Nodes {
		for _, raw := range n.Spec.AfterGroups {
			ref, ok := b.barrierRef(raw)
			if !ok {
				b.fail(UnknownBarrier, []string{n.ID()}, "job %q waits for %q, which is not a barrier group", n.ID(), raw)
				continue
			}
			n.AfterGroups = append(n.AfterGroups, ref)
		}
	}
	for _, ph := range b.g.Phases {
		for _, raw := range ph.AfterGroups {
			ref, ok := b.barrierRef(raw)
			if !ok {
				b.fail(UnknownBarrier, nil, "phase %q waits for %q, which is not a barrier group", ph.Name, raw)
				continue
			}
			b.g.PhaseAfterGroups[ph.Name] = append(b.g.PhaseAfterGroups[ph.Name], ref)
		}
	}
}

// barrierRef resolves an after_groups entry. A root-level group whose
// name contains '/' is matched by its full name.
func (b *graphBuilder) barrierRef(raw string) (ir.GroupRef, bool) {
	for _, ref := range []ir.GroupRef{ir.ParseGroupRef(raw), {Group: raw}} {
		if grp, ok := b.g.Group(ref); ok && grp.Barrier() {
			return ref, true
		}
	}
	return ir.ParseGroupRef(raw), false
}

func (b *graphBuilder) collectEdges() {
	for _, n := range b.g.Nodes {
		b.g.Edges = append(b.g.Edges, b.g.preds[n.ID()]...)
	}
}
