package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/ctmflow/internal/ir"
)

// digraph is an ordered adjacency list. Node order is insertion order,
// which keeps cycle reports stable across runs.
type digraph struct {
	nodes []string
	succ  map[string][]string
}

func newDigraph() *digraph {
	return &digraph{succ: make(map[string][]string)}
}

func (d *digraph) addNode(v string) {
	if _, ok := d.succ[v]; !ok {
		d.succ[v] = []string{}
		d.nodes = append(d.nodes, v)
	}
}

func (d *digraph) addEdge(u, v string) {
	d.addNode(u)
	d.addNode(v)
	if !slices.Contains(d.succ[u], v) {
		d.succ[u] = append(d.succ[u], v)
	}
}

// Node keys. Phases contribute a start and an end node so that phase
// ordering and job ordering are checked together.
func jobKey(id string) string       { return "job:" + id }
func phaseStartKey(p string) string { return "start:" + p }
func phaseEndKey(p string) string   { return "end:" + p }

// dependencyGraph builds the combined job and phase ordering graph.
//
//	start(P) → job → end(P)     for every job in phase P
//	end(P1) → start(P2)         for P2 after P1
//	member → job / start(P)     for after_groups waits
//	end(P) → job                for after_phases waits
//	end(A) → start(W)           for W waiting on an event A declares
//	a → b                       for every job edge
func dependencyGraph(g *Graph) *digraph {
	d := newDigraph()

	for _, ph := range g.Phases {
		d.addEdge(phaseStartKey(ph.Name), phaseEndKey(ph.Name))
	}
	for _, n := range g.Nodes {
		d.addNode(jobKey(n.ID()))
		if p := n.Spec.Subfolder; p != "" && g.HasPhase(p) {
			d.addEdge(phaseStartKey(p), jobKey(n.ID()))
			d.addEdge(jobKey(n.ID()), phaseEndKey(p))
		}
	}
	for _, ph := range g.Phases {
		for _, dep := range ph.After {
			if g.HasPhase(dep) {
				d.addEdge(phaseEndKey(dep), phaseStartKey(ph.Name))
			}
		}
		for _, ref := range g.PhaseAfterGroups[ph.Name] {
			grp, _ := g.Group(ref)
			for _, m := range grp.Members {
				d.addEdge(jobKey(m), phaseStartKey(ph.Name))
			}
		}
	}
	declaredEventEdges(d, g.Phases)
	for _, n := range g.Nodes {
		for _, ref := range n.AfterGroups {
			grp, _ := g.Group(ref)
			for _, m := range grp.Members {
				d.addEdge(jobKey(m), jobKey(n.ID()))
			}
		}
		for _, p := range n.Spec.AfterPhases {
			if g.HasPhase(p) {
				d.addEdge(phaseEndKey(p), jobKey(n.ID()))
			}
		}
	}
	for _, e := range g.Edges {
		d.addEdge(jobKey(e.From), jobKey(e.To))
	}

	return d
}

// declaredEventEdges orders a phase waiting on an author-declared event
// after every other phase that adds it. A phase adds its events when it
// completes. Synthesized names never equal a declared one, so jobs are
// never adders here.
func declaredEventEdges(d *digraph, phases []ir.PhaseSpec) {
	adders := make(map[string][]string)
	for _, ph := range phases {
		for _, name := range ph.Events.Add {
			adders[name] = append(adders[name], ph.Name)
		}
	}
	for _, ph := range phases {
		for _, name := range ph.Events.Wait {
			for _, src := range adders[name] {
				if src != ph.Name {
					d.addEdge(phaseEndKey(src), phaseStartKey(ph.Name))
				}
			}
		}
	}
}

// checkCycles runs Kahn's algorithm over the combined graph. Nodes left
// unresolved are reduced to their strongly connected components so each
// CyclicDependency error names exactly the members of one cycle.
func checkCycles(g *Graph) Errors {
	d := dependencyGraph(g)
	stuck := kahnRemainder(d)
	if len(stuck) == 0 {
		return nil
	}

	sub := d.restrict(stuck)
	var errs Errors
	for _, scc := range tarjanSCC(sub) {
		if len(scc) == 1 && !slices.Contains(sub.succ[scc[0]], scc[0]) {
			continue
		}
		errs = append(errs, cycleError(scc, sub))
	}
	return errs
}

// kahnRemainder returns the nodes that never reach in-degree zero, in
// insertion order. An empty result means the graph is acyclic.
func kahnRemainder(d *digraph) []string {
	indegree := make(map[string]int, len(d.nodes))
	for _, v := range d.nodes {
		for _, w := range d.succ[v] {
			indegree[w]++
		}
	}

	var queue []string
	for _, v := range d.nodes {
		if indegree[v] == 0 {
			queue = append(queue, v)
		}
	}

	resolved := make(map[string]bool, len(d.nodes))
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		resolved[v] = true
		for _, w := range d.succ[v] {
			indegree[w]--
			if indegree[w] == 0 {
				queue = append(queue, w)
			}
		}
	}

	var stuck []string
	for _, v := range d.nodes {
		if !resolved[v] {
			stuck = append(stuck, v)
		}
	}
	return stuck
}

// restrict returns the subgraph induced by keep.
func (d *digraph) restrict(keep []string) *digraph {
	in := make(map[string]bool, len(keep))
	for _, v := range keep {
		in[v] = true
	}
	sub := newDigraph()
	for _, v := range d.nodes {
		if !in[v] {
			continue
		}
		sub.addNode(v)
		for _, w := range d.succ[v] {
			if in[w] {
				sub.addEdge(v, w)
			}
		}
	}
	return sub
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Each SCC is returned in graph insertion order; single-node SCCs without
// self-loops are not cycles and are left for the caller to filter.
func tarjanSCC(d *digraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range d.succ[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop the stack to form an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, v := range d.nodes {
		if _, visited := indices[v]; !visited {
			strongConnect(v)
		}
	}

	order := make(map[string]int, len(d.nodes))
	for i, v := range d.nodes {
		order[v] = i
	}
	for _, scc := range sccs {
		slices.SortFunc(scc, func(a, b string) int { return order[a] - order[b] })
	}
	slices.SortFunc(sccs, func(a, b []string) int { return order[a[0]] - order[b[0]] })

	return sccs
}

func cycleError(scc []string, d *digraph) *CompileError {
	var jobIDs []string
	for _, key := range scc {
		if id, ok := strings.CutPrefix(key, "job:"); ok {
			jobIDs = append(jobIDs, id)
		}
	}
	slices.Sort(jobIDs)

	path := reconstructCyclePath(scc, d)
	labels := make([]string, len(path))
	for i, key := range path {
		labels[i] = displayKey(key)
	}

	return &CompileError{
		Code:    CyclicDependency,
		Message: fmt.Sprintf("dependency cycle: %s", strings.Join(labels, " → ")),
		JobIDs:  jobIDs,
	}
}

func displayKey(key string) string {
	kind, name, _ := strings.Cut(key, ":")
	switch kind {
	case "start":
		return fmt.Sprintf("phase %s (start)", name)
	case "end":
		return fmt.Sprintf("phase %s (end)", name)
	}
	return name
}

// reconstructCyclePath builds a cycle path from an SCC.
//
// Strategy: start at the first node, follow edges to other SCC members and
// stop on returning to the start node.
func reconstructCyclePath(scc []string, d *digraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	sccSet := make(map[string]bool, len(scc))
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range d.succ[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}

	return path
}
