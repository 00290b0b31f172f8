package compiler

import "github.com/roach88/ctmflow/internal/ir"

// Partition groups jobs by (subfolder, concurrency_group). Groups are
// ordered by their first member's declaration and members keep
// declaration order. Groups of two or more jobs are barrier groups.
func Partition(g *Graph) []ir.Group {
	var groups []ir.Group
	index := make(map[ir.GroupRef]int)

	for _, n := range g.Nodes {
		ref := n.Ref()
		i, ok := index[ref]
		if !ok {
			i = len(groups)
			index[ref] = i
			groups = append(groups, ir.Group{Subfolder: ref.Subfolder, Name: ref.Group})
		}
		groups[i].Members = append(groups[i].Members, n.ID())
	}

	return groups
}
