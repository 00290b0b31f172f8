package advisor

import (
	"fmt"

	"github.com/roach88/ctmflow/internal/ir"
)

// Workflow builds a chained workflow from an ordered list of job types.
// Each job is typed by its entry in order and named from renames when
// present. Ids are the type, suffixed "_2", "_3"... on repeats; repeated
// names get the same suffix after a space. Jobs carry
// no explicit dependencies; positional chaining orders them.
func Workflow(order []string, renames map[string]string) *ir.WorkflowSpec {
	spec := &ir.WorkflowSpec{Jobs: make([]ir.JobSpec, 0, len(order))}
	seen := make(map[string]int, len(order))
	for _, typ := range order {
		seen[typ]++
		id, name := typ, renames[typ]
		if n := seen[typ]; n > 1 {
			id = fmt.Sprintf("%s_%d", typ, n)
			if name != "" {
				name = fmt.Sprintf("%s %d", name, n)
			}
		}
		spec.Jobs = append(spec.Jobs, ir.JobSpec{
			ID:   id,
			Name: name,
			Type: typ,
		})
	}
	return spec
}
