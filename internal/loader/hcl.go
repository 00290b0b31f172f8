package loader

import (
	"fmt"
	"math/big"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/roach88/ctmflow/internal/ir"
)

// hclWorkflow is the HCL form of a workflow:
//
//	folder = "DEMGEN_VB"
//
//	phase "S1" {
//	  description = "Data acquisition"
//	}
//
//	job "A" {
//	  type      = "Data_Oracle"
//	  subfolder = "S1"
//	  fields    = { SQLScript = "export.sql" }
//	}
type hclWorkflow struct {
	Folder       string     `hcl:"folder,optional"`
	Chain        *bool      `hcl:"chain,optional"`
	StrictPhases bool       `hcl:"strict_phases,optional"`
	Phases       []hclPhase `hcl:"phase,block"`
	Jobs         []hclJob   `hcl:"job,block"`
}

type hclPhase struct {
	Name        string     `hcl:"name,label"`
	Description string     `hcl:"description,optional"`
	After       []string   `hcl:"after,optional"`
	AfterGroups []string   `hcl:"after_groups,optional"`
	Events      *hclEvents `hcl:"events,block"`
}

type hclEvents struct {
	Add    []string `hcl:"add,optional"`
	Wait   []string `hcl:"wait,optional"`
	Delete []string `hcl:"delete,optional"`
}

type hclJob struct {
	ID               string    `hcl:"id,label"`
	Name             string    `hcl:"name,optional"`
	Type             string    `hcl:"type"`
	Subfolder        string    `hcl:"subfolder,optional"`
	ConcurrencyGroup string    `hcl:"concurrency_group,optional"`
	Dependencies     []string  `hcl:"dependencies,optional"`
	AfterGroups      []string  `hcl:"after_groups,optional"`
	AfterPhases      []string  `hcl:"after_phases,optional"`
	Fields           cty.Value `hcl:"fields,optional"`
}

func decodeHCL(name string, data []byte) (*ir.WorkflowSpec, error) {
	file, diags := hclparse.NewParser().ParseHCL(data, name)
	if diags.HasErrors() {
		return nil, &Error{Code: ErrCodeParseFailed, Message: diags.Error()}
	}

	var parsed hclWorkflow
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, &Error{Code: ErrCodeParseFailed, Message: diags.Error()}
	}

	spec := &ir.WorkflowSpec{
		Folder:       parsed.Folder,
		Chain:        parsed.Chain,
		StrictPhases: parsed.StrictPhases,
	}
	for _, p := range parsed.Phases {
		phase := ir.PhaseSpec{
			Name:        p.Name,
			Description: p.Description,
			After:       p.After,
			AfterGroups: p.AfterGroups,
		}
		if p.Events != nil {
			phase.Events = ir.EventSet{Add: p.Events.Add, Wait: p.Events.Wait, Delete: p.Events.Delete}
		}
		spec.Phases = append(spec.Phases, phase)
	}
	for _, j := range parsed.Jobs {
		fields, err := ctyToNative(j.Fields)
		if err != nil {
			return nil, &Error{Code: ErrCodeParseFailed, Message: fmt.Sprintf("job %q fields: %v", j.ID, err)}
		}
		job := ir.JobSpec{
			ID:               j.ID,
			Name:             j.Name,
			Type:             j.Type,
			Subfolder:        j.Subfolder,
			ConcurrencyGroup: j.ConcurrencyGroup,
			Dependencies:     j.Dependencies,
			AfterGroups:      j.AfterGroups,
			AfterPhases:      j.AfterPhases,
		}
		if fields != nil {
			m, ok := fields.(map[string]any)
			if !ok {
				return nil, &Error{Code: ErrCodeParseFailed, Message: fmt.Sprintf("job %q: fields must be an object", j.ID)}
			}
			job.Fields = m
		}
		spec.Jobs = append(spec.Jobs, job)
	}
	return spec, nil
}

// ctyToNative converts a cty value into plain Go values: strings, bools,
// int64 for whole numbers, float64 otherwise, []any and map[string]any.
// A null or absent value yields nil.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return i, nil
			}
		}
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, fmt.Errorf("could not convert number: %w", err)
		}
		return f, nil

	case ty == cty.Bool:
		return v.True(), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			_, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, native)
		}
		return out, nil

	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		it := v.ElementIterator()
		for it.Next() {
			key, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, fmt.Errorf("in attribute %q: %w", key.AsString(), err)
			}
			out[key.AsString()] = native
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
}
