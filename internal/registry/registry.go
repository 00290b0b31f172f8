package registry

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"sort"
)

// Sentinel errors. Use errors.Is to classify registry failures.
var (
	ErrUnknownType  = errors.New("unknown job type")
	ErrMissingField = errors.New("missing required job field")
	ErrInvalidField = errors.New("invalid job field")
)

// Registry resolves job-type tags to definitions.
type Registry interface {
	Lookup(jobType string) (*Definition, error)
}

// Job is an engine-native job object built from a Definition.
type Job interface {
	EngineType() string
	Fields() map[string]any
}

// commonFields are engine attributes every job type accepts.
var commonFields = []string{
	"Description", "RunAs", "Host", "Application", "SubApplication",
	"CreatedBy", "Priority", "Critical", "Variables",
}

// reservedFields are owned by the serializer and never accepted from input.
var reservedFields = []string{
	"Type", "eventsToAdd", "eventsToWaitFor", "eventsToDelete",
}

// Definition describes one job type.
type Definition struct {
	Type        string         `yaml:"type"`
	EngineType  string         `yaml:"engine_type"`
	Description string         `yaml:"description,omitempty"`
	Required    []string       `yaml:"required,omitempty"`
	Optional    []string       `yaml:"optional,omitempty"`
	Defaults    map[string]any `yaml:"defaults,omitempty"`
}

// Accepts reports whether field may be set on jobs of this type.
func (d *Definition) Accepts(field string) bool {
	if slices.Contains(reservedFields, field) {
		return false
	}
	if _, ok := d.Defaults[field]; ok {
		return true
	}
	return slices.Contains(d.Required, field) ||
		slices.Contains(d.Optional, field) ||
		slices.Contains(commonFields, field)
}

// New constructs a job from the definition's defaults overlaid with
// overrides. Every required field must end up non-empty.
func (d *Definition) New(overrides map[string]any) (Job, error) {
	fields := make(map[string]any, len(d.Defaults)+len(overrides))
	for k, v := range d.Defaults {
		nv, err := NormalizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s default %q: %v", ErrInvalidField, d.Type, k, err)
		}
		fields[k] = nv
	}

	for _, k := range sortedKeys(overrides) {
		if !d.Accepts(k) {
			return nil, fmt.Errorf("%w: %q is not a field of %s", ErrInvalidField, k, d.Type)
		}
		nv, err := NormalizeValue(overrides[k])
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidField, k, err)
		}
		fields[k] = nv
	}

	var missing []string
	for _, req := range d.Required {
		if isEmpty(fields[req]) {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s requires %v", ErrMissingField, d.Type, missing)
	}

	return &job{engineType: d.EngineType, fields: fields}, nil
}

func (d *Definition) validate() error {
	if d.Type == "" {
		return fmt.Errorf("job type definition has empty type")
	}
	if d.EngineType == "" {
		return fmt.Errorf("job type %q has empty engine_type", d.Type)
	}
	for _, f := range append(slices.Clone(d.Required), d.Optional...) {
		if slices.Contains(reservedFields, f) {
			return fmt.Errorf("job type %q declares reserved field %q", d.Type, f)
		}
	}
	return nil
}

type job struct {
	engineType string
	fields     map[string]any
}

func (j *job) EngineType() string { return j.engineType }

// Fields returns a copy of the job's fields.
func (j *job) Fields() map[string]any { return maps.Clone(j.fields) }

// Catalog is an in-memory Registry.
type Catalog struct {
	defs map[string]*Definition
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{defs: make(map[string]*Definition)}
}

// Register adds def, replacing any definition with the same type tag.
func (c *Catalog) Register(def Definition) error {
	if err := def.validate(); err != nil {
		return err
	}
	c.defs[def.Type] = &def
	return nil
}

// Lookup returns the definition for jobType.
func (c *Catalog) Lookup(jobType string) (*Definition, error) {
	def, ok := c.defs[jobType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, jobType)
	}
	return def, nil
}

// Types returns all registered type tags in sorted order.
func (c *Catalog) Types() []string {
	return sortedKeys(c.defs)
}

// Len returns the number of registered types.
func (c *Catalog) Len() int {
	return len(c.defs)
}

// NormalizeValue coerces a decoded field value into the shapes the plan
// document supports: string, bool, int64, []any and map[string]any.
// Integral floats (as produced by encoding/json) become int64; other
// floats and nulls are rejected.
func NormalizeValue(v any) (any, error) {
	switch val := v.(type) {
	case string, bool, int64:
		return val, nil
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d out of range", val)
		}
		return int64(val), nil
	case float64:
		if val != math.Trunc(val) || math.IsInf(val, 0) || math.Abs(val) > 1<<53 {
			return nil, fmt.Errorf("non-integer number %v; quote it as a string", val)
		}
		return int64(val), nil
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			nv, err := NormalizeValue(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = nv
		}
		return out, nil
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, s := range val {
			out[k] = s
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			nv, err := NormalizeValue(elem)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = nv
		}
		return out, nil
	case nil:
		return nil, fmt.Errorf("null value")
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
