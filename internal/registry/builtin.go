package registry

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var builtinCatalog []byte

// catalogFile is the on-disk shape of a job-type catalog.
type catalogFile struct {
	JobTypes []Definition `yaml:"job_types"`
}

// Builtin returns a catalog holding the embedded job types.
func Builtin() (*Catalog, error) {
	c := NewCatalog()
	if err := c.LoadYAML(builtinCatalog); err != nil {
		return nil, fmt.Errorf("builtin catalog: %w", err)
	}
	return c, nil
}

// LoadYAML registers every definition in a YAML catalog document.
// Entries replace existing definitions with the same type tag.
func (c *Catalog) LoadYAML(data []byte) error {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse catalog: %w", err)
	}
	for i, def := range f.JobTypes {
		if err := c.Register(def); err != nil {
			return fmt.Errorf("job_types[%d]: %w", i, err)
		}
	}
	return nil
}

// LoadFile reads a YAML catalog from path into c.
func (c *Catalog) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}
	if err := c.LoadYAML(data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
