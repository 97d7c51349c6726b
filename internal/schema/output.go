package schema

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CurrentVersion is the catalog file format version.
const CurrentVersion = 1

// LoadCatalog reads, resolves and validates a catalog from a YAML file.
func LoadCatalog(path string) (*Catalog, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading catalog file: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses and resolves catalog YAML.
func ParseCatalog(data []byte) (*Catalog, []string, error) {
	c := &Catalog{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if c.Version == 0 {
		c.Version = CurrentVersion
	}
	if c.Version != CurrentVersion {
		return nil, nil, fmt.Errorf("unsupported catalog version %d (expected %d)", c.Version, CurrentVersion)
	}
	warnings, err := c.Resolve()
	if err != nil {
		return nil, warnings, err
	}
	return c, warnings, nil
}

// WriteYAML writes the catalog to a YAML file at the given path.
func (c *Catalog) WriteYAML(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling catalog: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Summary returns a human-readable summary of the catalog.
func (c *Catalog) Summary() string {
	var models, fields, fks, m2m int
	for _, m := range c.Models() {
		models++
		fields += len(m.Fields)
		m2m += len(m.Relations)
		for _, f := range m.Fields {
			if f.Kind == KindForeignKey {
				fks++
			}
		}
	}
	return fmt.Sprintf(
		"Found %d namespaces, %d models, %d fields, %d foreign keys, %d many-to-many relations",
		len(c.Namespaces), models, fields, fks, m2m,
	)
}
