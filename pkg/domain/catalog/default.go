package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.yaml
var defaultCatalogYAML []byte

// Default returns the built-in crop catalog.
// Each call returns a fresh copy, so callers cannot mutate shared reference data.
func Default() *Catalog {
	c, err := Parse(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in catalog is invalid: %v", err))
	}
	return c
}

// Parse decodes and validates a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads a catalog from a YAML file. An empty path yields the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	// #nosec G304 -- catalog path comes from operator configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data)
}
