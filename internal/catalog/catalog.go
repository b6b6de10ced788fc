// Package catalog provides the read-only list of plant types offered by the type selector.
package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

//go:embed plant_types.json
var builtin []byte

// PlantType is one selectable entry.
type PlantType struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Catalog is an immutable list of plant types.
type Catalog struct {
	types  []PlantType
	byName map[string]struct{}
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(builtin)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded plant types: %v", err))
	}
	return c
}

// Load reads a JSON list of {id, name} entries.
func Load(r io.Reader) (*Catalog, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// LoadFile reads the catalog from path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Parse decodes and checks a catalog. Names must be non-empty and unique.
func Parse(b []byte) (*Catalog, error) {
	var types []PlantType
	if err := json.Unmarshal(b, &types); err != nil {
		return nil, fmt.Errorf("decode plant types: %w", err)
	}
	if len(types) == 0 {
		return nil, errors.New("empty plant type list")
	}
	byName := make(map[string]struct{}, len(types))
	for i, t := range types {
		if t.Name == "" {
			return nil, fmt.Errorf("plant type[%d]: empty name", i)
		}
		if _, dup := byName[t.Name]; dup {
			return nil, fmt.Errorf("plant type[%d]: duplicate name %q", i, t.Name)
		}
		byName[t.Name] = struct{}{}
	}
	return &Catalog{types: types, byName: byName}, nil
}

// Types returns a copy of the entries in list order.
func (c *Catalog) Types() []PlantType {
	return append([]PlantType(nil), c.types...)
}

// Contains reports whether name is a selectable type.
func (c *Catalog) Contains(name string) bool {
	_, ok := c.byName[name]
	return ok
}
