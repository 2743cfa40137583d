package mutation

import (
	"fmt"
	"sort"
)

// Catalog is the fixed registry of variants, keyed by unique name.
type Catalog struct {
	variants []Variant
	byName   map[string]Variant
}

// NewCatalog builds a catalog. Names must be unique, and a variant that
// expires must be able to undo itself so the engine can supersede it.
func NewCatalog(vs ...Variant) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]Variant, len(vs))}
	for _, v := range vs {
		name := v.Name()
		if name == "" {
			return nil, fmt.Errorf("catalog: variant with empty name")
		}
		if _, dup := c.byName[name]; dup {
			return nil, fmt.Errorf("catalog: duplicate variant %q", name)
		}
		if caps := v.Capabilities(); caps.Expires && !caps.SelfUndo {
			return nil, fmt.Errorf("catalog: variant %q expires but cannot self-undo", name)
		}
		c.byName[name] = v
		c.variants = append(c.variants, v)
	}
	return c, nil
}

// Default returns a catalog with every built-in variant.
func Default() *Catalog {
	c, err := NewCatalog(
		NewVariableReverser(),
		NewIndentSwitcher(),
		NewEmojiInjector(),
		NewAustralianMode(),
		NewJitterbug(),
		NewComicSans(),
		NewColorInverter(),
		NewTerminalBell(),
		NewPlacebo(),
	)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the variant registered under name.
func (c *Catalog) Lookup(name string) (Variant, bool) {
	v, ok := c.byName[name]
	return v, ok
}

// All returns the variants in registration order.
func (c *Catalog) All() []Variant {
	out := make([]Variant, len(c.variants))
	copy(out, c.variants)
	return out
}

// Names returns the sorted variant names.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.variants))
	for _, v := range c.variants {
		names = append(names, v.Name())
	}
	sort.Strings(names)
	return names
}

// Eligible returns, in registration order, the variants that are both
// enabled and eligible for ws. Unknown names in enabled are ignored.
func (c *Catalog) Eligible(ws Workspace, enabled []string) []Variant {
	on := make(map[string]bool, len(enabled))
	for _, name := range enabled {
		on[name] = true
	}
	var out []Variant
	for _, v := range c.variants {
		if on[v.Name()] && v.Eligible(ws) {
			out = append(out, v)
		}
	}
	return out
}
