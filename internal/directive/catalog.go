// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package directive resolves build directives (preprocessor-style -D flags)
// from a per-problem catalog and command-line overrides into the flag string
// handed to the build and the tag that namespaces build/output directories.
package directive

import (
	"fmt"
	"sort"
	"strings"

	"grimm.is/dunerun/internal/errors"
)

// AMG is the directive that enables the parallel AMG solve path.
const AMG = "AMG"

// Entry is one catalog directive.
type Entry struct {
	Name        string
	Description string
}

// Catalog maps directive names to their effect and records the defaults.
// It is immutable once built.
type Catalog struct {
	entries  map[string]string
	order    []string
	defaults []string
}

// NewCatalog validates entries and defaults and returns a Catalog.
// Names must be unique and every default must name a catalog entry.
func NewCatalog(entries []Entry, defaults []string) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, errors.New(errors.KindConfig, "directive catalog is empty")
	}

	c := &Catalog{entries: make(map[string]string, len(entries))}
	for _, e := range entries {
		if e.Name == "" {
			return nil, errors.New(errors.KindConfig, "directive with empty name")
		}
		if _, dup := c.entries[e.Name]; dup {
			return nil, errors.Errorf(errors.KindConfig, "duplicate directive %q", e.Name)
		}
		c.entries[e.Name] = e.Description
		c.order = append(c.order, e.Name)
	}

	seen := make(map[string]bool, len(defaults))
	for _, d := range defaults {
		if _, ok := c.entries[d]; !ok {
			return nil, errors.Errorf(errors.KindConfig, "default directive %q is not in the catalog", d)
		}
		if seen[d] {
			return nil, errors.Errorf(errors.KindConfig, "default directive %q listed twice", d)
		}
		seen[d] = true
		c.defaults = append(c.defaults, d)
	}
	return c, nil
}

// Has reports whether name is a catalog directive.
func (c *Catalog) Has(name string) bool {
	_, ok := c.entries[name]
	return ok
}

// Description returns the effect text for name.
func (c *Catalog) Description(name string) string {
	return c.entries[name]
}

// Names returns the directive names in declaration order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.order...)
}

// Defaults returns the default directives in declared order.
func (c *Catalog) Defaults() []string {
	return append([]string(nil), c.defaults...)
}

// IsDefault reports whether name is one of the defaults.
func (c *Catalog) IsDefault(name string) bool {
	for _, d := range c.defaults {
		if d == name {
			return true
		}
	}
	return false
}

// Describe renders the directive listing printed by --help.
func (c *Catalog) Describe() string {
	names := c.Names()
	sort.Strings(names)

	var sb strings.Builder
	for _, n := range names {
		fmt.Fprintf(&sb, "  --D%s\n        %s", n, c.entries[n])
		if c.IsDefault(n) {
			sb.WriteString(" (default)")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
