// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package directive

import (
	"fmt"
	"strings"

	"grimm.is/dunerun/internal/errors"
)

// ArgPrefix marks a directive on the command line: --DAMG selects AMG.
const ArgPrefix = "--D"

// Selection is the ordered, duplicate-free set of directives for one run.
type Selection struct {
	// Names holds explicit directives first, then back-filled defaults.
	Names []string
	// Explicit is the number of leading names that came from the user.
	Explicit int
	// Tag namespaces build and output directories, e.g. "-BCMVC-UMF-SH2O".
	Tag string
	// Flags is passed verbatim to the build through CXXFLAGS.
	Flags string
	// Warnings are non-fatal findings for the caller to surface.
	Warnings []string
}

// Has reports whether name is part of the selection.
func (s Selection) Has(name string) bool {
	for _, n := range s.Names {
		if n == name {
			return true
		}
	}
	return false
}

// Resolve combines user tokens with the catalog defaults.
//
// Tokens keep their order; a token seen twice keeps its first position.
// Every default not already chosen is appended in default order, so a
// partial override still back-fills the rest. Unknown tokens are kept and
// reported as warnings because the catalog is informational.
func Resolve(c *Catalog, baseFlags string, tokens []string) (Selection, error) {
	if c == nil || len(c.entries) == 0 {
		return Selection{}, errors.New(errors.KindConfig, "directive catalog is empty")
	}

	var sel Selection
	chosen := make(map[string]bool, len(tokens)+len(c.defaults))
	known := 0

	for _, tok := range tokens {
		if tok == "" {
			return Selection{}, errors.New(errors.KindConfig, "empty directive name")
		}
		if chosen[tok] {
			continue
		}
		if c.Has(tok) {
			known++
		} else {
			sel.Warnings = append(sel.Warnings,
				fmt.Sprintf("directive %q is not in the available directives list (adding anyway)", tok))
		}
		chosen[tok] = true
		sel.Names = append(sel.Names, tok)
	}
	sel.Explicit = len(sel.Names)

	// Only catalog directives count towards a full override.
	if known > 0 && known < len(c.defaults) {
		sel.Warnings = append(sel.Warnings,
			fmt.Sprintf("less than %d directives specified: using source code defaults for the rest", len(c.defaults)))
	}

	for _, d := range c.defaults {
		if chosen[d] {
			continue
		}
		chosen[d] = true
		sel.Names = append(sel.Names, d)
	}

	sel.Tag = Tag(sel.Names)
	sel.Flags = Flags(baseFlags, sel.Names)
	return sel, nil
}

// Tag joins names into a directory suffix: "-" + join(names, "-").
func Tag(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return "-" + strings.Join(names, "-")
}

// Flags appends " -D<NAME>" for each name to base.
func Flags(base string, names []string) string {
	var sb strings.Builder
	sb.WriteString(base)
	for _, n := range names {
		sb.WriteString(" -D")
		sb.WriteString(n)
	}
	return strings.TrimSpace(sb.String())
}

// ParseArgs splits --D<NAME> tokens out of args. The remaining arguments are
// returned in order for regular flag parsing. Valued defines such as
// --DMAXSTEPS=10 are kept whole.
func ParseArgs(args []string) (tokens, rest []string, err error) {
	for _, a := range args {
		if !strings.HasPrefix(a, ArgPrefix) {
			rest = append(rest, a)
			continue
		}
		name := strings.TrimPrefix(a, ArgPrefix)
		if name == "" || strings.ContainsAny(name, " \t") {
			return nil, nil, errors.Errorf(errors.KindConfig, "malformed directive argument %q", a)
		}
		tokens = append(tokens, name)
	}
	return tokens, rest, nil
}
