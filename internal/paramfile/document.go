// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package paramfile reads and rewrites DUNE-style runtime parameter files:
//
//	[Grid]
//	# lines starting with '#' are comments
//	depth = 10  #meters
//
// Rewriting keeps every line, its order and its inline comment; only values
// the user changes are touched.
package paramfile

import (
	"regexp"
	"strings"
)

// NoGroup is the group of entries that precede any [Group] header.
const NoGroup = "NoGroup"

// LineKind classifies a parameter file line.
type LineKind int

const (
	KindOther LineKind = iota
	KindComment
	KindGroup
	KindEntry
)

func (k LineKind) String() string {
	switch k {
	case KindComment:
		return "comment"
	case KindGroup:
		return "group"
	case KindEntry:
		return "entry"
	default:
		return "other"
	}
}

var groupPattern = regexp.MustCompile(`^\s*\[([^\]]*)\]`)

// Line is one line of a parameter file. Raw never includes the line terminator.
type Line struct {
	Kind LineKind
	Raw  string
	// Group is the enclosing group (or the header's own name for KindGroup).
	Group string

	// Entry fields: Key is everything left of the first '=', Value runs up to
	// the first '#', Comment is everything after it.
	Key        string
	Value      string
	Comment    string
	HasComment bool

	cr bool
}

// Document is a parsed parameter file.
type Document struct {
	Lines []Line
}

// Parse splits content into classified lines. Splitting on "\n" yields a final
// empty element for newline-terminated files; it is kept so Render is exact.
func Parse(content string) *Document {
	raw := strings.Split(content, "\n")
	doc := &Document{Lines: make([]Line, 0, len(raw))}

	group := NoGroup
	for _, r := range raw {
		l := Line{Raw: r}
		body := r
		if strings.HasSuffix(body, "\r") {
			body = strings.TrimSuffix(body, "\r")
			l.cr = true
		}

		switch {
		case groupPattern.MatchString(body):
			group = strings.TrimSpace(groupPattern.FindStringSubmatch(body)[1])
			l.Kind = KindGroup
		case strings.HasPrefix(strings.TrimLeft(body, " \t"), "#"):
			l.Kind = KindComment
		case strings.Contains(body, "="):
			l.Kind = KindEntry
			key, rest, _ := strings.Cut(body, "=")
			l.Key = key
			l.Value, l.Comment, l.HasComment = strings.Cut(rest, "#")
		}
		l.Group = group
		doc.Lines = append(doc.Lines, l)
	}
	return doc
}

// Render joins the lines back into file content.
func (d *Document) Render() string {
	parts := make([]string, len(d.Lines))
	for i, l := range d.Lines {
		parts[i] = l.Raw
	}
	return strings.Join(parts, "\n")
}

// SetValue replaces the value of entry i, keeping its key and inline comment.
// It is a no-op for lines that are not entries.
func (d *Document) SetValue(i int, value string) {
	if i < 0 || i >= len(d.Lines) || d.Lines[i].Kind != KindEntry {
		return
	}
	l := &d.Lines[i]
	l.Value = " " + value + "  "
	l.HasComment = true
	l.Raw = l.render(value)
}

// render formats "key = value  #comment"; the comment may be empty.
func (l Line) render(value string) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimRight(l.Key, " \t"))
	sb.WriteString(" = ")
	sb.WriteString(value)
	sb.WriteString("  #")
	sb.WriteString(l.Comment)
	if l.cr {
		sb.WriteString("\r")
	}
	return sb.String()
}
