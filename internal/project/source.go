// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package project resolves what one invocation works on: the problem source,
// its input file and the directories the build and the run use.
package project

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"grimm.is/dunerun/internal/errors"
	"grimm.is/dunerun/internal/prompt"
)

const (
	// SourceExt is the problem source suffix.
	SourceExt = ".cc"
	// InputExt is the runtime parameter file suffix.
	InputExt = ".input"
)

// Source is a problem source file.
type Source struct {
	Dir  string
	File string
}

// Path returns the full source path.
func (s Source) Path() string { return filepath.Join(s.Dir, s.File) }

// Stem returns the file name without SourceExt.
func (s Source) Stem() string { return strings.TrimSuffix(s.File, SourceExt) }

// ListSources walks dir for problem sources, skipping symlinks and the
// excluded directories. Results are in lexical path order.
func ListSources(dir string, exclude ...string) ([]Source, error) {
	skip := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		if abs, err := filepath.Abs(e); err == nil {
			skip[abs] = true
		}
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindIO, "invalid search directory")
	}

	var found []Source
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if d.IsDir() {
			if path != root && skip[path] {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if strings.HasSuffix(d.Name(), SourceExt) {
			found = append(found, Source{Dir: filepath.Dir(path), File: d.Name()})
		}
		return nil
	})
	if err != nil {
		return nil, errors.Attr(errors.Wrap(err, errors.KindConfig, "cannot search for sources"), errors.AttrPath, dir)
	}
	return found, nil
}

// FindSource locates the single source called name below dir, appending
// SourceExt when missing. Zero or several matches are a config error.
func FindSource(dir, name string, exclude ...string) (Source, error) {
	if !strings.HasSuffix(name, SourceExt) {
		name += SourceExt
	}
	all, err := ListSources(dir, exclude...)
	if err != nil {
		return Source{}, err
	}

	var matches []Source
	for _, s := range all {
		if s.File == name {
			matches = append(matches, s)
		}
	}
	switch len(matches) {
	case 0:
		return Source{}, errors.Errorf(errors.KindConfig, "cannot continue, file not found: %s", name)
	case 1:
		return matches[0], nil
	default:
		paths := make([]string, len(matches))
		for i, m := range matches {
			paths[i] = m.Path()
		}
		return Source{}, errors.Errorf(errors.KindConfig, "cannot continue unattended, more than one %s found: %s", name, strings.Join(paths, ", "))
	}
}

// ChooseSource asks src to pick one of the sources below dir.
func ChooseSource(dir string, src prompt.Source, exclude ...string) (Source, error) {
	all, err := ListSources(dir, exclude...)
	if err != nil {
		return Source{}, err
	}
	if len(all) == 0 {
		return Source{}, errors.Errorf(errors.KindConfig, "no %s files found below %s", SourceExt, dir)
	}
	options := make([]string, len(all))
	for i, s := range all {
		options[i] = s.Path()
	}
	i, err := choose(src, "Select problem to configure", options, "")
	if err != nil {
		return Source{}, err
	}
	return all[i], nil
}

// ListInputs returns the input files directly in dir, sorted.
func ListInputs(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+InputExt))
	if err != nil {
		return nil, errors.Wrap(err, errors.KindIO, "cannot list input files")
	}
	sort.Strings(matches)
	return matches, nil
}

// SelectInput picks the input file in problemDir. A single file is used
// as is. With several, index selects one; an empty index asks src.
func SelectInput(problemDir, index string, src prompt.Source) (string, error) {
	inputs, err := ListInputs(problemDir)
	if err != nil {
		return "", err
	}
	switch len(inputs) {
	case 0:
		return "", errors.Attr(errors.New(errors.KindConfig, "no input files found"), errors.AttrPath, problemDir)
	case 1:
		return inputs[0], nil
	}
	i, err := choose(src, "Input file", inputs, index)
	if err != nil {
		return "", err
	}
	return inputs[i], nil
}

// PreferredInput returns <problemDir>/<stem>.input when it exists and falls
// back to SelectInput.
func PreferredInput(problemDir, stem, index string, src prompt.Source) (string, error) {
	if index == "" {
		candidate := filepath.Join(problemDir, stem+InputExt)
		if isFile(candidate) {
			return candidate, nil
		}
	}
	return SelectInput(problemDir, index, src)
}

// choose resolves a preset or asked index into options. Empty means 0.
func choose(src prompt.Source, title string, options []string, preset string) (int, error) {
	answer := preset
	if answer == "" {
		var err error
		answer, err = src.Ask(prompt.Question{
			Kind:    prompt.KindChoice,
			Title:   title,
			Default: "0",
			Options: options,
		})
		if err != nil {
			return 0, err
		}
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return 0, nil
	}
	i, err := strconv.Atoi(answer)
	if err != nil || i < 0 || i >= len(options) {
		return 0, errors.Errorf(errors.KindConfig, "invalid selection %q for %s (0-%d)", answer, strings.ToLower(title), len(options)-1)
	}
	return i, nil
}
