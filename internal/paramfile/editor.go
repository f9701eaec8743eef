// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package paramfile

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"grimm.is/dunerun/internal/errors"
	"grimm.is/dunerun/internal/prompt"
)

// BackupSuffix is appended to the parameter file path for the pre-write copy.
const BackupSuffix = ".bak"

// Result describes one edit.
type Result struct {
	Path       string
	BackupPath string
	Changed    []string // "Group.key" of every changed entry
	Before     string
	After      string
}

// Edit walks the parameter file at path and, when interactive, asks src for
// a new value for every entry. Comment lines are shown as context.
//
// The original is copied to path+".bak" before it is overwritten; if the
// copy fails the file is left untouched. Non-interactive edits read nothing
// from src and write nothing.
func Edit(path string, interactive bool, src prompt.Source) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Attr(errors.Wrap(err, errors.KindIO, "failed to read parameter file"), errors.AttrPath, path)
	}
	res := &Result{Path: path, Before: string(data), After: string(data)}
	if !interactive {
		return res, nil
	}

	doc := Parse(string(data))
	for i, l := range doc.Lines {
		switch l.Kind {
		case KindComment:
			src.Show(strings.TrimSuffix(l.Raw, "\r"))
		case KindEntry:
			answer, err := src.Ask(prompt.Question{
				Kind:    prompt.KindParameter,
				Title:   strings.TrimSpace(l.Key),
				Group:   l.Group,
				Key:     l.Key,
				Value:   l.Value,
				Comment: l.Comment,
			})
			if err != nil {
				return nil, errors.Attr(errors.Wrap(err, errors.KindIO, "parameter edit aborted"), errors.AttrPath, path)
			}
			if answer == "" {
				continue
			}
			doc.SetValue(i, answer)
			res.Changed = append(res.Changed, l.Group+"."+strings.TrimSpace(l.Key))
		}
	}
	res.After = doc.Render()

	backup := path + BackupSuffix
	if err := copyFile(path, backup); err != nil {
		return nil, errors.Attr(errors.Wrap(err, errors.KindBackup, "failed to back up parameter file"), errors.AttrPath, backup)
	}
	res.BackupPath = backup

	if err := writeFileAtomic(path, []byte(res.After)); err != nil {
		return nil, errors.Attr(errors.Wrap(err, errors.KindIO, "failed to write parameter file"), errors.AttrPath, path)
	}
	return res, nil
}

// Diff renders a unified diff between the backup and the rewritten file.
// It returns "" when nothing changed.
func (r *Result) Diff() string {
	if r.Before == r.After {
		return ""
	}
	name := filepath.Base(r.Path)
	out, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(r.Before),
		B:        difflib.SplitLines(r.After),
		FromFile: name + BackupSuffix,
		ToFile:   name,
		Context:  1,
	})
	if err != nil {
		return ""
	}
	return out
}

// copyFile copies src to dst through a temporary file so dst is either the
// complete copy or absent.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func writeFileAtomic(path string, data []byte) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
