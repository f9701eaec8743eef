// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/dunerun/internal/errors"
	"grimm.is/dunerun/internal/prompt"
)

func touch(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func sourceTree(t *testing.T) string {
	root := t.TempDir()
	touch(t, filepath.Join(root, "lswf", "lswf-chem.cc"), "")
	touch(t, filepath.Join(root, "lswf", "lswf-chem.input"), "")
	touch(t, filepath.Join(root, "lswf", "other.input"), "")
	touch(t, filepath.Join(root, "gm", "gm.cc"), "")
	touch(t, filepath.Join(root, "gm", "gm.input"), "")
	touch(t, filepath.Join(root, "projects", "gm-DEBUG", "src", "gm.cc"), "")
	require.NoError(t, os.Symlink(filepath.Join(root, "gm", "gm.cc"), filepath.Join(root, "lswf", "gm.cc")))
	return root
}

func TestFindSource(t *testing.T) {
	root := sourceTree(t)

	src, err := FindSource(root, "lswf-chem")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "lswf"), src.Dir)
	assert.Equal(t, "lswf-chem.cc", src.File)
	assert.Equal(t, "lswf-chem", src.Stem())

	// The symlink is skipped but the generated copy under projects/ matches.
	_, err = FindSource(root, "gm.cc")
	assert.True(t, errors.IsKind(err, errors.KindConfig))

	src, err = FindSource(root, "gm", filepath.Join(root, "projects"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "gm"), src.Dir)

	_, err = FindSource(root, "missing")
	assert.True(t, errors.IsKind(err, errors.KindConfig))
}

func TestChooseSource(t *testing.T) {
	root := sourceTree(t)
	src := prompt.NewScripted("1")

	s, err := ChooseSource(root, src, filepath.Join(root, "projects"))
	require.NoError(t, err)
	require.Len(t, src.Asked, 1)
	assert.Equal(t, []string{
		filepath.Join(root, "gm", "gm.cc"),
		filepath.Join(root, "lswf", "lswf-chem.cc"),
	}, src.Asked[0].Options)
	assert.Equal(t, "lswf-chem.cc", s.File)

	_, err = ChooseSource(root, prompt.NewScripted("7"))
	assert.True(t, errors.IsKind(err, errors.KindConfig))
}

func TestSelectInput(t *testing.T) {
	root := sourceTree(t)

	single, err := SelectInput(filepath.Join(root, "gm"), "", prompt.NewScripted())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "gm", "gm.input"), single)

	lswf := filepath.Join(root, "lswf")
	byIndex, err := SelectInput(lswf, "1", prompt.NewScripted())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(lswf, "other.input"), byIndex)

	asked, err := SelectInput(lswf, "", prompt.NewScripted(""))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(lswf, "lswf-chem.input"), asked)

	_, err = SelectInput(lswf, "x", prompt.NewScripted())
	assert.True(t, errors.IsKind(err, errors.KindConfig))

	_, err = SelectInput(t.TempDir(), "", prompt.NewScripted())
	assert.True(t, errors.IsKind(err, errors.KindConfig))
}

func TestPreferredInput(t *testing.T) {
	root := sourceTree(t)
	lswf := filepath.Join(root, "lswf")

	got, err := PreferredInput(lswf, "lswf-chem", "", prompt.NewScripted())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(lswf, "lswf-chem.input"), got)

	got, err = PreferredInput(lswf, "lswf-chem", "1", prompt.NewScripted())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(lswf, "other.input"), got)
}

func TestNewRunContext(t *testing.T) {
	rc, err := NewRunContext(Options{
		ProjectsDir: "/work/projects",
		Source:      Source{Dir: "/src/lswf", File: "lswf-chem.cc"},
		Tag:         "-BCMVC-UMF-SH2O",
		InputFile:   "/src/lswf/case_one.input",
	})
	require.NoError(t, err)

	assert.Equal(t, "lswf-chem-BCMVC-UMF-SH2O", rc.Module)
	assert.Equal(t, "/work/projects/lswf-chem-BCMVC-UMF-SH2O", rc.ProgramDir)
	assert.Equal(t, "/work/projects/lswf-chem-BCMVC-UMF-SH2O/build-cmake/src/lswf-chem", rc.Executable)
	assert.Equal(t, "/work/projects/lswf-chem-BCMVC-UMF-SH2O/case_one.output", rc.RunDir)
	assert.Equal(t, rc.RunDir+"/vtk", rc.VTKDir)
	assert.Equal(t, rc.RunDir+"/lswf-chem.log", rc.LogPath)
	assert.Equal(t, filepath.Join(rc.VTKDir, "..", "lswf-chem.log"), rc.LogPath)
	assert.Equal(t, "case-one-BCMVC-UMF-SH2O", rc.PlotTitle)
	assert.Equal(t, rc.RunDir+"/case_one.input", rc.RunInput())
}

func TestNewRunContextCompileOnly(t *testing.T) {
	rc, err := NewRunContext(Options{
		ProjectsDir: "/work/projects",
		Source:      Source{Dir: "/src/gm", File: "gm.cc"},
		Tag:         "-DEBUG",
		Module:      "custom",
	})
	require.NoError(t, err)
	assert.Equal(t, "custom", rc.Module)
	assert.Empty(t, rc.RunDir)
	assert.Error(t, Prepare(rc, true))

	_, err = NewRunContext(Options{ProjectsDir: "/p"})
	assert.True(t, errors.IsKind(err, errors.KindConfig))
}

func TestPrepare(t *testing.T) {
	root := t.TempDir()
	input := filepath.Join(root, "src", "case.input")
	touch(t, input, "[TimeManager]\nTEnd = 10\n")

	rc, err := NewRunContext(Options{
		ProjectsDir: filepath.Join(root, "projects"),
		Source:      Source{Dir: filepath.Join(root, "src"), File: "case.cc"},
		InputFile:   input,
	})
	require.NoError(t, err)

	stale := filepath.Join(rc.RunDir, "stale.vtu")
	touch(t, stale, "")
	require.NoError(t, Prepare(rc, true))
	assert.NoFileExists(t, stale)
	assert.DirExists(t, rc.VTKDir)
	data, err := os.ReadFile(rc.RunInput())
	require.NoError(t, err)
	assert.Equal(t, "[TimeManager]\nTEnd = 10\n", string(data))

	// An existing copy is kept when not cleaning.
	require.NoError(t, os.WriteFile(rc.RunInput(), []byte("edited"), 0644))
	touch(t, stale, "")
	require.NoError(t, Prepare(rc, false))
	assert.FileExists(t, stale)
	data, err = os.ReadFile(rc.RunInput())
	require.NoError(t, err)
	assert.Equal(t, "edited", string(data))
}
