// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package install

import (
	"os"
	"path/filepath"

	"grimm.is/dunerun/internal/brand"
)

var (
	// DefaultDuneBinDir is appended to PATH for every toolchain child.
	DefaultDuneBinDir = "/opt/dune/bin"

	// Build-time overrides (set via -ldflags)
	BuildDefaultDuneBinDir = ""
)

func init() {
	if BuildDefaultDuneBinDir != "" {
		DefaultDuneBinDir = BuildDefaultDuneBinDir
	}
}

// GetDuneBinDir returns the DUNE toolchain bin directory.
// Priority: DUNERUN_DUNE_BIN > DUNERUN_PREFIX/bin > DefaultDuneBinDir
func GetDuneBinDir() string {
	if dir := os.Getenv(brand.EnvVar("DUNE_BIN")); dir != "" {
		return dir
	}
	if prefix := os.Getenv(brand.EnvVar("PREFIX")); prefix != "" {
		return filepath.Join(prefix, "bin")
	}
	return DefaultDuneBinDir
}

// GetProjectsDir returns the output directory for generated projects.
// Priority: DUNERUN_PROJECTS_DIR > <cwd>/projects
func GetProjectsDir(cwd string) string {
	if dir := os.Getenv(brand.EnvVar("PROJECTS_DIR")); dir != "" {
		return dir
	}
	return filepath.Join(cwd, "projects")
}

// GetConfigPath returns the tool configuration file to load, or "" when none exists.
// Priority: DUNERUN_CONFIG > <cwd>/dunerun.hcl > <cwd>/bin/dunerun.hcl
func GetConfigPath(cwd string) string {
	if path := os.Getenv(brand.EnvVar("CONFIG")); path != "" {
		return path
	}
	for _, candidate := range []string{
		filepath.Join(cwd, brand.ConfigFileName),
		filepath.Join(cwd, "bin", brand.ConfigFileName),
	} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// GetScriptDir returns the directory holding helper scripts such as _project.
// It is the directory of the running executable unless DUNERUN_SCRIPT_DIR is set.
func GetScriptDir() string {
	if dir := os.Getenv(brand.EnvVar("SCRIPT_DIR")); dir != "" {
		return dir
	}
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// GetLocalIncludeDir returns the include directory shipped next to the scripts.
func GetLocalIncludeDir() string {
	return filepath.Join(GetScriptDir(), "include")
}
