// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package brand provides centralized naming constants for dunerun.
//
// The identity is loaded from brand.json at compile time via go:embed so that
// helper scripts can read the same file.
package brand

import (
	_ "embed"
	"encoding/json"
)

//go:embed brand.json
var brandJSON []byte

// Brand holds all branding information
type Brand struct {
	Name            string `json:"name"`
	LowerName       string `json:"lowerName"`
	Description     string `json:"description"`
	ConfigEnvPrefix string `json:"configEnvPrefix"`
	BinaryName      string `json:"binaryName"`
	ConfigFileName  string `json:"configFileName"`
	StateFileName   string `json:"stateFileName"`
	Copyright       string `json:"copyright"`
	License         string `json:"license"`
}

var b Brand

func init() {
	if err := json.Unmarshal(brandJSON, &b); err != nil {
		panic("failed to parse brand.json: " + err.Error())
	}

	Name = b.Name
	LowerName = b.LowerName
	Description = b.Description
	ConfigEnvPrefix = b.ConfigEnvPrefix
	BinaryName = b.BinaryName
	ConfigFileName = b.ConfigFileName
	StateFileName = b.StateFileName
	Copyright = b.Copyright
	License = b.License
}

var (
	Name            string
	LowerName       string
	Description     string
	ConfigEnvPrefix string
	BinaryName      string
	ConfigFileName  string
	StateFileName   string
	Copyright       string
	License         string

	// Version is set at build time via -ldflags
	Version   = "dev"
	GitCommit = "unknown"
)

// Get returns the full Brand struct
func Get() Brand {
	return b
}

// EnvVar returns the name of a tool environment variable, e.g. DUNERUN_CONFIG.
func EnvVar(suffix string) string {
	return ConfigEnvPrefix + "_" + suffix
}

// VersionString returns "<name> <version> (<commit>)".
func VersionString() string {
	return Name + " " + Version + " (" + GitCommit + ")"
}
