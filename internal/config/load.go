// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"gopkg.in/yaml.v3"

	"grimm.is/dunerun/internal/errors"
)

// LoadOptions controls how the tool configuration is loaded.
type LoadOptions struct {
	// Path is the configuration file. Empty means built-in defaults only.
	Path string

	// DotEnv is the .env file consulted for CXXFLAGS. Empty skips it.
	DotEnv string

	// Environ is the process environment. Nil means os.Environ().
	Environ []string
}

// LoadResult contains the loaded config and metadata about the load.
type LoadResult struct {
	Config   *Config
	Warnings []string
}

// Load returns the built-in configuration overlaid with the file at
// opts.Path, with base flags resolved from the environment.
func Load(opts LoadOptions) (*LoadResult, error) {
	environ := opts.Environ
	if environ == nil {
		environ = os.Environ()
	}
	env := envMap(environ)

	cfg := Default()
	result := &LoadResult{Config: cfg}

	if opts.Path != "" {
		file, err := LoadFile(opts.Path, env)
		if err != nil {
			return nil, err
		}
		cfg.merge(file)
		cfg.Source = opts.Path
	}

	flags, warn := resolveBaseFlags(env, opts.DotEnv, cfg.Toolchain.CXXFlags)
	if warn != "" {
		result.Warnings = append(result.Warnings, warn)
	}
	cfg.BaseFlags = flags

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return result, nil
}

// LoadFile decodes a single configuration file. HCL is the default format;
// .yaml and .yml files are decoded as YAML.
func LoadFile(path string, env map[string]string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Attr(errors.Wrap(err, errors.KindConfig, "failed to read config file"), errors.AttrPath, path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(data, path)
	default:
		return LoadHCL(data, path, env)
	}
}

// LoadHCL decodes HCL bytes. The env map is exposed to expressions as the
// "env" object, e.g. dune_bin = "${env.HOME}/dune/bin".
func LoadHCL(data []byte, filename string, env map[string]string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, errors.Wrapf(diags, errors.KindConfig, "failed to parse %s", filename)
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, evalContext(env), &cfg)
	if diags.HasErrors() {
		return nil, errors.Wrapf(diags, errors.KindConfig, "failed to decode %s", filename)
	}
	return &cfg, nil
}

// LoadYAML decodes YAML bytes.
func LoadYAML(data []byte, filename string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, errors.KindConfig, "failed to decode %s", filename)
	}
	return &cfg, nil
}
