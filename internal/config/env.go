// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/joho/godotenv"
	"github.com/zclconf/go-cty/cty"
)

// FlagsVar is the environment variable carrying compiler flags.
const FlagsVar = "CXXFLAGS"

func envMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		m[k] = v
	}
	return m
}

func evalContext(env map[string]string) *hcl.EvalContext {
	vals := make(map[string]cty.Value, len(env))
	for k, v := range env {
		if !hclsyntaxSafe(k) {
			continue
		}
		vals[k] = cty.StringVal(v)
	}
	envVal := cty.EmptyObjectVal
	if len(vals) > 0 {
		envVal = cty.ObjectVal(vals)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": envVal},
	}
}

// hclsyntaxSafe reports whether k can be used as an attribute name in a
// traversal such as env.NAME.
func hclsyntaxSafe(k string) bool {
	if k == "" {
		return false
	}
	for i, r := range k {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '-'):
		default:
			return false
		}
	}
	return true
}

// resolveBaseFlags picks the externally preset compiler flags.
// Priority: process environment > .env file > toolchain cxxflags.
func resolveBaseFlags(env map[string]string, dotenv, configured string) (string, string) {
	if v, ok := env[FlagsVar]; ok {
		return v, ""
	}
	if dotenv != "" {
		vals, err := godotenv.Read(dotenv)
		switch {
		case err == nil:
			if v, ok := vals[FlagsVar]; ok {
				return v, ""
			}
		case !os.IsNotExist(err):
			return configured, "ignoring " + dotenv + ": " + err.Error()
		}
	}
	return configured, ""
}
