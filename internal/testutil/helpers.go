// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package testutil

import (
	"os"
	"os/exec"
	"testing"
)

// RequireShell skips the test if /bin/sh is missing. Process tests start
// real children through it.
func RequireShell(t *testing.T) {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("Skipping test: requires /bin/sh")
	}
}

// RequireTool skips the test if name is not on PATH.
func RequireTool(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("Skipping test: requires %s on PATH", name)
	}
}
