// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux

package cmd

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// maxCommLen is the kernel's TASK_COMM_LEN minus the terminating NUL.
const maxCommLen = 15

// SetProcessName renames the calling thread so a waiting plot monitor shows
// up as e.g. "dunerun-monitor" in ps and top. Longer names are cut to what
// the kernel keeps.
func SetProcessName(name string) error {
	if len(name) > maxCommLen {
		name = name[:maxCommLen]
	}
	comm, err := unix.BytePtrFromString(name)
	if err != nil {
		return err
	}
	return unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(comm)), 0, 0, 0)
}
