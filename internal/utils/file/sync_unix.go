//go:build linux || darwin

package file

import "golang.org/x/sys/unix"

// syncStorage flushes all cached filesystem writes to the underlying devices.
func syncStorage() {
	unix.Sync()
}
