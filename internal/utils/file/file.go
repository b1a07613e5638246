// Package file provides file utility functions, including durable removal of
// files living on removable storage.
package file

import (
	"fmt"
	"os"
)

// RemoveDurable removes a file and forces a best-effort storage flush so the
// deletion survives yanking a USB drive. Without the flush the file can come
// back when the device is reinserted. A failing flush does not fail the
// removal: the unlink already happened.
func RemoveDurable(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("could not remove %q: %w", path, err)
	}

	syncStorage()

	return nil
}
