//go:build !linux && !darwin

package file

// syncStorage is a no-op on platforms without a whole-device sync primitive.
func syncStorage() {}
