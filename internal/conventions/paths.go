package conventions

import "path/filepath"

const (
	// DefaultDataDir is the default recup data directory name (relative to home).
	DefaultDataDir = ".recup"
	// SettingsFile is the persisted settings filename.
	SettingsFile = "settings.json"
	// RecordingsDir is the subdirectory holding recorded video files.
	RecordingsDir = "recordings"
	// BroadcastDir is the recordings subdirectory the encoder writes to.
	BroadcastDir = "broadcast"

	// DefaultListenAddr is the default address the local HTTP API listens on.
	DefaultListenAddr = "127.0.0.1:5000"
)

// SettingsPath returns the path of the persisted settings file.
func SettingsPath(dataDir string) string {
	return filepath.Join(dataDir, SettingsFile)
}

// RecordingsPath returns the directory scanned for recordings.
func RecordingsPath(dataDir string) string {
	return filepath.Join(dataDir, RecordingsDir, BroadcastDir)
}
