package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Install writes the embedded default config to path unless a file is already there.
// it reports whether a file was written.
func Install(path string) (bool, error) {
	_, statErr := os.Stat(path)
	if statErr == nil {
		return false, nil
	}
	if !os.IsNotExist(statErr) {
		return false, fmt.Errorf("check config file: %w", statErr)
	}

	// config dir is user only, it may hold notification tokens
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return false, fmt.Errorf("create config dir: %w", err)
	}
	data, err := defaultsFS.ReadFile("defaults/config")
	if err != nil {
		return false, fmt.Errorf("read embedded config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return false, fmt.Errorf("write config file: %w", err)
	}
	return true, nil
}
