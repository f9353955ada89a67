package config

import (
	"os"
	"path/filepath"
)

// CrackenPath returns the root directory for Cracken data.
// It uses $CRACKEN_PATH if set, otherwise defaults to ~/.cracken.
func CrackenPath() string {
	if v := os.Getenv("CRACKEN_PATH"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".cracken")
	}
	return filepath.Join(home, ".cracken")
}

// ConfigPath returns the default config file path.
func ConfigPath() string {
	return filepath.Join(CrackenPath(), "config.yaml")
}

// DotenvPath returns the path to the .env file.
func DotenvPath() string {
	return filepath.Join(CrackenPath(), ".env")
}
