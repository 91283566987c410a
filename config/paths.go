package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath is the environment variable for an explicit config path
	EnvConfigPath = "CERAMIGO_CONFIG"
	// ConfigFileName is the config file looked up in the working directory
	ConfigFileName = "ceramigo.yaml"
)

// FindConfigPath searches for a config file in priority order:
// 1. $CERAMIGO_CONFIG (explicit path)
// 2. ./ceramigo.yaml (working directory)
//
// Returns empty string if no config file found
func FindConfigPath() string {
	if path := os.Getenv(EnvConfigPath); path != "" {
		if fileExists(path) {
			return path
		}
	}

	if fileExists(ConfigFileName) {
		if abs, err := filepath.Abs(ConfigFileName); err == nil {
			return abs
		}
		return ConfigFileName
	}
	return ""
}

// EnsureConfigDir creates the directory of configPath if it doesn't exist
func EnsureConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), 0o755)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
