package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - WM_CONFIG_PATH: config file location (default: ~/.config/wm.toml)
//   - WM_HOME: base directory for wm data (default: ~/.local/share/wm)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the config file path, checking WM_CONFIG_PATH env var first,
// then falling back to the default ~/.config/wm.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("WM_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "wm.toml"), nil
}

// getBaseDir returns the base directory for wm data, checking WM_HOME env var first,
// then falling back to the XDG default ~/.local/share/wm.
func getBaseDir() (string, error) {
	if path := os.Getenv("WM_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "wm"), nil
}
