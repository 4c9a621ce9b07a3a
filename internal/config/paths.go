package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ProjectConfigName is looked up in the working directory before the user config.
const ProjectConfigName = ".llmctx.yaml"

// DefaultConfigDir returns the default configuration directory (~/.llmctx).
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".llmctx"), nil
}

// DefaultConfigPath returns ./.llmctx.yaml when it exists, else
// ~/.llmctx/config.yaml.
func DefaultConfigPath() (string, error) {
	if info, err := os.Stat(ProjectConfigName); err == nil && !info.IsDir() {
		return filepath.Abs(ProjectConfigName)
	}
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// ExpandPath expands ~ prefix in path to user home directory.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home dir: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}

	if path == "~" {
		return os.UserHomeDir()
	}

	return path, nil
}
