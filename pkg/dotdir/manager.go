// Package dotdir resolves the .llmgateway/ directory that holds config.toml
// and the optional pricing overrides file.
package dotdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DirName is the name of the gateway config directory.
	DirName = ".llmgateway"
)

// Manager resolves the config directory relative to the working directory
// and the user's home. HomeDir and WorkDir are swappable for tests.
type Manager struct {
	HomeDir func() (string, error)
	WorkDir func() (string, error)
}

func NewManager() *Manager {
	return &Manager{
		HomeDir: os.UserHomeDir,
		WorkDir: os.Getwd,
	}
}

// Target returns the absolute path of an existing config directory.
// Order of precedence is as follows:
//  1. Provided override (created if missing)
//  2. Local ./.llmgateway/ dir
//  3. Home ~/.llmgateway/ dir
//
// An empty path is returned when none of these exist, so a server started
// without any config directory runs on defaults and environment only.
func (m *Manager) Target(overrideDir string) (string, error) {
	if overrideDir != "" {
		if err := os.MkdirAll(overrideDir, 0o755); err != nil {
			return "", fmt.Errorf("creating config directory %s: %w", overrideDir, err)
		}
		return filepath.Abs(overrideDir)
	}

	for _, base := range []func() (string, error){m.WorkDir, m.HomeDir} {
		dir, err := base()
		if err != nil {
			continue
		}
		candidate := filepath.Join(dir, DirName)
		if isDir(candidate) {
			return filepath.Abs(candidate)
		}
	}

	return "", nil
}

// Ensure behaves like Target but creates ~/.llmgateway/ when nothing
// else resolves. Commands that write config use it.
func (m *Manager) Ensure(overrideDir string) (string, error) {
	target, err := m.Target(overrideDir)
	if err != nil || target != "" {
		return target, err
	}

	home, err := m.HomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	dir := filepath.Join(home, DirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return filepath.Abs(dir)
}

// File returns the path of name inside the resolved config directory, or
// an empty string when no directory resolves or the file does not exist.
func (m *Manager) File(overrideDir, name string) (string, error) {
	target, err := m.Target(overrideDir)
	if err != nil || target == "" {
		return "", err
	}

	path := filepath.Join(target, name)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("checking %s: %w", path, err)
	}
	return path, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
