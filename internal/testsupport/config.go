// Package testsupport provides shared fixtures for package tests.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"sessionscribe/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.RawDirs = []string{filepath.Join(base, "raw")}
	cfg.Paths.SessionsDir = filepath.Join(base, "sessions")
	cfg.Paths.QueueDir = filepath.Join(base, "_queue")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithRawDirs replaces the watched raw directories.
func WithRawDirs(dirs ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Paths.RawDirs = dirs
	}
}

// WriteVideo creates a fake recording with the given content in dir and
// returns its path.
func WriteVideo(t testing.TB, dir, name, content string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
