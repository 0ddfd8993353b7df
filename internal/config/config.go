package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	RawDirs     []string `toml:"raw_dirs"`
	SessionsDir string   `toml:"sessions_dir"`
	QueueDir    string   `toml:"queue_dir"`
	LogDir      string   `toml:"log_dir"`
}

// Watcher contains configuration for raw-video detection.
type Watcher struct {
	Mode              string   `toml:"mode"`
	PollInterval      int      `toml:"poll_interval"`
	AutoRun           bool     `toml:"auto_run"`
	AutoRunBatchLimit int      `toml:"auto_run_batch_limit"`
	Extensions        []string `toml:"extensions"`
}

// Worker contains configuration for the queue consumer.
type Worker struct {
	PollInterval         int      `toml:"poll_interval"`
	Preset               string   `toml:"preset"`
	AnalyzeBackend       string   `toml:"analyze_backend"`
	ASRModels            []string `toml:"asr_models"`
	TranscribeLimit      int      `toml:"transcribe_limit"`
	TranscribeMaxSeconds int      `toml:"transcribe_max_seconds"`
	FramesPerSegment     int      `toml:"frames_per_segment"`
	AlignWindowSeconds   float64  `toml:"align_window_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for sessionscribe.
//
// Configuration sections by subsystem:
//   - Paths: watched raw directories, session output, queue state, logs
//   - Watcher: scan mode, poll cadence, auto-run behavior, video extensions
//   - Worker: drain cadence, default preset, stage defaults and limits
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Watcher Watcher `toml:"watcher"`
	Worker  Worker  `toml:"worker"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/sessionscribe/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			return "", false, fmt.Errorf("config file %q: %w", expanded, err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config file %q is a directory", expanded)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("sessionscribe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the engine needs to run.
// Raw directories are created on a best-effort basis so the watcher can start
// before a capture target has been mounted.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.SessionsDir, c.Paths.QueueDir, c.JobsDir(), c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	for _, dir := range c.Paths.RawDirs {
		_ = os.MkdirAll(dir, 0o755)
	}
	return nil
}

// JobsDir returns the directory holding one record file per job.
func (c *Config) JobsDir() string {
	return filepath.Join(c.Paths.QueueDir, "jobs")
}

// QueueLogPath returns the append-only pending queue log.
func (c *Config) QueueLogPath() string {
	return filepath.Join(c.Paths.QueueDir, "pending.jsonl")
}

// WatcherStatePath returns the persisted seen-keys state file.
func (c *Config) WatcherStatePath() string {
	return filepath.Join(c.Paths.QueueDir, "state.json")
}

// MetricsPath returns the shared throughput metrics file.
func (c *Config) MetricsPath() string {
	return filepath.Join(c.Paths.QueueDir, "_metrics.json")
}

// FFprobeBinary returns the ffprobe executable name used for media probing.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
