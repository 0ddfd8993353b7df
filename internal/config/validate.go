package config

import (
	"errors"
	"fmt"
)

var watchModes = map[string]struct{}{
	"once":     {},
	"interval": {},
	"event":    {},
}

var analyzeBackends = map[string]struct{}{
	"mock":        {},
	"claude":      {},
	"gemini_3pro": {},
	"open_ocr":    {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWatcher(); err != nil {
		return err
	}
	if err := c.validateWorker(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.SessionsDir == "" {
		return errors.New("paths.sessions_dir must be set")
	}
	if c.Paths.QueueDir == "" {
		return errors.New("paths.queue_dir must be set")
	}
	return nil
}

func (c *Config) validateWatcher() error {
	if _, ok := watchModes[c.Watcher.Mode]; !ok {
		return fmt.Errorf("watcher.mode: unsupported value %q (expected once, interval, or event)", c.Watcher.Mode)
	}
	return nil
}

func (c *Config) validateWorker() error {
	if c.Worker.Preset != "fast" && c.Worker.Preset != "quality" {
		return fmt.Errorf("worker.preset: unknown preset %q", c.Worker.Preset)
	}
	if _, ok := analyzeBackends[c.Worker.AnalyzeBackend]; !ok {
		return fmt.Errorf("worker.analyze_backend: unsupported value %q", c.Worker.AnalyzeBackend)
	}
	if c.Worker.TranscribeLimit < 0 {
		return errors.New("worker.transcribe_limit must not be negative")
	}
	if c.Worker.TranscribeMaxSeconds < 0 {
		return errors.New("worker.transcribe_max_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
