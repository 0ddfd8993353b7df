package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWatcher()
	c.normalizeWorker()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if len(c.Paths.RawDirs) == 0 {
		c.Paths.RawDirs = []string{defaultRawDir}
	}
	for i, dir := range c.Paths.RawDirs {
		if c.Paths.RawDirs[i], err = expandPath(dir); err != nil {
			return fmt.Errorf("paths.raw_dirs[%d]: %w", i, err)
		}
	}
	if c.Paths.SessionsDir, err = expandPath(c.Paths.SessionsDir); err != nil {
		return fmt.Errorf("paths.sessions_dir: %w", err)
	}
	if c.Paths.QueueDir, err = expandPath(c.Paths.QueueDir); err != nil {
		return fmt.Errorf("paths.queue_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeWatcher() {
	c.Watcher.Mode = strings.ToLower(strings.TrimSpace(c.Watcher.Mode))
	if c.Watcher.Mode == "" {
		c.Watcher.Mode = defaultWatcherMode
	}
	if c.Watcher.PollInterval <= 0 {
		c.Watcher.PollInterval = defaultWatcherPoll
	}
	if c.Watcher.AutoRunBatchLimit <= 0 {
		c.Watcher.AutoRunBatchLimit = defaultAutoRunBatchLimit
	}
	if len(c.Watcher.Extensions) == 0 {
		c.Watcher.Extensions = append([]string{}, defaultExtensions...)
	}
	for i, ext := range c.Watcher.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Watcher.Extensions[i] = ext
	}
}

func (c *Config) normalizeWorker() {
	if c.Worker.PollInterval <= 0 {
		c.Worker.PollInterval = defaultWorkerPoll
	}
	c.Worker.Preset = strings.ToLower(strings.TrimSpace(c.Worker.Preset))
	if c.Worker.Preset == "" {
		c.Worker.Preset = defaultPreset
	}
	c.Worker.AnalyzeBackend = strings.ToLower(strings.TrimSpace(c.Worker.AnalyzeBackend))
	if c.Worker.AnalyzeBackend == "" {
		c.Worker.AnalyzeBackend = defaultAnalyzeBackend
	}
	if len(c.Worker.ASRModels) == 0 {
		c.Worker.ASRModels = []string{"base"}
	}
	if c.Worker.FramesPerSegment <= 0 {
		c.Worker.FramesPerSegment = defaultFramesPerSegment
	}
	if c.Worker.AlignWindowSeconds <= 0 {
		c.Worker.AlignWindowSeconds = defaultAlignWindow
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
