package main

import (
	"log/slog"
	"strings"
	"sync"

	"sessionscribe/internal/config"
	"sessionscribe/internal/jobstore"
	"sessionscribe/internal/logging"
	"sessionscribe/internal/metrics"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	var loggerErr error
	c.loggerOnce.Do(func() {
		c.logger, loggerErr = logging.NewFromConfig(cfg)
	})
	if c.logger == nil && loggerErr == nil {
		c.logger = logging.NewNop()
	}
	return c.logger, loggerErr
}

func (c *commandContext) openStore() (*jobstore.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return jobstore.Open(cfg)
}

func (c *commandContext) openMetrics() (*metrics.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return metrics.Open(cfg.MetricsPath()), nil
}
