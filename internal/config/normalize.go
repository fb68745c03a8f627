package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWorker()
	c.normalizeIntervals()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.UploadDir) == "" {
		c.Paths.UploadDir = defaultUploadDir
	}
	if c.Paths.UploadDir, err = expandPath(c.Paths.UploadDir); err != nil {
		return fmt.Errorf("paths.upload_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ResultsDir) == "" {
		c.Paths.ResultsDir = defaultResultsDir
	}
	if c.Paths.ResultsDir, err = expandPath(c.Paths.ResultsDir); err != nil {
		return fmt.Errorf("paths.results_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeWorker() {
	c.Worker.Command = strings.TrimSpace(c.Worker.Command)
	if c.Worker.Command == "" {
		c.Worker.Command = defaultWorkerCommand
	}
	if c.Worker.SpawnTimeout <= 0 {
		c.Worker.SpawnTimeout = defaultWorkerSpawn
	}
}

func (c *Config) normalizeIntervals() {
	if c.Monitor.PollInterval <= 0 {
		c.Monitor.PollInterval = defaultPollInterval
	}
	if c.Monitor.ProcessingTimeout < 0 {
		c.Monitor.ProcessingTimeout = 0
	}
	if c.Jobs.RetentionHours < 0 {
		c.Jobs.RetentionHours = 0
	}
	if c.Jobs.PurgeInterval <= 0 {
		c.Jobs.PurgeInterval = defaultPurgeInterval
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
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

// Validate reports configuration values that cannot be used at runtime.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.UploadDir) == "" {
		return fmt.Errorf("paths.upload_dir is required")
	}
	if strings.TrimSpace(c.Paths.ResultsDir) == "" {
		return fmt.Errorf("paths.results_dir is required")
	}
	if c.Paths.UploadDir == c.Paths.ResultsDir {
		return fmt.Errorf("paths.upload_dir and paths.results_dir must differ")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
