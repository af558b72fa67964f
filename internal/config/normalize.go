package config

import (
	"fmt"
	"path"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeVault(); err != nil {
		return err
	}
	c.Sort.normalize()
	c.normalizeDaemon()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeVault() error {
	var err error
	if c.Vault.Root, err = expandPath(strings.TrimSpace(c.Vault.Root)); err != nil {
		return fmt.Errorf("vault.root: %w", err)
	}
	if strings.TrimSpace(c.Vault.StateDir) == "" && c.Vault.Root != "" {
		c.Vault.StateDir = c.Vault.Root + "/" + defaultStateDirName
	}
	if c.Vault.StateDir, err = expandPath(strings.TrimSpace(c.Vault.StateDir)); err != nil {
		return fmt.Errorf("vault.state_dir: %w", err)
	}
	return nil
}

func (s *Sort) normalize() {
	s.PropertyName = strings.TrimSpace(s.PropertyName)
	s.CompletedDateProperty = strings.TrimSpace(s.CompletedDateProperty)
	s.TrueContainer = cleanContainer(s.TrueContainer)
	s.FalseContainer = cleanContainer(s.FalseContainer)
	s.RootContainer = cleanContainer(s.RootContainer)
	s.BacklogContainer = cleanContainer(s.BacklogContainer)
	s.IceboxContainer = cleanContainer(s.IceboxContainer)
	s.TemplatePath = cleanContainer(s.TemplatePath)
	if s.TaskCounter < 0 {
		s.TaskCounter = 0
	}
}

// cleanContainer turns user input into a vault-relative folder key.
func cleanContainer(v string) string {
	v = strings.TrimSpace(strings.ReplaceAll(v, "\\", "/"))
	v = strings.Trim(v, "/")
	if v == "" {
		return ""
	}
	v = path.Clean(v)
	if v == "." {
		return ""
	}
	return v
}

func (c *Config) normalizeDaemon() {
	c.Daemon.Listen = strings.TrimSpace(c.Daemon.Listen)
	if c.Daemon.Listen == "" {
		c.Daemon.Listen = defaultListen
	}
	if c.Daemon.DebounceMS <= 0 {
		c.Daemon.DebounceMS = defaultDebounceMS
	}
	c.Daemon.IndexBackend = strings.ToLower(strings.TrimSpace(c.Daemon.IndexBackend))
	if c.Daemon.IndexBackend == "" {
		c.Daemon.IndexBackend = defaultIndexBackend
	}
	c.Daemon.IndexPath = strings.TrimSpace(c.Daemon.IndexPath)
	if c.Daemon.IndexPath != "" {
		if p, err := expandPath(c.Daemon.IndexPath); err == nil {
			c.Daemon.IndexPath = p
		}
	}
	c.Daemon.MetricsListen = strings.TrimSpace(c.Daemon.MetricsListen)
}

func (c *Config) normalizeLogging() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if c.Logging.File != "" {
		if p, err := expandPath(strings.TrimSpace(c.Logging.File)); err == nil {
			c.Logging.File = p
		}
	}
}
