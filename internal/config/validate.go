package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable by the daemon. Incomplete
// [sort] settings are not an error here: the reclassifier logs and skips.
func (c *Config) Validate() error {
	if err := c.validateVault(); err != nil {
		return err
	}
	if err := c.validateDaemon(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateVault() error {
	if strings.TrimSpace(c.Vault.Root) == "" {
		path, err := DefaultConfigPath()
		if err != nil {
			path = "~/.config/notesort/config.toml"
		}
		return fmt.Errorf("vault.root is required. Edit %s (create with 'nsort config init')", path)
	}
	return nil
}

func (c *Config) validateDaemon() error {
	switch c.Daemon.IndexBackend {
	case "sqlite", "bolt":
	default:
		return fmt.Errorf("daemon.index_backend %q is not supported (expected: sqlite|bolt)", c.Daemon.IndexBackend)
	}
	if c.Daemon.DebounceMS <= 0 {
		return errors.New("daemon.debounce_ms must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not supported", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format %q is not supported (expected: auto|console|json)", c.Logging.Format)
	}
	return nil
}

// Missing lists the required [sort] options that are empty.
func (s Sort) Missing() []string {
	var out []string
	if s.PropertyName == "" {
		out = append(out, OptPropertyName)
	}
	if s.TrueContainer == "" && s.RootContainer == "" {
		out = append(out, OptTrueContainer)
	}
	if s.FalseContainer == "" && s.RootContainer == "" {
		out = append(out, OptFalseContainer)
	}
	return out
}
