package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Vault locates the document tree.
type Vault struct {
	Root         string   `toml:"root"`
	StateDir     string   `toml:"state_dir,omitempty"`
	IncludeGlobs []string `toml:"include,omitempty"`
	ExcludeGlobs []string `toml:"exclude,omitempty"`
}

// Sort holds the classification settings.
type Sort struct {
	PropertyName          string `toml:"property_name"`
	TrueContainer         string `toml:"true_container"`
	FalseContainer        string `toml:"false_container"`
	EnableCompletedDate   bool   `toml:"enable_completed_date"`
	CompletedDateProperty string `toml:"completed_date_property"`
	RootContainer         string `toml:"root_container"`
	TemplatePath          string `toml:"template_path"`
	EnableBacklog         bool   `toml:"enable_backlog"`
	BacklogContainer      string `toml:"backlog_container"`
	IceboxContainer       string `toml:"icebox_container"`
	// TaskCounter is the next task number to mint; 0 means not derived yet.
	TaskCounter int `toml:"task_counter"`
}

// Daemon contains nsortd runtime settings.
type Daemon struct {
	Listen        string `toml:"listen"`
	DebounceMS    int    `toml:"debounce_ms"`
	IndexBackend  string `toml:"index_backend"`
	IndexPath     string `toml:"index_path,omitempty"`
	MetricsListen string `toml:"metrics_listen"`
	SweepOnStart  bool   `toml:"sweep_on_start"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file,omitempty"`
}

// Config encapsulates all configuration values for notesort.
type Config struct {
	Vault   Vault   `toml:"vault"`
	Sort    Sort    `toml:"sort"`
	Daemon  Daemon  `toml:"daemon"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/notesort/config.toml")
}

// SampleConfig returns the commented template written by `nsort config init`.
func SampleConfig() string {
	return sampleConfig
}

// Load parses and normalizes the configuration at path ("" for the default
// location). A missing file is reported with fs.ErrNotExist.
func Load(path string) (*Config, string, error) {
	resolved, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", err
	}

	cfg := Default()
	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, resolved, fmt.Errorf("config %s: %w", resolved, err)
		}
		return nil, resolved, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, resolved, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, resolved, err
	}
	return &cfg, resolved, nil
}

// Save writes cfg to path atomically.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	resolved, err := resolveConfigPath(path)
	if err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return writeFileAtomic(resolved, data)
}

// WriteSample creates a commented config file at path; an existing file is
// left alone unless force is set.
func WriteSample(path string, force bool) (string, error) {
	resolved, err := resolveConfigPath(path)
	if err != nil {
		return "", err
	}
	if !force {
		if _, err := os.Stat(resolved); err == nil {
			return resolved, fmt.Errorf("config %s: %w", resolved, fs.ErrExist)
		}
	}
	return resolved, writeFileAtomic(resolved, []byte(sampleConfig))
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.toml")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func resolveConfigPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultConfigPath()
	}
	return expandPath(path)
}

// StatePath joins name onto the vault state directory.
func (c *Config) StatePath(name string) string {
	return filepath.Join(c.Vault.StateDir, name)
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

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
