package config

import (
	"fmt"
	"sync"
)

// Store loads and persists a configuration.
type Store interface {
	Load() (*Config, error)
	Save(*Config) error
}

// FileStore persists configuration as a TOML file.
type FileStore struct {
	Path string
}

func (f FileStore) Load() (*Config, error) {
	cfg, _, err := Load(f.Path)
	return cfg, err
}

func (f FileStore) Save(cfg *Config) error {
	return Save(f.Path, cfg)
}

// Live is a configuration shared between the reclassifier, the task commands
// and the RPC settings surface. Readers take copies; writers persist through
// the store before the new value becomes visible.
type Live struct {
	mu    sync.RWMutex
	cfg   Config
	store Store
}

// NewLive wraps cfg. store may be nil, in which case updates stay in memory.
func NewLive(cfg Config, store Store) *Live {
	return &Live{cfg: cfg, store: store}
}

func (l *Live) Snapshot() Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

func (l *Live) Sort() Sort {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg.Sort
}

// Update applies fn to a copy and saves it. Nothing changes if fn or Save fails.
func (l *Live) Update(fn func(*Config) error) error {
	if l == nil {
		return fmt.Errorf("config is nil")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.cfg
	if err := fn(&next); err != nil {
		return err
	}
	next.Sort.normalize()
	if l.store != nil {
		if err := l.store.Save(&next); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
	}
	l.cfg = next
	return nil
}

func (l *Live) SetOption(key, value string) error {
	return l.Update(func(c *Config) error {
		return c.Sort.SetOption(key, value)
	})
}

// SetTaskCounter persists the next task number.
func (l *Live) SetTaskCounter(n int) error {
	return l.Update(func(c *Config) error {
		c.Sort.TaskCounter = n
		return nil
	})
}
