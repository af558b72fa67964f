// Package backend picks the index store implementation by name.
package backend

import (
	"fmt"
	"path/filepath"
	"strings"

	"notesort/internal/index/bolt"
	"notesort/internal/index/sqlite"
	"notesort/internal/index/store"
)

func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "sqlite"
	}
	switch name {
	case "sqlite", "sqlite3":
		return "sqlite"
	case "bolt", "bbolt", "boltdb":
		return "bolt"
	default:
		return name
	}
}

// DefaultPath returns the index file inside a vault state directory.
func DefaultPath(stateDir string, backend string) string {
	backend = NormalizeName(backend)
	switch backend {
	case "bolt":
		return filepath.Join(stateDir, "index.bolt")
	default:
		return filepath.Join(stateDir, "index.db")
	}
}

func NormalizePath(backend string, path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	backend = NormalizeName(backend)
	clean := filepath.Clean(path)
	if backend != "bolt" {
		return clean
	}

	ext := strings.ToLower(filepath.Ext(clean))
	if ext == "" {
		return clean + ".bolt"
	}
	if ext == ".db" {
		return strings.TrimSuffix(clean, filepath.Ext(clean)) + ".bolt"
	}
	return clean
}

func Open(backend string, path string) (store.Store, error) {
	backend = NormalizeName(backend)
	switch backend {
	case "sqlite":
		return sqlite.Open(path)
	case "bolt":
		return bolt.Open(NormalizePath(backend, path))
	default:
		return nil, fmt.Errorf("unknown store backend: %s", backend)
	}
}
