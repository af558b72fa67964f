package sqlite

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"notesort/internal/index/store"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

func Open(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("dbPath is required")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Backend() string { return "sqlite" }

func (s *Store) PutSnapshot(snap store.Snapshot) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store is not open")
	}
	snap.Path = filepath.ToSlash(strings.TrimSpace(snap.Path))
	if snap.Path == "" {
		return fmt.Errorf("path is required")
	}
	return putSnapshot(s.db, snap)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func putSnapshot(db execer, snap store.Snapshot) error {
	fields, err := store.EncodeFields(snap.Fields)
	if err != nil {
		return err
	}
	if snap.IndexedAt == 0 {
		snap.IndexedAt = time.Now().Unix()
	}
	_, err = db.Exec(
		`INSERT INTO snapshots (path, size, mtime, has_header, fields, indexed_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   size=excluded.size,
		   mtime=excluded.mtime,
		   has_header=excluded.has_header,
		   fields=excluded.fields,
		   indexed_at=excluded.indexed_at`,
		snap.Path,
		snap.Size,
		snap.MTime,
		boolInt(snap.HasHeader),
		string(fields),
		snap.IndexedAt,
	)
	return err
}

func (s *Store) GetSnapshot(path string) (store.Snapshot, bool, error) {
	if s == nil || s.db == nil {
		return store.Snapshot{}, false, fmt.Errorf("store is not open")
	}
	path = filepath.ToSlash(strings.TrimSpace(path))
	if path == "" {
		return store.Snapshot{}, false, fmt.Errorf("path is required")
	}

	row := s.db.QueryRow(
		`SELECT path, size, mtime, has_header, fields, indexed_at
		 FROM snapshots
		 WHERE path = ?`,
		path,
	)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Snapshot{}, false, nil
	}
	if err != nil {
		return store.Snapshot{}, false, err
	}
	return snap, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(r scanner) (store.Snapshot, error) {
	var (
		snap      store.Snapshot
		hasHeader int
		fields    string
	)
	if err := r.Scan(&snap.Path, &snap.Size, &snap.MTime, &hasHeader, &fields, &snap.IndexedAt); err != nil {
		return store.Snapshot{}, err
	}
	m, err := store.DecodeFields([]byte(fields))
	if err != nil {
		return store.Snapshot{}, err
	}
	snap.HasHeader = hasHeader != 0
	snap.Fields = m
	return snap, nil
}

func (s *Store) DeleteSnapshot(path string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store is not open")
	}
	path = filepath.ToSlash(strings.TrimSpace(path))
	if path == "" {
		return fmt.Errorf("path is required")
	}
	_, err := s.db.Exec(`DELETE FROM snapshots WHERE path = ?`, path)
	return err
}

func (s *Store) ListSnapshots() ([]store.Snapshot, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store is not open")
	}
	rows, err := s.db.Query(
		`SELECT path, size, mtime, has_header, fields, indexed_at
		 FROM snapshots
		 ORDER BY path`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

func (s *Store) CountSnapshots() (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("store is not open")
	}
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(1) FROM snapshots`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) ReplaceSnapshots(snaps []store.Snapshot) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store is not open")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM snapshots`); err != nil {
		return err
	}
	now := time.Now().Unix()
	for _, snap := range snaps {
		snap.Path = filepath.ToSlash(strings.TrimSpace(snap.Path))
		if snap.Path == "" {
			return fmt.Errorf("path is required")
		}
		if snap.IndexedAt == 0 {
			snap.IndexedAt = now
		}
		if err := putSnapshot(tx, snap); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) init() error {
	if _, err := s.db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return err
	}
	_, _ = s.db.Exec("PRAGMA journal_mode = WAL")

	return execStatements(s.db, schemaSQL)
}

func execStatements(db *sql.DB, sqlText string) error {
	if db == nil {
		return fmt.Errorf("db is nil")
	}
	sqlText = strings.ReplaceAll(sqlText, "\r\n", "\n")

	var cleaned strings.Builder
	for _, line := range strings.Split(sqlText, "\n") {
		trim := strings.TrimSpace(line)
		if trim == "" {
			continue
		}
		if strings.HasPrefix(trim, "--") {
			continue
		}
		cleaned.WriteString(line)
		cleaned.WriteString("\n")
	}

	parts := strings.Split(cleaned.String(), ";")
	for _, raw := range parts {
		stmt := strings.TrimSpace(raw)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
