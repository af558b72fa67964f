package sqlite

import (
	"fmt"
	"strconv"
	"strings"
)

// Tuning is the set of connection pragmas the store cares about.
type Tuning struct {
	JournalMode string
	Synchronous string
	TempStore   string
	// CacheKiB is applied as a negative cache_size, i.e. in KiB.
	CacheKiB int
}

// BuildTuning trades durability for speed while the snapshots are rebuilt
// from the vault; they can always be rebuilt again.
var BuildTuning = Tuning{
	JournalMode: "WAL",
	Synchronous: "NORMAL",
	TempStore:   "MEMORY",
	CacheKiB:    64 << 10,
}

func (s *Store) TuneForBuild() error { return s.Tune(BuildTuning) }

func (s *Store) Tune(t Tuning) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store is not open")
	}
	var stmts []string
	if v := strings.TrimSpace(t.JournalMode); v != "" {
		stmts = append(stmts, "PRAGMA journal_mode="+v)
	}
	if v := strings.TrimSpace(t.Synchronous); v != "" {
		stmts = append(stmts, "PRAGMA synchronous="+v)
	}
	if v := strings.TrimSpace(t.TempStore); v != "" {
		stmts = append(stmts, "PRAGMA temp_store="+v)
	}
	if t.CacheKiB > 0 {
		stmts = append(stmts, "PRAGMA cache_size=-"+strconv.Itoa(t.CacheKiB))
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return nil
}

// CurrentTuning reads the pragmas back. Synchronous and temp_store come back
// as sqlite's numeric codes.
func (s *Store) CurrentTuning() (Tuning, error) {
	if s == nil || s.db == nil {
		return Tuning{}, fmt.Errorf("store is not open")
	}
	var (
		t     Tuning
		sync  int
		temp  int
		cache int
	)
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&t.JournalMode); err != nil {
		return Tuning{}, err
	}
	if err := s.db.QueryRow("PRAGMA synchronous").Scan(&sync); err != nil {
		return Tuning{}, err
	}
	if err := s.db.QueryRow("PRAGMA temp_store").Scan(&temp); err != nil {
		return Tuning{}, err
	}
	if err := s.db.QueryRow("PRAGMA cache_size").Scan(&cache); err != nil {
		return Tuning{}, err
	}
	t.JournalMode = strings.ToUpper(t.JournalMode)
	t.Synchronous = [...]string{"OFF", "NORMAL", "FULL", "EXTRA"}[min(max(sync, 0), 3)]
	t.TempStore = [...]string{"DEFAULT", "FILE", "MEMORY"}[min(max(temp, 0), 2)]
	if cache < 0 {
		t.CacheKiB = -cache
	}
	return t, nil
}
