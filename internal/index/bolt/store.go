package bolt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"notesort/internal/index/store"
)

type Store struct {
	path string
	db   *bbolt.DB
}

var _ store.Store = (*Store)(nil)

func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("dbPath is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}

	s := &Store{path: path, db: db}
	if err := s.ensureBuckets(); err != nil {
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

func (s *Store) Backend() string { return "bolt" }

func (s *Store) PutSnapshot(snap store.Snapshot) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store is not open")
	}
	snap.Path = filepath.ToSlash(strings.TrimSpace(snap.Path))
	if snap.Path == "" {
		return fmt.Errorf("path is required")
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return putSnapshot(mustBucket(tx, bucketSnapshots), snap, time.Now().Unix())
	})
}

func putSnapshot(b *bbolt.Bucket, snap store.Snapshot, now int64) error {
	if snap.IndexedAt == 0 {
		snap.IndexedAt = now
	}
	buf, err := encode(snapshotRecord{
		Size:      snap.Size,
		MTime:     snap.MTime,
		HasHeader: snap.HasHeader,
		Fields:    store.JSONFields(snap.Fields),
		IndexedAt: snap.IndexedAt,
	})
	if err != nil {
		return err
	}
	return b.Put([]byte(snap.Path), buf)
}

func toSnapshot(path string, raw []byte) (store.Snapshot, error) {
	var rec snapshotRecord
	if err := decode(raw, &rec); err != nil {
		return store.Snapshot{}, err
	}
	if rec.Fields == nil {
		rec.Fields = map[string]any{}
	}
	return store.Snapshot{
		Path:      path,
		Size:      rec.Size,
		MTime:     rec.MTime,
		HasHeader: rec.HasHeader,
		Fields:    rec.Fields,
		IndexedAt: rec.IndexedAt,
	}, nil
}

func (s *Store) GetSnapshot(path string) (store.Snapshot, bool, error) {
	if s == nil || s.db == nil {
		return store.Snapshot{}, false, fmt.Errorf("store is not open")
	}
	path = filepath.ToSlash(strings.TrimSpace(path))
	if path == "" {
		return store.Snapshot{}, false, fmt.Errorf("path is required")
	}

	var (
		snap  store.Snapshot
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket([]byte(bucketSnapshots)).Get([]byte(path))
		if raw == nil {
			return nil
		}
		var err error
		snap, err = toSnapshot(path, raw)
		found = err == nil
		return err
	})
	return snap, found, err
}

func (s *Store) DeleteSnapshot(path string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store is not open")
	}
	path = filepath.ToSlash(strings.TrimSpace(path))
	if path == "" {
		return fmt.Errorf("path is required")
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return mustBucket(tx, bucketSnapshots).Delete([]byte(path))
	})
}

func (s *Store) ListSnapshots() ([]store.Snapshot, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store is not open")
	}
	var out []store.Snapshot
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketSnapshots)).ForEach(func(k, v []byte) error {
			snap, err := toSnapshot(string(k), v)
			if err != nil {
				return err
			}
			out = append(out, snap)
			return nil
		})
	})
	return out, err
}

func (s *Store) CountSnapshots() (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("store is not open")
	}
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket([]byte(bucketSnapshots)).Stats().KeyN
		return nil
	})
	return n, err
}

func (s *Store) ReplaceSnapshots(snaps []store.Snapshot) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store is not open")
	}
	now := time.Now().Unix()
	return s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(bucketSnapshots)) != nil {
			if err := tx.DeleteBucket([]byte(bucketSnapshots)); err != nil {
				return err
			}
		}
		b, err := tx.CreateBucket([]byte(bucketSnapshots))
		if err != nil {
			return err
		}
		for _, snap := range snaps {
			snap.Path = filepath.ToSlash(strings.TrimSpace(snap.Path))
			if snap.Path == "" {
				return fmt.Errorf("path is required")
			}
			if err := putSnapshot(b, snap, now); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) RecordMove(m store.Move) (store.Move, error) {
	if s == nil || s.db == nil {
		return store.Move{}, fmt.Errorf("store is not open")
	}
	m = store.PrepareMove(m)
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := mustBucket(tx, bucketMoves)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		buf, err := encode(moveRecord{
			ID:      m.ID,
			From:    m.From,
			To:      m.To,
			Reason:  m.Reason,
			Value:   m.Value,
			Stamped: m.Stamped,
			Cleared: m.Cleared,
			Error:   m.Error,
			At:      m.At,
		})
		if err != nil {
			return err
		}
		return b.Put(seqKey(seq), buf)
	})
	if err != nil {
		return store.Move{}, err
	}
	return m, nil
}

func (s *Store) ListMoves(limit int) ([]store.Move, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store is not open")
	}
	var out []store.Move
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(bucketMoves)).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(out) >= limit {
				break
			}
			var rec moveRecord
			if err := decode(v, &rec); err != nil {
				return err
			}
			out = append(out, store.Move{
				ID:      rec.ID,
				From:    rec.From,
				To:      rec.To,
				Reason:  rec.Reason,
				Value:   rec.Value,
				Stamped: rec.Stamped,
				Cleared: rec.Cleared,
				Error:   rec.Error,
				At:      rec.At,
			})
		}
		return nil
	})
	return out, err
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketSnapshots)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketMoves)); err != nil {
			return err
		}
		return nil
	})
}

func mustBucket(tx *bbolt.Tx, name string) *bbolt.Bucket {
	b := tx.Bucket([]byte(name))
	if b == nil {
		b, _ = tx.CreateBucketIfNotExists([]byte(name))
	}
	return b
}
