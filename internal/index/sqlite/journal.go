package sqlite

import (
	"database/sql"
	"fmt"

	"notesort/internal/index/store"
)

func (s *Store) RecordMove(m store.Move) (store.Move, error) {
	if s == nil || s.db == nil {
		return store.Move{}, fmt.Errorf("store is not open")
	}
	m = store.PrepareMove(m)

	var value any
	if m.Value != nil {
		value = boolInt(*m.Value)
	}
	_, err := s.db.Exec(
		`INSERT INTO moves (id, from_path, to_path, reason, value, stamped, cleared, error, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID,
		m.From,
		m.To,
		m.Reason,
		value,
		boolInt(m.Stamped),
		boolInt(m.Cleared),
		m.Error,
		m.At,
	)
	if err != nil {
		return store.Move{}, err
	}
	return m, nil
}

func (s *Store) ListMoves(limit int) ([]store.Move, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store is not open")
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		`SELECT id, from_path, to_path, reason, value, stamped, cleared, error, at
		 FROM moves
		 ORDER BY seq DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Move
	for rows.Next() {
		var (
			m                store.Move
			value            sql.NullInt64
			stamped, cleared int
		)
		if err := rows.Scan(&m.ID, &m.From, &m.To, &m.Reason, &value, &stamped, &cleared, &m.Error, &m.At); err != nil {
			return nil, err
		}
		if value.Valid {
			b := value.Int64 != 0
			m.Value = &b
		}
		m.Stamped = stamped != 0
		m.Cleared = cleared != 0
		out = append(out, m)
	}
	return out, rows.Err()
}
