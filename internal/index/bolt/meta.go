package bolt

import (
	"encoding/binary"
	"encoding/json"
	"errors"
)

const (
	bucketSnapshots = "snapshots"
	bucketMoves     = "moves"
)

var errDecode = errors.New("bolt: empty record")

type snapshotRecord struct {
	Size      int64          `json:"size"`
	MTime     int64          `json:"mtime"`
	HasHeader bool           `json:"has_header"`
	Fields    map[string]any `json:"fields"`
	IndexedAt int64          `json:"indexed_at"`
}

type moveRecord struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	To      string `json:"to"`
	Reason  string `json:"reason"`
	Value   *bool  `json:"value,omitempty"`
	Stamped bool   `json:"stamped,omitempty"`
	Cleared bool   `json:"cleared,omitempty"`
	Error   string `json:"error,omitempty"`
	At      int64  `json:"at"`
}

func encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func decode(data []byte, target any) error {
	if len(data) == 0 {
		return errDecode
	}
	return json.Unmarshal(data, target)
}

func seqKey(seq uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], seq)
	return b[:]
}
