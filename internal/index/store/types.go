package store

// Snapshot is the indexed frontmatter of one document as of its last
// refresh. HasHeader is false for documents without a frontmatter block.
type Snapshot struct {
	Path      string
	Size      int64
	MTime     int64
	HasHeader bool
	Fields    map[string]any
	IndexedAt int64
}

// Move is one journal entry written by the reclassifier or a task command.
type Move struct {
	ID      string
	From    string
	To      string
	Reason  string
	Value   *bool
	Stamped bool
	Cleared bool
	Error   string
	At      int64
}

const (
	ReasonClassify  = "classify"
	ReasonIcebox    = "icebox"
	ReasonUnbacklog = "unbacklog"
	ReasonCreate    = "create"
)

type Store interface {
	Close() error
	Backend() string

	PutSnapshot(s Snapshot) error
	GetSnapshot(path string) (Snapshot, bool, error)
	DeleteSnapshot(path string) error
	ListSnapshots() ([]Snapshot, error)
	CountSnapshots() (int, error)
	// ReplaceSnapshots swaps the whole index for snaps in one transaction.
	ReplaceSnapshots(snaps []Snapshot) error

	RecordMove(m Move) (Move, error)
	// ListMoves returns the newest entries first; limit <= 0 means all.
	ListMoves(limit int) ([]Move, error)
}

// BuildTuner is implemented by backends that can relax durability while the
// index is rebuilt.
type BuildTuner interface {
	TuneForBuild() error
}
