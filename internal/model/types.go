// Package model holds the JSON shapes shared by nsortd and nsort.
package model

type Status struct {
	Version       string `json:"version"`
	Root          string `json:"root"`
	StateDir      string `json:"state_dir"`
	IndexBackend  string `json:"index_backend"`
	IndexPath     string `json:"index_path"`
	Snapshots     int    `json:"snapshots"`
	InFlight      int    `json:"in_flight"`
	TaskCounter   int    `json:"task_counter"`
	Watching      bool   `json:"watching"`
	MetricsListen string `json:"metrics_listen,omitempty"`
	StartedAt     int64  `json:"started_at"`
	// Missing lists required sort options that are empty; the daemon skips
	// every notification until they are set.
	Missing []string `json:"missing,omitempty"`
}

type MoveResult struct {
	Outcome string `json:"outcome"`
	From    string `json:"from"`
	To      string `json:"to,omitempty"`
	Value   bool   `json:"value"`
	Stamped bool   `json:"stamped,omitempty"`
	Cleared bool   `json:"cleared,omitempty"`
}

type SweepResult struct {
	Scanned  int            `json:"scanned"`
	Moved    []MoveResult   `json:"moved,omitempty"`
	Outcomes map[string]int `json:"outcomes"`
	Errors   []string       `json:"errors,omitempty"`
}

type IndexStats struct {
	Documents  int   `json:"documents"`
	WithHeader int   `json:"with_header"`
	ElapsedMS  int64 `json:"elapsed_ms"`
}

type TaskCreated struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

type Move struct {
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
