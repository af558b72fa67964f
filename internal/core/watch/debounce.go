package watch

import (
	"strings"
	"sync"
	"time"
)

// Debouncer fires each path once it has been quiet for the quiet window.
// A path that keeps changing still fires after maxWait from its first push.
// Paths are tracked independently: a busy document never delays another.
type Debouncer struct {
	quiet   time.Duration
	maxWait time.Duration

	mu      sync.Mutex
	pending map[string]*pendingPath
	seq     uint64
	onFire  func(paths []string)
}

type pendingPath struct {
	first time.Time
	gen   uint64
	timer *time.Timer
}

// NewDebouncer returns a debouncer with the given quiet window. maxWait <= 0
// means ten times the window.
func NewDebouncer(quiet, maxWait time.Duration) *Debouncer {
	if quiet <= 0 {
		quiet = 200 * time.Millisecond
	}
	if maxWait <= 0 {
		maxWait = 10 * quiet
	}
	if maxWait < quiet {
		maxWait = quiet
	}
	return &Debouncer{
		quiet:   quiet,
		maxWait: maxWait,
		pending: map[string]*pendingPath{},
	}
}

func (d *Debouncer) OnFire(fn func(paths []string)) {
	if d == nil {
		return
	}
	d.mu.Lock()
	d.onFire = fn
	d.mu.Unlock()
}

// Pending reports how many paths are waiting to fire.
func (d *Debouncer) Pending() int {
	if d == nil {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

func (d *Debouncer) Push(path string) {
	if d == nil {
		return
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return
	}

	now := time.Now()
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.pending[path]
	if !ok {
		p = &pendingPath{first: now}
		d.pending[path] = p
	} else if p.timer != nil {
		_ = p.timer.Stop()
	}

	delay := d.quiet
	if left := d.maxWait - now.Sub(p.first); left < delay {
		delay = max(left, 0)
	}
	d.seq++
	gen := d.seq
	p.gen = gen
	p.timer = time.AfterFunc(delay, func() { d.fire(path, gen) })
}

// Stop cancels every pending fire.
func (d *Debouncer) Stop() {
	if d == nil {
		return
	}
	d.mu.Lock()
	for _, p := range d.pending {
		if p.timer != nil {
			_ = p.timer.Stop()
		}
	}
	d.pending = map[string]*pendingPath{}
	d.mu.Unlock()
}

func (d *Debouncer) fire(path string, gen uint64) {
	d.mu.Lock()
	p, ok := d.pending[path]
	if !ok || p.gen != gen {
		// Re-armed or stopped after this timer was scheduled.
		d.mu.Unlock()
		return
	}
	delete(d.pending, path)
	fn := d.onFire
	d.mu.Unlock()

	if fn != nil {
		fn([]string{path})
	}
}
