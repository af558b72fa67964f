package reclassify

import (
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// CreationGrace is how long a path created by a command stays guarded so its
// own change notification does not classify half-written content.
const CreationGrace = 2 * time.Second

type holdToken struct {
	path string
}

// Guard is the set of document paths currently being worked on. It only
// blocks re-entry: a suppressed caller is turned away, never queued.
type Guard struct {
	held *xsync.MapOf[string, *holdToken]
}

func NewGuard() *Guard {
	return &Guard{held: xsync.NewMapOf[string, *holdToken]()}
}

// TryAcquire adds path to the set. ok is false when it is already present.
// release is idempotent and only removes the entry this call added.
func (g *Guard) TryAcquire(path string) (release func(), ok bool) {
	tok := &holdToken{path: path}
	if _, loaded := g.held.LoadOrStore(path, tok); loaded {
		return func() {}, false
	}
	return func() { g.drop(path, tok) }, true
}

// Hold guards path for d and then releases it.
func (g *Guard) Hold(path string, d time.Duration) bool {
	release, ok := g.TryAcquire(path)
	if !ok {
		return false
	}
	time.AfterFunc(d, release)
	return true
}

func (g *Guard) Held(path string) bool {
	_, ok := g.held.Load(path)
	return ok
}

func (g *Guard) Len() int {
	return g.held.Size()
}

func (g *Guard) drop(path string, tok *holdToken) {
	g.held.Compute(path, func(old *holdToken, loaded bool) (*holdToken, bool) {
		return old, loaded && old == tok
	})
}
