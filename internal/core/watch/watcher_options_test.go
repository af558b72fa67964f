package watch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"
)

func TestNewWatcher_Debounce(t *testing.T) {
	root := t.TempDir()
	_ = os.WriteFile(filepath.Join(root, "a.md"), []byte("hello\n"), 0o644)

	w, err := NewWatcher(root, Options{
		Debounce:   50 * time.Millisecond,
		UpdateFunc: func([]string) {},
	})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })

	if w.Debounce() != 50*time.Millisecond {
		t.Fatalf("expected debounce 50ms, got=%v", w.Debounce())
	}
}

func TestNewWatcher_RequiresUpdateFunc(t *testing.T) {
	if _, err := NewWatcher(t.TempDir(), Options{}); err == nil {
		t.Fatal("expected error")
	}
}

type collector struct {
	mu    sync.Mutex
	paths map[string]bool
}

func (c *collector) add(paths []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range paths {
		c.paths[p] = true
	}
}

func (c *collector) waitFor(t *testing.T, want ...string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		all := true
		for _, p := range want {
			if !c.paths[p] {
				all = false
			}
		}
		c.mu.Unlock()
		if all {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var got []string
	for p := range c.paths {
		got = append(got, p)
	}
	sort.Strings(got)
	t.Fatalf("timed out waiting for %v, got %v", want, got)
}

func (c *collector) has(p string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paths[p]
}

func TestWatcher_ReportsDocumentsOnly(t *testing.T) {
	root := t.TempDir()
	_ = os.MkdirAll(filepath.Join(root, "Inbox"), 0o755)
	_ = os.MkdirAll(filepath.Join(root, "state"), 0o755)

	c := &collector{paths: map[string]bool{}}
	w, err := NewWatcher(root, Options{
		Debounce:   30 * time.Millisecond,
		IgnoreDirs: []string{"state"},
		UpdateFunc: c.add,
	})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = w.Close()
	})
	go func() { _ = w.Run(ctx) }()

	_ = os.WriteFile(filepath.Join(root, "Inbox", "a.md"), []byte("---\ndone: true\n---\n"), 0o644)
	_ = os.WriteFile(filepath.Join(root, "Inbox", "image.png"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(root, "state", "index.md"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(root, "Inbox", ".a.md.123.tmp"), []byte("x"), 0o644)

	c.waitFor(t, "Inbox/a.md")
	time.Sleep(100 * time.Millisecond)
	for _, p := range []string{"Inbox/image.png", "state/index.md", "Inbox/.a.md.123.tmp"} {
		if c.has(p) {
			t.Fatalf("unexpected event for %s", p)
		}
	}
}

func TestWatcher_NewFolderReportsContents(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	_ = os.MkdirAll(filepath.Join(outside, "Project", "Sub"), 0o755)
	_ = os.WriteFile(filepath.Join(outside, "Project", "Sub", "b.md"), []byte("x"), 0o644)

	c := &collector{paths: map[string]bool{}}
	w, err := NewWatcher(root, Options{Debounce: 30 * time.Millisecond, UpdateFunc: c.add})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = w.Close()
	})
	go func() { _ = w.Run(ctx) }()

	if err := os.Rename(filepath.Join(outside, "Project"), filepath.Join(root, "Project")); err != nil {
		t.Skipf("cross-directory rename unavailable: %v", err)
	}
	c.waitFor(t, "Project/Sub/b.md")
}
