package reclassify

import (
	"testing"
	"time"

	"notesort/internal/config"
	"notesort/internal/core/frontmatter"
)

func TestResolveContainer(t *testing.T) {
	cases := []struct {
		root, sub, want string
	}{
		{"", "", ""},
		{"", "Done", "Done"},
		{"Projects", "", "Projects"},
		{"Projects", "Done", "Projects/Done"},
		{"/Projects/", "/Done/", "Projects/Done"},
		{"Work/Projects", "Archive/Done", "Work/Projects/Archive/Done"},
	}
	for _, c := range cases {
		if got := ResolveContainer(c.root, c.sub); got != c.want {
			t.Fatalf("ResolveContainer(%q,%q)=%q want %q", c.root, c.sub, got, c.want)
		}
	}
}

func TestInScope(t *testing.T) {
	if !InScope("", "a.md") || !InScope("P", "P/a.md") {
		t.Fatal("expected in scope")
	}
	if InScope("P", "P.md") || InScope("P", "PX/a.md") || InScope("P", "Q/P/a.md") {
		t.Fatal("expected out of scope")
	}
}

func TestClassify(t *testing.T) {
	f := frontmatter.Fields{"t": true, "f": false, "s": "true", "n": nil, "i": 1}
	if v, ok := Classify(f, "t"); !ok || !v {
		t.Fatal("t")
	}
	if v, ok := Classify(f, "f"); !ok || v {
		t.Fatal("f")
	}
	for _, k := range []string{"s", "n", "i", "missing"} {
		if _, ok := Classify(f, k); ok {
			t.Fatalf("%s must not classify", k)
		}
	}
}

func TestParked(t *testing.T) {
	s := config.Sort{RootContainer: "Work", IceboxContainer: "Icebox", BacklogContainer: "Backlog"}
	if !Parked(s, "Work/Icebox") {
		t.Fatal("icebox must be parked")
	}
	if Parked(s, "Work/Backlog") {
		t.Fatal("backlog is parked only when enabled")
	}
	s.EnableBacklog = true
	if !Parked(s, "Work/Backlog") {
		t.Fatal("enabled backlog must be parked")
	}
	if Parked(s, "Work") || Parked(config.Sort{RootContainer: "Work"}, "Work") {
		t.Fatal("root scope is never parked")
	}
}

func TestGuard_ReleaseOnlyDropsOwnEntry(t *testing.T) {
	g := NewGuard()
	release, ok := g.TryAcquire("a.md")
	if !ok {
		t.Fatal("acquire")
	}
	if _, ok := g.TryAcquire("a.md"); ok {
		t.Fatal("double acquire")
	}
	release()
	again, ok := g.TryAcquire("a.md")
	if !ok {
		t.Fatal("reacquire")
	}
	release()
	if !g.Held("a.md") {
		t.Fatal("stale release dropped a newer entry")
	}
	again()
	if g.Held("a.md") {
		t.Fatal("entry left behind")
	}
}

func TestGuard_HoldExpires(t *testing.T) {
	g := NewGuard()
	if !g.Hold("new.md", 20*time.Millisecond) {
		t.Fatal("hold")
	}
	if !g.Held("new.md") {
		t.Fatal("not held")
	}
	deadline := time.Now().Add(2 * time.Second)
	for g.Held("new.md") {
		if time.Now().After(deadline) {
			t.Fatal("hold never released")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
