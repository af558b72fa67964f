package backend

import (
	"path/filepath"
	"testing"
)

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"":        "sqlite",
		"SQLite3": "sqlite",
		"bbolt":   "bolt",
		" bolt ":  "bolt",
		"other":   "other",
	}
	for in, want := range cases {
		if got := NormalizeName(in); got != want {
			t.Fatalf("NormalizeName(%q)=%q want %q", in, got, want)
		}
	}
}

func TestNormalizePath_Bolt(t *testing.T) {
	if got := NormalizePath("bolt", "state/index.db"); got != filepath.Clean("state/index.bolt") {
		t.Fatalf("got=%q", got)
	}
	if got := NormalizePath("bolt", "state/index"); got != filepath.Clean("state/index.bolt") {
		t.Fatalf("got=%q", got)
	}
	if got := NormalizePath("sqlite", "state/index.db"); got != filepath.Clean("state/index.db") {
		t.Fatalf("got=%q", got)
	}
}

func TestOpen_BothBackends(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"sqlite", "bolt"} {
		st, err := Open(name, DefaultPath(dir, name))
		if err != nil {
			t.Fatalf("open %s: %v", name, err)
		}
		if st.Backend() != name {
			t.Fatalf("backend=%q want %q", st.Backend(), name)
		}
		_ = st.Close()
	}
	if _, err := Open("bleve", filepath.Join(dir, "x")); err == nil {
		t.Fatal("expected unknown backend error")
	}
}
