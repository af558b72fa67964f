package bolt

import (
	"path/filepath"
	"testing"

	"notesort/internal/index/store"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "index.bolt"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestBoltStore_Snapshots(t *testing.T) {
	st := openTest(t)

	if err := st.PutSnapshot(store.Snapshot{Path: "Inbox/a.md", HasHeader: true, Fields: map[string]any{"done": false}}); err != nil {
		t.Fatalf("put: %v", err)
	}
	snap, ok, err := st.GetSnapshot("Inbox/a.md")
	if err != nil || !ok {
		t.Fatalf("get ok=%v err=%v", ok, err)
	}
	if v, ok := snap.Fields["done"].(bool); !ok || v {
		t.Fatalf("done=%#v", snap.Fields["done"])
	}
	if snap.IndexedAt == 0 {
		t.Fatal("expected indexed_at to be set")
	}

	if _, ok, _ := st.GetSnapshot("missing.md"); ok {
		t.Fatal("expected miss")
	}

	if err := st.ReplaceSnapshots([]store.Snapshot{{Path: "b.md"}, {Path: "a.md"}}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	list, err := st.ListSnapshots()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Path != "a.md" || list[1].Path != "b.md" {
		t.Fatalf("list=%+v", list)
	}
	n, err := st.CountSnapshots()
	if err != nil || n != 2 {
		t.Fatalf("count=%d err=%v", n, err)
	}
	if err := st.DeleteSnapshot("a.md"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := st.GetSnapshot("a.md"); ok {
		t.Fatal("expected a.md deleted")
	}
}

func TestBoltStore_MovesNewestFirst(t *testing.T) {
	st := openTest(t)
	f := false
	for _, to := range []string{"Inbox/a.md", "Done/a.md", "Inbox/a.md"} {
		if _, err := st.RecordMove(store.Move{From: "x", To: to, Value: &f}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	moves, err := st.ListMoves(2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(moves) != 2 || moves[0].To != "Inbox/a.md" || moves[1].To != "Done/a.md" {
		t.Fatalf("moves=%+v", moves)
	}
	if moves[0].ID == "" || moves[0].Value == nil || *moves[0].Value {
		t.Fatalf("moves[0]=%+v", moves[0])
	}
}
