package sqlite

import (
	"testing"

	"notesort/internal/index/store"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	dbPath := t.TempDir() + "/index.db"
	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutAndGetSnapshot(t *testing.T) {
	s := openTest(t)
	err := s.PutSnapshot(store.Snapshot{
		Path:      "Inbox/a.md",
		Size:      12,
		MTime:     34,
		HasHeader: true,
		Fields:    map[string]any{"done": true, "title": "A", "empty": nil},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	snap, ok, err := s.GetSnapshot("Inbox/a.md")
	if err != nil || !ok {
		t.Fatalf("get ok=%v err=%v", ok, err)
	}
	if snap.Size != 12 || snap.MTime != 34 || !snap.HasHeader {
		t.Fatalf("snap=%+v", snap)
	}
	if v, ok := snap.Fields["done"].(bool); !ok || !v {
		t.Fatalf("done=%#v", snap.Fields["done"])
	}
	if v, ok := snap.Fields["empty"]; !ok || v != nil {
		t.Fatalf("empty=%#v", v)
	}
}

func TestPutSnapshot_UpdatesExisting(t *testing.T) {
	s := openTest(t)
	_ = s.PutSnapshot(store.Snapshot{Path: "a.md", Size: 1, Fields: map[string]any{"done": false}})
	_ = s.PutSnapshot(store.Snapshot{Path: "a.md", Size: 2, Fields: map[string]any{"done": true}})

	snap, _, err := s.GetSnapshot("a.md")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if snap.Size != 2 || snap.Fields["done"] != true {
		t.Fatalf("snap=%+v", snap)
	}
	n, err := s.CountSnapshots()
	if err != nil || n != 1 {
		t.Fatalf("count=%d err=%v", n, err)
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestGetSnapshot_NotFound(t *testing.T) {
	s := openTest(t)
	_, ok, err := s.GetSnapshot("missing.md")
	if err != nil || ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if err := s.PutSnapshot(store.Snapshot{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestReplaceSnapshots_DropsStale(t *testing.T) {
	s := openTest(t)
	_ = s.PutSnapshot(store.Snapshot{Path: "old.md"})

	err := s.ReplaceSnapshots([]store.Snapshot{{Path: "b.md"}, {Path: "a.md"}})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	list, err := s.ListSnapshots()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Path != "a.md" || list[1].Path != "b.md" {
		t.Fatalf("list=%+v", list)
	}

	_ = s.DeleteSnapshot("a.md")
	if _, ok, _ := s.GetSnapshot("a.md"); ok {
		t.Fatal("expected a.md deleted")
	}
}

func TestMovesJournal_NewestFirst(t *testing.T) {
	s := openTest(t)
	v := true
	first, err := s.RecordMove(store.Move{From: "Inbox/a.md", To: "Done/a.md", Value: &v, Stamped: true})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if first.ID == "" || first.At == 0 || first.Reason != store.ReasonClassify {
		t.Fatalf("first=%+v", first)
	}
	if _, err := s.RecordMove(store.Move{From: "Inbox/b.md", To: "Icebox/b.md", Reason: store.ReasonIcebox}); err != nil {
		t.Fatalf("record2: %v", err)
	}

	moves, err := s.ListMoves(0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(moves) != 2 || moves[0].Reason != store.ReasonIcebox || moves[0].Value != nil {
		t.Fatalf("moves=%+v", moves)
	}
	if moves[1].Value == nil || !*moves[1].Value || !moves[1].Stamped {
		t.Fatalf("moves[1]=%+v", moves[1])
	}

	limited, err := s.ListMoves(1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("limited=%+v err=%v", limited, err)
	}
}
