package nsortcli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"notesort/internal/config"
	"notesort/internal/model"
	"notesort/internal/nsortd"
)

func startDaemon(t *testing.T) (root string, addr string) {
	t.Helper()
	root = t.TempDir()
	cfg := config.Default()
	cfg.Vault.Root = root
	cfg.Vault.StateDir = filepath.Join(root, ".nsort")
	cfg.Daemon.Listen = "127.0.0.1:0"
	cfg.Sort.EnableBacklog = true

	if err := os.MkdirAll(filepath.Join(root, "Inbox"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "Inbox", "a.md"), []byte("---\ndone: true\n---\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	svc, err := nsortd.New(&cfg, "", nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return root, svc.Addr()
}

func TestCLI_AgainstDaemon(t *testing.T) {
	root, addr := startDaemon(t)

	cmd := NewRootCommand()
	cmd.SetArgs([]string{"status", "-a", addr, "--json"})
	out, _, err := ExecuteForTest(cmd)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var st model.Status
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		t.Fatalf("status json: %v (%s)", err, out)
	}
	if st.Root != root || st.Snapshots != 1 {
		t.Fatalf("status=%+v", st)
	}

	cmd = NewRootCommand()
	cmd.SetArgs([]string{"reclassify", "-a", addr, "Inbox/a.md"})
	out, _, err = ExecuteForTest(cmd)
	if err != nil || !strings.Contains(out, "moved: Inbox/a.md -> Done/a.md") {
		t.Fatalf("reclassify out=%q err=%v", out, err)
	}

	cmd = NewRootCommand()
	cmd.SetArgs([]string{"task", "new", "-a", addr, "Plan", "trip"})
	out, _, err = ExecuteForTest(cmd)
	if err != nil || strings.TrimSpace(out) != "TASK-001 Backlog/TASK-001 Plan trip.md" {
		t.Fatalf("task new out=%q err=%v", out, err)
	}

	cmd = NewRootCommand()
	cmd.SetArgs([]string{"history", "-a", addr, "-n", "5"})
	out, _, err = ExecuteForTest(cmd)
	if err != nil || !strings.Contains(out, "classify") || !strings.Contains(out, "create") {
		t.Fatalf("history out=%q err=%v", out, err)
	}

	cmd = NewRootCommand()
	cmd.SetArgs([]string{"config", "set", "-a", addr, "bogus", "x"})
	if _, _, err := ExecuteForTest(cmd); err == nil || !strings.Contains(err.Error(), "unknown option") {
		t.Fatalf("expected daemon rejection, got %v", err)
	}

	cmd = NewRootCommand()
	cmd.SetArgs([]string{"reclassify", "-a", addr, "../outside.md"})
	if _, _, err := ExecuteForTest(cmd); err == nil {
		t.Fatal("expected failure for path outside the vault")
	}
}
