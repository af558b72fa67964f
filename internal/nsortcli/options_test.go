package nsortcli

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestParseGlobalFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nsort.toml")
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"config", "path", "-c", path, "-a", " 127.0.0.1:9999 ", "--json", "-z"})
	out, opts, err := ExecuteForTest(cmd)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if opts.ConfigPath != path || opts.Addr != "127.0.0.1:9999" || !opts.JSON || !opts.NoColor {
		t.Fatalf("opts=%+v", opts)
	}
	if strings.TrimSpace(out) != path+" (missing)" {
		t.Fatalf("out=%q", out)
	}
}

func TestDaemonAddr(t *testing.T) {
	o := &Options{Addr: "127.0.0.1:1"}
	if addr, err := o.DaemonAddr(); err != nil || addr != "127.0.0.1:1" {
		t.Fatalf("addr=%q err=%v", addr, err)
	}

	o = &Options{ConfigPath: filepath.Join(t.TempDir(), "missing.toml")}
	if addr, err := o.DaemonAddr(); err != nil || addr != "127.0.0.1:7338" {
		t.Fatalf("addr=%q err=%v", addr, err)
	}
}

func TestUnreachableDaemonIsReported(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"status", "-a", "127.0.0.1:1"})
	_, _, err := ExecuteForTest(cmd)
	if err == nil || !strings.Contains(err.Error(), "not reachable") {
		t.Fatalf("expected unreachable error, got %v", err)
	}
}
