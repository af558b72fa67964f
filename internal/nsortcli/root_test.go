package nsortcli

import (
	"bytes"
	"strings"
	"testing"
)

func TestHelpContainsSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--help"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	s := out.String()
	for _, want := range []string{"nsort", "reclassify", "sweep", "task", "history", "config"} {
		if !strings.Contains(s, want) {
			t.Fatalf("help missing %q: %s", want, s)
		}
	}
}

func TestDaemonHelp(t *testing.T) {
	cmd := NewDaemonCommand()
	cmd.SetArgs([]string{"--help"})
	out, _, err := ExecuteForTest(cmd)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "--listen") || !strings.Contains(out, "--sweep") {
		t.Fatalf("help=%s", out)
	}
}

func TestDaemonRequiresVaultRoot(t *testing.T) {
	cmd := NewDaemonCommand()
	cmd.SetArgs([]string{"-c", t.TempDir() + "/missing.toml"})
	_, _, err := ExecuteForTest(cmd)
	if err == nil || !strings.Contains(err.Error(), "vault.root") {
		t.Fatalf("expected vault.root error, got %v", err)
	}
}
