package walk

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWalkIncludeExclude(t *testing.T) {
	root := t.TempDir()
	_ = os.WriteFile(filepath.Join(root, "a.md"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(root, "b.md"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(root, "c.txt"), []byte("x"), 0o644)

	files, err := ListFiles(root, Options{
		ExcludeGlobs: []string{"b.md"},
	})
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 1 || files[0] != "a.md" {
		t.Fatalf("files=%v", files)
	}
}

func TestWalkSkipsStateAndHiddenDirs(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{".nsort", ".obsidian", "Inbox"} {
		_ = os.MkdirAll(filepath.Join(root, dir), 0o755)
		_ = os.WriteFile(filepath.Join(root, dir, "n.md"), []byte("x"), 0o644)
	}

	files, err := ListFiles(root, Options{})
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 1 || files[0] != "Inbox/n.md" {
		t.Fatalf("files=%v", files)
	}
}

func TestWalkUnder(t *testing.T) {
	root := t.TempDir()
	_ = os.MkdirAll(filepath.Join(root, "Board", "Done"), 0o755)
	_ = os.WriteFile(filepath.Join(root, "Board", "Done", "x.md"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(root, "outside.md"), []byte("x"), 0o644)

	files, err := ListFiles(root, Options{Under: "Board"})
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 1 || files[0] != "Board/Done/x.md" {
		t.Fatalf("files=%v", files)
	}

	files, err = ListFiles(root, Options{Under: "Missing"})
	if err != nil {
		t.Fatalf("ListFiles missing: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("files=%v", files)
	}
}

func TestFilterRespectsGitignore(t *testing.T) {
	root := t.TempDir()
	_ = os.WriteFile(filepath.Join(root, ".gitignore"), []byte("Archive/\n"), 0o644)

	f, err := NewFilter(root, Options{})
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	if f.ShouldInclude("Archive", true) {
		t.Fatal("expected Archive to be ignored")
	}
	if !f.ShouldInclude("Inbox/a.md", false) {
		t.Fatal("expected Inbox/a.md to be included")
	}
}

func TestFilterRespectsIgnoreFile(t *testing.T) {
	root := t.TempDir()
	_ = os.WriteFile(filepath.Join(root, IgnoreFile), []byte("# templates stay put\nTemplates/\n"), 0o644)

	f, err := NewFilter(root, Options{})
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	if f.ShouldInclude("Templates", true) {
		t.Fatal("expected Templates to be ignored")
	}
}

func TestFilterCheckReportsRule(t *testing.T) {
	root := t.TempDir()
	f, err := NewFilter(root, Options{ExcludeGlobs: []string{"Drafts/*"}})
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	cases := []struct {
		rel   string
		isDir bool
		rule  string
	}{
		{".obsidian", true, RuleReserved},
		{"Inbox/.hidden.md", false, RuleHidden},
		{"Inbox/image.png", false, RuleInclude},
		{"Drafts/a.md", false, RuleExclude},
		{"Inbox/a.md", false, ""},
	}
	for _, c := range cases {
		v := f.Check(c.rel, c.isDir)
		if v.Rule != c.rule || v.Include != (c.rule == "") {
			t.Fatalf("Check(%q)=%+v want rule %q", c.rel, v, c.rule)
		}
	}
}
