package main

import (
	"fmt"
	"os"

	"notesort/internal/nsortcli"
)

func main() {
	if err := nsortcli.NewRootCommand().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "nsort:", err)
		os.Exit(1)
	}
}
