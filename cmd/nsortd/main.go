package main

import (
	"fmt"
	"os"

	"notesort/internal/nsortcli"
)

func main() {
	if err := nsortcli.NewDaemonCommand().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "nsortd:", err)
		os.Exit(1)
	}
}
