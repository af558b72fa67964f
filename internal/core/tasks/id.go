package tasks

import (
	"fmt"
	"regexp"
	"strconv"
)

var idPattern = regexp.MustCompile(`(?i)\bTASK-(\d+)\b`)

// FormatID renders n as TASK-NNN, zero-padded to three digits.
func FormatID(n int) string {
	return fmt.Sprintf("TASK-%03d", n)
}

// ParseID extracts the task number from a document name or id value.
func ParseID(s string) (int, bool) {
	m := idPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
