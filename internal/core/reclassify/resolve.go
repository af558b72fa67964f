package reclassify

import (
	"path"
	"strings"

	"notesort/internal/config"
	"notesort/internal/core/frontmatter"
)

// ResolveContainer joins a sub-folder onto the root scope. An empty sub
// yields the root, an empty root yields sub unchanged.
func ResolveContainer(root, sub string) string {
	root = cleanKey(root)
	sub = cleanKey(sub)
	switch {
	case sub == "":
		return root
	case root == "":
		return sub
	default:
		return root + "/" + sub
	}
}

func cleanKey(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	p = path.Clean(p)
	if p == "." {
		return ""
	}
	return p
}

// InScope reports whether docPath lies under root. Everything is in scope
// when root is empty.
func InScope(root, docPath string) bool {
	root = cleanKey(root)
	if root == "" {
		return true
	}
	return strings.HasPrefix(docPath, root+"/")
}

// Classify reads prop from fields. Only literal booleans classify; strings,
// numbers and null do not.
func Classify(fields frontmatter.Fields, prop string) (value bool, ok bool) {
	v, present := fields[prop]
	if !present {
		return false, false
	}
	b, isBool := v.(bool)
	return b, isBool
}

// Parked reports whether parent is the icebox or the enabled backlog folder.
// Documents whose property is false may rest there instead of the false
// folder.
func Parked(s config.Sort, parent string) bool {
	parent = cleanKey(parent)
	if cleanKey(s.IceboxContainer) != "" && parent == ResolveContainer(s.RootContainer, s.IceboxContainer) {
		return true
	}
	if s.EnableBacklog && cleanKey(s.BacklogContainer) != "" && parent == ResolveContainer(s.RootContainer, s.BacklogContainer) {
		return true
	}
	return false
}
