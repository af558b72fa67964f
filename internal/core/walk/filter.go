package walk

import (
	"path"
	"path/filepath"
)

// Verdict says whether a vault entry is a document, and if not, which rule
// dropped it.
type Verdict struct {
	Include bool
	Rule    string
}

const (
	RuleReserved = "reserved"
	RuleHidden   = "hidden"
	RuleIgnored  = "ignored"
	RuleInclude  = "include-globs"
	RuleExclude  = "exclude-globs"
)

// Filter decides which vault entries are documents worth watching.
type Filter struct {
	opts Options
	ig   *ignoreMatcher
}

func NewFilter(root string, opts Options) (*Filter, error) {
	ig, err := loadIgnoreMatcher(root, opts.ScanAll)
	if err != nil {
		return nil, err
	}
	return &Filter{opts: opts, ig: ig}, nil
}

func (f *Filter) ShouldInclude(rel string, isDir bool) bool {
	return f.Check(rel, isDir).Include
}

// Check applies the rules in order: reserved folders, dot entries,
// ignore files, then the include and exclude globs (documents only).
func (f *Filter) Check(rel string, isDir bool) Verdict {
	if f == nil {
		return Verdict{Rule: RuleReserved}
	}
	rel = filepath.ToSlash(rel)
	name := path.Base(rel)

	if isDir && isDefaultSkippedDir(name) {
		return Verdict{Rule: RuleReserved}
	}
	if !f.opts.ScanAll {
		if isHidden(name) {
			return Verdict{Rule: RuleHidden}
		}
		if f.ig.isIgnored(rel, isDir) {
			return Verdict{Rule: RuleIgnored}
		}
	}
	if isDir {
		return Verdict{Include: true}
	}
	if !anyGlobMatch(f.opts.includes(), rel) {
		return Verdict{Rule: RuleInclude}
	}
	if anyGlobMatch(f.opts.ExcludeGlobs, rel) {
		return Verdict{Rule: RuleExclude}
	}
	return Verdict{Include: true}
}
