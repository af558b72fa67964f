package frontmatter

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParse_ScalarTypes(t *testing.T) {
	src := "---\ndone: true\nlabel: \"true\"\ncount: 1\nempty:\n---\n# Title\n"
	fields, body, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v, ok := fields["done"].(bool); !ok || !v {
		t.Fatalf("done=%#v", fields["done"])
	}
	if v, ok := fields["label"].(string); !ok || v != "true" {
		t.Fatalf("label=%#v", fields["label"])
	}
	if v, ok := fields["count"].(int); !ok || v != 1 {
		t.Fatalf("count=%#v", fields["count"])
	}
	if v, ok := fields["empty"]; !ok || v != nil {
		t.Fatalf("empty=%#v ok=%v", v, ok)
	}
	if string(body) != "# Title\n" {
		t.Fatalf("body=%q", string(body))
	}
}

func TestParse_MissingAndMalformed(t *testing.T) {
	if _, _, err := Parse([]byte("# no header\n")); !errors.Is(err, ErrMissingFrontMatter) {
		t.Fatalf("expected ErrMissingFrontMatter, got %v", err)
	}
	if _, _, err := Parse([]byte("---\ndone: true\n")); !errors.Is(err, ErrMalformedFrontMatter) {
		t.Fatalf("expected ErrMalformedFrontMatter, got %v", err)
	}
	if _, _, err := Parse([]byte("---\n- a\n- b\n---\n")); !errors.Is(err, ErrMalformedFrontMatter) {
		t.Fatalf("expected ErrMalformedFrontMatter for sequence header, got %v", err)
	}
}

func TestParse_EmptyHeader(t *testing.T) {
	fields, body, err := Parse([]byte("---\n---\nbody"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(fields) != 0 {
		t.Fatalf("fields=%v", fields)
	}
	if string(body) != "body" {
		t.Fatalf("body=%q", string(body))
	}
}

func TestPatch_PreservesOrderAndBody(t *testing.T) {
	body := "Line one\n\n---\nnot a fence for us\n  indented\n"
	src := "---\ntitle: Write docs\ndone: false\ntags: [a, b]\n---\n" + body

	out, changed, err := Patch([]byte(src), func(f Fields) {
		f["done"] = true
	})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if !changed {
		t.Fatal("expected change")
	}
	s := string(out)
	if !strings.HasSuffix(s, "---\n"+body) {
		t.Fatalf("body not preserved: %q", s)
	}
	ti := strings.Index(s, "title:")
	di := strings.Index(s, "done: true")
	gi := strings.Index(s, "tags:")
	if ti < 0 || di < 0 || gi < 0 || !(ti < di && di < gi) {
		t.Fatalf("key order changed: %q", s)
	}
}

func TestPatch_DeleteAndNoop(t *testing.T) {
	src := "---\ndone: false\ncompleted_date: 2024-01-02T03:04:05+00:00\n---\nbody\n"

	out, changed, err := Patch([]byte(src), func(f Fields) {
		delete(f, "completed_date")
	})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if !changed || strings.Contains(string(out), "completed_date") {
		t.Fatalf("changed=%v out=%q", changed, string(out))
	}

	same, changed, err := Patch(out, func(f Fields) {
		delete(f, "completed_date")
	})
	if err != nil {
		t.Fatalf("patch2: %v", err)
	}
	if changed || string(same) != string(out) {
		t.Fatalf("expected untouched output, changed=%v", changed)
	}
}

func TestPatch_TimestampRoundTrip(t *testing.T) {
	zone := time.FixedZone("X", 2*60*60)
	stamp := time.Date(2024, 5, 6, 7, 8, 9, 0, zone)

	out, _, err := Patch([]byte("---\ndone: true\n---\n"), func(f Fields) {
		f["completed_date"] = stamp
	})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if !strings.Contains(string(out), "completed_date: 2024-05-06T07:08:09+02:00") {
		t.Fatalf("out=%q", string(out))
	}

	fields, _, err := Parse(out)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got, ok := TimeValue(fields["completed_date"])
	if !ok || !got.Equal(stamp) {
		t.Fatalf("completed_date=%#v", fields["completed_date"])
	}
}

func TestPatch_AddsHeaderWhenMissing(t *testing.T) {
	out, changed, err := Patch([]byte("plain body\n"), func(f Fields) {
		f["done"] = false
	})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if !changed || string(out) != "---\ndone: false\n---\nplain body\n" {
		t.Fatalf("out=%q", string(out))
	}
}

func TestPatch_KeepsCRLF(t *testing.T) {
	src := "---\r\ndone: true\r\n---\r\nbody\r\n"
	out, _, err := Patch([]byte(src), func(f Fields) {
		f["id"] = "TASK-001"
	})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	want := "---\r\ndone: true\r\nid: TASK-001\r\n---\r\nbody\r\n"
	if string(out) != want {
		t.Fatalf("out=%q", string(out))
	}
}

func TestTimestamp_NumericOffset(t *testing.T) {
	s := Timestamp(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if s != "2024-01-01T00:00:00+00:00" {
		t.Fatalf("timestamp=%q", s)
	}
}

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		v    any
		want bool
	}{
		{nil, true},
		{"", true},
		{"  ", true},
		{time.Time{}, true},
		{"2024-01-01", false},
		{false, false},
	}
	for _, c := range cases {
		if got := IsEmpty(c.v); got != c.want {
			t.Fatalf("IsEmpty(%#v)=%v", c.v, got)
		}
	}
}

func TestParse_NestedNonStringKeys(t *testing.T) {
	src := "---\ndone: false\nscores:\n  1: gold\nflags:\n  true: x\nrows:\n  - 2: b\n---\n"
	fields, _, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	scores, ok := fields["scores"].(map[string]any)
	if !ok || scores["1"] != "gold" {
		t.Fatalf("scores=%#v", fields["scores"])
	}
	flags, ok := fields["flags"].(map[string]any)
	if !ok || flags["true"] != "x" {
		t.Fatalf("flags=%#v", fields["flags"])
	}
	rows, ok := fields["rows"].([]any)
	if !ok || len(rows) != 1 {
		t.Fatalf("rows=%#v", fields["rows"])
	}
	if row, ok := rows[0].(map[string]any); !ok || row["2"] != "b" {
		t.Fatalf("row=%#v", rows[0])
	}

	out, _, err := Patch([]byte(src), func(f Fields) { f["done"] = true })
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if !strings.Contains(string(out), "scores:\n  1: gold\n") {
		t.Fatalf("nested mapping rewritten: %q", out)
	}
}

func TestPatch_KeepsMergeKey(t *testing.T) {
	src := "---\nbase: &base\n  owner: ana\n<<: *base\ndone: false\n---\nbody\n"
	fields, _, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if fields["owner"] != "ana" {
		t.Fatalf("merged owner=%#v", fields["owner"])
	}

	out, changed, err := Patch([]byte(src), func(f Fields) { f["done"] = true })
	if err != nil || !changed {
		t.Fatalf("changed=%v err=%v", changed, err)
	}
	want := "---\nbase: &base\n  owner: ana\n<<: *base\ndone: true\n---\nbody\n"
	if string(out) != want {
		t.Fatalf("out=%q", out)
	}
	again, _, err := Parse(out)
	if err != nil || again["owner"] != "ana" {
		t.Fatalf("owner=%#v err=%v", again["owner"], err)
	}
}
