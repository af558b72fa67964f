// Package frontmatter reads and rewrites the `---` fenced YAML header of
// Markdown documents. Rewrites touch only the header: untouched keys keep
// their order and style and the body is carried over byte-for-byte.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingFrontMatter indicates the document did not start with a YAML fence.
	ErrMissingFrontMatter = errors.New("frontmatter: missing frontmatter")
	// ErrMalformedFrontMatter indicates the fenced block is unterminated or not a mapping.
	ErrMalformedFrontMatter = errors.New("frontmatter: malformed frontmatter")
)

// TimeLayout is the completion timestamp layout: ISO-8601 with an explicit
// numeric offset, never "Z".
const TimeLayout = "2006-01-02T15:04:05-07:00"

// Fields is the decoded header: key to scalar (bool, string, int, float64,
// nil) or whatever nested value yaml.v3 produced.
type Fields map[string]any

// Clone returns a shallow copy.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

type document struct {
	eol    string
	header []byte
	body   []byte
}

func split(content []byte) (document, error) {
	var eol string
	switch {
	case bytes.HasPrefix(content, []byte("---\r\n")):
		eol = "\r\n"
	case bytes.HasPrefix(content, []byte("---\n")):
		eol = "\n"
	default:
		return document{}, ErrMissingFrontMatter
	}

	start := 3 + len(eol)
	pos := start
	for pos <= len(content) {
		next := bytes.IndexByte(content[pos:], '\n')
		var line []byte
		end := len(content)
		if next >= 0 {
			end = pos + next + 1
			line = content[pos : pos+next]
		} else {
			line = content[pos:]
		}
		if string(bytes.TrimRight(line, "\r")) == "---" {
			return document{
				eol:    eol,
				header: content[start:pos],
				body:   content[end:],
			}, nil
		}
		if next < 0 {
			break
		}
		pos = end
	}
	return document{}, ErrMalformedFrontMatter
}

// Split returns the fenced header, both fences included, and the body.
func Split(content []byte) (head, body []byte, err error) {
	d, err := split(content)
	if err != nil {
		return nil, content, err
	}
	return content[:len(content)-len(d.body)], d.body, nil
}

func decodeHeader(header []byte) (*yaml.Node, *yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(header, &doc); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedFrontMatter, err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		return &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{m}}, m, nil
	}
	m := doc.Content[0]
	if m.Kind == yaml.ScalarNode && m.Tag == "!!null" {
		m = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		doc.Content[0] = m
	}
	if m.Kind != yaml.MappingNode {
		return nil, nil, ErrMalformedFrontMatter
	}
	return &doc, m, nil
}

func decodeFields(m *yaml.Node) (Fields, error) {
	fields := Fields{}
	if len(m.Content) == 0 {
		return fields, nil
	}
	raw := map[string]any{}
	if err := m.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrontMatter, err)
	}
	for k, v := range raw {
		fields[k] = stringKeys(v)
	}
	return fields, nil
}

// stringKeys rewrites nested mappings with non-string keys, which yaml.v3
// decodes as map[any]any, into map[string]any so fields stay JSON-encodable.
func stringKeys(v any) any {
	switch tv := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(tv))
		for k, val := range tv {
			out[fmt.Sprint(k)] = stringKeys(val)
		}
		return out
	case map[string]any:
		for k, val := range tv {
			tv[k] = stringKeys(val)
		}
		return tv
	case []any:
		for i, val := range tv {
			tv[i] = stringKeys(val)
		}
		return tv
	default:
		return v
	}
}

// Parse returns the header fields and the body of content.
func Parse(content []byte) (Fields, []byte, error) {
	d, err := split(content)
	if err != nil {
		return nil, nil, err
	}
	_, m, err := decodeHeader(d.header)
	if err != nil {
		return nil, nil, err
	}
	fields, err := decodeFields(m)
	if err != nil {
		return nil, nil, err
	}
	return fields, d.body, nil
}

// Patch applies fn to the decoded header and renders the result. Keys fn
// leaves alone keep their original nodes; deleted keys are dropped; new keys
// are appended in sorted order. A document without a header gets one when fn
// adds keys. changed reports whether the header differs from the input.
func Patch(content []byte, fn func(Fields)) (out []byte, changed bool, err error) {
	d, err := split(content)
	if errors.Is(err, ErrMissingFrontMatter) {
		d = document{eol: "\n", body: content}
	} else if err != nil {
		return nil, false, err
	}

	doc, m, err := decodeHeader(d.header)
	if err != nil {
		return nil, false, err
	}
	before, err := decodeFields(m)
	if err != nil {
		return nil, false, err
	}

	after := before.Clone()
	if fn != nil {
		fn(after)
	}

	kept := make([]*yaml.Node, 0, len(m.Content))
	seen := map[string]bool{}
	for i := 0; i+1 < len(m.Content); i += 2 {
		key, val := m.Content[i], m.Content[i+1]
		if key.ShortTag() == "!!merge" {
			// The merged keys are already expanded into the fields.
			kept = append(kept, key, val)
			continue
		}
		v, ok := after[key.Value]
		if !ok {
			changed = true
			continue
		}
		seen[key.Value] = true
		if !reflect.DeepEqual(before[key.Value], v) {
			nv, err := valueNode(v)
			if err != nil {
				return nil, false, err
			}
			val = nv
			changed = true
		}
		kept = append(kept, key, val)
	}

	var added []string
	for k, v := range after {
		if seen[k] {
			continue
		}
		if old, ok := before[k]; ok && reflect.DeepEqual(old, v) {
			// Supplied by a merge key and left alone.
			continue
		}
		added = append(added, k)
	}
	sort.Strings(added)
	for _, k := range added {
		nv, err := valueNode(after[k])
		if err != nil {
			return nil, false, err
		}
		kept = append(kept, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, nv)
		changed = true
	}
	if !changed {
		return content, false, nil
	}
	m.Content = kept

	header, err := renderHeader(doc, m)
	if err != nil {
		return nil, false, err
	}

	var buf bytes.Buffer
	buf.WriteString("---" + d.eol)
	if len(header) > 0 {
		if d.eol != "\n" {
			header = bytes.ReplaceAll(header, []byte("\n"), []byte(d.eol))
		}
		buf.Write(header)
	}
	buf.WriteString("---" + d.eol)
	buf.Write(d.body)
	return buf.Bytes(), true, nil
}

func renderHeader(doc *yaml.Node, m *yaml.Node) ([]byte, error) {
	if len(m.Content) == 0 && doc.HeadComment == "" && m.HeadComment == "" {
		return nil, nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("frontmatter: encode header: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("frontmatter: encode header: %w", err)
	}
	return buf.Bytes(), nil
}

func valueNode(v any) (*yaml.Node, error) {
	if t, ok := v.(time.Time); ok {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!timestamp", Value: Timestamp(t)}, nil
	}
	n := &yaml.Node{}
	if err := n.Encode(v); err != nil {
		return nil, fmt.Errorf("frontmatter: encode value: %w", err)
	}
	return n, nil
}

// Timestamp formats t in its own zone with an explicit offset.
func Timestamp(t time.Time) string {
	return t.Format(TimeLayout)
}

// TimeValue interprets a header value as a timestamp. yaml.v3 hands plain
// timestamps to interface targets as strings, so both forms are accepted.
func TimeValue(v any) (time.Time, bool) {
	switch tv := v.(type) {
	case time.Time:
		return tv, true
	case string:
		s := strings.TrimSpace(tv)
		for _, layout := range []string{TimeLayout, time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// IsEmpty reports whether a header value counts as absent: nil, blank
// string, or the zero time.
func IsEmpty(v any) bool {
	switch tv := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(tv) == ""
	case time.Time:
		return tv.IsZero()
	default:
		return false
	}
}
