// Package vault is the document storage of a notesort vault: a directory
// tree of Markdown documents addressed by slash-separated relative paths.
package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"notesort/internal/core/walk"
)

var (
	ErrNotFound = errors.New("vault: not found")
	ErrExists   = errors.New("vault: already exists")
	ErrOutside  = errors.New("vault: path escapes vault root")
)

// Kind classifies what occupies a vault path.
type Kind int

const (
	KindMissing Kind = iota
	KindFile
	KindContainer
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindContainer:
		return "container"
	default:
		return "missing"
	}
}

// Document is a file in the vault. Parent is "" for the vault root.
type Document struct {
	Path   string
	Name   string
	Parent string
}

// NewDocument derives name and parent from a vault-relative path.
func NewDocument(rel string) Document {
	rel = Clean(rel)
	parent := path.Dir(rel)
	if parent == "." {
		parent = ""
	}
	return Document{Path: rel, Name: path.Base(rel), Parent: parent}
}

// Clean normalises a vault-relative path: forward slashes, no leading or
// trailing slash, no "." segments. The vault root is "".
func Clean(rel string) string {
	rel = strings.TrimSpace(filepath.ToSlash(rel))
	rel = strings.Trim(rel, "/")
	if rel == "" {
		return ""
	}
	rel = path.Clean(rel)
	if rel == "." {
		return ""
	}
	return rel
}

type Options struct {
	IncludeGlobs []string
	ExcludeGlobs []string
}

type Vault struct {
	root   string
	opts   walk.Options
	filter *walk.Filter
}

func Open(root string, opts Options) (*Vault, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("vault root is required")
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	rootAbs = filepath.Clean(rootAbs)

	st, err := os.Stat(rootAbs)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("vault root is not a directory: %s", rootAbs)
	}

	wopts := walk.Options{
		IncludeGlobs: opts.IncludeGlobs,
		ExcludeGlobs: opts.ExcludeGlobs,
	}
	filter, err := walk.NewFilter(rootAbs, wopts)
	if err != nil {
		return nil, err
	}
	return &Vault{root: rootAbs, opts: wopts, filter: filter}, nil
}

func (v *Vault) Root() string {
	if v == nil {
		return ""
	}
	return v.root
}

// Abs maps a vault-relative path to the filesystem, refusing paths that
// would leave the root.
func (v *Vault) Abs(rel string) (string, error) {
	if v == nil {
		return "", fmt.Errorf("vault is nil")
	}
	rel = Clean(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%w: %s", ErrOutside, rel)
	}
	if rel == "" {
		return v.root, nil
	}
	return filepath.Join(v.root, filepath.FromSlash(rel)), nil
}

// Rel maps an absolute filesystem path back to a vault key.
func (v *Vault) Rel(abs string) (string, bool) {
	if v == nil || strings.TrimSpace(abs) == "" {
		return "", false
	}
	rel, err := filepath.Rel(v.root, filepath.Clean(abs))
	if err != nil {
		return "", false
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// IsDocument reports whether rel passes the vault's document filter.
func (v *Vault) IsDocument(rel string) bool {
	if v == nil {
		return false
	}
	return v.filter.ShouldInclude(Clean(rel), false)
}

// List returns every document under scope ("" for the whole vault).
func (v *Vault) List(scope string) ([]Document, error) {
	if v == nil {
		return nil, fmt.Errorf("vault is nil")
	}
	opts := v.opts
	opts.Under = Clean(scope)
	files, err := walk.ListFiles(v.root, opts)
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(files))
	for _, rel := range files {
		docs = append(docs, NewDocument(rel))
	}
	return docs, nil
}

func (v *Vault) Kind(rel string) (Kind, error) {
	abs, err := v.Abs(rel)
	if err != nil {
		return KindMissing, err
	}
	st, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return KindMissing, nil
		}
		return KindMissing, err
	}
	if st.IsDir() {
		return KindContainer, nil
	}
	return KindFile, nil
}

// Get returns the document at rel. Containers are not documents.
func (v *Vault) Get(rel string) (Document, bool, error) {
	k, err := v.Kind(rel)
	if err != nil {
		return Document{}, false, err
	}
	if k != KindFile {
		return Document{}, false, nil
	}
	return NewDocument(rel), true, nil
}

// Stat returns size and modification time (unix nanoseconds) of a document.
func (v *Vault) Stat(doc Document) (int64, int64, error) {
	abs, err := v.Abs(doc.Path)
	if err != nil {
		return 0, 0, err
	}
	st, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, 0, fmt.Errorf("%w: %s", ErrNotFound, doc.Path)
		}
		return 0, 0, err
	}
	return st.Size(), st.ModTime().UnixNano(), nil
}

// CreateContainer creates a single folder. Its parent must already exist;
// an existing folder is not an error.
func (v *Vault) CreateContainer(rel string) error {
	abs, err := v.Abs(rel)
	if err != nil {
		return err
	}
	if err := os.Mkdir(abs, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			if st, serr := os.Stat(abs); serr == nil && st.IsDir() {
				return nil
			}
			return fmt.Errorf("%w: %s", ErrExists, rel)
		}
		return err
	}
	return nil
}

// Rename moves doc to newRel without overwriting an existing entry.
func (v *Vault) Rename(doc Document, newRel string) (Document, error) {
	from, err := v.Abs(doc.Path)
	if err != nil {
		return Document{}, err
	}
	to, err := v.Abs(newRel)
	if err != nil {
		return Document{}, err
	}
	if _, err := os.Lstat(to); err == nil {
		return Document{}, fmt.Errorf("%w: %s", ErrExists, Clean(newRel))
	} else if !errors.Is(err, fs.ErrNotExist) {
		return Document{}, err
	}
	if err := os.Rename(from, to); err != nil {
		return Document{}, err
	}
	return NewDocument(newRel), nil
}

// CreateDocument writes a new document; the parent folder must exist.
func (v *Vault) CreateDocument(rel string, content []byte) (Document, error) {
	abs, err := v.Abs(rel)
	if err != nil {
		return Document{}, err
	}
	f, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return Document{}, fmt.Errorf("%w: %s", ErrExists, Clean(rel))
		}
		return Document{}, err
	}
	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		return Document{}, err
	}
	if err := f.Close(); err != nil {
		return Document{}, err
	}
	return NewDocument(rel), nil
}

func (v *Vault) ReadContent(doc Document) ([]byte, error) {
	abs, err := v.Abs(doc.Path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, doc.Path)
		}
		return nil, err
	}
	return b, nil
}

// WriteContent replaces a document's bytes through a hidden temp file in the
// same folder, so readers never see a partial header.
func (v *Vault) WriteContent(doc Document, content []byte) error {
	abs, err := v.Abs(doc.Path)
	if err != nil {
		return err
	}
	mode := fs.FileMode(0o644)
	if st, err := os.Stat(abs); err == nil {
		mode = st.Mode().Perm()
	} else if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, doc.Path)
	} else {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(abs), "."+doc.Name+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return err
	}
	return os.Rename(tmpName, abs)
}
