// Package tasks implements the task commands: minting TASK-NNN documents and
// moving them to the icebox or out of the backlog.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"notesort/internal/config"
	"notesort/internal/core/frontmatter"
	"notesort/internal/core/reclassify"
	"notesort/internal/core/vault"
	"notesort/internal/index/store"
	"notesort/internal/logging"
)

var ErrNotConfigured = errors.New("tasks: folder is not configured")

type Storage interface {
	List(scope string) ([]vault.Document, error)
	CreateDocument(path string, content []byte) (vault.Document, error)
	ReadContent(doc vault.Document) ([]byte, error)
}

// Settings is the live configuration; config.Live implements it.
type Settings interface {
	Sort() config.Sort
	SetTaskCounter(n int) error
}

type Manager struct {
	storage  Storage
	meta     reclassify.MetadataSource
	settings Settings
	engine   *reclassify.Engine
	log      *slog.Logger
	now      func() time.Time

	mu sync.Mutex
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

func New(storage Storage, meta reclassify.MetadataSource, settings Settings, engine *reclassify.Engine, opts ...Option) *Manager {
	m := &Manager{
		storage:  storage,
		meta:     meta,
		settings: settings,
		engine:   engine,
		log:      logging.Discard(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// EnsureCounter derives the task counter from the highest TASK-NNN found in
// document names and id fields when no counter has been persisted yet. It
// returns the next number to mint.
func (m *Manager) EnsureCounter(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureCounter(ctx)
}

func (m *Manager) ensureCounter(ctx context.Context) (int, error) {
	s := m.settings.Sort()
	if s.TaskCounter > 0 {
		return s.TaskCounter, nil
	}

	docs, err := m.storage.List(s.RootContainer)
	if err != nil {
		return 0, fmt.Errorf("scan task ids: %w", err)
	}
	highest := 0
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if n, ok := ParseID(doc.Name); ok && n > highest {
			highest = n
		}
		fields, ok, err := m.meta.Metadata(ctx, doc.Path)
		if err != nil {
			m.log.Warn("task id scan: metadata read failed", "path", doc.Path, "error", err)
			continue
		}
		if !ok {
			continue
		}
		if id, isString := fields["id"].(string); isString {
			if n, ok := ParseID(id); ok && n > highest {
				highest = n
			}
		}
	}

	next := highest + 1
	if err := m.settings.SetTaskCounter(next); err != nil {
		return 0, err
	}
	m.log.Info("derived task counter", "next", FormatID(next), "documents", len(docs))
	return next, nil
}

// Created describes a document minted by Create.
type Created struct {
	ID   string
	Path string
}

// Create mints the next task id and writes a new document into the backlog
// folder (when enabled) or the false folder. The new path is guarded for
// reclassify.CreationGrace so its own change notification is ignored.
func (m *Manager) Create(ctx context.Context, title string) (Created, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, err := m.ensureCounter(ctx)
	if err != nil {
		return Created{}, err
	}
	s := m.settings.Sort()

	folder := reclassify.ResolveContainer(s.RootContainer, s.FalseContainer)
	if s.EnableBacklog {
		folder = reclassify.ResolveContainer(s.RootContainer, s.BacklogContainer)
	}
	if folder == "" {
		return Created{}, fmt.Errorf("%w: set %s", ErrNotConfigured, config.OptFalseContainer)
	}

	id := FormatID(n)
	title = strings.TrimSpace(title)
	content, err := m.render(s, id, title)
	if err != nil {
		return Created{}, err
	}
	path := folder + "/" + fileName(id, title)

	guard := m.engine.Guard()
	guard.Hold(path, reclassify.CreationGrace)

	res := reclassify.Result{Outcome: reclassify.OutcomeMoved, To: path}
	if err := m.engine.EnsureContainer(folder); err != nil {
		err = fmt.Errorf("create %s: %w", path, err)
		m.engine.Record(res, store.ReasonCreate, err)
		return Created{}, err
	}
	if _, err := m.storage.CreateDocument(path, content); err != nil {
		err = fmt.Errorf("create %s: %w", path, err)
		m.engine.Record(res, store.ReasonCreate, err)
		return Created{}, err
	}
	if err := m.settings.SetTaskCounter(n + 1); err != nil {
		return Created{ID: id, Path: path}, fmt.Errorf("persist task counter: %w", err)
	}
	m.engine.Record(res, store.ReasonCreate, nil)
	m.log.Info("created task", "id", id, "path", path)
	return Created{ID: id, Path: path}, nil
}

// MoveToIcebox relocates the document at path into the icebox folder.
func (m *Manager) MoveToIcebox(ctx context.Context, path string) (reclassify.Result, error) {
	s := m.settings.Sort()
	target := reclassify.ResolveContainer(s.RootContainer, s.IceboxContainer)
	if strings.TrimSpace(s.IceboxContainer) == "" || target == "" {
		return reclassify.Result{}, fmt.Errorf("%w: set %s", ErrNotConfigured, config.OptIceboxContainer)
	}
	return m.engine.Relocate(ctx, path, target, store.ReasonIcebox)
}

// MoveOutOfBacklog relocates the document at path into the false folder.
func (m *Manager) MoveOutOfBacklog(ctx context.Context, path string) (reclassify.Result, error) {
	s := m.settings.Sort()
	target := reclassify.ResolveContainer(s.RootContainer, s.FalseContainer)
	if strings.TrimSpace(s.FalseContainer) == "" || target == "" {
		return reclassify.Result{}, fmt.Errorf("%w: set %s", ErrNotConfigured, config.OptFalseContainer)
	}
	return m.engine.Relocate(ctx, path, target, store.ReasonUnbacklog)
}

func (m *Manager) render(s config.Sort, id, title string) ([]byte, error) {
	if title == "" {
		title = id
	}
	var content []byte
	if s.TemplatePath != "" {
		tmpl, err := m.storage.ReadContent(vault.NewDocument(s.TemplatePath))
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", s.TemplatePath, err)
		}
		content = []byte(expand(string(tmpl), id, title, m.now()))
	} else {
		content = []byte("# " + title + "\n")
	}

	var err error
	for _, set := range []struct {
		key   string
		value any
		force bool
	}{
		{"id", id, true},
		{"title", title, false},
		{s.PropertyName, false, false},
	} {
		if set.key == "" {
			continue
		}
		content, _, err = frontmatter.Patch(content, func(f frontmatter.Fields) {
			if _, ok := f[set.key]; !ok || set.force {
				f[set.key] = set.value
			}
		})
		if err != nil {
			return nil, fmt.Errorf("render task %s: %w", id, err)
		}
	}
	return content, nil
}

// expand fills the template placeholders. Inside the header the title is
// written as a YAML scalar, quoted when needed, so titles such as
// "Fix: login" keep the header parseable.
func expand(tmpl, id, title string, now time.Time) string {
	date := now.Format("2006-01-02")
	plain := strings.NewReplacer("{{id}}", id, "{{title}}", title, "{{date}}", date)
	head, body, err := frontmatter.Split([]byte(tmpl))
	if err != nil {
		return plain.Replace(tmpl)
	}
	t := yamlScalar(title)
	header := strings.NewReplacer(
		`"{{title}}"`, t,
		`'{{title}}'`, t,
		"{{title}}", t,
		"{{id}}", id,
		"{{date}}", date,
	)
	return header.Replace(string(head)) + plain.Replace(string(body))
}

func yamlScalar(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	out, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Sprintf("%q", s)
	}
	return strings.TrimSuffix(string(out), "\n")
}

func fileName(id, title string) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return -1
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, title)
	clean = strings.Join(strings.Fields(clean), " ")
	if clean == "" || clean == id {
		return id + ".md"
	}
	return id + " " + clean + ".md"
}
