// Package reclassify moves documents between the configured true and false
// folders whenever their tracked frontmatter boolean changes.
package reclassify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"notesort/internal/config"
	"notesort/internal/core/frontmatter"
	"notesort/internal/core/vault"
	"notesort/internal/index/store"
	"notesort/internal/logging"
	"notesort/internal/metrics"
)

var (
	// ErrNotContainer reports a target path component that exists as a file.
	ErrNotContainer = errors.New("reclassify: path exists and is not a folder")
	// ErrInFlight is returned to commands that hit a guarded document.
	ErrInFlight = errors.New("reclassify: document is being processed")
)

// Storage is the subset of the vault the engine mutates.
type Storage interface {
	Get(path string) (vault.Document, bool, error)
	Kind(path string) (vault.Kind, error)
	CreateContainer(path string) error
	Rename(doc vault.Document, newPath string) (vault.Document, error)
}

type MetadataSource interface {
	Metadata(ctx context.Context, path string) (frontmatter.Fields, bool, error)
}

type MetadataPatcher interface {
	Patch(ctx context.Context, doc vault.Document, fn func(frontmatter.Fields)) (bool, error)
}

// Settings yields the current [sort] configuration; config.Live implements it.
type Settings interface {
	Sort() config.Sort
}

// Journal records relocations; store.Store implements it.
type Journal interface {
	RecordMove(m store.Move) (store.Move, error)
}

type Outcome string

const (
	OutcomeInFlight      Outcome = "in_flight"
	OutcomeOutOfScope    Outcome = "out_of_scope"
	OutcomeUnconfigured  Outcome = "unconfigured"
	OutcomeNoMetadata    Outcome = "no_metadata"
	OutcomeNotBoolean    Outcome = "not_boolean"
	OutcomeAlreadyPlaced Outcome = "already_placed"
	OutcomeMoved         Outcome = "moved"
	OutcomeFailed        Outcome = "failed"
)

// Result describes what one invocation did. To is empty unless a target was
// computed.
type Result struct {
	Outcome Outcome
	From    string
	To      string
	Value   bool
	Stamped bool
	Cleared bool
}

type Engine struct {
	storage  Storage
	meta     MetadataSource
	patcher  MetadataPatcher
	settings Settings

	guard   *Guard
	journal Journal
	metrics *metrics.Metrics
	log     *slog.Logger
	now     func() time.Time
}

type Option func(*Engine)

// WithClock overrides the time source used for completion stamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithGuard shares a guard with other writers such as the task commands.
func WithGuard(g *Guard) Option {
	return func(e *Engine) {
		if g != nil {
			e.guard = g
		}
	}
}

func WithJournal(j Journal) Option {
	return func(e *Engine) {
		e.journal = j
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func New(storage Storage, meta MetadataSource, patcher MetadataPatcher, settings Settings, opts ...Option) *Engine {
	e := &Engine{
		storage:  storage,
		meta:     meta,
		patcher:  patcher,
		settings: settings,
		guard:    NewGuard(),
		log:      logging.Discard(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Guard() *Guard {
	return e.guard
}

// HandleChange is the change-notification entry point. It never returns an
// error and never panics; failures are logged and counted.
func (e *Engine) HandleChange(ctx context.Context, path string) {
	start := time.Now()
	outcome := OutcomeFailed
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("reclassify panicked", "path", path, "panic", r, "stack", string(debug.Stack()))
			outcome = OutcomeFailed
		}
		e.metrics.ObserveNotification(string(outcome), time.Since(start))
	}()

	res, err := e.Reclassify(ctx, path)
	outcome = res.Outcome
	if err != nil {
		e.log.Error("reclassify failed", "path", res.From, "target", res.To, "error", err)
		if outcome != OutcomeMoved {
			outcome = OutcomeFailed
		}
		return
	}
	switch res.Outcome {
	case OutcomeMoved:
		e.log.Info("moved document", "path", res.From, "target", res.To, "value", res.Value,
			"stamped", res.Stamped, "cleared", res.Cleared)
	case OutcomeInFlight:
		e.log.Debug("skipping document in flight", "path", res.From)
	default:
		e.log.Debug("no move", "path", res.From, "outcome", string(res.Outcome))
	}
}

// Reclassify runs the classification-and-move procedure for one document.
// Skips return a nil error; errors come from creating the target folder,
// relocating, or patching the completion stamp.
func (e *Engine) Reclassify(ctx context.Context, path string) (Result, error) {
	path = vault.Clean(path)
	res := Result{From: path}

	release, ok := e.guard.TryAcquire(path)
	if !ok {
		res.Outcome = OutcomeInFlight
		return res, nil
	}
	defer release()
	// Past the gate the procedure runs to completion or failure; a daemon
	// shutdown must not land between the rename and the patch.
	ctx = context.WithoutCancel(ctx)

	s := e.settings.Sort()
	if !InScope(s.RootContainer, path) {
		res.Outcome = OutcomeOutOfScope
		return res, nil
	}

	trueTarget := ResolveContainer(s.RootContainer, s.TrueContainer)
	falseTarget := ResolveContainer(s.RootContainer, s.FalseContainer)
	if strings.TrimSpace(s.PropertyName) == "" || trueTarget == "" || falseTarget == "" {
		e.log.Warn("sort settings incomplete, skipping", "path", path,
			"property_name", s.PropertyName, "true_container", trueTarget, "false_container", falseTarget)
		res.Outcome = OutcomeUnconfigured
		return res, nil
	}

	doc, ok, err := e.storage.Get(path)
	if err != nil {
		res.Outcome = OutcomeFailed
		return res, fmt.Errorf("lookup %s: %w", path, err)
	}
	if !ok {
		res.Outcome = OutcomeNoMetadata
		return res, nil
	}
	fields, ok, err := e.meta.Metadata(ctx, path)
	if err != nil {
		res.Outcome = OutcomeFailed
		return res, fmt.Errorf("read metadata %s: %w", path, err)
	}
	if !ok {
		res.Outcome = OutcomeNoMetadata
		return res, nil
	}

	value, ok := Classify(fields, s.PropertyName)
	if !ok {
		res.Outcome = OutcomeNotBoolean
		return res, nil
	}
	res.Value = value
	target := falseTarget
	if value {
		target = trueTarget
	}
	res.To = target

	if doc.Parent == target || (!value && Parked(s, doc.Parent)) {
		res.Outcome = OutcomeAlreadyPlaced
		return res, nil
	}

	moved, releaseDest, err := e.move(doc, target)
	if err != nil {
		res.Outcome = OutcomeFailed
		e.record(res, store.ReasonClassify, err)
		return res, err
	}
	defer releaseDest()
	res.Outcome = OutcomeMoved
	res.To = moved.Path

	var patchErr error
	if s.EnableCompletedDate && strings.TrimSpace(s.CompletedDateProperty) != "" {
		res.Stamped, res.Cleared, patchErr = e.applyCompletion(ctx, moved, s.CompletedDateProperty, value)
		if patchErr != nil {
			e.metrics.ObserveError("patch")
			patchErr = fmt.Errorf("patch %s -> %s: %w", path, moved.Path, patchErr)
		}
	}
	e.record(res, store.ReasonClassify, patchErr)
	e.metrics.ObserveMove(store.ReasonClassify)
	return res, patchErr
}

// Relocate moves the document at path into target without classifying it.
// Commands use it; unlike Reclassify a guarded path is an error.
func (e *Engine) Relocate(ctx context.Context, path, target, reason string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	path = vault.Clean(path)
	target = vault.Clean(target)
	res := Result{From: path, To: target}

	release, ok := e.guard.TryAcquire(path)
	if !ok {
		res.Outcome = OutcomeInFlight
		return res, fmt.Errorf("%w: %s", ErrInFlight, path)
	}
	defer release()

	doc, ok, err := e.storage.Get(path)
	if err != nil {
		return res, err
	}
	if !ok {
		return res, fmt.Errorf("%w: %s", vault.ErrNotFound, path)
	}
	if doc.Parent == target {
		res.Outcome = OutcomeAlreadyPlaced
		return res, nil
	}

	moved, releaseDest, err := e.move(doc, target)
	if err != nil {
		res.Outcome = OutcomeFailed
		e.record(res, reason, err)
		return res, err
	}
	releaseDest()
	res.Outcome = OutcomeMoved
	res.To = moved.Path
	e.record(res, reason, nil)
	e.metrics.ObserveMove(reason)
	e.log.Info("moved document", "path", path, "target", moved.Path, "reason", reason)
	return res, nil
}

// move creates target if needed and renames doc into it. The destination
// path stays guarded until releaseDest is called so the rename's own
// notification is not processed mid-update.
func (e *Engine) move(doc vault.Document, target string) (vault.Document, func(), error) {
	dest := doc.Name
	if target != "" {
		dest = target + "/" + doc.Name
	}
	if err := e.ensureContainer(target); err != nil {
		e.metrics.ObserveError("container")
		return vault.Document{}, nil, fmt.Errorf("prepare %s -> %s: %w", doc.Path, dest, err)
	}

	releaseDest, ok := e.guard.TryAcquire(dest)
	if !ok {
		releaseDest = func() {}
	}
	moved, err := e.storage.Rename(doc, dest)
	if err != nil {
		releaseDest()
		e.metrics.ObserveError("relocate")
		return vault.Document{}, nil, fmt.Errorf("move %s -> %s: %w", doc.Path, dest, err)
	}
	return moved, releaseDest, nil
}

// EnsureContainer creates target and any missing ancestors, parents first.
// Every component is checked before anything is created, so a file in the
// way leaves storage untouched.
func (e *Engine) EnsureContainer(target string) error {
	target = vault.Clean(target)
	if err := e.ensureContainer(target); err != nil {
		e.metrics.ObserveError("container")
		return err
	}
	return nil
}

func (e *Engine) ensureContainer(target string) error {
	if target == "" {
		return nil
	}
	parts := strings.Split(target, "/")
	var missing []string
	for i := range parts {
		p := strings.Join(parts[:i+1], "/")
		k, err := e.storage.Kind(p)
		if err != nil {
			return err
		}
		switch k {
		case vault.KindFile:
			return fmt.Errorf("%w: %s", ErrNotContainer, p)
		case vault.KindMissing:
			missing = append(missing, p)
		}
	}
	for _, p := range missing {
		if err := e.storage.CreateContainer(p); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) applyCompletion(ctx context.Context, doc vault.Document, key string, value bool) (stamped, cleared bool, err error) {
	now := e.now()
	_, err = e.patcher.Patch(ctx, doc, func(f frontmatter.Fields) {
		if value {
			if frontmatter.IsEmpty(f[key]) {
				f[key] = now
				stamped = true
			}
			return
		}
		if _, ok := f[key]; ok {
			delete(f, key)
			cleared = true
		}
	})
	if err != nil {
		return false, false, err
	}
	return stamped, cleared, nil
}

// Record journals an operation performed outside the engine, such as a
// document created by a command.
func (e *Engine) Record(res Result, reason string, err error) {
	e.record(res, reason, err)
	if err == nil {
		e.metrics.ObserveMove(reason)
	}
}

func (e *Engine) record(res Result, reason string, err error) {
	if e.journal == nil {
		return
	}
	m := store.Move{
		From:    res.From,
		To:      res.To,
		Reason:  reason,
		Stamped: res.Stamped,
		Cleared: res.Cleared,
		At:      e.now().Unix(),
	}
	if reason == store.ReasonClassify {
		v := res.Value
		m.Value = &v
	}
	if err != nil {
		m.Error = err.Error()
	}
	if _, jerr := e.journal.RecordMove(m); jerr != nil {
		e.log.Warn("journal write failed", "path", res.From, "target", res.To, "error", jerr)
	}
}
