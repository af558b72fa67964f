package nsortd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"notesort/internal/config"
	"notesort/internal/core/indexer"
	"notesort/internal/core/metacache"
	"notesort/internal/core/reclassify"
	"notesort/internal/core/tasks"
	"notesort/internal/core/vault"
	"notesort/internal/index/store"
	"notesort/internal/logging"
	"notesort/internal/metrics"
	"notesort/internal/model"
	"notesort/internal/version"
)

// Deps are the collaborators the RPC handlers operate on.
type Deps struct {
	Vault     *vault.Vault
	Store     store.Store
	Meta      *metacache.Cache
	Engine    *reclassify.Engine
	Tasks     *tasks.Manager
	Live      *config.Live
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	IndexPath string
	Watching  func() bool
}

type Handlers struct {
	d         Deps
	log       *slog.Logger
	startedAt time.Time

	// buildMu serialises full index rebuilds and sweeps.
	buildMu sync.Mutex
}

func NewHandlers(d Deps) *Handlers {
	return &Handlers{
		d:         d,
		log:       logging.OrDiscard(d.Logger),
		startedAt: time.Now(),
	}
}

// paramsError marks caller mistakes so the server can answer -32602.
type paramsError struct {
	msg string
}

func (e *paramsError) Error() string { return e.msg }

func invalidParams(format string, args ...any) error {
	return &paramsError{msg: fmt.Sprintf(format, args...)}
}

func (h *Handlers) Status(ctx context.Context) (model.Status, error) {
	if h == nil {
		return model.Status{}, fmt.Errorf("handlers is nil")
	}
	cfg := h.d.Live.Snapshot()
	st := model.Status{
		Version:       version.String(),
		Root:          h.d.Vault.Root(),
		StateDir:      cfg.Vault.StateDir,
		IndexBackend:  h.d.Store.Backend(),
		IndexPath:     h.d.IndexPath,
		InFlight:      h.d.Engine.Guard().Len(),
		TaskCounter:   cfg.Sort.TaskCounter,
		MetricsListen: cfg.Daemon.MetricsListen,
		StartedAt:     h.startedAt.Unix(),
		Missing:       cfg.Sort.Missing(),
	}
	if h.d.Watching != nil {
		st.Watching = h.d.Watching()
	}
	n, err := h.d.Store.CountSnapshots()
	if err != nil {
		return model.Status{}, err
	}
	st.Snapshots = n
	return st, nil
}

func (h *Handlers) documentPath(raw string) (string, error) {
	p := vault.Clean(raw)
	if p == "" {
		return "", invalidParams("path is required")
	}
	if _, err := h.d.Vault.Abs(p); err != nil {
		return "", invalidParams("%v", err)
	}
	if !h.d.Vault.IsDocument(p) {
		return "", invalidParams("not a vault document: %s", p)
	}
	return p, nil
}

// Reclassify refreshes one document's metadata and runs the engine on it.
func (h *Handlers) Reclassify(ctx context.Context, p PathParams) (model.MoveResult, error) {
	if h == nil {
		return model.MoveResult{}, fmt.Errorf("handlers is nil")
	}
	path, err := h.documentPath(p.Path)
	if err != nil {
		return model.MoveResult{}, err
	}
	if _, _, err := h.d.Meta.Refresh(ctx, path); err != nil {
		return model.MoveResult{}, err
	}
	res, err := h.d.Engine.Reclassify(ctx, path)
	if err != nil {
		h.d.Metrics.ObserveNotification(string(reclassify.OutcomeFailed), 0)
		return toMoveResult(res), err
	}
	h.d.Metrics.ObserveNotification(string(res.Outcome), 0)
	return toMoveResult(res), nil
}

// Sweep reclassifies every in-scope document. Per-document failures are
// collected rather than aborting the run.
func (h *Handlers) Sweep(ctx context.Context) (model.SweepResult, error) {
	if h == nil {
		return model.SweepResult{}, fmt.Errorf("handlers is nil")
	}
	h.buildMu.Lock()
	defer h.buildMu.Unlock()

	s := h.d.Live.Sort()
	docs, err := h.d.Vault.List(s.RootContainer)
	if err != nil {
		return model.SweepResult{}, err
	}
	out := model.SweepResult{Outcomes: map[string]int{}}
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out.Scanned++
		res, err := h.d.Engine.Reclassify(ctx, doc.Path)
		h.d.Metrics.ObserveNotification(string(res.Outcome), 0)
		out.Outcomes[string(res.Outcome)]++
		if err != nil {
			out.Errors = append(out.Errors, err.Error())
			h.log.Error("sweep: reclassify failed", "path", doc.Path, "target", res.To, "error", err)
		}
		if res.Outcome == reclassify.OutcomeMoved {
			out.Moved = append(out.Moved, toMoveResult(res))
		}
	}
	h.log.Info("sweep finished", "scanned", out.Scanned, "moved", len(out.Moved), "errors", len(out.Errors))
	return out, nil
}

func (h *Handlers) IndexBuild(ctx context.Context) (model.IndexStats, error) {
	if h == nil {
		return model.IndexStats{}, fmt.Errorf("handlers is nil")
	}
	h.buildMu.Lock()
	defer h.buildMu.Unlock()

	stats, err := indexer.Build(ctx, h.d.Vault, h.d.Store, indexer.Options{})
	if err != nil {
		return model.IndexStats{}, err
	}
	h.d.Metrics.SetSnapshots(stats.Documents)
	h.log.Info("index built", "documents", stats.Documents, "with_header", stats.WithHeader, "elapsed", stats.Elapsed)
	return model.IndexStats{
		Documents:  stats.Documents,
		WithHeader: stats.WithHeader,
		ElapsedMS:  stats.Elapsed.Milliseconds(),
	}, nil
}

func (h *Handlers) TaskCreate(ctx context.Context, p TaskCreateParams) (model.TaskCreated, error) {
	if h == nil {
		return model.TaskCreated{}, fmt.Errorf("handlers is nil")
	}
	created, err := h.d.Tasks.Create(ctx, p.Title)
	if err != nil {
		h.d.Metrics.ObserveError("task.create")
		return model.TaskCreated{}, err
	}
	return model.TaskCreated{ID: created.ID, Path: created.Path}, nil
}

func (h *Handlers) TaskIcebox(ctx context.Context, p PathParams) (model.MoveResult, error) {
	if h == nil {
		return model.MoveResult{}, fmt.Errorf("handlers is nil")
	}
	return h.taskMove(ctx, p, "task.icebox", h.d.Tasks.MoveToIcebox)
}

func (h *Handlers) TaskUnbacklog(ctx context.Context, p PathParams) (model.MoveResult, error) {
	if h == nil {
		return model.MoveResult{}, fmt.Errorf("handlers is nil")
	}
	return h.taskMove(ctx, p, "task.unbacklog", h.d.Tasks.MoveOutOfBacklog)
}

func (h *Handlers) taskMove(ctx context.Context, p PathParams, stage string, fn func(context.Context, string) (reclassify.Result, error)) (model.MoveResult, error) {
	path, err := h.documentPath(p.Path)
	if err != nil {
		return model.MoveResult{}, err
	}
	res, err := fn(ctx, path)
	if err != nil {
		h.d.Metrics.ObserveError(stage)
		if errors.Is(err, tasks.ErrNotConfigured) {
			return model.MoveResult{}, invalidParams("%v", err)
		}
		return toMoveResult(res), err
	}
	return toMoveResult(res), nil
}

func (h *Handlers) History(p HistoryParams) ([]model.Move, error) {
	if h == nil {
		return nil, fmt.Errorf("handlers is nil")
	}
	if p.Limit < 0 {
		return nil, invalidParams("limit must not be negative")
	}
	moves, err := h.d.Store.ListMoves(p.Limit)
	if err != nil {
		return nil, err
	}
	out := make([]model.Move, 0, len(moves))
	for _, m := range moves {
		out = append(out, model.Move{
			ID:      m.ID,
			From:    m.From,
			To:      m.To,
			Reason:  m.Reason,
			Value:   m.Value,
			Stamped: m.Stamped,
			Cleared: m.Cleared,
			Error:   m.Error,
			At:      m.At,
		})
	}
	return out, nil
}

func (h *Handlers) ConfigGet() (map[string]string, error) {
	if h == nil {
		return nil, fmt.Errorf("handlers is nil")
	}
	return h.d.Live.Sort().Options(), nil
}

// ConfigSet changes one option, persists the config file and returns the
// resulting option table.
func (h *Handlers) ConfigSet(p ConfigSetParams) (map[string]string, error) {
	if h == nil {
		return nil, fmt.Errorf("handlers is nil")
	}
	if strings.TrimSpace(p.Key) == "" {
		return nil, invalidParams("key is required")
	}
	if err := h.d.Live.SetOption(p.Key, p.Value); err != nil {
		if errors.Is(err, config.ErrInvalidOption) {
			return nil, invalidParams("%v", err)
		}
		return nil, err
	}
	h.log.Info("option changed", "key", p.Key, "value", p.Value)
	return h.d.Live.Sort().Options(), nil
}

func toMoveResult(r reclassify.Result) model.MoveResult {
	return model.MoveResult{
		Outcome: string(r.Outcome),
		From:    r.From,
		To:      r.To,
		Value:   r.Value,
		Stamped: r.Stamped,
		Cleared: r.Cleared,
	}
}
