package nsortd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"notesort/internal/config"
	"notesort/internal/core/metacache"
	"notesort/internal/core/reclassify"
	"notesort/internal/core/tasks"
	"notesort/internal/core/vault"
	"notesort/internal/core/walk"
	"notesort/internal/core/watch"
	"notesort/internal/index/backend"
	"notesort/internal/index/store"
	"notesort/internal/logging"
	"notesort/internal/metrics"
)

const lockFileName = "nsortd.lock"

// Service runs one vault: it owns the index, the watcher, the RPC server and
// the optional metrics endpoint, and holds an exclusive lock on the state
// directory while running.
type Service struct {
	cfg     config.Config
	cfgPath string
	log     *slog.Logger

	lockPath string
	lock     *flock.Flock
	running  atomic.Bool
	watching atomic.Bool

	vault    *vault.Vault
	store    store.Store
	live     *config.Live
	meta     *metacache.Cache
	engine   *reclassify.Engine
	tasks    *tasks.Manager
	metrics  *metrics.Metrics
	handlers *Handlers
	server   *Server
	watcher  *watch.Watcher
	httpSrv  *http.Server
	httpLn   net.Listener

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	mu       sync.Mutex
	stopping bool
	inflight sync.WaitGroup
}

// New validates cfg. cfgPath is where option changes are persisted; empty
// keeps them in memory.
func New(cfg *config.Config, cfgPath string, log *slog.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("nsortd requires a config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	lockPath := cfg.StatePath(lockFileName)
	return &Service{
		cfg:      *cfg,
		cfgPath:  cfgPath,
		log:      logging.OrDiscard(log),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		metrics:  metrics.New(),
	}, nil
}

// Start acquires the lock, refreshes the index and starts serving. It
// returns once every listener is bound; Wait blocks until shutdown.
func (s *Service) Start(ctx context.Context) error {
	if s.running.Load() {
		return errors.New("nsortd already running")
	}
	if err := os.MkdirAll(s.cfg.Vault.StateDir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another nsortd instance is already serving %s", s.cfg.Vault.Root)
	}

	if err := s.open(ctx); err != nil {
		s.release()
		return err
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(s.ctx)
	s.group = g
	s.running.Store(true)

	s.watching.Store(true)
	g.Go(func() error {
		defer s.watching.Store(false)
		if err := s.watcher.Run(gctx); err != nil {
			return fmt.Errorf("watch: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.server.Run(); err != nil {
			return fmt.Errorf("rpc: %w", err)
		}
		return nil
	})
	if s.httpSrv != nil {
		g.Go(func() error {
			if err := s.httpSrv.Serve(s.httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		s.shutdown()
		return nil
	})

	s.log.Info("nsortd started",
		"root", s.vault.Root(),
		"rpc", s.server.Addr(),
		"index", s.store.Backend(),
		"lock", s.lockPath,
	)
	return nil
}

func (s *Service) open(ctx context.Context) (err error) {
	cleanup := func() {
		if s.watcher != nil {
			_ = s.watcher.Close()
			s.watcher = nil
		}
		if s.server != nil {
			_ = s.server.Close()
			s.server = nil
		}
		if s.httpLn != nil {
			_ = s.httpLn.Close()
			s.httpLn = nil
			s.httpSrv = nil
		}
		if s.store != nil {
			_ = s.store.Close()
			s.store = nil
		}
	}
	defer func() {
		if err != nil {
			cleanup()
		}
	}()

	s.vault, err = vault.Open(s.cfg.Vault.Root, vault.Options{
		IncludeGlobs: s.cfg.Vault.IncludeGlobs,
		ExcludeGlobs: s.cfg.Vault.ExcludeGlobs,
	})
	if err != nil {
		return fmt.Errorf("open vault: %w", err)
	}

	indexPath := strings.TrimSpace(s.cfg.Daemon.IndexPath)
	if indexPath == "" {
		indexPath = backend.DefaultPath(s.cfg.Vault.StateDir, s.cfg.Daemon.IndexBackend)
	}
	indexPath = backend.NormalizePath(s.cfg.Daemon.IndexBackend, indexPath)
	s.store, err = backend.Open(s.cfg.Daemon.IndexBackend, indexPath)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}

	var cfgStore config.Store
	if s.cfgPath != "" {
		cfgStore = config.FileStore{Path: s.cfgPath}
	}
	s.live = config.NewLive(s.cfg, cfgStore)
	s.meta = metacache.New(s.vault, s.store, metacache.DefaultCapacity, s.log.With("component", "metacache"))
	s.engine = reclassify.New(s.vault, s.meta, s.meta, s.live,
		reclassify.WithLogger(s.log.With("component", "reclassify")),
		reclassify.WithJournal(s.store),
		reclassify.WithMetrics(s.metrics),
	)
	s.tasks = tasks.New(s.vault, s.meta, s.live, s.engine,
		tasks.WithLogger(s.log.With("component", "tasks")),
	)
	s.handlers = NewHandlers(Deps{
		Vault:     s.vault,
		Store:     s.store,
		Meta:      s.meta,
		Engine:    s.engine,
		Tasks:     s.tasks,
		Live:      s.live,
		Metrics:   s.metrics,
		Logger:    s.log.With("component", "rpc"),
		IndexPath: indexPath,
		Watching:  s.watching.Load,
	})

	if _, err = s.handlers.IndexBuild(ctx); err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if missing := s.live.Sort().Missing(); len(missing) > 0 {
		s.log.Warn("sort options incomplete; notifications are ignored until they are set", "missing", missing)
	}
	if _, err = s.tasks.EnsureCounter(ctx); err != nil {
		return fmt.Errorf("task counter: %w", err)
	}
	if s.cfg.Daemon.SweepOnStart {
		if _, err = s.handlers.Sweep(ctx); err != nil {
			return fmt.Errorf("startup sweep: %w", err)
		}
	}

	var ignore []string
	if rel, ok := s.vault.Rel(s.cfg.Vault.StateDir); ok {
		ignore = append(ignore, rel)
	}
	s.watcher, err = watch.NewWatcher(s.vault.Root(), watch.Options{
		Filter: walk.Options{
			IncludeGlobs: s.cfg.Vault.IncludeGlobs,
			ExcludeGlobs: s.cfg.Vault.ExcludeGlobs,
		},
		Debounce:   time.Duration(s.cfg.Daemon.DebounceMS) * time.Millisecond,
		IgnoreDirs: ignore,
		UpdateFunc: s.onChange,
		Logger:     s.log.With("component", "watch"),
	})
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}

	s.server = NewServer(Options{Listen: s.cfg.Daemon.Listen, Logger: s.log.With("component", "rpc")}, s.handlers)
	if err = s.server.Listen(); err != nil {
		return fmt.Errorf("rpc listen: %w", err)
	}

	if addr := strings.TrimSpace(s.cfg.Daemon.MetricsListen); addr != "" {
		s.httpLn, err = net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("metrics listen: %w", err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", s.metrics.Handler())
		s.httpSrv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	}
	return nil
}

// onChange receives debounced batches from the watcher. Each path is handled
// on its own goroutine so one slow document never delays another.
func (s *Service) onChange(paths []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return
	}
	ctx := s.ctx
	for _, p := range paths {
		s.inflight.Add(1)
		go func(path string) {
			defer s.inflight.Done()
			if _, _, err := s.meta.Refresh(ctx, path); err != nil {
				s.metrics.ObserveError("refresh")
				s.log.Warn("metadata refresh failed", "path", path, "error", err)
			}
			s.engine.HandleChange(ctx, path)
		}(p)
	}
}

func (s *Service) shutdown() {
	s.mu.Lock()
	s.stopping = true
	s.mu.Unlock()

	if s.watcher != nil {
		_ = s.watcher.Close()
	}
	if s.server != nil {
		_ = s.server.Close()
	}
	if s.httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = s.httpSrv.Shutdown(shutdownCtx)
		cancel()
	}
}

// Addr is the bound RPC address.
func (s *Service) Addr() string {
	if s == nil || s.server == nil {
		return ""
	}
	return s.server.Addr()
}

// MetricsAddr is the bound metrics address, or "" when disabled.
func (s *Service) MetricsAddr() string {
	if s == nil || s.httpLn == nil {
		return ""
	}
	return s.httpLn.Addr().String()
}

// Wait blocks until the service stops and every in-flight notification has
// finished.
func (s *Service) Wait() error {
	if s == nil || s.group == nil {
		return nil
	}
	err := s.group.Wait()
	s.inflight.Wait()
	return err
}

// Stop cancels the service, waits for it and releases the lock.
func (s *Service) Stop() error {
	if !s.running.Load() {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}
	err := s.Wait()
	s.running.Store(false)
	s.log.Info("nsortd stopped")
	return err
}

// Close stops the service and releases the index.
func (s *Service) Close() error {
	err := s.Stop()
	if s.store != nil {
		if cerr := s.store.Close(); cerr != nil && err == nil {
			err = cerr
		}
		s.store = nil
	}
	s.release()
	return err
}

func (s *Service) release() {
	if err := s.lock.Unlock(); err != nil {
		s.log.Warn("failed to release nsortd lock", "error", err)
	}
}
