// Package indexer rebuilds the metadata index from the vault.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"notesort/internal/core/metacache"
	"notesort/internal/core/vault"
	"notesort/internal/index/store"
)

type Options struct {
	// Workers bounds concurrent document reads; 0 uses GOMAXPROCS.
	Workers int
}

type Stats struct {
	Documents  int
	WithHeader int
	Elapsed    time.Duration
}

// Build parses every document in v and swaps the result into st in one
// transaction. Reads run in parallel; the write is serial.
func Build(ctx context.Context, v *vault.Vault, st store.Store, opts Options) (Stats, error) {
	if v == nil {
		return Stats{}, fmt.Errorf("vault is required")
	}
	if st == nil {
		return Stats{}, fmt.Errorf("store is required")
	}
	start := time.Now()

	if tuner, ok := st.(store.BuildTuner); ok {
		if err := tuner.TuneForBuild(); err != nil {
			return Stats{}, err
		}
	}

	docs, err := v.List("")
	if err != nil {
		return Stats{}, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	snaps := make([]store.Snapshot, len(docs))
	found := make([]bool, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			snap, err := metacache.Snapshot(v, doc)
			if err != nil {
				if errors.Is(err, vault.ErrNotFound) {
					return nil
				}
				return fmt.Errorf("index %s: %w", doc.Path, err)
			}
			snaps[i] = snap
			found[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	out := make([]store.Snapshot, 0, len(snaps))
	stats := Stats{}
	now := time.Now().Unix()
	for i, snap := range snaps {
		if !found[i] {
			continue
		}
		snap.IndexedAt = now
		out = append(out, snap)
		if snap.HasHeader {
			stats.WithHeader++
		}
	}
	if err := st.ReplaceSnapshots(out); err != nil {
		return Stats{}, err
	}
	stats.Documents = len(out)
	stats.Elapsed = time.Since(start)
	return stats, nil
}
