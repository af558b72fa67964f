// Package metacache serves parsed frontmatter for vault documents. Entries
// are kept in an LRU and mirrored to the metadata index so a restarted daemon
// starts warm; both layers are validated against the file's size and mtime.
package metacache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"notesort/internal/core/cache"
	"notesort/internal/core/frontmatter"
	"notesort/internal/core/vault"
	"notesort/internal/index/store"
	"notesort/internal/logging"
)

const DefaultCapacity = 4096

type entry struct {
	size      int64
	mtime     int64
	hasHeader bool
	fields    frontmatter.Fields
}

type Cache struct {
	vault *vault.Vault
	store store.Store
	lru   *cache.LRU[string, entry]
	log   *slog.Logger
}

// New builds a cache over v. st may be nil.
func New(v *vault.Vault, st store.Store, capacity int, log *slog.Logger) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		vault: v,
		store: st,
		lru:   cache.NewLRU[string, entry](capacity),
		log:   logging.OrDiscard(log),
	}
}

// Metadata returns the frontmatter of the document at path. ok is false for
// missing documents and for documents without a usable header.
func (c *Cache) Metadata(ctx context.Context, path string) (frontmatter.Fields, bool, error) {
	if c == nil || c.vault == nil {
		return nil, false, fmt.Errorf("metadata cache is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	path = vault.Clean(path)
	doc, ok, err := c.vault.Get(path)
	if err != nil || !ok {
		return nil, false, err
	}
	size, mtime, err := c.vault.Stat(doc)
	if err != nil {
		if errors.Is(err, vault.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	if e, ok := c.lru.Get(path); ok && e.size == size && e.mtime == mtime {
		return fieldsOf(e)
	}
	if c.store != nil {
		snap, ok, err := c.store.GetSnapshot(path)
		if err != nil {
			c.log.Warn("metadata index read failed", "path", path, "error", err)
		} else if ok && snap.Size == size && snap.MTime == mtime {
			e := entry{size: size, mtime: mtime, hasHeader: snap.HasHeader, fields: snap.Fields}
			c.lru.Put(path, e)
			return fieldsOf(e)
		}
	}

	e, err := c.load(doc)
	if err != nil {
		return nil, false, err
	}
	return fieldsOf(e)
}

func fieldsOf(e entry) (frontmatter.Fields, bool, error) {
	if !e.hasHeader {
		return nil, false, nil
	}
	return e.fields.Clone(), true, nil
}

// Refresh re-reads path from disk and updates both layers. A document that
// no longer exists is forgotten.
func (c *Cache) Refresh(ctx context.Context, path string) (store.Snapshot, bool, error) {
	if c == nil || c.vault == nil {
		return store.Snapshot{}, false, fmt.Errorf("metadata cache is nil")
	}
	if err := ctx.Err(); err != nil {
		return store.Snapshot{}, false, err
	}
	path = vault.Clean(path)
	doc, ok, err := c.vault.Get(path)
	if err != nil {
		return store.Snapshot{}, false, err
	}
	if !ok || !c.vault.IsDocument(path) {
		c.Remove(path)
		return store.Snapshot{}, false, nil
	}
	e, err := c.load(doc)
	if err != nil {
		if errors.Is(err, vault.ErrNotFound) {
			c.Remove(path)
			return store.Snapshot{}, false, nil
		}
		return store.Snapshot{}, false, err
	}
	return snapshotOf(path, e), true, nil
}

// Remove forgets path in both layers.
func (c *Cache) Remove(path string) {
	if c == nil {
		return
	}
	path = vault.Clean(path)
	c.lru.Remove(path)
	if c.store != nil {
		if err := c.store.DeleteSnapshot(path); err != nil {
			c.log.Warn("metadata index delete failed", "path", path, "error", err)
		}
	}
}

// Patch rewrites the frontmatter of doc through fn, preserving every other
// key, the key order and the body. changed is false when fn left the header
// as it was, in which case nothing is written.
func (c *Cache) Patch(ctx context.Context, doc vault.Document, fn func(frontmatter.Fields)) (bool, error) {
	if c == nil || c.vault == nil {
		return false, fmt.Errorf("metadata cache is nil")
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	content, err := c.vault.ReadContent(doc)
	if err != nil {
		return false, err
	}
	out, changed, err := frontmatter.Patch(content, fn)
	if err != nil {
		return false, fmt.Errorf("patch %s: %w", doc.Path, err)
	}
	if !changed {
		return false, nil
	}
	if err := c.vault.WriteContent(doc, out); err != nil {
		return false, err
	}
	if _, err := c.load(doc); err != nil {
		c.log.Warn("metadata refresh after patch failed", "path", doc.Path, "error", err)
	}
	return true, nil
}

func (c *Cache) load(doc vault.Document) (entry, error) {
	size, mtime, err := c.vault.Stat(doc)
	if err != nil {
		return entry{}, err
	}
	content, err := c.vault.ReadContent(doc)
	if err != nil {
		return entry{}, err
	}
	e := entry{size: int64(len(content)), mtime: mtime}
	if size != e.size {
		// Changed between stat and read; the next notification reloads it.
		e.mtime = 0
	}
	fields, _, err := frontmatter.Parse(content)
	switch {
	case err == nil:
		e.hasHeader = true
		e.fields = fields
	case errors.Is(err, frontmatter.ErrMissingFrontMatter):
	case errors.Is(err, frontmatter.ErrMalformedFrontMatter):
		c.log.Debug("ignoring malformed frontmatter", "path", doc.Path, "error", err)
	default:
		return entry{}, err
	}

	c.lru.Put(doc.Path, e)
	if c.store != nil {
		if err := c.store.PutSnapshot(snapshotOf(doc.Path, e)); err != nil {
			c.log.Warn("metadata index write failed", "path", doc.Path, "error", err)
		}
	}
	return e, nil
}

func snapshotOf(path string, e entry) store.Snapshot {
	return store.Snapshot{
		Path:      path,
		Size:      e.size,
		MTime:     e.mtime,
		HasHeader: e.hasHeader,
		Fields:    e.fields,
		IndexedAt: time.Now().Unix(),
	}
}

// Snapshot parses a document without touching the cache. The indexer uses it
// for full rebuilds.
func Snapshot(v *vault.Vault, doc vault.Document) (store.Snapshot, error) {
	size, mtime, err := v.Stat(doc)
	if err != nil {
		return store.Snapshot{}, err
	}
	content, err := v.ReadContent(doc)
	if err != nil {
		return store.Snapshot{}, err
	}
	snap := store.Snapshot{Path: doc.Path, Size: size, MTime: mtime}
	fields, _, err := frontmatter.Parse(content)
	if err == nil {
		snap.HasHeader = true
		snap.Fields = fields
	} else if !errors.Is(err, frontmatter.ErrMissingFrontMatter) && !errors.Is(err, frontmatter.ErrMalformedFrontMatter) {
		return store.Snapshot{}, err
	}
	return snap, nil
}
