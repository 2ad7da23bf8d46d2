// Package fscache is a file-backed cache built on the same generational
// recency tracker as the in-memory cache.
//
// Values are codec-encoded into blob files laid out by pathgen sharding,
// each with a binary ".meta" sidecar. A disk byte budget is enforced the
// same way as in memory: admissions reclaim entries that have aged out of
// every tracked generation and delete their files. An optional hot tier
// (store.Store) keeps encoded payloads in memory in front of the disk.
//
// Unlike the in-memory core, a fscache.Cache carries its own lock and is
// safe for concurrent use.
package fscache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/unkn0wn-root/bytecache"
	"github.com/unkn0wn-root/bytecache/codec"
	"github.com/unkn0wn-root/bytecache/history"
	"github.com/unkn0wn-root/bytecache/pathgen"
	"github.com/unkn0wn-root/bytecache/store"
)

var (
	// ErrEmptyKey is returned for the empty key, which has no path.
	ErrEmptyKey = errors.New("fscache: empty key")

	// ErrOutOfMemory mirrors the in-memory admission failure for the disk
	// budget.
	ErrOutOfMemory = bytecache.ErrOutOfMemory
)

// Options tune the file-backed cache. Dir and Codec are required.
type Options[V any] struct {
	// Required
	Dir   string         // root directory, created if missing
	Codec codec.Codec[V] // value (de)serialization

	// Limit is the disk byte budget over encoded payloads. 0 = unlimited.
	Limit uint64
	// GenerationThreshold caps the open generation. 0 => Limit/5, minimum 1.
	GenerationThreshold uint64
	// GenerationCount is the number of sealed generations. 0 => 2.
	GenerationCount int

	// Shard layout; 0 => pathgen defaults (3 subdirs of 2 chars).
	// Subdirs < 0 disables sharding and stores blobs directly under Dir.
	Subdirs   int
	SubdirLen int

	Hot    store.Store   // optional in-memory front for encoded payloads
	HotTTL time.Duration // TTL for hot-tier writes; 0 => backend default

	Logger bytecache.Logger
	Hooks  bytecache.Hooks
}

// Cache is a file-backed typed cache. Entries are tracked by the sharded
// relative path of their blob file.
type Cache[V any] struct {
	mu sync.Mutex

	dir       string
	codec     codec.Codec[V]
	limit     uint64
	subdirs   int
	subdirLen int
	hot       store.Store
	hotTTL    time.Duration
	log       bytecache.Logger
	hooks     bytecache.Hooks
	hist      *history.History[string]

	// hotGen prefixes hot-tier keys; bumping it on Clear makes every
	// previously warmed entry unreachable without enumerating the tier.
	hotGen uint64
}

// New opens (or creates) the cache directory and rehydrates the recency
// tracker from the files already present.
func New[V any](opts Options[V]) (*Cache[V], error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("fscache: dir is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("fscache: codec is required")
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("fscache: create dir: %w", err)
	}

	threshold := opts.GenerationThreshold
	if threshold == 0 {
		threshold = max(opts.Limit/5, 1)
	}
	count := opts.GenerationCount
	if count == 0 {
		count = 2
	}
	subdirs := opts.Subdirs
	switch {
	case subdirs < 0:
		subdirs = 0
	case subdirs == 0:
		subdirs = pathgen.DefaultSubdirs
	}
	subdirLen := opts.SubdirLen
	if subdirLen == 0 {
		subdirLen = pathgen.DefaultSubdirLen
	}

	c := &Cache[V]{
		dir:       opts.Dir,
		codec:     opts.Codec,
		limit:     opts.Limit,
		subdirs:   subdirs,
		subdirLen: subdirLen,
		hot:       opts.Hot,
		hotTTL:    opts.HotTTL,
		log:       opts.Logger,
		hooks:     opts.Hooks,
		hist:      history.New[string](threshold, count),
	}
	if c.log == nil {
		c.log = bytecache.NopLogger{}
	}
	if c.hooks == nil {
		c.hooks = bytecache.NopHooks{}
	}

	if err := c.rescan(); err != nil {
		return nil, err
	}
	return c, nil
}

// rescan seeds the tracker from existing blob files so a reopened cache
// enforces its budget over what is already on disk.
func (c *Cache[V]) rescan() error {
	return filepath.WalkDir(c.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || strings.HasSuffix(p, pathgen.MetaSuffix) {
			return err
		}
		rel, err := filepath.Rel(c.dir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		cost := uint64(0)
		if raw, err := os.ReadFile(p + pathgen.MetaSuffix); err == nil {
			if m, err := decodeMeta(raw); err == nil {
				cost = m.Cost
			}
		}
		if cost == 0 {
			info, err := d.Info()
			if err != nil {
				return err
			}
			cost = uint64(info.Size())
		}

		c.hist.Hit(rel, cost)
		return nil
	})
}

// paths derives the blob and meta paths for key, relative to the cache dir.
func (c *Cache[V]) paths(key string) (rel, relMeta string, err error) {
	pg := pathgen.New(key, c.subdirs, c.subdirLen)
	rel, ok := pg.FilePath()
	if !ok {
		return "", "", ErrEmptyKey
	}
	relMeta, _ = pg.MetaPath()
	return rel, relMeta, nil
}

// Set encodes value, admits it against the disk budget and writes the blob
// and meta files. Returns ErrOutOfMemory when the payload cannot be admitted
// even after reclaiming every aged-out entry.
func (c *Cache[V]) Set(ctx context.Context, key string, value V) error {
	rel, relMeta, err := c.paths(key)
	if err != nil {
		return err
	}
	payload, err := c.codec.Encode(value)
	if err != nil {
		return fmt.Errorf("fscache: encode %q: %w", key, err)
	}
	cost := uint64(len(payload))

	c.mu.Lock()
	defer c.mu.Unlock()

	marginal := cost
	if info, err := os.Stat(filepath.Join(c.dir, rel)); err == nil {
		if old := uint64(info.Size()); old < cost {
			marginal = cost - old
		} else {
			marginal = 0
		}
	}

	if c.limit > 0 && !c.freeSpace(ctx, rel, marginal, cost) {
		// a failed replacement must not keep the old footprint
		c.removeEntry(ctx, rel, relMeta)
		c.hooks.AdmissionRejected(marginal, c.hist.Usage())
		c.log.Debug("admission rejected", bytecache.Fields{"key": key, "cost": cost, "limit": c.limit})
		return ErrOutOfMemory
	}

	abs := filepath.Join(c.dir, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("fscache: shard dir for %q: %w", key, err)
	}
	if err := os.WriteFile(abs, payload, 0o644); err != nil {
		return fmt.Errorf("fscache: write blob %q: %w", key, err)
	}
	m := encodeMeta(meta{Cost: cost, StoredAt: time.Now()})
	if err := os.WriteFile(filepath.Join(c.dir, relMeta), m, 0o644); err != nil {
		return fmt.Errorf("fscache: write meta %q: %w", key, err)
	}

	c.hist.Hit(rel, cost)
	c.warmHot(ctx, rel, payload, cost)
	return nil
}

// Get reads the value for key, preferring the hot tier, and refreshes its
// recency. Unreadable entries are dropped and reported as misses.
func (c *Cache[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	rel, relMeta, err := c.paths(key)
	if err != nil {
		return zero, false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hot != nil {
		if payload, ok, err := c.hot.Get(ctx, c.hotKey(rel)); err == nil && ok {
			v, err := c.codec.Decode(payload)
			if err == nil {
				c.hist.Hit(rel, uint64(len(payload)))
				return v, true, nil
			}
			_ = c.hot.Del(ctx, c.hotKey(rel)) // self-heal corrupt hot entry
		}
	}

	rawMeta, err := os.ReadFile(filepath.Join(c.dir, relMeta))
	if err != nil {
		if os.IsNotExist(err) {
			// stray blob without meta is unreadable; drop it
			c.removeEntry(ctx, rel, relMeta)
			return zero, false, nil
		}
		return zero, false, fmt.Errorf("fscache: read meta %q: %w", key, err)
	}
	if _, err := decodeMeta(rawMeta); err != nil {
		c.selfHeal(ctx, key, rel, relMeta, "corrupt_meta")
		return zero, false, nil
	}

	payload, err := os.ReadFile(filepath.Join(c.dir, rel))
	if err != nil {
		if os.IsNotExist(err) {
			c.selfHeal(ctx, key, rel, relMeta, "missing_blob")
			return zero, false, nil
		}
		return zero, false, fmt.Errorf("fscache: read blob %q: %w", key, err)
	}

	v, err := c.codec.Decode(payload)
	if err != nil {
		c.selfHeal(ctx, key, rel, relMeta, "value_decode")
		return zero, false, nil
	}

	cost := uint64(len(payload))
	c.hist.Hit(rel, cost)
	c.warmHot(ctx, rel, payload, cost)
	return v, true, nil
}

// Delete removes key's files and reports whether a blob existed.
func (c *Cache[V]) Delete(ctx context.Context, key string) (bool, error) {
	rel, relMeta, err := c.paths(key)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_, statErr := os.Stat(filepath.Join(c.dir, rel))
	c.removeEntry(ctx, rel, relMeta)
	return statErr == nil, nil
}

// Usage returns the tracked bytes of encoded payloads on disk.
func (c *Cache[V]) Usage() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hist.Usage()
}

func (c *Cache[V]) Limit() uint64 { return c.limit }

// DetailedUsage reports per-band usage of the tracker, oldest first.
func (c *Cache[V]) DetailedUsage() []bytecache.Band {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hist.Bands()
}

// Clear removes every stored file and resets the tracker.
func (c *Cache[V]) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("fscache: clear: %w", err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(c.dir, e.Name())); err != nil {
			return fmt.Errorf("fscache: clear: %w", err)
		}
	}
	c.hist.Clear()
	c.hotGen++
	return nil
}

func (c *Cache[V]) hotKey(rel string) string {
	return strconv.FormatUint(c.hotGen, 10) + ":" + rel
}

// Close releases the hot tier, if any.
func (c *Cache[V]) Close(ctx context.Context) error {
	if c.hot != nil {
		return c.hot.Close(ctx)
	}
	return nil
}

// freeSpace reclaims aged-out entries and deletes their files until marginal
// more bytes fit under the limit. Entries still tracked in a generation are
// never freed on demand.
//
// When the entry under admission is itself reclaimed, its existing blob no
// longer offsets the new payload and the full cost must fit.
func (c *Cache[V]) freeSpace(ctx context.Context, rel string, marginal, full uint64) bool {
	for c.hist.Usage()+marginal > c.limit {
		evicted, freed := 0, uint64(0)
		c.hist.Spill(func(spilled string, cost uint64) {
			c.removeFiles(ctx, spilled, spilled+pathgen.MetaSuffix)
			if spilled == rel {
				marginal = full
			}
			evicted++
			freed += cost
		})
		if evicted == 0 {
			return false
		}
		c.hooks.Evicted(evicted, freed)
		c.log.Debug("spilled aged-out files", bytecache.Fields{"evicted": evicted, "freed": freed})
	}
	return true
}

func (c *Cache[V]) selfHeal(ctx context.Context, key, rel, relMeta, reason string) {
	c.removeEntry(ctx, rel, relMeta)
	c.hooks.SelfHeal(key, reason)
	c.log.Warn("dropped unreadable entry", bytecache.Fields{"key": key, "reason": reason})
}

// removeEntry forgets rel in the tracker and removes its files.
func (c *Cache[V]) removeEntry(ctx context.Context, rel, relMeta string) {
	c.hist.Remove(rel)
	c.removeFiles(ctx, rel, relMeta)
}

func (c *Cache[V]) removeFiles(ctx context.Context, rel, relMeta string) {
	if err := os.Remove(filepath.Join(c.dir, rel)); err != nil && !os.IsNotExist(err) {
		c.log.Error("remove blob", bytecache.Fields{"path": rel, "err": err})
	}
	if err := os.Remove(filepath.Join(c.dir, relMeta)); err != nil && !os.IsNotExist(err) {
		c.log.Error("remove meta", bytecache.Fields{"path": relMeta, "err": err})
	}
	if c.hot != nil {
		_ = c.hot.Del(ctx, c.hotKey(rel))
	}
}

func (c *Cache[V]) warmHot(ctx context.Context, rel string, payload []byte, cost uint64) {
	if c.hot == nil {
		return
	}
	if ok, err := c.hot.Set(ctx, c.hotKey(rel), payload, int64(cost), c.hotTTL); err != nil || !ok {
		c.log.Debug("hot tier rejected write", bytecache.Fields{"path": rel, "err": err})
	}
}
