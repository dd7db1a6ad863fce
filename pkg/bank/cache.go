package bank

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sm-moshi/membank/internal/metrics"
)

// DefaultCacheMaxSize is the entry cap when none is configured.
const DefaultCacheMaxSize = 64

// CacheConfig holds configuration for the Cache
type CacheConfig struct {
	MaxSize int           // maximum number of entries before LRU eviction
	MaxAge  time.Duration // entries untouched longer than this reload on next access; 0 disables
}

// cacheEntry is the in-memory view of one file.
type cacheEntry struct {
	content      string
	modTime      time.Time // on-disk mtime observed at the most recent read
	lastAccessed time.Time
	accessSeq    int64 // strict access order; breaks ties when timestamps collide
	accessCount  int64
}

// CacheStats is a snapshot of the aggregate cache counters.
type CacheStats struct {
	Hits        int64     `json:"hits"`
	Misses      int64     `json:"misses"`
	Evictions   int64     `json:"evictions"`
	Reloads     int64     `json:"reloads"`
	TotalFiles  int       `json:"total_files"`
	CurrentSize int       `json:"current_size"`
	MaxSize     int       `json:"max_size"`
	HitRate     float64   `json:"hit_rate"`
	LastReset   time.Time `json:"last_reset"`
}

// Cache keeps file content in memory keyed by absolute path, validated
// against on-disk mtime on every access and evicted by strict LRU.
// All mutation is serialized by a single mutex per instance.
type Cache struct {
	mu      sync.Mutex
	cfg     CacheConfig
	fileOps *FileOps
	logger  zerolog.Logger

	entries map[string]*cacheEntry
	seen    map[string]struct{} // every path tracked since the last stats reset

	hits      int64
	misses    int64
	evictions int64
	reloads   int64
	lastReset time.Time
	seq       int64
}

// NewCache creates a new cache backed by fileOps.
func NewCache(cfg CacheConfig, fileOps *FileOps, logger zerolog.Logger) *Cache {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultCacheMaxSize
	}

	return &Cache{
		cfg:       cfg,
		fileOps:   fileOps,
		logger:    logger.With().Str("component", "cache").Logger(),
		entries:   make(map[string]*cacheEntry),
		seen:      make(map[string]struct{}),
		lastReset: time.Now(),
	}
}

// Get returns the content for path, loading from disk on a miss and
// reloading when the on-disk mtime no longer matches the entry.
func (c *Cache) Get(ctx context.Context, path string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()

	entry, ok := c.entries[path]
	if !ok {
		c.misses++
		metrics.RecordCacheMiss()
		return c.loadLocked(ctx, path, now)
	}

	info, err := c.fileOps.Stat(ctx, path)
	if err != nil {
		// The file went away underneath the entry; drop it and surface the error.
		delete(c.entries, path)
		metrics.SetCacheEntries(len(c.entries))
		return "", err
	}

	expired := c.cfg.MaxAge > 0 && now.Sub(entry.lastAccessed) > c.cfg.MaxAge
	if !info.ModTime().Equal(entry.modTime) || expired {
		c.reloads++
		metrics.RecordCacheReload()
		c.logger.Debug().Str("path", path).Bool("expired", expired).Msg("Cache entry stale, reloading")
		return c.loadLocked(ctx, path, now)
	}

	c.hits++
	metrics.RecordCacheHit()
	c.seq++
	entry.lastAccessed = now
	entry.accessSeq = c.seq
	entry.accessCount++
	return entry.content, nil
}

// Put records freshly written content for path without rereading it.
// modTime must be the mtime of the write that produced content; stamping
// the entry with any later on-disk mtime would pin superseded content
// past the staleness check. A Put that finds a newer write already on
// disk drops the path instead of storing.
func (c *Cache) Put(ctx context.Context, path, content string, modTime time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, err := c.fileOps.Stat(ctx, path)
	if err != nil {
		return err
	}

	if !info.ModTime().Equal(modTime) {
		// Another write landed after this one; the next access loads it.
		if _, ok := c.entries[path]; ok {
			delete(c.entries, path)
			metrics.SetCacheEntries(len(c.entries))
		}
		c.logger.Debug().Str("path", path).Msg("Cache put superseded by newer write")
		return nil
	}

	c.storeLocked(path, content, modTime, time.Now())
	return nil
}

// Invalidate removes the entry for path. It reports whether an entry was present.
func (c *Cache) Invalidate(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.entries[path]
	if ok {
		delete(c.entries, path)
		metrics.SetCacheEntries(len(c.entries))
	}
	return ok
}

// InvalidateAll clears every entry. Aggregate counters other than the
// current size are left untouched.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	metrics.SetCacheEntries(0)
}

// SweepExpired drops entries whose last access is older than MaxAge.
// It returns the number of entries removed.
func (c *Cache) SweepExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.MaxAge <= 0 {
		return 0
	}

	now := time.Now()
	swept := 0
	for path, entry := range c.entries {
		if now.Sub(entry.lastAccessed) > c.cfg.MaxAge {
			delete(c.entries, path)
			c.evictions++
			metrics.RecordCacheEviction()
			swept++
		}
	}

	if swept > 0 {
		metrics.SetCacheEntries(len(c.entries))
		c.logger.Debug().Int("swept", swept).Msg("Expired cache entries swept")
	}
	return swept
}

// Stats returns a snapshot of the aggregate counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var hitRate float64
	if total := c.hits + c.misses; total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}

	return CacheStats{
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		Reloads:     c.reloads,
		TotalFiles:  len(c.seen),
		CurrentSize: len(c.entries),
		MaxSize:     c.cfg.MaxSize,
		HitRate:     hitRate,
		LastReset:   c.lastReset,
	}
}

// ResetStats zeroes every counter. Cached entries are kept.
func (c *Cache) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.hits = 0
	c.misses = 0
	c.evictions = 0
	c.reloads = 0
	c.seen = make(map[string]struct{})
	c.lastReset = time.Now()
}

// loadLocked reads path from disk and stores the entry. Caller holds the lock.
func (c *Cache) loadLocked(ctx context.Context, path string, now time.Time) (string, error) {
	// Stat before read so the recorded mtime is never newer than the
	// content; the worst case is one spurious reload.
	info, err := c.fileOps.Stat(ctx, path)
	if err != nil {
		return "", err
	}

	content, err := c.fileOps.Read(ctx, path)
	if err != nil {
		return "", err
	}

	c.storeLocked(path, content, info.ModTime(), now)
	return content, nil
}

// storeLocked inserts or replaces the entry and evicts down to the cap.
// Caller holds the lock.
func (c *Cache) storeLocked(path, content string, modTime, now time.Time) {
	c.seq++
	c.entries[path] = &cacheEntry{
		content:      content,
		modTime:      modTime,
		lastAccessed: now,
		accessSeq:    c.seq,
		accessCount:  1,
	}
	c.seen[path] = struct{}{}

	for len(c.entries) > c.cfg.MaxSize {
		c.evictOldestLocked()
	}

	metrics.SetCacheEntries(len(c.entries))
}

// evictOldestLocked removes the single entry with the oldest last access.
// Caller holds the lock.
func (c *Cache) evictOldestLocked() {
	var oldestPath string
	var oldest int64

	for path, entry := range c.entries {
		if oldestPath == "" || entry.accessSeq < oldest {
			oldestPath = path
			oldest = entry.accessSeq
		}
	}

	if oldestPath == "" {
		return
	}

	delete(c.entries, oldestPath)
	c.evictions++
	metrics.RecordCacheEviction()

	c.logger.Debug().Str("path", oldestPath).Msg("Cache entry evicted")
}
