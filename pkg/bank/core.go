package bank

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sm-moshi/membank/internal/metrics"
)

// CoreConfig holds configuration for the memory bank core
type CoreConfig struct {
	Root      string
	Cache     CacheConfig
	FileOps   FileOpsConfig
	Templates *TemplateSet     // nil means the built-in defaults
	Validator ContentValidator // nil means the schema validator
	Logger    zerolog.Logger
}

// Core orchestrates path validation, retrying file I/O, the content
// cache and the metadata index. It guarantees every required document
// exists and is loadable, and that a completed write is visible to every
// subsequent read of the same path.
type Core struct {
	instanceID string
	paths      *PathValidator
	fileOps    *FileOps
	cache      *Cache
	index      *Index
	templates  *TemplateSet
	emitter    *EventEmitter
	logger     zerolog.Logger

	mu     sync.RWMutex
	files  map[FileType]*MemoryBankFile
	closed bool
}

// typeByRelPath reverses the fixed type→path mapping so arbitrary-path
// writes that land on a known document refresh its typed view.
var typeByRelPath = func() map[string]FileType {
	m := make(map[string]FileType, len(fileTypePaths))
	for t, rel := range fileTypePaths {
		m[filepath.FromSlash(rel)] = t
	}
	return m
}()

// NewCore creates a memory bank core rooted at cfg.Root.
func NewCore(cfg CoreConfig) (*Core, error) {
	paths, err := NewPathValidator(cfg.Root)
	if err != nil {
		return nil, err
	}

	instanceID := uuid.New().String()
	logger := cfg.Logger.With().
		Str("component", "membank").
		Str("instance", instanceID).
		Logger()

	templates := cfg.Templates
	if templates == nil {
		templates = NewTemplateSet()
	}

	validator := cfg.Validator
	if validator == nil {
		validator = NewSchemaValidator(logger)
	}

	fileOps := NewFileOps(cfg.FileOps, logger)

	return &Core{
		instanceID: instanceID,
		paths:      paths,
		fileOps:    fileOps,
		cache:      NewCache(cfg.Cache, fileOps, logger),
		index:      NewIndex(validator, logger),
		templates:  templates,
		emitter:    NewEventEmitter(),
		logger:     logger,
		files:      make(map[FileType]*MemoryBankFile),
	}, nil
}

// Root returns the configured root directory.
func (c *Core) Root() string {
	return c.paths.Root()
}

// InstanceID identifies this core instance in logs and events.
func (c *Core) InstanceID() string {
	return c.instanceID
}

// On registers an event handler
func (c *Core) On(event Event, handler EventHandler) {
	c.emitter.On(event, handler)
}

// InitializeFolders ensures the root and standard subdirectories exist.
// Idempotent.
func (c *Core) InitializeFolders(ctx context.Context) error {
	if err := c.fileOps.Mkdir(ctx, c.paths.Root()); err != nil {
		return err
	}

	for _, sub := range standardSubdirs {
		abs, err := c.paths.ResolvePath(sub)
		if err != nil {
			return err
		}
		if err := c.fileOps.Mkdir(ctx, abs); err != nil {
			return err
		}
	}

	c.logger.Debug().Str("root", c.paths.Root()).Msg("Memory bank folders initialized")
	return nil
}

// LoadFiles loads every known file type, creating any missing document
// from its template, and returns the list of types that had to be
// created. The store self-heals rather than failing on partial state.
func (c *Core) LoadFiles(ctx context.Context) ([]FileType, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, opError(CodeInvalidArgument, "load", "", fmt.Errorf("core is closed"))
	}

	start := time.Now()
	created := []FileType{}

	for _, t := range AllFileTypes() {
		select {
		case <-ctx.Done():
			return created, opError(CodeTransientExhausted, "load", string(t), ctx.Err())
		default:
		}

		abs, err := c.paths.ResolveType(t)
		if err != nil {
			return created, err
		}

		content, err := c.cache.Get(ctx, abs)
		if IsCode(err, CodeNotFound) {
			content, err = c.createFromTemplate(ctx, t, abs)
			if err != nil {
				return created, err
			}
			created = append(created, t)
		} else if err != nil {
			return created, err
		}

		rel, _ := t.RelativePath()
		c.files[t] = &MemoryBankFile{
			Type:         t,
			RelativePath: rel,
			Content:      content,
			LastUpdated:  time.Now(),
		}
		c.index.Upsert(abs, content)
	}

	metrics.RecordLoad(time.Since(start))
	c.emitter.EmitInitialized(len(c.files), created)

	c.logger.Info().
		Int("loaded", len(c.files)).
		Int("created", len(created)).
		Msg("Memory bank files loaded")

	return created, nil
}

// GetFile returns the in-memory document for a known type. Callers must
// run LoadFiles first: this is a deliberate two-phase contract so batch
// startup cost is paid once and predictably.
func (c *Core) GetFile(t FileType) (*MemoryBankFile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	file, ok := c.files[t]
	return file, ok
}

// LoadedFiles returns every loaded document in stable type order.
func (c *Core) LoadedFiles() []*MemoryBankFile {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*MemoryBankFile, 0, len(c.files))
	for _, t := range AllFileTypes() {
		if file, ok := c.files[t]; ok {
			out = append(out, file)
		}
	}
	return out
}

// ensureOpen rejects mutating operations on a closed core.
func (c *Core) ensureOpen(op string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return opError(CodeInvalidArgument, op, "", fmt.Errorf("core is closed"))
	}
	return nil
}

// UpdateFile writes new content for a known type. The cache and metadata
// index are updated before returning, so the next GetFile and every
// subsequent cache read observe the new content.
func (c *Core) UpdateFile(ctx context.Context, t FileType, content string) error {
	if err := c.ensureOpen("update"); err != nil {
		return err
	}

	abs, err := c.paths.ResolveType(t)
	if err != nil {
		return err
	}

	if err := c.writeThrough(ctx, abs, content); err != nil {
		c.emitter.EmitError(err, map[string]interface{}{"operation": "update", "type": string(t)})
		return err
	}

	rel, _ := t.RelativePath()

	c.mu.Lock()
	c.files[t] = &MemoryBankFile{
		Type:         t,
		RelativePath: rel,
		Content:      content,
		LastUpdated:  time.Now(),
	}
	c.mu.Unlock()

	c.emitter.EmitFileUpdated(abs, rel, t)
	c.logger.Debug().Str("type", string(t)).Int("bytes", len(content)).Msg("Memory bank file updated")
	return nil
}

// WriteFileByPath writes content to an arbitrary relative path under the
// root, for example ad hoc notes. A path that lands on a known document
// also refreshes its typed view.
func (c *Core) WriteFileByPath(ctx context.Context, relativePath, content string) error {
	if err := c.ensureOpen("write"); err != nil {
		return err
	}

	abs, err := c.paths.ResolvePath(relativePath)
	if err != nil {
		return err
	}

	if err := c.writeThrough(ctx, abs, content); err != nil {
		c.emitter.EmitError(err, map[string]interface{}{"operation": "write", "path": relativePath})
		return err
	}

	t, known := typeByRelPath[filepath.Clean(filepath.FromSlash(relativePath))]
	if known {
		rel, _ := t.RelativePath()
		c.mu.Lock()
		c.files[t] = &MemoryBankFile{
			Type:         t,
			RelativePath: rel,
			Content:      content,
			LastUpdated:  time.Now(),
		}
		c.mu.Unlock()
		c.emitter.EmitFileUpdated(abs, rel, t)
	} else {
		c.emitter.EmitFileUpdated(abs, relativePath, "")
	}

	c.logger.Debug().Str("path", relativePath).Int("bytes", len(content)).Msg("File written by path")
	return nil
}

// HealthReport aggregates the state of every known document.
type HealthReport struct {
	Healthy    bool
	Missing    []FileType
	Unreadable []FileType
	CheckedAt  time.Time
}

// Summary renders the report as a human-readable line.
func (r *HealthReport) Summary() string {
	if r.Healthy {
		return fmt.Sprintf("memory bank healthy: all %d files present", len(AllFileTypes()))
	}

	parts := []string{}
	if len(r.Missing) > 0 {
		names := make([]string, len(r.Missing))
		for i, t := range r.Missing {
			names[i] = string(t)
		}
		parts = append(parts, fmt.Sprintf("missing: %s", strings.Join(names, ", ")))
	}
	if len(r.Unreadable) > 0 {
		names := make([]string, len(r.Unreadable))
		for i, t := range r.Unreadable {
			names[i] = string(t)
		}
		parts = append(parts, fmt.Sprintf("unreadable: %s", strings.Join(names, ", ")))
	}
	return "memory bank unhealthy: " + strings.Join(parts, "; ")
}

// CheckHealth verifies every known type is present and loadable on disk.
// Problems are collected into one report instead of stopping at the
// first failure. It never repairs; repair stays in LoadFiles.
func (c *Core) CheckHealth(ctx context.Context) (*HealthReport, error) {
	start := time.Now()
	report := &HealthReport{CheckedAt: start}

	for _, t := range AllFileTypes() {
		select {
		case <-ctx.Done():
			return report, opError(CodeTransientExhausted, "health", string(t), ctx.Err())
		default:
		}

		abs, err := c.paths.ResolveType(t)
		if err != nil {
			report.Unreadable = append(report.Unreadable, t)
			continue
		}

		if _, err := c.fileOps.Stat(ctx, abs); IsCode(err, CodeNotFound) {
			report.Missing = append(report.Missing, t)
			continue
		} else if err != nil {
			report.Unreadable = append(report.Unreadable, t)
			continue
		}

		if _, err := c.fileOps.Read(ctx, abs); err != nil {
			report.Unreadable = append(report.Unreadable, t)
		}
	}

	report.Healthy = len(report.Missing) == 0 && len(report.Unreadable) == 0
	metrics.RecordHealthCheck(time.Since(start), report.Healthy)

	if !report.Healthy {
		c.logger.Warn().
			Int("missing", len(report.Missing)).
			Int("unreadable", len(report.Unreadable)).
			Msg("Memory bank health check failed")
		return report, opError(CodeUnhealthy, "health", "", fmt.Errorf("%s", report.Summary()))
	}

	return report, nil
}

// Reindex rebuilds the metadata index from every markdown file under the
// root, reading through the cache.
func (c *Core) Reindex(ctx context.Context) error {
	if err := c.ensureOpen("reindex"); err != nil {
		return err
	}

	root := c.paths.Root()
	contents := make(map[string]string)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			c.logger.Warn().Err(err).Str("path", path).Msg("Error walking root")
			return nil
		}

		if d.IsDir() {
			if name := d.Name(); path != root && len(name) > 0 && name[0] == '.' {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		if len(name) > 0 && name[0] == '.' || strings.HasSuffix(name, ".tmp") {
			return nil
		}
		if filepath.Ext(name) != ".md" {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		content, err := c.cache.Get(ctx, path)
		if err != nil {
			c.logger.Warn().Err(err).Str("path", path).Msg("Failed to read file during reindex")
			return nil
		}

		contents[path] = content
		return nil
	})
	if err != nil {
		return opError(CodeTransientExhausted, "reindex", root, err)
	}

	c.index.RebuildAll(contents)
	c.logger.Info().Int("files", len(contents)).Msg("Metadata index rebuilt")
	return nil
}

// Query searches the metadata index.
func (c *Core) Query(f Filter) []IndexEntry {
	return c.index.Query(f)
}

// IndexEntryFor returns the metadata record for a known type.
func (c *Core) IndexEntryFor(t FileType) (IndexEntry, bool) {
	abs, err := c.paths.ResolveType(t)
	if err != nil {
		return IndexEntry{}, false
	}
	return c.index.Get(abs)
}

// InvalidateCache removes the entries for the given relative paths, or
// every entry when called with no arguments.
func (c *Core) InvalidateCache(relativePaths ...string) error {
	if len(relativePaths) == 0 {
		c.cache.InvalidateAll()
		c.emitter.EmitCacheInvalidated("")
		return nil
	}

	for _, rel := range relativePaths {
		abs, err := c.paths.ResolvePath(rel)
		if err != nil {
			return err
		}
		c.cache.Invalidate(abs)
		c.emitter.EmitCacheInvalidated(abs)
	}
	return nil
}

// CacheStats returns a snapshot of the cache counters.
func (c *Core) CacheStats() CacheStats {
	return c.cache.Stats()
}

// ResetCacheStats zeroes the cache counters.
func (c *Core) ResetCacheStats() {
	c.cache.ResetStats()
}

// Close releases resources and rejects further loads.
func (c *Core) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.cache.InvalidateAll()
	c.emitter.RemoveAllListeners()
	c.closed = true

	c.logger.Info().Msg("Memory bank core closed")
	return nil
}

// writeThrough performs the atomic write and synchronously refreshes the
// cache and metadata index so no stale state is observable afterwards.
func (c *Core) writeThrough(ctx context.Context, abs, content string) error {
	info, err := c.fileOps.Write(ctx, abs, content)
	if err != nil {
		return err
	}

	if err := c.cache.Put(ctx, abs, content, info.ModTime()); err != nil {
		// The file was just written; a failed stat here means the cache
		// can no longer mirror disk.
		return opError(CodeCacheInconsistency, "write", abs, err)
	}

	c.index.Upsert(abs, content)
	return nil
}

// createFromTemplate repairs a missing document from its template and
// returns the written content.
func (c *Core) createFromTemplate(ctx context.Context, t FileType, abs string) (string, error) {
	content, ok := c.templates.Content(t)
	if !ok {
		return "", opError(CodeUnknownFileType, "create", string(t), fmt.Errorf("no template for file type: %q", t))
	}

	info, err := c.fileOps.Write(ctx, abs, content)
	if err != nil {
		return "", err
	}
	if err := c.cache.Put(ctx, abs, content, info.ModTime()); err != nil {
		return "", err
	}

	rel, _ := t.RelativePath()
	c.emitter.EmitFileCreated(abs, rel, t)
	c.logger.Info().Str("type", string(t)).Msg("Missing memory bank file created from template")

	return content, nil
}

// handleExternalChange refreshes engine state for a file modified
// outside the engine. Called by the watcher.
func (c *Core) handleExternalChange(ctx context.Context, abs string) error {
	c.cache.Invalidate(abs)

	content, err := c.cache.Get(ctx, abs)
	if err != nil {
		return err
	}

	c.index.Upsert(abs, content)

	rel, err := c.paths.Relative(abs)
	if err != nil {
		return err
	}

	if t, known := typeByRelPath[filepath.Clean(rel)]; known {
		c.mu.Lock()
		c.files[t] = &MemoryBankFile{
			Type:         t,
			RelativePath: filepath.ToSlash(rel),
			Content:      content,
			LastUpdated:  time.Now(),
		}
		c.mu.Unlock()
		c.emitter.EmitFileUpdated(abs, rel, t)
	} else {
		c.emitter.EmitFileUpdated(abs, rel, "")
	}

	return nil
}

// handleExternalRemove drops engine state for a file deleted outside the
// engine. Called by the watcher.
func (c *Core) handleExternalRemove(abs string) {
	c.cache.Invalidate(abs)
	c.index.Remove(abs)

	rel, err := c.paths.Relative(abs)
	if err != nil {
		return
	}

	if t, known := typeByRelPath[filepath.Clean(rel)]; known {
		c.mu.Lock()
		delete(c.files, t)
		c.mu.Unlock()
		c.emitter.EmitFileRemoved(abs, rel, t)
		c.logger.Warn().Str("type", string(t)).Msg("Required memory bank file deleted externally")
	} else {
		c.emitter.EmitFileRemoved(abs, rel, "")
	}
}
