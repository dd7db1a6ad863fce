package bank

import (
	"sort"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/sm-moshi/membank/internal/metrics"
)

// ValidationStatus classifies how a document's content relates to its
// type's schema.
type ValidationStatus string

const (
	StatusValid   ValidationStatus = "valid"
	StatusInvalid ValidationStatus = "invalid"
	StatusUnknown ValidationStatus = "unknown"
)

// IndexEntry is the queryable metadata record for one tracked file.
type IndexEntry struct {
	ID               string           `json:"id"`
	Path             string           `json:"path"`
	Type             string           `json:"type"`
	Title            string           `json:"title"`
	Tags             []string         `json:"tags"`
	ValidationStatus ValidationStatus `json:"validation_status"`
	Size             int64            `json:"size"`
	Created          time.Time        `json:"created"`
	Updated          time.Time        `json:"updated"`
}

// QueryOrder selects a derived view over the index.
type QueryOrder int

const (
	OrderNone QueryOrder = iota
	OrderRecentFirst
	OrderLargestFirst
)

// Filter narrows a Query. Zero values match everything.
type Filter struct {
	Tags   []string         // entry must carry all of these
	Type   string           // exact type match
	Status ValidationStatus // exact validation status match
	Order  QueryOrder
	Limit  int // 0 means unbounded
}

// ContentValidator computes a validation status for a document. Unknown
// types must validate as StatusUnknown, never StatusInvalid.
type ContentValidator interface {
	Validate(fileType string, meta map[string]interface{}, content string) ValidationStatus
}

// Index maintains queryable metadata records derived from file content.
// Parsing never blocks a read or write: content without a usable header
// produces a minimal record.
type Index struct {
	mu        sync.RWMutex
	entries   map[string]*IndexEntry
	validator ContentValidator
	logger    zerolog.Logger
}

// NewIndex creates an empty metadata index. validator may be nil, in
// which case every entry validates as unknown.
func NewIndex(validator ContentValidator, logger zerolog.Logger) *Index {
	return &Index{
		entries:   make(map[string]*IndexEntry),
		validator: validator,
		logger:    logger.With().Str("component", "index").Logger(),
	}
}

// Upsert rebuilds the entry for path from content.
func (i *Index) Upsert(path, content string) {
	entry := i.buildEntry(path, content)

	i.mu.Lock()
	defer i.mu.Unlock()

	i.mergeLocked(entry, time.Now())
	i.entries[path] = entry
	metrics.SetIndexEntries(len(i.entries))
}

// Remove drops the entry for path.
func (i *Index) Remove(path string) {
	i.mu.Lock()
	defer i.mu.Unlock()

	delete(i.entries, path)
	metrics.SetIndexEntries(len(i.entries))
}

// Len returns the number of tracked entries.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.entries)
}

// Get returns a copy of the entry for path.
func (i *Index) Get(path string) (IndexEntry, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	entry, ok := i.entries[path]
	if !ok {
		return IndexEntry{}, false
	}
	return *entry, true
}

// Query returns copies of every entry matching the filter, in the
// requested order, bounded by the filter's limit.
func (i *Index) Query(f Filter) []IndexEntry {
	i.mu.RLock()

	matched := make([]IndexEntry, 0, len(i.entries))
	for _, entry := range i.entries {
		if matches(entry, f) {
			matched = append(matched, *entry)
		}
	}
	i.mu.RUnlock()

	switch f.Order {
	case OrderRecentFirst:
		sort.Slice(matched, func(a, b int) bool {
			return matched[a].Updated.After(matched[b].Updated)
		})
	case OrderLargestFirst:
		sort.Slice(matched, func(a, b int) bool {
			return matched[a].Size > matched[b].Size
		})
	default:
		sort.Slice(matched, func(a, b int) bool {
			return matched[a].Path < matched[b].Path
		})
	}

	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched
}

// RebuildAll replaces the entire index from the given path/content pairs.
// The new map is swapped in after full construction so concurrent queries
// never observe a partially rebuilt index. Identity and timestamps of
// surviving paths carry over.
func (i *Index) RebuildAll(contents map[string]string) {
	i.mu.Lock()
	defer i.mu.Unlock()

	now := time.Now()
	rebuilt := make(map[string]*IndexEntry, len(contents))
	for path, content := range contents {
		entry := i.buildEntry(path, content)
		i.mergeLocked(entry, now)
		rebuilt[path] = entry
	}

	i.entries = rebuilt
	metrics.SetIndexEntries(len(i.entries))

	i.logger.Debug().Int("entries", len(rebuilt)).Msg("Metadata index rebuilt")
}

// buildEntry derives a fresh record from content. Identity fields are
// filled in by mergeLocked.
func (i *Index) buildEntry(path, content string) *IndexEntry {
	entry := &IndexEntry{
		Path:             path,
		Tags:             []string{},
		ValidationStatus: StatusUnknown,
		Size:             int64(len(content)),
	}

	meta, ok := parseFrontMatter(content)
	if ok {
		entry.Type = metaString(meta, "type")
		entry.Title = metaString(meta, "title")
		if tags := metaStrings(meta, "tags"); tags != nil {
			entry.Tags = tags
		}
	}

	if i.validator != nil {
		entry.ValidationStatus = i.validator.Validate(entry.Type, meta, content)
	}

	return entry
}

// mergeLocked carries identity and timestamps over from any existing
// entry for the same path. Updated stays monotonic non-decreasing while
// the path lives in the index. Caller holds the lock.
func (i *Index) mergeLocked(entry *IndexEntry, now time.Time) {
	old, ok := i.entries[entry.Path]
	if !ok {
		id, err := gonanoid.New()
		if err != nil {
			id = entry.Path
		}
		entry.ID = id
		entry.Created = now
		entry.Updated = now
		return
	}

	entry.ID = old.ID
	entry.Created = old.Created
	entry.Updated = now
	if entry.Updated.Before(old.Updated) {
		entry.Updated = old.Updated
	}
}

// matches applies a filter to one entry.
func matches(entry *IndexEntry, f Filter) bool {
	if f.Type != "" && entry.Type != f.Type {
		return false
	}
	if f.Status != "" && entry.ValidationStatus != f.Status {
		return false
	}
	for _, want := range f.Tags {
		found := false
		for _, tag := range entry.Tags {
			if tag == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
