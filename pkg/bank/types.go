package bank

import "time"

// FileType identifies one of the fixed memory bank documents
type FileType string

const (
	FileTypeProjectBrief    FileType = "projectBrief"    // core/projectBrief.md
	FileTypeProductContext  FileType = "productContext"  // core/productContext.md
	FileTypeActiveContext   FileType = "activeContext"   // core/activeContext.md
	FileTypeSystemPatterns  FileType = "systemPatterns"  // core/systemPatterns.md
	FileTypeTechContext     FileType = "techContext"     // core/techContext.md
	FileTypeProgressCurrent FileType = "progressCurrent" // progress/current.md
	FileTypeProgressHistory FileType = "progressHistory" // progress/history.md
)

// fileTypePaths maps each known file type to its fixed relative path.
var fileTypePaths = map[FileType]string{
	FileTypeProjectBrief:    "core/projectBrief.md",
	FileTypeProductContext:  "core/productContext.md",
	FileTypeActiveContext:   "core/activeContext.md",
	FileTypeSystemPatterns:  "core/systemPatterns.md",
	FileTypeTechContext:     "core/techContext.md",
	FileTypeProgressCurrent: "progress/current.md",
	FileTypeProgressHistory: "progress/history.md",
}

// standardSubdirs are created under the root by InitializeFolders.
var standardSubdirs = []string{"core", "progress", "notes"}

// AllFileTypes returns the known file types in a stable order.
func AllFileTypes() []FileType {
	return []FileType{
		FileTypeProjectBrief,
		FileTypeProductContext,
		FileTypeActiveContext,
		FileTypeSystemPatterns,
		FileTypeTechContext,
		FileTypeProgressCurrent,
		FileTypeProgressHistory,
	}
}

// Valid reports whether the file type is part of the known enumeration.
func (t FileType) Valid() bool {
	_, ok := fileTypePaths[t]
	return ok
}

// RelativePath returns the fixed relative path for a known file type.
func (t FileType) RelativePath() (string, bool) {
	rel, ok := fileTypePaths[t]
	return rel, ok
}

// MemoryBankFile represents one loaded memory bank document.
// Instances are replaced, never mutated, on every successful update.
type MemoryBankFile struct {
	Type         FileType
	RelativePath string
	Content      string
	LastUpdated  time.Time
}

// Event represents event types emitted by the memory bank core
type Event string

const (
	EventInitialized      Event = "bank.initialized"
	EventFileCreated      Event = "bank.file.created"
	EventFileUpdated      Event = "bank.file.updated"
	EventFileRemoved      Event = "bank.file.removed"
	EventCacheInvalidated Event = "bank.cache.invalidated"
	EventError            Event = "bank.error"
)

// EventPayload represents the base event payload
type EventPayload struct {
	Timestamp time.Time
}

// InitializedPayload is emitted when the store has been loaded
type InitializedPayload struct {
	EventPayload
	LoadedCount  int
	CreatedTypes []FileType
}

// FileEventPayload is emitted for file operations
type FileEventPayload struct {
	EventPayload
	Path         string
	RelativePath string
	Type         FileType
}

// InvalidationPayload is emitted when cache entries are dropped
type InvalidationPayload struct {
	EventPayload
	Path string // empty when the whole cache was cleared
}

// ErrorPayload is emitted when an error occurs
type ErrorPayload struct {
	EventPayload
	Error   error
	Context map[string]interface{}
}
