package bank

import (
	"sync"
	"time"
)

// EventHandler is a function that handles memory bank events
type EventHandler func(payload interface{})

// EventEmitter broadcasts memory bank events to subscribers
type EventEmitter struct {
	mu        sync.RWMutex
	listeners map[Event][]EventHandler
}

// NewEventEmitter creates a new event emitter
func NewEventEmitter() *EventEmitter {
	return &EventEmitter{
		listeners: make(map[Event][]EventHandler),
	}
}

// On registers an event handler for a specific event type
func (e *EventEmitter) On(event Event, handler EventHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.listeners[event] = append(e.listeners[event], handler)
}

// Emit emits an event with a payload (asynchronously)
func (e *EventEmitter) Emit(event Event, payload interface{}) {
	e.mu.RLock()
	handlers := e.listeners[event]
	e.mu.RUnlock()

	// Emit asynchronously to avoid blocking engine operations
	for _, handler := range handlers {
		go handler(payload)
	}
}

// EmitInitialized emits a store initialized event
func (e *EventEmitter) EmitInitialized(loaded int, created []FileType) {
	e.Emit(EventInitialized, InitializedPayload{
		EventPayload: EventPayload{Timestamp: time.Now()},
		LoadedCount:  loaded,
		CreatedTypes: created,
	})
}

// EmitFileCreated emits a file created event
func (e *EventEmitter) EmitFileCreated(path, relativePath string, fileType FileType) {
	e.Emit(EventFileCreated, FileEventPayload{
		EventPayload: EventPayload{Timestamp: time.Now()},
		Path:         path,
		RelativePath: relativePath,
		Type:         fileType,
	})
}

// EmitFileUpdated emits a file updated event
func (e *EventEmitter) EmitFileUpdated(path, relativePath string, fileType FileType) {
	e.Emit(EventFileUpdated, FileEventPayload{
		EventPayload: EventPayload{Timestamp: time.Now()},
		Path:         path,
		RelativePath: relativePath,
		Type:         fileType,
	})
}

// EmitFileRemoved emits a file removed event
func (e *EventEmitter) EmitFileRemoved(path, relativePath string, fileType FileType) {
	e.Emit(EventFileRemoved, FileEventPayload{
		EventPayload: EventPayload{Timestamp: time.Now()},
		Path:         path,
		RelativePath: relativePath,
		Type:         fileType,
	})
}

// EmitCacheInvalidated emits a cache invalidation event
func (e *EventEmitter) EmitCacheInvalidated(path string) {
	e.Emit(EventCacheInvalidated, InvalidationPayload{
		EventPayload: EventPayload{Timestamp: time.Now()},
		Path:         path,
	})
}

// EmitError emits an error event
func (e *EventEmitter) EmitError(err error, context map[string]interface{}) {
	e.Emit(EventError, ErrorPayload{
		EventPayload: EventPayload{Timestamp: time.Now()},
		Error:        err,
		Context:      context,
	})
}

// RemoveAllListeners removes all event listeners
func (e *EventEmitter) RemoveAllListeners() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = make(map[Event][]EventHandler)
}
