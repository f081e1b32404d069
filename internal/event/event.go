// Package event carries object lifecycle notifications between the object
// store and the synchronization engine.
package event

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Type represents the type of an event
type Type string

// Event types emitted by the engine
const (
	ObjectCreated Type = "object.created"
	ObjectUpdated Type = "object.updated"
	ObjectDeleted Type = "object.deleted"

	RunCompleted Type = "synchronization.run.completed"
	RunFailed    Type = "synchronization.run.failed"
)

// SchemaVersion is the current event payload schema version
const SchemaVersion = "1.0"

// Event is a versioned notification with a typed payload
type Event struct {
	Version string `json:"version"`
	Type    Type   `json:"type"`
	Payload any    `json:"payload"`
}

// ObjectPayloadV1 is the typed payload for object lifecycle events. It names
// the changed object; subscribers fetch the body themselves when needed.
type ObjectPayloadV1 struct {
	Register  string `json:"register"`
	Schema    string `json:"schema"`
	ObjectID  string `json:"object_id"`
	Timestamp int64  `json:"timestamp"`
}

// RunPayloadV1 is the typed payload for run lifecycle events
type RunPayloadV1 struct {
	RunID             string `json:"run_id"`
	SynchronizationID string `json:"synchronization_id"`
	Status            string `json:"status"`
	Timestamp         int64  `json:"timestamp"`
}

// NewObjectEvent builds an object lifecycle event
func NewObjectEvent(eventType Type, register, schema, objectID string) Event {
	return Event{
		Version: SchemaVersion,
		Type:    eventType,
		Payload: ObjectPayloadV1{
			Register:  register,
			Schema:    schema,
			ObjectID:  objectID,
			Timestamp: time.Now().Unix(),
		},
	}
}

// NewRunEvent builds a run lifecycle event
func NewRunEvent(eventType Type, runID, syncID, status string) Event {
	return Event{
		Version: SchemaVersion,
		Type:    eventType,
		Payload: RunPayloadV1{
			RunID:             runID,
			SynchronizationID: syncID,
			Status:            status,
			Timestamp:         time.Now().Unix(),
		},
	}
}

// Handler is a function that handles an event
type Handler func(ctx context.Context, event Event) error

// Bus defines the interface for an event bus
type Bus interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType Type, handler Handler)
}

// MemoryBus is an in-memory implementation of the event bus. Handlers run
// synchronously in subscription order.
type MemoryBus struct {
	handlers map[Type][]Handler
	mu       sync.RWMutex
}

// NewMemoryBus creates a new MemoryBus
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		handlers: make(map[Type][]Handler),
	}
}

// Publish delivers an event to all subscribers. Handler failures are
// collected; one failing handler does not stop the others.
func (b *MemoryBus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers, ok := b.handlers[event.Type]
	b.mu.RUnlock()

	if !ok {
		return nil
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d handler(s) failed for %s: %v", len(errs), event.Type, errs)
	}
	return nil
}

// Subscribe registers a handler for an event type
func (b *MemoryBus) Subscribe(eventType Type, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}
