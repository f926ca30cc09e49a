// Package diag batches structured serving-layer events and flushes them to
// an external observer. Pushes are debounced so request bursts produce a
// bounded rate of cross-boundary notifications.
package diag

import (
	"sync"
	"time"

	"github.com/getmocknode/mocknode/internal/id"
)

// EventType classifies a diagnostic event.
type EventType string

// Event types.
const (
	EventStart          EventType = "start"
	EventStop           EventType = "stop"
	EventRequest        EventType = "request"
	EventError          EventType = "error"
	EventConnect        EventType = "connect"
	EventDisconnect     EventType = "disconnect"
	EventSend           EventType = "send"
	EventReceive        EventType = "receive"
	EventAlreadyStopped EventType = "already-stopped"
)

// Event is one structured record destined for the observer. Events are
// buffered in memory only; the engine never persists them.
type Event struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	NodeID      string    `json:"nodeId"`
	ProjectID   string    `json:"projectId"`
	Data        any       `json:"data,omitempty"`
	TimestampMs int64     `json:"timestampMs"`
}

// State is a mock node's runtime state as reported in status events.
type State string

// Node states.
const (
	StateRunning State = "running"
	StateStopped State = "stopped"
	StateError   State = "error"
)

// Status describes a node's serving state for the host shell.
type Status struct {
	NodeID    string `json:"nodeId"`
	ProjectID string `json:"projectId"`
	State     State  `json:"state"`
	Port      int    `json:"port,omitempty"`
	Path      string `json:"path,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Observer receives batched log events and discrete status changes.
type Observer interface {
	LogsBatch(events []*Event)
	StatusChanged(status Status)
}

// flushDelay is the debounce window between the first buffered push and
// the batch handed to the observer.
const flushDelay = 50 * time.Millisecond

// Channel buffers events and flushes them to the observer on a timer.
// A nil-observer channel is a cheap sink.
type Channel struct {
	observer Observer

	mu        sync.Mutex
	buffer    []*Event
	scheduled bool
}

// NewChannel creates a diagnostics channel. The observer may be nil.
func NewChannel(observer Observer) *Channel {
	return &Channel{observer: observer}
}

// NewEvent constructs an event with a fresh id and the current timestamp.
func NewEvent(typ EventType, nodeID, projectID string, data any) *Event {
	return &Event{
		ID:          id.Event(),
		Type:        typ,
		NodeID:      nodeID,
		ProjectID:   projectID,
		Data:        data,
		TimestampMs: time.Now().UnixMilli(),
	}
}

// Push appends an event to the buffer. If no flush is pending, one is
// scheduled flushDelay later. Ordering within a batch is FIFO by push time.
func (c *Channel) Push(event *Event) {
	if c == nil || event == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.buffer = append(c.buffer, event)
	if !c.scheduled {
		c.scheduled = true
		time.AfterFunc(flushDelay, c.Flush)
	}
}

// PushNew is shorthand for Push(NewEvent(...)).
func (c *Channel) PushNew(typ EventType, nodeID, projectID string, data any) {
	c.Push(NewEvent(typ, nodeID, projectID, data))
}

// Flush drains the buffer and hands the whole batch to the observer in a
// single call, then clears the scheduled flag.
func (c *Channel) Flush() {
	if c == nil {
		return
	}
	c.mu.Lock()
	batch := c.buffer
	c.buffer = nil
	c.scheduled = false
	c.mu.Unlock()

	if len(batch) == 0 || c.observer == nil {
		return
	}
	c.observer.LogsBatch(batch)
}

// Status forwards a status change to the observer immediately; status
// transitions are low-volume and not debounced.
func (c *Channel) Status(status Status) {
	if c == nil || c.observer == nil {
		return
	}
	c.observer.StatusChanged(status)
}
