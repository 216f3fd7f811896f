package ws

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Event is the structured message sent to WebSocket clients.
type Event struct {
	Type     string          `json:"type"`
	ID       uint64          `json:"id"`
	TenantID string          `json:"-"`
	Data     json.RawMessage `json:"data"`
	Time     time.Time       `json:"time"`
}

// SubscribeMsg is sent by the client on connect to request event replay.
type SubscribeMsg struct {
	Type        string `json:"type"`
	LastEventID uint64 `json:"last_event_id"`
}

// UpdateFieldMsg is sent by the client to persist one field change on
// its company or user document.
type UpdateFieldMsg struct {
	Type  string `json:"type"`
	Scope string `json:"scope"`
	Field string `json:"field"`
	Value any    `json:"value"`
}

// ResetMsg tells the client to do a full refresh (requested events too old).
type ResetMsg struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// docUpdateMsg pushes a refreshed document view to the client.
type docUpdateMsg struct {
	Type  string         `json:"type"`
	Scope string         `json:"scope"`
	Data  map[string]any `json:"data"`
}

// saveStatusMsg pushes a save indicator transition to the client.
type saveStatusMsg struct {
	Type   string `json:"type"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// EventSequence tracks monotonic event IDs per tenant.
type EventSequence struct {
	mu       sync.Mutex
	counters map[string]*atomic.Uint64
}

// NewEventSequence creates a new EventSequence.
func NewEventSequence() *EventSequence {
	return &EventSequence{
		counters: make(map[string]*atomic.Uint64),
	}
}

// Next returns the next sequence number for a tenant.
func (es *EventSequence) Next(tenantID string) uint64 {
	es.mu.Lock()
	counter, ok := es.counters[tenantID]
	if !ok {
		counter = &atomic.Uint64{}
		es.counters[tenantID] = counter
	}
	es.mu.Unlock()

	return counter.Add(1)
}
