package models

import "time"

// LogEntry is a single immutable audit record stored at
// TENANTS/{tenantId}/{collection}/{logId}. Entries are created on every
// mutation and never updated or deleted by the application.
type LogEntry struct {
	ID         string         `json:"id"`
	TenantID   string         `json:"-"`
	Collection string         `json:"-"`
	Action     string         `json:"action"`
	ActorID    string         `json:"userId"`
	OldValue   any            `json:"oldValue,omitempty"`
	NewValue   any            `json:"newValue,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}
