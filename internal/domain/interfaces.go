// Package domain declares the interfaces the business layers depend
// on, decoupling them from the concrete docstore for testing.
package domain

import (
	"context"

	"github.com/tenantdesk/tenantdesk/internal/docstore"
	"github.com/tenantdesk/tenantdesk/internal/models"
)

// Store is the document store adapter contract (spec'd get/set/update/
// delete/query primitives plus the conditional create used for lazy
// initialization).
type Store interface {
	Get(ctx context.Context, path string) (map[string]any, bool, error)
	Set(ctx context.Context, path string, fields map[string]any, merge bool) error
	Update(ctx context.Context, path string, fields map[string]any) error
	Delete(ctx context.Context, path string) error
	CreateIfAbsent(ctx context.Context, path string, fields map[string]any) (bool, error)
	Query(ctx context.Context, collection string, filters []docstore.Filter, order *docstore.Order) ([]docstore.Document, error)
}

// Batch is a transactional multi-write.
type Batch interface {
	Set(path string, fields map[string]any, merge bool)
	Delete(path string)
	Len() int
	Commit(ctx context.Context) error
}

// Batcher creates batches.
type Batcher interface {
	NewBatch() Batch
}

// Subscription is a live watch handle on a single document.
type Subscription interface {
	Snapshots() <-chan docstore.Snapshot
	Err() error
	Cancel()
}

// Watcher opens subscriptions.
type Watcher interface {
	Watch(ctx context.Context, path string) (Subscription, error)
}

// Auditor records audit trail entries, best-effort.
type Auditor interface {
	Write(ctx context.Context, entry models.LogEntry)
	WriteBatch(ctx context.Context, entries []models.LogEntry)
}

type storeBatcher struct{ store *docstore.Store }

func (b storeBatcher) NewBatch() Batch { return b.store.NewBatch() }

// NewBatcher adapts a concrete store to the Batcher interface.
func NewBatcher(s *docstore.Store) Batcher { return storeBatcher{store: s} }

type dispatcherWatcher struct{ disp *docstore.Dispatcher }

func (w dispatcherWatcher) Watch(ctx context.Context, path string) (Subscription, error) {
	return w.disp.Watch(ctx, path)
}

// NewWatcher adapts a concrete dispatcher to the Watcher interface.
func NewWatcher(d *docstore.Dispatcher) Watcher { return dispatcherWatcher{disp: d} }
