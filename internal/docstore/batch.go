package docstore

import (
	"context"
	"encoding/json"
	"fmt"
)

type batchOp struct {
	op     string // "set" or "delete"
	path   string
	fields map[string]any
	merge  bool
}

// Batch accumulates writes that commit atomically in one transaction.
// Used by the admin cascade delete so a tenant's subtree disappears in
// a single commit where the store supports it. Not safe for concurrent
// use; build, then Commit once.
type Batch struct {
	store *Store
	ops   []batchOp
	err   error
}

// NewBatch starts an empty batch.
func (s *Store) NewBatch() *Batch {
	return &Batch{store: s}
}

// Set queues a create-or-overwrite at path.
func (b *Batch) Set(path string, fields map[string]any, merge bool) {
	if b.err == nil {
		b.err = ValidateDocPath(path)
	}
	b.ops = append(b.ops, batchOp{op: "set", path: path, fields: fields, merge: merge})
}

// Delete queues an idempotent delete at path.
func (b *Batch) Delete(path string) {
	if b.err == nil {
		b.err = ValidateDocPath(path)
	}
	b.ops = append(b.ops, batchOp{op: "delete", path: path})
}

// Len reports the number of queued operations.
func (b *Batch) Len() int { return len(b.ops) }

// Commit applies all queued operations in one transaction. Change
// notifications fire only after the commit succeeds.
func (b *Batch) Commit(ctx context.Context) error {
	if b.err != nil {
		return b.err
	}
	if len(b.ops) == 0 {
		return nil
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := b.store.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning batch: %w", mapStoreError(err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback on early return.

	for _, op := range b.ops {
		switch op.op {
		case "set":
			payload, err := json.Marshal(b.store.stamp(op.fields))
			if err != nil {
				return fmt.Errorf("encoding %s: %w", op.path, err)
			}

			assign := "EXCLUDED.data"
			if op.merge {
				assign = "documents.data || EXCLUDED.data"
			}

			if _, err := tx.Exec(ctx, `
				INSERT INTO documents (path, collection, doc_id, tenant_id, data)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (path) DO UPDATE
				SET data = `+assign+`, updated_at = now()`,
				op.path, CollectionOf(op.path), DocID(op.path), TenantIDOf(op.path), payload,
			); err != nil {
				return fmt.Errorf("batch write %s: %w", op.path, mapStoreError(err))
			}
		case "delete":
			if _, err := tx.Exec(ctx, "DELETE FROM documents WHERE path = $1", op.path); err != nil {
				return fmt.Errorf("batch delete %s: %w", op.path, mapStoreError(err))
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing batch: %w", mapStoreError(err))
	}

	for _, op := range b.ops {
		b.store.notify(op.op, op.path)
	}

	return nil
}
