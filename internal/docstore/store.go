package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/tenantdesk/tenantdesk/internal/dbpool"
	"github.com/tenantdesk/tenantdesk/internal/metrics"
	"github.com/tenantdesk/tenantdesk/internal/models"
)

const defaultQueryTimeout = 30 * time.Second

// NotifyChannel is the LISTEN/NOTIFY channel document changes are
// published on.
const NotifyChannel = "doc_changes"

// Store is the document store adapter. One instance serves the whole
// process; it is safe for concurrent use.
type Store struct {
	Pool *dbpool.Pool
	Log  *logrus.Logger

	// now is swappable for tests.
	now func() time.Time
}

// New creates a Store on the given pool.
func New(pool *dbpool.Pool, log *logrus.Logger) *Store {
	return &Store{Pool: pool, Log: log, now: time.Now}
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, defaultQueryTimeout)
}

// mapStoreError translates driver errors into the model sentinels where
// a sentinel exists; everything else propagates wrapped.
func mapStoreError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "42501" {
		return fmt.Errorf("%s: %w", pgErr.Message, models.ErrPermissionDenied)
	}
	return err
}

// stamp returns a copy of fields with updatedAt set to the current time.
func (s *Store) stamp(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["updatedAt"] = s.now().UTC().Format(time.RFC3339)

	return out
}

// notify publishes a document change on the doc_changes channel.
// Best-effort and post-commit: a failed notify is logged, never surfaced.
func (s *Store) notify(op, path string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	payload, _ := json.Marshal(ChangeEvent{ //nolint:errcheck // static keys, cannot fail.
		Op:       op,
		Path:     path,
		TenantID: TenantIDOf(path),
	})
	if _, err := s.Pool.Exec(ctx, "SELECT pg_notify($1, $2)", NotifyChannel, string(payload)); err != nil {
		s.Log.WithError(err).WithField("path", path).Warn("failed to send " + op + " notification")
	}
}

// Get fetches the document at path. The second return is false when the
// document does not exist; that is not an error.
func (s *Store) Get(ctx context.Context, path string) (map[string]any, bool, error) {
	if err := ValidateDocPath(path); err != nil {
		return nil, false, err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var raw []byte

	err := s.Pool.QueryRow(ctx, "SELECT data FROM documents WHERE path = $1", path).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", path, mapStoreError(err))
	}

	data := make(map[string]any)
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, false, fmt.Errorf("decoding %s: %w", path, err)
	}

	metrics.DocOps.WithLabelValues("get").Inc()

	return data, true, nil
}

// Set creates or overwrites the document at path. With merge, fields
// not named are preserved. updatedAt is always stamped.
func (s *Store) Set(ctx context.Context, path string, fields map[string]any, merge bool) error {
	if err := ValidateDocPath(path); err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	payload, err := json.Marshal(s.stamp(fields))
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	assign := "EXCLUDED.data"
	if merge {
		assign = "documents.data || EXCLUDED.data"
	}

	_, err = s.Pool.Exec(ctx, `
		INSERT INTO documents (path, collection, doc_id, tenant_id, data)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (path) DO UPDATE
		SET data = `+assign+`, updated_at = now()`,
		path, CollectionOf(path), DocID(path), TenantIDOf(path), payload,
	)
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, mapStoreError(err))
	}

	metrics.DocOps.WithLabelValues("set").Inc()
	s.notify("set", path)

	return nil
}

// Update applies a partial update to an existing document. Fails with
// models.ErrNotFound when the document is absent.
func (s *Store) Update(ctx context.Context, path string, fields map[string]any) error {
	if err := ValidateDocPath(path); err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	payload, err := json.Marshal(s.stamp(fields))
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	tag, err := s.Pool.Exec(ctx,
		"UPDATE documents SET data = data || $2, updated_at = now() WHERE path = $1",
		path, payload,
	)
	if err != nil {
		return fmt.Errorf("updating %s: %w", path, mapStoreError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", path, models.ErrNotFound)
	}

	metrics.DocOps.WithLabelValues("update").Inc()
	s.notify("update", path)

	return nil
}

// Delete removes the document at path. Deleting an absent document is
// not an error.
func (s *Store) Delete(ctx context.Context, path string) error {
	if err := ValidateDocPath(path); err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tag, err := s.Pool.Exec(ctx, "DELETE FROM documents WHERE path = $1", path)
	if err != nil {
		return fmt.Errorf("deleting %s: %w", path, mapStoreError(err))
	}

	metrics.DocOps.WithLabelValues("delete").Inc()

	if tag.RowsAffected() > 0 {
		s.notify("delete", path)
	}

	return nil
}

// CreateIfAbsent inserts the document only when no document exists at
// path, reporting whether this call created it. This is the race guard
// behind lazy initialization: of N concurrent callers exactly one
// observes created == true.
func (s *Store) CreateIfAbsent(ctx context.Context, path string, fields map[string]any) (bool, error) {
	if err := ValidateDocPath(path); err != nil {
		return false, err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	payload, err := json.Marshal(s.stamp(fields))
	if err != nil {
		return false, fmt.Errorf("encoding %s: %w", path, err)
	}

	tag, err := s.Pool.Exec(ctx, `
		INSERT INTO documents (path, collection, doc_id, tenant_id, data)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (path) DO NOTHING`,
		path, CollectionOf(path), DocID(path), TenantIDOf(path), payload,
	)
	if err != nil {
		return false, fmt.Errorf("initializing %s: %w", path, mapStoreError(err))
	}

	created := tag.RowsAffected() > 0
	if created {
		metrics.DocOps.WithLabelValues("create").Inc()
		s.notify("set", path)
	}

	return created, nil
}
