// Package audit writes the per-tenant audit trail. Every business
// mutation pairs with one immutable log entry; writing that entry is
// best-effort and must never fail the mutation it records.
package audit

import (
	"context"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/tenantdesk/tenantdesk/internal/docstore"
	"github.com/tenantdesk/tenantdesk/internal/domain"
	"github.com/tenantdesk/tenantdesk/internal/models"
	"github.com/tenantdesk/tenantdesk/internal/sanitize"
)

// batchConcurrency caps how many batch entries write at once.
const batchConcurrency = 8

const logIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Compile-time check: *Logger must satisfy domain.Auditor.
var _ domain.Auditor = (*Logger)(nil)

// Logger appends log entries under TENANTS/{tenant}/{collection}/{logId}.
type Logger struct {
	store domain.Store
	log   *logrus.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewLogger creates a Logger on the given store.
func NewLogger(store domain.Store, log *logrus.Logger) *Logger {
	return &Logger{store: store, log: log, now: time.Now}
}

// newLogID builds {epoch_millis}_{random base36 suffix}: monotonic-ish
// ordering and collision resistance without a central counter.
func (l *Logger) newLogID() string {
	suffix := make([]byte, 7)
	for i := range suffix {
		suffix[i] = logIDAlphabet[rand.IntN(len(logIDAlphabet))]
	}

	return strconv.FormatInt(l.now().UnixMilli(), 10) + "_" + string(suffix)
}

// Write records one audit entry. String-typed old/new values and
// metadata entries are sanitized first. All failures are swallowed:
// they are logged locally and never propagate, because the mutation
// being audited has already committed.
func (l *Logger) Write(ctx context.Context, entry models.LogEntry) {
	if entry.TenantID == "" || entry.Collection == "" {
		l.log.WithField("action", entry.Action).Warn("dropping audit entry without tenant or collection")
		return
	}

	logID := entry.ID
	if logID == "" {
		logID = l.newLogID()
	}

	doc := map[string]any{
		"action":    entry.Action,
		"userId":    entry.ActorID,
		"timestamp": l.now().UTC().Format(time.RFC3339),
	}
	if entry.OldValue != nil {
		doc["oldValue"] = sanitize.Value(entry.OldValue)
	}
	if entry.NewValue != nil {
		doc["newValue"] = sanitize.Value(entry.NewValue)
	}
	for k, v := range sanitize.Map(entry.Metadata) {
		doc[k] = v
	}

	path := docstore.JoinPath(models.CollectionTenants, entry.TenantID, entry.Collection, logID)
	if err := l.store.Set(ctx, path, doc, false); err != nil {
		l.log.WithError(err).WithFields(logrus.Fields{
			"tenant_id": entry.TenantID,
			"action":    entry.Action,
		}).Warn("audit write failed")
	}
}

// WriteBatch records entries concurrently, each independently
// best-effort; a failed entry never blocks its siblings.
func (l *Logger) WriteBatch(ctx context.Context, entries []models.LogEntry) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)

	for _, entry := range entries {
		g.Go(func() error {
			l.Write(ctx, entry)
			return nil
		})
	}

	g.Wait() //nolint:errcheck // individual writes swallow their own failures.
}
