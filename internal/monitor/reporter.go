// Package monitor is the local diagnostics sink: error reports from the
// server and from frontend clients land in the global system_errors
// collection, best-effort.
package monitor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tenantdesk/tenantdesk/internal/docstore"
	"github.com/tenantdesk/tenantdesk/internal/domain"
	"github.com/tenantdesk/tenantdesk/internal/models"
)

const captureTimeout = 5 * time.Second

// Report is one captured error, either internal or posted by a client
// through the diagnostics endpoint.
type Report struct {
	Name      string         `json:"name,omitempty"`
	Message   string         `json:"message"`
	Stack     string         `json:"stack,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	UserAgent string         `json:"userAgent,omitempty"`
	URL       string         `json:"url,omitempty"`
}

// Reporter persists reports. Like audit logging, capture failures are
// swallowed: diagnostics must never break the operation that failed.
type Reporter struct {
	store domain.Store
	log   *logrus.Logger
	env   string
}

// NewReporter creates a Reporter. env tags each report with the
// deployment environment.
func NewReporter(store domain.Store, log *logrus.Logger, env string) *Reporter {
	return &Reporter{store: store, log: log, env: env}
}

// Capture records an internal error with optional context fields.
func (r *Reporter) Capture(err error, context map[string]any) {
	if err == nil {
		return
	}

	r.CaptureReport(Report{
		Message:   err.Error(),
		Context:   context,
		Timestamp: time.Now(),
	})
}

// CaptureReport persists a report to the system_errors collection.
func (r *Reporter) CaptureReport(rep Report) {
	r.log.WithFields(logrus.Fields{
		"error":   rep.Message,
		"context": rep.Context,
	}).Error("captured exception")

	if rep.Timestamp.IsZero() {
		rep.Timestamp = time.Now()
	}

	doc := map[string]any{
		"error": map[string]any{
			"name":    rep.Name,
			"message": rep.Message,
			"stack":   rep.Stack,
		},
		"timestamp":   rep.Timestamp.UTC().Format(time.RFC3339),
		"userAgent":   rep.UserAgent,
		"url":         rep.URL,
		"environment": r.env,
		"createdAt":   time.Now().UTC().Format(time.RFC3339),
	}
	if rep.Context != nil {
		doc["context"] = rep.Context
	}

	ctx, cancel := context.WithTimeout(context.Background(), captureTimeout)
	defer cancel()

	path := docstore.JoinPath(models.CollectionSystemErrors, uuid.New().String())
	if err := r.store.Set(ctx, path, doc, false); err != nil {
		r.log.WithError(err).Warn("failed to persist error report")
	}
}

// WithRetry runs fn up to maxRetries times with a linearly growing
// delay between attempts, capturing the final failure.
func (r *Reporter) WithRetry(ctx context.Context, maxRetries int, delay time.Duration, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}

		r.log.WithError(lastErr).WithFields(logrus.Fields{
			"attempt": attempt,
			"max":     maxRetries,
		}).Warn("retry attempt failed")

		if attempt == maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay * time.Duration(attempt)):
		}
	}

	r.Capture(lastErr, map[string]any{"retry": "exhausted", "maxRetries": maxRetries})

	return lastErr
}
