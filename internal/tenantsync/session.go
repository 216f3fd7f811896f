// Package tenantsync maintains the live views a signed-in session works
// against: the company profile, the user profile, and the operational
// state of one tenant. It exposes field-level update operations that
// sanitize, write, audit, and report save status.
package tenantsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tenantdesk/tenantdesk/internal/docstore"
	"github.com/tenantdesk/tenantdesk/internal/domain"
	"github.com/tenantdesk/tenantdesk/internal/models"
	"github.com/tenantdesk/tenantdesk/internal/monitor"
	"github.com/tenantdesk/tenantdesk/internal/sanitize"
)

// SaveStatus is the session-wide save indicator. It is deliberately not
// per-field: the UI shows a single indicator.
type SaveStatus string

// Save statuses.
const (
	StatusIdle   SaveStatus = "idle"
	StatusSaving SaveStatus = "saving"
	StatusSaved  SaveStatus = "saved"
	StatusError  SaveStatus = "error"
)

// Scope selects which of the session's documents an update targets.
type Scope string

// Update scopes.
const (
	ScopeCompany Scope = "company"
	ScopeUser    Scope = "user"
)

// Auto-reset delays for the save indicator.
const (
	savedResetDelay = 2 * time.Second
	errorResetDelay = 3 * time.Second
)

const (
	updateBuffer = 32
	statusBuffer = 8
)

// Identity is the session identity supplied by the external identity
// provider.
type Identity struct {
	UserID   string
	Email    string
	FullName string
}

// Update is one delivered view refresh.
type Update struct {
	Scope  Scope
	Exists bool
	Data   map[string]any
}

// Session is the per-connection sync state machine. Construct with
// NewSession, call Start once, Close when the session ends.
type Session struct {
	store    domain.Store
	watcher  domain.Watcher
	auditor  domain.Auditor
	reporter *monitor.Reporter
	log      *logrus.Logger

	tenantID string
	id       Identity

	savedDelay time.Duration
	errorDelay time.Duration

	mu          sync.RWMutex
	started     bool
	loading     int
	company     map[string]any
	user        map[string]any
	operational map[string]any
	status      SaveStatus
	statusGen   uint64
	lastErr     string

	companyInit sync.Once
	userInit    sync.Once

	chMu     sync.Mutex
	chClosed bool
	updates  chan Update
	statusCh chan SaveStatus

	cancel context.CancelFunc
	wg     sync.WaitGroup
	subs   []domain.Subscription
}

// NewSession creates a Session for the given tenant and identity.
func NewSession(
	store domain.Store, watcher domain.Watcher, auditor domain.Auditor,
	reporter *monitor.Reporter, log *logrus.Logger, tenantID string, id Identity,
) *Session {
	return &Session{
		store:      store,
		watcher:    watcher,
		auditor:    auditor,
		reporter:   reporter,
		log:        log,
		tenantID:   tenantID,
		id:         id,
		savedDelay: savedResetDelay,
		errorDelay: errorResetDelay,
		status:     StatusIdle,
		updates:    make(chan Update, updateBuffer),
		statusCh:   make(chan SaveStatus, statusBuffer),
	}
}

func (s *Session) companyPath() string {
	return docstore.JoinPath(models.CollectionTenants, s.tenantID)
}

func (s *Session) userPath() string {
	return docstore.JoinPath(models.CollectionTenants, s.tenantID, models.CollectionUsers, s.id.UserID)
}

func (s *Session) operationalPath() string {
	return docstore.JoinPath(models.CollectionTenants, s.tenantID, models.OperationalCollection, models.OperationalDocID)
}

// Start opens the three live views. Each delivers its current state
// immediately; the session counts as loading until all three have.
func (s *Session) Start(ctx context.Context) error {
	if s.tenantID == "" || s.id.UserID == "" {
		return fmt.Errorf("session missing tenant or user id: %w", models.ErrUnavailable)
	}

	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("session already started")
	}
	s.started = true
	s.loading = 3
	s.mu.Unlock()

	ctx, s.cancel = context.WithCancel(ctx)

	for _, w := range []struct {
		path  string
		scope Scope
	}{
		{s.companyPath(), ScopeCompany},
		{s.userPath(), ScopeUser},
		{s.operationalPath(), ""},
	} {
		sub, err := s.watcher.Watch(ctx, w.path)
		if err != nil {
			s.Close()
			return fmt.Errorf("watching %s: %w", w.path, err)
		}
		s.subs = append(s.subs, sub)

		s.wg.Add(1)
		go s.consume(ctx, sub, w.scope)
	}

	return nil
}

// consume applies snapshots from one subscription until it ends.
func (s *Session) consume(ctx context.Context, sub domain.Subscription, scope Scope) {
	defer s.wg.Done()

	for snap := range sub.Snapshots() {
		s.apply(ctx, scope, snap)
	}

	if err := sub.Err(); err != nil {
		s.log.WithError(err).WithField("tenant_id", s.tenantID).Warn("live view terminated")

		s.mu.Lock()
		s.lastErr = err.Error()
		s.mu.Unlock()
	}
}

func (s *Session) apply(ctx context.Context, scope Scope, snap docstore.Snapshot) {
	s.mu.Lock()
	if s.loading > 0 {
		s.loading--
	}

	if snap.Exists {
		switch scope {
		case ScopeCompany:
			s.company = snap.Data
		case ScopeUser:
			s.user = snap.Data
		default:
			s.operational = snap.Data
		}
	}
	s.mu.Unlock()

	if !snap.Exists {
		// Lazy initialization: first observation of a missing company or
		// user document writes the default skeleton, exactly once. The
		// conditional write makes concurrent sessions race-safe; the
		// operational document has no write path here.
		switch scope {
		case ScopeCompany:
			s.companyInit.Do(func() { s.lazyCreate(ctx, snap.Path, models.NewTenantDoc(time.Now())) })
		case ScopeUser:
			s.userInit.Do(func() { s.lazyCreate(ctx, snap.Path, models.NewUserDoc(s.id.FullName, s.id.Email, time.Now())) })
		}

		return
	}

	if scope != "" {
		s.emitUpdate(Update{Scope: scope, Exists: true, Data: snap.Data})
	}
}

func (s *Session) lazyCreate(ctx context.Context, path string, fields map[string]any) {
	created, err := s.store.CreateIfAbsent(ctx, path, fields)
	if err != nil {
		s.log.WithError(err).WithField("path", path).Error("lazy initialization failed")
		s.reporter.Capture(err, map[string]any{"operation": "lazyCreate", "path": path})

		return
	}

	if created {
		s.log.WithField("path", path).Info("initialized default document")
	}
}

// UpdateField sanitizes, persists, and audits a single field change on
// the company or user document. Save status runs idle → saving → saved
// (auto-reset after 2s) or → error (auto-reset after 3s, error
// re-thrown to the caller). Concurrent calls are independent;
// last-write-wins at the store.
func (s *Session) UpdateField(ctx context.Context, scope Scope, field string, value any) error {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()

	if !started {
		return fmt.Errorf("session not started: %w", models.ErrUnavailable)
	}

	if field == "" || field == "updatedAt" || field == "createdAt" {
		return fmt.Errorf("field %q is not updatable", field)
	}

	if err := models.ValidateFieldValue(field, value); err != nil {
		return err
	}

	var path, logCollection string

	switch scope {
	case ScopeCompany:
		path, logCollection = s.companyPath(), models.CollectionTenantLogs
	case ScopeUser:
		path, logCollection = s.userPath(), models.CollectionUserLogs
	default:
		return fmt.Errorf("unknown scope %q", scope)
	}

	sanitized := sanitizeField(field, value)
	oldValue := s.fieldValue(scope, field)

	s.setStatus(StatusSaving)

	if err := s.store.Update(ctx, path, map[string]any{field: sanitized}); err != nil {
		s.mu.Lock()
		s.lastErr = err.Error()
		s.mu.Unlock()

		s.setStatusWithReset(StatusError, s.errorDelay)
		s.reporter.Capture(err, map[string]any{
			"operation": "updateField",
			"scope":     string(scope),
			"field":     field,
			"tenantId":  s.tenantID,
			"userId":    s.id.UserID,
		})

		return fmt.Errorf("updating %s: %w", field, err)
	}

	s.auditor.Write(ctx, models.LogEntry{
		TenantID:   s.tenantID,
		Collection: logCollection,
		Action:     "update_" + field,
		ActorID:    s.id.UserID,
		OldValue:   oldValue,
		NewValue:   sanitized,
		Metadata:   map[string]any{"field": field},
	})

	s.setStatusWithReset(StatusSaved, s.savedDelay)

	return nil
}

// sanitizeField applies the field-appropriate sanitizer: websiteUrl
// keeps only http(s) URLs, email normalizes to lowercase, everything
// else gets the generic markup strip. Non-string values pass through.
func sanitizeField(field string, value any) any {
	str, ok := value.(string)
	if !ok {
		return value
	}

	switch field {
	case "websiteUrl":
		return sanitize.URL(str)
	case "email":
		return sanitize.Email(str)
	default:
		return sanitize.Input(str)
	}
}

func (s *Session) fieldValue(scope Scope, field string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if scope == ScopeCompany {
		return s.company[field]
	}
	return s.user[field]
}

// setStatus records and emits a new save status.
func (s *Session) setStatus(status SaveStatus) {
	s.mu.Lock()
	s.status = status
	s.statusGen++
	s.mu.Unlock()

	s.emitStatus(status)
}

// setStatusWithReset records a status and schedules the auto-reset to
// idle. A newer status change supersedes the pending reset.
func (s *Session) setStatusWithReset(status SaveStatus, delay time.Duration) {
	s.mu.Lock()
	s.status = status
	s.statusGen++
	gen := s.statusGen
	s.mu.Unlock()

	s.emitStatus(status)

	time.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.statusGen != gen || s.status == StatusIdle {
			s.mu.Unlock()
			return
		}
		s.status = StatusIdle
		s.mu.Unlock()

		s.emitStatus(StatusIdle)
	})
}

// emitUpdate delivers a view refresh, dropping the oldest pending one
// when the consumer lags.
func (s *Session) emitUpdate(u Update) {
	s.chMu.Lock()
	defer s.chMu.Unlock()

	if s.chClosed {
		return
	}

	select {
	case s.updates <- u:
	default:
		select {
		case <-s.updates:
		default:
		}
		select {
		case s.updates <- u:
		default:
		}
	}
}

func (s *Session) emitStatus(status SaveStatus) {
	s.chMu.Lock()
	defer s.chMu.Unlock()

	if s.chClosed {
		return
	}

	select {
	case s.statusCh <- status:
	default:
		select {
		case <-s.statusCh:
		default:
		}
		select {
		case s.statusCh <- status:
		default:
		}
	}
}

// Updates yields view refreshes for the session's documents.
func (s *Session) Updates() <-chan Update { return s.updates }

// StatusChanges yields save status transitions.
func (s *Session) StatusChanges() <-chan SaveStatus { return s.statusCh }

// SaveStatus returns the current save indicator.
func (s *Session) SaveStatus() SaveStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.status
}

// Loading reports whether any of the three views has yet to deliver its
// first snapshot.
func (s *Session) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.started && s.loading > 0
}

// LastError returns the most recent user-facing error text, or "".
func (s *Session) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastErr
}

// CompanyData returns a copy of the current company snapshot.
func (s *Session) CompanyData() map[string]any { return s.copyView(&s.company) }

// UserData returns a copy of the current user snapshot.
func (s *Session) UserData() map[string]any { return s.copyView(&s.user) }

// OperationalData returns a copy of the current operational snapshot.
func (s *Session) OperationalData() map[string]any { return s.copyView(&s.operational) }

func (s *Session) copyView(src *map[string]any) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]any, len(*src))
	for k, v := range *src {
		out[k] = v
	}
	return out
}

// Close cancels all live views and returns the session to its
// uninitialized state. In-flight writes run to completion.
func (s *Session) Close() {
	if s.cancel != nil {
		s.cancel()
	}

	for _, sub := range s.subs {
		sub.Cancel()
	}
	s.wg.Wait()

	s.chMu.Lock()
	if !s.chClosed {
		s.chClosed = true
		close(s.updates)
		close(s.statusCh)
	}
	s.chMu.Unlock()

	s.mu.Lock()
	s.started = false
	s.subs = nil
	s.mu.Unlock()
}
