package tenantsync

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tenantdesk/tenantdesk/internal/docstore"
	"github.com/tenantdesk/tenantdesk/internal/domain"
	"github.com/tenantdesk/tenantdesk/internal/models"
	"github.com/tenantdesk/tenantdesk/internal/monitor"
)

// fakeStore records updates and conditional creates.
type fakeStore struct {
	mu        sync.Mutex
	updates   []map[string]any
	creates   map[string]int
	updateErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{creates: make(map[string]int)}
}

func (f *fakeStore) Get(context.Context, string) (map[string]any, bool, error) {
	return nil, false, nil
}

func (f *fakeStore) Set(context.Context, string, map[string]any, bool) error { return nil }

func (f *fakeStore) Update(_ context.Context, path string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, map[string]any{"path": path, "fields": fields})
	return nil
}

func (f *fakeStore) Delete(context.Context, string) error { return nil }

func (f *fakeStore) CreateIfAbsent(_ context.Context, path string, _ map[string]any) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates[path]++
	return f.creates[path] == 1, nil
}

func (f *fakeStore) Query(context.Context, string, []docstore.Filter, *docstore.Order) ([]docstore.Document, error) {
	return nil, nil
}

func (f *fakeStore) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

// fakeSub is a controllable subscription.
type fakeSub struct {
	ch   chan docstore.Snapshot
	once sync.Once
}

func newFakeSub() *fakeSub {
	return &fakeSub{ch: make(chan docstore.Snapshot, 8)}
}

func (s *fakeSub) Snapshots() <-chan docstore.Snapshot { return s.ch }
func (s *fakeSub) Err() error                          { return nil }
func (s *fakeSub) Cancel()                             { s.once.Do(func() { close(s.ch) }) }

// fakeWatcher hands out one fakeSub per watched path.
type fakeWatcher struct {
	mu   sync.Mutex
	subs map[string]*fakeSub
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{subs: make(map[string]*fakeSub)}
}

func (w *fakeWatcher) Watch(_ context.Context, path string) (domain.Subscription, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	sub := newFakeSub()
	w.subs[path] = sub
	return sub, nil
}

func (w *fakeWatcher) push(path string, snap docstore.Snapshot) {
	w.mu.Lock()
	sub := w.subs[path]
	w.mu.Unlock()
	sub.ch <- snap
}

// fakeAuditor collects entries.
type fakeAuditor struct {
	mu      sync.Mutex
	entries []models.LogEntry
}

func (a *fakeAuditor) Write(_ context.Context, entry models.LogEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
}

func (a *fakeAuditor) WriteBatch(ctx context.Context, entries []models.LogEntry) {
	for _, e := range entries {
		a.Write(ctx, e)
	}
}

func (a *fakeAuditor) all() []models.LogEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.LogEntry, len(a.entries))
	copy(out, a.entries)
	return out
}

func testLog() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTestSession(t *testing.T, store *fakeStore) (*Session, *fakeWatcher, *fakeAuditor) {
	t.Helper()

	watcher := newFakeWatcher()
	auditor := &fakeAuditor{}
	reporter := monitor.NewReporter(store, testLog(), "test")

	s := NewSession(store, watcher, auditor, reporter, testLog(), "t1", Identity{
		UserID:   "u1",
		Email:    "jo@example.com",
		FullName: "Jo Doe",
	})
	s.savedDelay = 100 * time.Millisecond
	s.errorDelay = 100 * time.Millisecond

	return s, watcher, auditor
}

// startSession starts s and delivers existing snapshots for all three views.
func startSession(t *testing.T, s *Session, w *fakeWatcher) {
	t.Helper()

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	w.push("TENANTS/t1", docstore.Snapshot{
		Path: "TENANTS/t1", Exists: true,
		Data: map[string]any{"businessName": "Acme", "plan": "free"},
	})
	w.push("TENANTS/t1/users/u1", docstore.Snapshot{
		Path: "TENANTS/t1/users/u1", Exists: true,
		Data: map[string]any{"fullName": "Jo Doe", "role": "user"},
	})
	w.push("TENANTS/t1/operational_data/current", docstore.Snapshot{
		Path: "TENANTS/t1/operational_data/current", Exists: true,
		Data: map[string]any{"estado": "activo"},
	})

	waitFor(t, func() bool { return !s.Loading() }, "session still loading")
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestUpdateFieldBeforeStart(t *testing.T) {
	s, _, _ := newTestSession(t, newFakeStore())

	err := s.UpdateField(context.Background(), ScopeCompany, "businessName", "X")
	if !errors.Is(err, models.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestStartDeliversViews(t *testing.T) {
	store := newFakeStore()
	s, w, _ := newTestSession(t, store)
	startSession(t, s, w)
	defer s.Close()

	if got := s.CompanyData()["businessName"]; got != "Acme" {
		t.Errorf("company businessName = %v", got)
	}
	if got := s.UserData()["role"]; got != "user" {
		t.Errorf("user role = %v", got)
	}
	if got := s.OperationalData()["estado"]; got != "activo" {
		t.Errorf("operational estado = %v", got)
	}
}

func TestLazyInitCreatesDefaultsOnce(t *testing.T) {
	store := newFakeStore()
	s, w, _ := newTestSession(t, store)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Close()

	// Two missing snapshots in a row must create only once.
	for i := 0; i < 2; i++ {
		w.push("TENANTS/t1", docstore.Snapshot{Path: "TENANTS/t1", Exists: false})
		w.push("TENANTS/t1/users/u1", docstore.Snapshot{Path: "TENANTS/t1/users/u1", Exists: false})
	}
	// Operational view is read-only: never created.
	w.push("TENANTS/t1/operational_data/current", docstore.Snapshot{
		Path: "TENANTS/t1/operational_data/current", Exists: false,
	})

	waitFor(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return store.creates["TENANTS/t1"] == 1 && store.creates["TENANTS/t1/users/u1"] == 1
	}, "lazy init did not run")

	time.Sleep(50 * time.Millisecond)

	store.mu.Lock()
	defer store.mu.Unlock()
	if store.creates["TENANTS/t1"] != 1 {
		t.Errorf("company created %d times", store.creates["TENANTS/t1"])
	}
	if store.creates["TENANTS/t1/users/u1"] != 1 {
		t.Errorf("user created %d times", store.creates["TENANTS/t1/users/u1"])
	}
	if store.creates["TENANTS/t1/operational_data/current"] != 0 {
		t.Error("operational doc must not be lazily created")
	}
}

func TestUpdateFieldSuccess(t *testing.T) {
	store := newFakeStore()
	s, w, auditor := newTestSession(t, store)
	startSession(t, s, w)
	defer s.Close()

	err := s.UpdateField(context.Background(), ScopeCompany, "businessName", "  <script>x</script>New Name  ")
	if err != nil {
		t.Fatalf("UpdateField: %v", err)
	}

	if store.updateCount() != 1 {
		t.Fatalf("got %d updates, want 1", store.updateCount())
	}

	store.mu.Lock()
	up := store.updates[0]
	store.mu.Unlock()

	if up["path"] != "TENANTS/t1" {
		t.Errorf("update path = %v", up["path"])
	}
	fields := up["fields"].(map[string]any)
	if fields["businessName"] != "New Name" {
		t.Errorf("stored value = %v, want sanitized", fields["businessName"])
	}

	entries := auditor.all()
	if len(entries) != 1 {
		t.Fatalf("got %d audit entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Action != "update_businessName" {
		t.Errorf("action = %q", e.Action)
	}
	if e.Collection != models.CollectionTenantLogs {
		t.Errorf("collection = %q", e.Collection)
	}
	if e.OldValue != "Acme" {
		t.Errorf("old value = %v", e.OldValue)
	}
	if e.NewValue != "New Name" {
		t.Errorf("new value = %v", e.NewValue)
	}
	if e.ActorID != "u1" {
		t.Errorf("actor = %q", e.ActorID)
	}

	// saved, then auto-reset to idle.
	if st := s.SaveStatus(); st != StatusSaved {
		t.Errorf("status = %q, want saved", st)
	}
	waitFor(t, func() bool { return s.SaveStatus() == StatusIdle }, "status never reset to idle")
}

func TestUpdateFieldWebsiteURL(t *testing.T) {
	store := newFakeStore()
	s, w, _ := newTestSession(t, store)
	startSession(t, s, w)
	defer s.Close()

	cases := []struct {
		name  string
		value string
		want  string
	}{
		{"https kept", "  https://acme.example  ", "https://acme.example"},
		{"javascript scheme dropped", "javascript:alert(1)", ""},
		{"bare host dropped", "acme.example", ""},
	}

	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := s.UpdateField(context.Background(), ScopeCompany, "websiteUrl", tc.value); err != nil {
				t.Fatalf("UpdateField: %v", err)
			}

			store.mu.Lock()
			fields := store.updates[i]["fields"].(map[string]any)
			store.mu.Unlock()

			if fields["websiteUrl"] != tc.want {
				t.Errorf("stored websiteUrl = %q, want %q", fields["websiteUrl"], tc.want)
			}
		})
	}
}

func TestUpdateFieldEmailNormalized(t *testing.T) {
	store := newFakeStore()
	s, w, _ := newTestSession(t, store)
	startSession(t, s, w)
	defer s.Close()

	if err := s.UpdateField(context.Background(), ScopeUser, "email", "  Jo.Doe@Example.COM "); err != nil {
		t.Fatalf("UpdateField: %v", err)
	}

	store.mu.Lock()
	fields := store.updates[0]["fields"].(map[string]any)
	store.mu.Unlock()

	if fields["email"] != "jo.doe@example.com" {
		t.Errorf("stored email = %q, want lowercase trimmed", fields["email"])
	}
}

func TestUpdateFieldUserScope(t *testing.T) {
	store := newFakeStore()
	s, w, auditor := newTestSession(t, store)
	startSession(t, s, w)
	defer s.Close()

	if err := s.UpdateField(context.Background(), ScopeUser, "phone", "+34 600 000 000"); err != nil {
		t.Fatalf("UpdateField: %v", err)
	}

	store.mu.Lock()
	path := store.updates[0]["path"]
	store.mu.Unlock()

	if path != "TENANTS/t1/users/u1" {
		t.Errorf("update path = %v", path)
	}

	entries := auditor.all()
	if len(entries) != 1 || entries[0].Collection != models.CollectionUserLogs {
		t.Errorf("audit entries = %+v", entries)
	}
}

func TestUpdateFieldStoreError(t *testing.T) {
	store := newFakeStore()
	s, w, auditor := newTestSession(t, store)
	startSession(t, s, w)
	defer s.Close()

	store.mu.Lock()
	store.updateErr = errors.New("connection reset")
	store.mu.Unlock()

	err := s.UpdateField(context.Background(), ScopeCompany, "sector", "retail")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "sector") {
		t.Errorf("error %v should name the field", err)
	}

	if len(auditor.all()) != 0 {
		t.Error("failed update must not be audited")
	}

	if st := s.SaveStatus(); st != StatusError {
		t.Errorf("status = %q, want error", st)
	}
	if s.LastError() == "" {
		t.Error("LastError should be set")
	}
	waitFor(t, func() bool { return s.SaveStatus() == StatusIdle }, "error status never reset")
}

func TestUpdateFieldValidation(t *testing.T) {
	store := newFakeStore()
	s, w, _ := newTestSession(t, store)
	startSession(t, s, w)
	defer s.Close()

	tests := []struct {
		name  string
		scope Scope
		field string
		value any
	}{
		{name: "over limit", scope: ScopeCompany, field: "businessDescription", value: strings.Repeat("x", 1001)},
		{name: "empty field", scope: ScopeCompany, field: "", value: "v"},
		{name: "timestamp field", scope: ScopeCompany, field: "updatedAt", value: "v"},
		{name: "unknown scope", scope: Scope("global"), field: "x", value: "v"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := s.UpdateField(context.Background(), tc.scope, tc.field, tc.value); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	if store.updateCount() != 0 {
		t.Errorf("store saw %d updates, want 0", store.updateCount())
	}
	if st := s.SaveStatus(); st != StatusIdle {
		t.Errorf("rejected updates must not move status, got %q", st)
	}
}

func TestStatusSupersedesPendingReset(t *testing.T) {
	store := newFakeStore()
	s, w, _ := newTestSession(t, store)
	startSession(t, s, w)
	defer s.Close()

	if err := s.UpdateField(context.Background(), ScopeCompany, "city", "Madrid"); err != nil {
		t.Fatalf("first update: %v", err)
	}
	// Second save lands before the first reset fires; its own reset wins.
	if err := s.UpdateField(context.Background(), ScopeCompany, "country", "ES"); err != nil {
		t.Fatalf("second update: %v", err)
	}

	if st := s.SaveStatus(); st != StatusSaved {
		t.Errorf("status = %q, want saved", st)
	}
	waitFor(t, func() bool { return s.SaveStatus() == StatusIdle }, "status never settled to idle")
}

func TestCloseReturnsToUninitialized(t *testing.T) {
	store := newFakeStore()
	s, w, _ := newTestSession(t, store)
	startSession(t, s, w)

	s.Close()

	err := s.UpdateField(context.Background(), ScopeCompany, "city", "Madrid")
	if !errors.Is(err, models.ErrUnavailable) {
		t.Fatalf("err after Close = %v, want ErrUnavailable", err)
	}
}
