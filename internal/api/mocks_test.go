package api

import (
	"context"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tenantdesk/tenantdesk/internal/admin"
	"github.com/tenantdesk/tenantdesk/internal/audit"
	"github.com/tenantdesk/tenantdesk/internal/docstore"
	"github.com/tenantdesk/tenantdesk/internal/domain"
	"github.com/tenantdesk/tenantdesk/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubStore backs the admin service with canned documents and queries.
type stubStore struct {
	mu      sync.Mutex
	docs    map[string]map[string]any
	queryFn func(collection string, filters []docstore.Filter, order *docstore.Order) ([]docstore.Document, error)
	updates []string
}

func newStubStore() *stubStore {
	return &stubStore{docs: make(map[string]map[string]any)}
}

func (s *stubStore) Get(_ context.Context, path string) (map[string]any, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.docs[path]
	return data, ok, nil
}

func (s *stubStore) Set(context.Context, string, map[string]any, bool) error { return nil }

func (s *stubStore) Update(_ context.Context, path string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, path)
	if doc, ok := s.docs[path]; ok {
		for k, v := range fields {
			doc[k] = v
		}
	}
	return nil
}

func (s *stubStore) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, path)
	return nil
}

func (s *stubStore) CreateIfAbsent(context.Context, string, map[string]any) (bool, error) {
	return false, nil
}

func (s *stubStore) Query(_ context.Context, collection string, filters []docstore.Filter, order *docstore.Order) ([]docstore.Document, error) {
	if s.queryFn != nil {
		return s.queryFn(collection, filters, order)
	}
	return nil, nil
}

type noopBatch struct{}

func (noopBatch) Set(string, map[string]any, bool) {}
func (noopBatch) Delete(string)                    {}
func (noopBatch) Len() int                         { return 0 }
func (noopBatch) Commit(context.Context) error     { return nil }

type noopBatcher struct{}

func (noopBatcher) NewBatch() domain.Batch { return noopBatch{} }

type noopAuditor struct{}

func (noopAuditor) Write(context.Context, models.LogEntry)        {}
func (noopAuditor) WriteBatch(context.Context, []models.LogEntry) {}

func quietLog() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

// newTestService builds a real admin service over the stub store.
func newTestService(store *stubStore) *admin.Service {
	worker := audit.NewWorker(noopAuditor{}, quietLog(), 16)
	return admin.NewService(store, noopBatcher{}, worker, quietLog())
}
