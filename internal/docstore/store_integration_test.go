package docstore_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tenantdesk/tenantdesk/internal/db"
	"github.com/tenantdesk/tenantdesk/internal/db/migrations"
	"github.com/tenantdesk/tenantdesk/internal/dbpool"
	"github.com/tenantdesk/tenantdesk/internal/docstore"
	"github.com/tenantdesk/tenantdesk/internal/models"
)

// testEnv holds shared test infrastructure (single pool across all tests).
type testEnv struct {
	pool *dbpool.Pool
	log  *logrus.Logger
}

var sharedEnv *testEnv

func getTestEnv(t *testing.T) *testEnv {
	t.Helper()

	if sharedEnv != nil {
		return sharedEnv
	}

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()

	pool, err := dbpool.New(ctx, dbURL, 5)
	if err != nil {
		t.Fatalf("connecting to test DB: %v", err)
	}

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	if err := db.RunMigrations(ctx, pool, log, migrations.FS); err != nil {
		t.Fatalf("applying migrations: %v", err)
	}

	sharedEnv = &testEnv{
		pool: pool,
		log:  log,
	}

	return sharedEnv
}

// setupTestStore creates a Store with a fresh test tenant id; everything
// written under that tenant (and any root collection rows tagged with it)
// is cleaned up after the test.
func setupTestStore(t *testing.T) (_ *docstore.Store, tenantID string) {
	t.Helper()

	env := getTestEnv(t)
	tenantID = "t-" + uuid.New().String()

	t.Cleanup(func() {
		cleanCtx := context.Background()
		env.pool.Exec(cleanCtx, "DELETE FROM documents WHERE path LIKE $1", models.CollectionTenants+"/"+tenantID+"%") //nolint:errcheck // best-effort cleanup
		env.pool.Exec(cleanCtx, "DELETE FROM documents WHERE data->>'tenantId' = $1", tenantID)                        //nolint:errcheck // best-effort cleanup
	})

	return docstore.New(env.pool, env.log), tenantID
}

func TestSetAndGetRoundTrip(t *testing.T) {
	store, tenantID := setupTestStore(t)
	ctx := context.Background()
	path := docstore.JoinPath(models.CollectionTenants, tenantID)

	if err := store.Set(ctx, path, map[string]any{"businessName": "Acme", "plan": "free"}, false); err != nil {
		t.Fatalf("Set: %v", err)
	}

	data, exists, err := store.Get(ctx, path)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !exists {
		t.Fatal("document should exist after Set")
	}
	if data["businessName"] != "Acme" || data["plan"] != "free" {
		t.Errorf("unexpected data: %v", data)
	}
	if data["updatedAt"] == nil {
		t.Error("Set should stamp updatedAt")
	}
}

func TestGetAbsentDocument(t *testing.T) {
	store, tenantID := setupTestStore(t)

	_, exists, err := store.Get(context.Background(), docstore.JoinPath(models.CollectionTenants, tenantID))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if exists {
		t.Error("absent document reported as existing")
	}
}

func TestSetMergePreservesFields(t *testing.T) {
	store, tenantID := setupTestStore(t)
	ctx := context.Background()
	path := docstore.JoinPath(models.CollectionTenants, tenantID)

	if err := store.Set(ctx, path, map[string]any{"businessName": "Acme", "plan": "free"}, false); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Set(ctx, path, map[string]any{"plan": "pro"}, true); err != nil {
		t.Fatalf("merge Set: %v", err)
	}

	data, _, err := store.Get(ctx, path)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if data["plan"] != "pro" {
		t.Errorf("plan = %v, want pro", data["plan"])
	}
	if data["businessName"] != "Acme" {
		t.Errorf("merge dropped businessName: %v", data)
	}
}

func TestSetOverwriteReplacesDocument(t *testing.T) {
	store, tenantID := setupTestStore(t)
	ctx := context.Background()
	path := docstore.JoinPath(models.CollectionTenants, tenantID)

	if err := store.Set(ctx, path, map[string]any{"businessName": "Acme", "plan": "free"}, false); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Set(ctx, path, map[string]any{"plan": "pro"}, false); err != nil {
		t.Fatalf("overwrite Set: %v", err)
	}

	data, _, err := store.Get(ctx, path)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, ok := data["businessName"]; ok {
		t.Errorf("overwrite kept stale field: %v", data)
	}
}

func TestUpdateMergesIntoExisting(t *testing.T) {
	store, tenantID := setupTestStore(t)
	ctx := context.Background()
	path := docstore.JoinPath(models.CollectionTenants, tenantID, models.CollectionUsers, "u1")

	if err := store.Set(ctx, path, map[string]any{"fullName": "Ada", "role": "member"}, false); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Update(ctx, path, map[string]any{"role": "admin"}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	data, _, err := store.Get(ctx, path)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if data["role"] != "admin" || data["fullName"] != "Ada" {
		t.Errorf("unexpected data after update: %v", data)
	}
}

func TestUpdateAbsentDocument(t *testing.T) {
	store, tenantID := setupTestStore(t)

	err := store.Update(context.Background(), docstore.JoinPath(models.CollectionTenants, tenantID), map[string]any{"plan": "pro"})
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Update on absent document: err = %v, want ErrNotFound", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	store, tenantID := setupTestStore(t)
	ctx := context.Background()
	path := docstore.JoinPath(models.CollectionTenants, tenantID)

	if err := store.Set(ctx, path, map[string]any{"businessName": "Acme"}, false); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Delete(ctx, path); err != nil {
		t.Fatalf("first Delete: %v", err)
	}
	if err := store.Delete(ctx, path); err != nil {
		t.Fatalf("second Delete: %v", err)
	}

	_, exists, err := store.Get(ctx, path)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if exists {
		t.Error("document still present after Delete")
	}
}

func TestCreateIfAbsentConcurrent(t *testing.T) {
	store, tenantID := setupTestStore(t)
	ctx := context.Background()
	path := docstore.JoinPath(models.CollectionTenants, tenantID)

	const callers = 8

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			ok, err := store.CreateIfAbsent(ctx, path, map[string]any{"businessName": "Acme"})
			if err != nil {
				t.Errorf("CreateIfAbsent: %v", err)
				return
			}
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if created != 1 {
		t.Errorf("created = %d, want exactly 1", created)
	}
}

func TestCreateIfAbsentKeepsExisting(t *testing.T) {
	store, tenantID := setupTestStore(t)
	ctx := context.Background()
	path := docstore.JoinPath(models.CollectionTenants, tenantID)

	if err := store.Set(ctx, path, map[string]any{"plan": "pro"}, false); err != nil {
		t.Fatalf("Set: %v", err)
	}

	ok, err := store.CreateIfAbsent(ctx, path, map[string]any{"plan": "free"})
	if err != nil {
		t.Fatalf("CreateIfAbsent: %v", err)
	}
	if ok {
		t.Error("CreateIfAbsent reported created over an existing document")
	}

	data, _, err := store.Get(ctx, path)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if data["plan"] != "pro" {
		t.Errorf("existing document was overwritten: %v", data)
	}
}

// Writes outside the TENANTS root land in root collections such as
// system_errors; those rows carry an empty tenant_id.
func TestWriteOutsideTenantTree(t *testing.T) {
	store, tenantID := setupTestStore(t)
	ctx := context.Background()
	path := docstore.JoinPath(models.CollectionSystemErrors, uuid.New().String())

	if err := store.Set(ctx, path, map[string]any{"error": "boom", "tenantId": tenantID}, false); err != nil {
		t.Fatalf("Set outside TENANTS: %v", err)
	}

	data, exists, err := store.Get(ctx, path)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !exists || data["error"] != "boom" {
		t.Errorf("report not persisted: exists=%v data=%v", exists, data)
	}
}

func TestQueryFilterAndOrder(t *testing.T) {
	store, tenantID := setupTestStore(t)
	ctx := context.Background()
	collection := docstore.JoinPath(models.CollectionTenants, tenantID, models.CollectionUsers)

	users := []struct {
		id   string
		role string
		name string
	}{
		{"u1", "admin", "Ada"},
		{"u2", "member", "Grace"},
		{"u3", "member", "Barbara"},
	}
	for _, u := range users {
		path := docstore.JoinPath(collection, u.id)
		if err := store.Set(ctx, path, map[string]any{"role": u.role, "fullName": u.name}, false); err != nil {
			t.Fatalf("Set %s: %v", u.id, err)
		}
	}

	docs, err := store.Query(ctx, collection,
		[]docstore.Filter{{Field: "role", Op: "==", Value: "member"}},
		&docstore.Order{Field: "fullName"},
	)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}
	if docs[0].ID != "u3" || docs[1].ID != "u2" {
		t.Errorf("order = [%s %s], want [u3 u2]", docs[0].ID, docs[1].ID)
	}
}

func TestBatchCommitAtomic(t *testing.T) {
	store, tenantID := setupTestStore(t)
	ctx := context.Background()

	tenantPath := docstore.JoinPath(models.CollectionTenants, tenantID)
	userPath := docstore.JoinPath(tenantPath, models.CollectionUsers, "u1")

	if err := store.Set(ctx, tenantPath, map[string]any{"businessName": "Acme"}, false); err != nil {
		t.Fatalf("Set tenant: %v", err)
	}
	if err := store.Set(ctx, userPath, map[string]any{"fullName": "Ada"}, false); err != nil {
		t.Fatalf("Set user: %v", err)
	}

	batch := store.NewBatch()
	batch.Delete(userPath)
	batch.Delete(tenantPath)

	if err := batch.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	for _, path := range []string{userPath, tenantPath} {
		_, exists, err := store.Get(ctx, path)
		if err != nil {
			t.Fatalf("Get %s: %v", path, err)
		}
		if exists {
			t.Errorf("%s survived the batch delete", path)
		}
	}
}
