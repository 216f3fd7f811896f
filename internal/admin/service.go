// Package admin implements the platform operator's cross-tenant view:
// listing tenants and users, platform statistics, and the privileged
// mutations (plan, status, role, deletion).
package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tenantdesk/tenantdesk/internal/audit"
	"github.com/tenantdesk/tenantdesk/internal/docstore"
	"github.com/tenantdesk/tenantdesk/internal/domain"
	"github.com/tenantdesk/tenantdesk/internal/models"
)

const signupWindow = 7 * 24 * time.Hour

// Service aggregates tenant data for operators. Audit entries for its
// mutations go through the background worker so request latency does
// not pay for them.
type Service struct {
	store   domain.Store
	batcher domain.Batcher
	worker  *audit.Worker
	log     *logrus.Logger
	now     func() time.Time
}

// NewService wires an admin Service.
func NewService(store domain.Store, batcher domain.Batcher, worker *audit.Worker, log *logrus.Logger) *Service {
	return &Service{
		store:   store,
		batcher: batcher,
		worker:  worker,
		log:     log,
		now:     time.Now,
	}
}

// ListTenants returns every tenant, newest first.
func (s *Service) ListTenants(ctx context.Context) ([]models.Tenant, error) {
	docs, err := s.store.Query(ctx, models.CollectionTenants, nil, &docstore.Order{Field: "createdAt", Desc: true})
	if err != nil {
		return nil, fmt.Errorf("listing tenants: %w", err)
	}

	tenants := make([]models.Tenant, 0, len(docs))
	for _, doc := range docs {
		tenants = append(tenants, models.TenantFromDoc(doc.ID, doc.Data))
	}

	return tenants, nil
}

// GetTenant returns one tenant by id.
func (s *Service) GetTenant(ctx context.Context, tenantID string) (models.Tenant, error) {
	path := docstore.JoinPath(models.CollectionTenants, tenantID)

	data, ok, err := s.store.Get(ctx, path)
	if err != nil {
		return models.Tenant{}, fmt.Errorf("fetching tenant %s: %w", tenantID, err)
	}
	if !ok {
		return models.Tenant{}, fmt.Errorf("tenant %s: %w", tenantID, models.ErrNotFound)
	}

	return models.TenantFromDoc(tenantID, data), nil
}

// ListTenantUsers returns the users of one tenant, annotated with the
// tenant they belong to.
func (s *Service) ListTenantUsers(ctx context.Context, tenantID, tenantName string) ([]models.User, error) {
	collection := docstore.JoinPath(models.CollectionTenants, tenantID, models.CollectionUsers)

	docs, err := s.store.Query(ctx, collection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("listing users of tenant %s: %w", tenantID, err)
	}

	users := make([]models.User, 0, len(docs))
	for _, doc := range docs {
		u := models.UserFromDoc(doc.ID, doc.Data)
		u.TenantID = tenantID
		u.TenantName = tenantName
		users = append(users, u)
	}

	return users, nil
}

// ListAllUsers fans out across every tenant's user collection. A tenant
// whose user listing fails is skipped with a warning rather than
// failing the whole aggregation.
func (s *Service) ListAllUsers(ctx context.Context) ([]models.User, error) {
	tenants, err := s.ListTenants(ctx)
	if err != nil {
		return nil, err
	}

	var all []models.User

	for _, t := range tenants {
		users, err := s.ListTenantUsers(ctx, t.ID, t.BusinessName)
		if err != nil {
			s.log.WithError(err).WithField("tenant_id", t.ID).Warn("skipping tenant in user aggregation")
			continue
		}
		all = append(all, users...)
	}

	return all, nil
}

// PlatformStats computes the operator dashboard counters. On any
// failure it degrades to all-zero stats instead of returning an error;
// the dashboard renders zeros rather than breaking.
func (s *Service) PlatformStats(ctx context.Context) models.PlatformStats {
	tenants, err := s.ListTenants(ctx)
	if err != nil {
		s.log.WithError(err).Error("platform stats unavailable")
		return models.PlatformStats{}
	}

	var stats models.PlatformStats

	stats.TotalTenants = len(tenants)
	cutoff := s.now().Add(-signupWindow)

	for _, t := range tenants {
		if t.Status == models.StatusActive {
			stats.ActiveTenants++
		}
		if !t.CreatedAt.IsZero() && t.CreatedAt.After(cutoff) {
			stats.RecentSignups++
		}

		users, err := s.ListTenantUsers(ctx, t.ID, t.BusinessName)
		if err != nil {
			s.log.WithError(err).Error("platform stats unavailable")
			return models.PlatformStats{}
		}
		stats.TotalUsers += len(users)
	}

	return stats
}

// SetTenantPlanAndStatus updates a tenant's plan and/or status. Empty
// arguments leave the corresponding field untouched.
func (s *Service) SetTenantPlanAndStatus(ctx context.Context, actorID, tenantID, plan, status string) (models.Tenant, error) {
	current, err := s.GetTenant(ctx, tenantID)
	if err != nil {
		return models.Tenant{}, err
	}

	fields := map[string]any{}

	if plan != "" {
		p, err := models.ParsePlan(plan)
		if err != nil {
			return models.Tenant{}, err
		}
		fields["plan"] = string(p)
	}

	if status != "" {
		st, err := models.ParseStatus(status)
		if err != nil {
			return models.Tenant{}, err
		}
		fields["status"] = string(st)
	}

	if len(fields) == 0 {
		return current, nil
	}

	path := docstore.JoinPath(models.CollectionTenants, tenantID)
	if err := s.store.Update(ctx, path, fields); err != nil {
		return models.Tenant{}, fmt.Errorf("updating tenant %s: %w", tenantID, err)
	}

	s.worker.Enqueue(models.LogEntry{
		TenantID:   tenantID,
		Collection: models.CollectionTenantLogs,
		Action:     "company_plan_updated",
		ActorID:    actorID,
		OldValue:   map[string]any{"plan": string(current.Plan), "status": string(current.Status)},
		NewValue:   fields,
	})

	return s.GetTenant(ctx, tenantID)
}

// SetUserRole changes one user's role within a tenant.
func (s *Service) SetUserRole(ctx context.Context, actorID, tenantID, userID, role string) (models.User, error) {
	r, err := models.ParseRole(role)
	if err != nil {
		return models.User{}, err
	}

	path := docstore.JoinPath(models.CollectionTenants, tenantID, models.CollectionUsers, userID)

	data, ok, err := s.store.Get(ctx, path)
	if err != nil {
		return models.User{}, fmt.Errorf("fetching user %s: %w", userID, err)
	}
	if !ok {
		return models.User{}, fmt.Errorf("user %s: %w", userID, models.ErrNotFound)
	}

	old := models.UserFromDoc(userID, data)

	if err := s.store.Update(ctx, path, map[string]any{"role": string(r)}); err != nil {
		return models.User{}, fmt.Errorf("updating user %s: %w", userID, err)
	}

	s.worker.Enqueue(models.LogEntry{
		TenantID:   tenantID,
		Collection: models.CollectionUserLogs,
		Action:     "user_role_updated",
		ActorID:    actorID,
		OldValue:   map[string]any{"role": string(old.Role)},
		NewValue:   map[string]any{"role": string(r)},
		Metadata:   map[string]any{"targetUserId": userID},
	})

	updated := old
	updated.Role = r
	updated.TenantID = tenantID

	return updated, nil
}

// DeleteUser removes one user document from a tenant.
func (s *Service) DeleteUser(ctx context.Context, actorID, tenantID, userID string) error {
	path := docstore.JoinPath(models.CollectionTenants, tenantID, models.CollectionUsers, userID)

	data, ok, err := s.store.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("fetching user %s: %w", userID, err)
	}
	if !ok {
		return fmt.Errorf("user %s: %w", userID, models.ErrNotFound)
	}

	if err := s.store.Delete(ctx, path); err != nil {
		return fmt.Errorf("deleting user %s: %w", userID, err)
	}

	s.worker.Enqueue(models.LogEntry{
		TenantID:   tenantID,
		Collection: models.CollectionUserLogs,
		Action:     "user_deleted",
		ActorID:    actorID,
		OldValue:   data,
		Metadata:   map[string]any{"targetUserId": userID},
	})

	return nil
}

// DeleteTenant removes a tenant and everything underneath it: every
// user document, the operational state, and finally the tenant document
// itself, in a single atomic batch.
func (s *Service) DeleteTenant(ctx context.Context, actorID, tenantID string) error {
	tenant, err := s.GetTenant(ctx, tenantID)
	if err != nil {
		return err
	}

	userCollection := docstore.JoinPath(models.CollectionTenants, tenantID, models.CollectionUsers)

	users, err := s.store.Query(ctx, userCollection, nil, nil)
	if err != nil {
		return fmt.Errorf("listing users of tenant %s: %w", tenantID, err)
	}

	batch := s.batcher.NewBatch()

	for _, u := range users {
		batch.Delete(docstore.JoinPath(userCollection, u.ID))
	}
	batch.Delete(docstore.JoinPath(models.CollectionTenants, tenantID, models.OperationalCollection, models.OperationalDocID))
	batch.Delete(docstore.JoinPath(models.CollectionTenants, tenantID))

	if err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("deleting tenant %s: %w", tenantID, err)
	}

	s.log.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"users":     len(users),
	}).Info("tenant deleted")

	s.worker.Enqueue(models.LogEntry{
		TenantID:   tenantID,
		Collection: models.CollectionTenantLogs,
		Action:     "company_deleted",
		ActorID:    actorID,
		OldValue:   map[string]any{"businessName": tenant.BusinessName, "plan": string(tenant.Plan)},
		Metadata:   map[string]any{"deletedUsers": len(users)},
	})

	return nil
}
