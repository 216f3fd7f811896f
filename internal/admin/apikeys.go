package admin

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tenantdesk/tenantdesk/internal/docstore"
	"github.com/tenantdesk/tenantdesk/internal/models"
)

const apiKeyPrefix = "td_"

// hashAPIKey returns the hex SHA-256 of a key. Only the hash is stored;
// the plaintext exists once, in the issue response.
func hashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// IssueAPIKey rotates the tenant's sync API key and returns the new
// plaintext key. Any previously issued key stops working immediately.
func (s *Service) IssueAPIKey(ctx context.Context, actorID, tenantID string) (string, error) {
	if _, err := s.GetTenant(ctx, tenantID); err != nil {
		return "", err
	}

	key := apiKeyPrefix + strings.ReplaceAll(uuid.New().String()+uuid.New().String(), "-", "")

	path := docstore.JoinPath(models.CollectionTenants, tenantID)
	if err := s.store.Update(ctx, path, map[string]any{"apiKeyHash": hashAPIKey(key)}); err != nil {
		return "", fmt.Errorf("storing api key for tenant %s: %w", tenantID, err)
	}

	s.worker.Enqueue(models.LogEntry{
		TenantID:   tenantID,
		Collection: models.CollectionTenantLogs,
		Action:     "api_key_rotated",
		ActorID:    actorID,
	})

	return key, nil
}

// TenantByAPIKey resolves the tenant owning a presented API key. It
// satisfies the auth middleware's lookup contract.
func (s *Service) TenantByAPIKey(ctx context.Context, apiKey string) (string, error) {
	if !strings.HasPrefix(apiKey, apiKeyPrefix) {
		return "", fmt.Errorf("malformed api key: %w", models.ErrPermissionDenied)
	}

	docs, err := s.store.Query(ctx, models.CollectionTenants, []docstore.Filter{
		{Field: "apiKeyHash", Op: "==", Value: hashAPIKey(apiKey)},
	}, nil)
	if err != nil {
		return "", fmt.Errorf("api key lookup: %w", err)
	}

	if len(docs) != 1 {
		return "", fmt.Errorf("unknown api key: %w", models.ErrPermissionDenied)
	}

	return docs[0].ID, nil
}
