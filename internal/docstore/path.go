// Package docstore provides path-addressed document storage on top of
// PostgreSQL: get/set/update/delete/query primitives plus live
// subscriptions fed by LISTEN/NOTIFY. Paths alternate collection
// segments with document ids, e.g. TENANTS/t1/users/u1.
package docstore

import (
	"fmt"
	"strings"

	"github.com/tenantdesk/tenantdesk/internal/models"
)

// JoinPath builds a slash-separated path from segments.
func JoinPath(segments ...string) string {
	return strings.Join(segments, "/")
}

// splitPath splits a path into its segments, rejecting empty ones.
func splitPath(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("empty path: %w", models.ErrInvalidPath)
	}

	segments := strings.Split(path, "/")
	for _, s := range segments {
		if s == "" {
			return nil, fmt.Errorf("%q: %w", path, models.ErrInvalidPath)
		}
	}

	return segments, nil
}

// ValidateDocPath checks that path addresses a document: a non-empty
// even number of segments.
func ValidateDocPath(path string) error {
	segments, err := splitPath(path)
	if err != nil {
		return err
	}

	if len(segments)%2 != 0 {
		return fmt.Errorf("%q addresses a collection, not a document: %w", path, models.ErrInvalidPath)
	}

	return nil
}

// ValidateCollectionPath checks that path addresses a collection: an odd
// number of segments.
func ValidateCollectionPath(path string) error {
	segments, err := splitPath(path)
	if err != nil {
		return err
	}

	if len(segments)%2 != 1 {
		return fmt.Errorf("%q addresses a document, not a collection: %w", path, models.ErrInvalidPath)
	}

	return nil
}

// DocID returns the final segment of a document path.
func DocID(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}

// CollectionOf returns the parent collection path of a document path.
func CollectionOf(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

// TenantIDOf extracts the tenant id from a path under the TENANTS root,
// or "" for paths outside it (e.g. system_errors).
func TenantIDOf(path string) string {
	segments := strings.Split(path, "/")
	if len(segments) >= 2 && segments[0] == models.CollectionTenants {
		return segments[1]
	}
	return ""
}
