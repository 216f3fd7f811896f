package client

import (
	"context"
	"fmt"
	"net/url"
)

// UserService handles operator endpoints for users across companies.
type UserService struct {
	c *Client
}

// List returns every user of every company, annotated with its company.
func (s *UserService) List(ctx context.Context) ([]User, error) {
	var users []User
	if err := s.c.get(ctx, "/api/v1/admin/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// SetRole changes one user's role within a company.
func (s *UserService) SetRole(ctx context.Context, companyID, userID, role string) (*User, error) {
	body := struct {
		Role string `json:"role"`
	}{Role: role}

	var user User
	path := fmt.Sprintf("/api/v1/admin/companies/%s/users/%s/role", url.PathEscape(companyID), url.PathEscape(userID))
	if err := s.c.patch(ctx, path, body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Delete removes one user from a company.
func (s *UserService) Delete(ctx context.Context, companyID, userID string) error {
	path := fmt.Sprintf("/api/v1/admin/companies/%s/users/%s", url.PathEscape(companyID), url.PathEscape(userID))
	return s.c.del(ctx, path, nil)
}

// DiagnosticsService forwards client-side error reports.
type DiagnosticsService struct {
	c *Client
}

// Report sends an error report to the diagnostics sink. Requires a
// tenant API key, not the admin token.
func (s *DiagnosticsService) Report(ctx context.Context, report ErrorReport) error {
	return s.c.post(ctx, "/api/v1/logs/error", report, nil)
}
