package client

import (
	"context"
	"fmt"
	"net/url"
)

// CompanyService handles operator endpoints for tenant companies.
type CompanyService struct {
	c *Client
}

// List returns every company, newest first.
func (s *CompanyService) List(ctx context.Context) ([]Company, error) {
	var companies []Company
	if err := s.c.get(ctx, "/api/v1/admin/companies", nil, &companies); err != nil {
		return nil, err
	}
	return companies, nil
}

// Get returns one company by id.
func (s *CompanyService) Get(ctx context.Context, id string) (*Company, error) {
	var company Company
	if err := s.c.get(ctx, "/api/v1/admin/companies/"+url.PathEscape(id), nil, &company); err != nil {
		return nil, err
	}
	return &company, nil
}

// Update changes a company's plan and/or status and returns the updated company.
func (s *CompanyService) Update(ctx context.Context, id string, req UpdateCompanyRequest) (*Company, error) {
	var company Company
	if err := s.c.patch(ctx, "/api/v1/admin/companies/"+url.PathEscape(id), req, &company); err != nil {
		return nil, err
	}
	return &company, nil
}

// Delete removes a company and everything underneath it.
func (s *CompanyService) Delete(ctx context.Context, id string) error {
	return s.c.del(ctx, "/api/v1/admin/companies/"+url.PathEscape(id), nil)
}

// Users returns the users of one company.
func (s *CompanyService) Users(ctx context.Context, id string) ([]User, error) {
	var users []User
	if err := s.c.get(ctx, fmt.Sprintf("/api/v1/admin/companies/%s/users", url.PathEscape(id)), nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// IssueAPIKey rotates the company's sync API key and returns the new
// plaintext key. It is shown exactly once.
func (s *CompanyService) IssueAPIKey(ctx context.Context, id string) (string, error) {
	var resp struct {
		APIKey string `json:"apiKey"`
	}
	if err := s.c.post(ctx, fmt.Sprintf("/api/v1/admin/companies/%s/api-key", url.PathEscape(id)), nil, &resp); err != nil {
		return "", err
	}
	return resp.APIKey, nil
}
