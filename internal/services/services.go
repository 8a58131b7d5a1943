// Package services provides typed wrappers over the backend REST API.
//
// FILES:
//   - services.go:  Doer interface and the Services bundle
//   - types.go:     Request/response types
//   - shape.go:     list decoding for wrapped-or-bare array responses
//   - validate.go:  client-side input validation (runs before dispatch)
//   - dashboard.go, projects.go, tokens.go, users.go: one family each
//
// Each operation maps to exactly one gateway call. Gateway errors are
// returned unchanged.
package services

import (
	"context"
	"net/http"
	"net/url"

	"github.com/aiguard/console/internal/gateway"
)

// Doer sends one backend request. *gateway.Client satisfies it.
type Doer interface {
	Do(ctx context.Context, req *gateway.Request, out any) error
}

// Services bundles every resource family over one Doer.
type Services struct {
	Dashboard *DashboardService
	Projects  *ProjectService
	Tokens    *TokenService
	Users     *UserService
	Health    *HealthService
}

// New creates all services over d.
func New(d Doer) *Services {
	return &Services{
		Dashboard: &DashboardService{d: d},
		Projects:  &ProjectService{d: d},
		Tokens:    &TokenService{d: d},
		Users:     &UserService{d: d},
		Health:    &HealthService{d: d},
	}
}

// HealthService checks backend connectivity.
type HealthService struct {
	d Doer
}

// Check calls GET /_api/health.
func (s *HealthService) Check(ctx context.Context) (*Health, error) {
	var h Health
	if err := s.d.Do(ctx, &gateway.Request{Method: http.MethodGet, Path: "/_api/health"}, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func get(path string, query url.Values) *gateway.Request {
	return &gateway.Request{Method: http.MethodGet, Path: path, Query: query}
}

func post(path string, body any) *gateway.Request {
	return &gateway.Request{Method: http.MethodPost, Path: path, Body: body}
}

func put(path string, body any) *gateway.Request {
	return &gateway.Request{Method: http.MethodPut, Path: path, Body: body}
}

func del(path string) *gateway.Request {
	return &gateway.Request{Method: http.MethodDelete, Path: path}
}

// segment escapes an id for use as one path segment.
func segment(id string) string {
	return url.PathEscape(id)
}
