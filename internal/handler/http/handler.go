// Package http implements the HTTP transport: request DTOs, handlers,
// and the router with its role requirements.
package http

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Felix251/marketplace/internal/domain"
	"github.com/Felix251/marketplace/pkg/middleware"
)

// actorFrom rebuilds the acting user from the authenticated principal.
// Services only consult the id, email, and role for authorization.
func actorFrom(r *http.Request) *domain.User {
	p := middleware.PrincipalFromContext(r.Context())
	if p == nil {
		return nil
	}
	return &domain.User{
		Base:  domain.Base{ID: p.UserID},
		Email: p.Email,
		Role:  p.Role,
	}
}

func errInvalidQueryParam(name string) error {
	return fmt.Errorf("invalid %s query parameter", name)
}

// parseTimeQueryParam reads an optional RFC 3339 query parameter.
// An absent parameter yields nil without an error.
func parseTimeQueryParam(q url.Values, name string) (*time.Time, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, errInvalidQueryParam(name)
	}
	return &t, nil
}
