package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/nexthire/internal/identity"
	"github.com/jonathan/nexthire/internal/policy"
	"github.com/jonathan/nexthire/internal/server/middleware"
)

// caller returns the authenticated identity of r, or nil.
func (s *Server) caller(r *http.Request) *policy.Caller {
	id := middleware.GetUserID(r)
	if id == "" {
		return nil
	}
	return &policy.Caller{UserID: id}
}

// callerWithRole also resolves the caller's role from the identity
// provider. Users unknown to the provider have no role.
func (s *Server) callerWithRole(ctx context.Context, r *http.Request) (*policy.Caller, error) {
	c := s.caller(r)
	if c == nil {
		return nil, nil
	}
	user, err := s.identity.GetUser(ctx, c.UserID)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return c, nil
		}
		return nil, fmt.Errorf("failed to resolve role of %s: %w", c.UserID, err)
	}
	c.Role = user.Role
	return c, nil
}

// denials are the messages of one route for its failed policy checks.
type denials struct {
	unauthenticated string
	forbidden       string
}

var (
	signInRequired = denials{unauthenticated: "Unauthorized", forbidden: "Forbidden"}
	adminOnly      = denials{unauthenticated: "Unauthorized", forbidden: "Forbidden - Admin access required"}
)

// allow writes the denial for err and reports whether the request may
// continue.
func (s *Server) allow(w http.ResponseWriter, r *http.Request, err error, d denials) bool {
	if err == nil {
		return true
	}
	msg := d.forbidden
	if errors.Is(err, policy.ErrUnauthenticated) {
		msg = d.unauthenticated
	}
	s.writeError(w, r, policy.Deny(err, msg))
	return false
}

// requireAdmin resolves the caller and enforces the admin role.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) (*policy.Caller, bool) {
	c, err := s.callerWithRole(r.Context(), r)
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	if !s.allow(w, r, policy.HasRole(c, policy.RoleAdmin), adminOnly) {
		return nil, false
	}
	return c, true
}
