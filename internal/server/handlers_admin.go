package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/nexthire/internal/db"
	"github.com/jonathan/nexthire/internal/events"
	"github.com/jonathan/nexthire/internal/identity"
	"github.com/jonathan/nexthire/internal/policy"
	"github.com/jonathan/nexthire/internal/types"
)

const invalidRole = "Invalid role. Must be one of: JOB_SEEKER, COMPANY_ERP, ADMIN"

// adminUser is the user shape returned by the admin routes.
type adminUser struct {
	ID        string      `json:"id"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Email     string      `json:"email"`
	Role      policy.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
}

func toAdminUser(u identity.User) adminUser {
	return adminUser{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

func (s *Server) handleAdminListCompanies(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}

	companies, err := s.store.ListUnverifiedCompanies(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, companies)
}

func (s *Server) handleAdminVerifyCompany(w http.ResponseWriter, r *http.Request) {
	c, ok := s.requireAdmin(w, r)
	if !ok {
		return
	}
	id, ok := s.pathID(w, r, "id", "Invalid Company ID format")
	if !ok {
		return
	}

	company, err := s.store.VerifyCompany(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if company == nil {
		s.errorResponse(w, http.StatusNotFound, "Company not found")
		return
	}

	log.Printf("[admin] %s verified company %s", c.UserID, company.ID)
	s.publish(events.Event{Type: events.CompanyVerified, CompanyID: company.ID, UserID: company.UserID})

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"message": "Company verified successfully",
		"company": company,
	})
}

func (s *Server) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}

	users, err := s.identity.ListUsers(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]adminUser, 0, len(users))
	for _, u := range users {
		out = append(out, toAdminUser(u))
	}
	s.jsonResponse(w, http.StatusOK, out)
}

// targetUser loads the user named by the id path segment.
func (s *Server) targetUser(w http.ResponseWriter, r *http.Request) (*identity.User, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		s.errorResponse(w, http.StatusBadRequest, "User ID is required")
		return nil, false
	}

	user, err := s.identity.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			s.errorResponse(w, http.StatusNotFound, "User not found")
			return nil, false
		}
		s.writeError(w, r, err)
		return nil, false
	}
	return user, true
}

func (s *Server) handleAdminGetUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}
	user, ok := s.targetUser(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, toAdminUser(*user))
}

func (s *Server) handleAdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	c, ok := s.requireAdmin(w, r)
	if !ok {
		return
	}
	if strings.TrimSpace(r.PathValue("id")) == c.UserID {
		s.errorResponse(w, http.StatusBadRequest, "Admin cannot delete themselves")
		return
	}
	user, ok := s.targetUser(w, r)
	if !ok {
		return
	}

	if err := s.identity.DeleteUser(r.Context(), user.ID); err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			s.errorResponse(w, http.StatusNotFound, "User not found")
			return
		}
		s.writeError(w, r, err)
		return
	}
	if _, err := s.store.DeleteProfile(r.Context(), user.ID); err != nil {
		log.Printf("[admin] profile cleanup for %s failed: %v", user.ID, err)
	}

	log.Printf("[admin] %s deleted user %s", c.UserID, user.ID)
	s.jsonResponse(w, http.StatusOK, map[string]string{"message": "User deleted successfully"})
}

func (s *Server) handleAdminSetRole(w http.ResponseWriter, r *http.Request) {
	c, ok := s.requireAdmin(w, r)
	if !ok {
		return
	}

	var req types.RoleRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Role is required in request body")
		return
	}
	role, err := policy.ParseRole(req.Role)
	if err != nil || !role.Assignable() {
		s.errorResponse(w, http.StatusBadRequest, invalidRole)
		return
	}

	user, ok := s.targetUser(w, r)
	if !ok {
		return
	}
	if err := s.identity.SetRole(r.Context(), user.ID, role); err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			s.errorResponse(w, http.StatusNotFound, "User not found")
			return
		}
		s.writeError(w, r, err)
		return
	}

	log.Printf("[admin] %s set role of %s to %s", c.UserID, user.ID, role)
	s.publish(events.Event{Type: events.UserRoleChanged, UserID: user.ID, From: string(user.Role), To: string(role)})

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"message": "User role updated successfully",
		"userId":  user.ID,
		"newRole": role,
	})
}

// analytics gathers the store counters and the provider's user count
// concurrently.
func (s *Server) analytics(ctx context.Context) (*db.Analytics, error) {
	var (
		stats *db.Analytics
		users int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = s.store.Analytics(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		users, err = s.identity.CountUsers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	stats.BasicStats.TotalUsers = users
	return stats, nil
}

func (s *Server) handleAdminAnalytics(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}

	stats, err := s.analytics(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, stats)
}

// adminDashboard is the analytics payload with the industry breakdown.
type adminDashboard struct {
	*db.Analytics
	JobsByIndustry []db.IndustryCount `json:"jobsByIndustry"`
}

func (s *Server) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}

	var (
		stats      *db.Analytics
		industries []db.IndustryCount
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		stats, err = s.analytics(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		industries, err = s.store.JobsByIndustry(ctx, db.TopN)
		return err
	})
	if err := g.Wait(); err != nil {
		s.writeError(w, r, err)
		return
	}
	if industries == nil {
		industries = []db.IndustryCount{}
	}
	s.jsonResponse(w, http.StatusOK, adminDashboard{Analytics: stats, JobsByIndustry: industries})
}
