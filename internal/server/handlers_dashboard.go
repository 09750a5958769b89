package server

import (
	"net/http"

	"github.com/jonathan/nexthire/internal/policy"
)

func (s *Server) handleCompanyDashboard(w http.ResponseWriter, r *http.Request) {
	c := s.caller(r)
	if !s.allow(w, r, policy.Authenticated(c), signInRequired) {
		return
	}

	stats, err := s.store.CompanyDashboard(r.Context(), c.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, stats)
}
