package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/jonathan/nexthire/internal/db"
	"github.com/jonathan/nexthire/internal/events"
	"github.com/jonathan/nexthire/internal/identity"
	"github.com/jonathan/nexthire/internal/notify"
	"github.com/jonathan/nexthire/internal/policy"
	"github.com/jonathan/nexthire/internal/types"
)

const duplicateCompany = "Company with this email or registration number already exists"

var ownCompanyDenials = denials{
	unauthenticated: "Unauthorized - Please sign in",
	forbidden:       "Forbidden - You do not own this company",
}

func (s *Server) handleCreateCompany(w http.ResponseWriter, r *http.Request) {
	c := s.caller(r)
	if !s.allow(w, r, policy.Authenticated(c), ownCompanyDenials) {
		return
	}

	var req types.CreateCompanyRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		if len(types.MissingFields(err)) > 0 {
			s.errorResponse(w, http.StatusBadRequest, "Missing required fields")
			return
		}
		s.errorResponse(w, http.StatusBadRequest, "Invalid email format")
		return
	}

	company, err := s.store.CreateCompany(r.Context(), &db.Company{
		Name:                        req.Name,
		LegalName:                   strings.TrimSpace(req.LegalName),
		UserID:                      c.UserID,
		RegistrationNumber:          req.RegistrationNumber,
		LogoURL:                     strings.TrimSpace(req.LogoURL),
		Website:                     strings.TrimSpace(req.Website),
		Industry:                    strings.TrimSpace(req.Industry),
		CompanySize:                 strings.TrimSpace(req.CompanySize),
		About:                       strings.TrimSpace(req.About),
		ContactEmail:                req.ContactEmail,
		YearFounded:                 req.YearFounded.Value,
		CompanyType:                 strings.TrimSpace(req.CompanyType),
		RegistrationCertificateURL:  strings.TrimSpace(req.RegistrationCertificateURL),
		TaxCertificateURL:           strings.TrimSpace(req.TaxCertificateURL),
		IncorporationCertificateURL: strings.TrimSpace(req.IncorporationCertificateURL),
		AdditionalDocumentsURL:      strings.TrimSpace(req.AdditionalDocumentsURL),
	})
	if err != nil {
		if errors.Is(err, db.ErrUniqueViolation) {
			s.errorResponse(w, http.StatusConflict, duplicateCompany)
			return
		}
		s.writeError(w, r, err)
		return
	}

	if err := s.upgradeRole(r.Context(), c.UserID); err != nil {
		log.Printf("[companies] role upgrade for %s failed: %v", c.UserID, err)
	}

	s.bg.Go("notify", func(ctx context.Context) error {
		return s.notifier.Notify(ctx, notify.CompanyPending(company.ID, company.Name, company.RegistrationNumber, company.ContactEmail))
	})
	s.publish(events.Event{Type: events.CompanyRegistered, CompanyID: company.ID, UserID: c.UserID})

	s.jsonResponse(w, http.StatusCreated, company)
}

// upgradeRole grants COMPANY_ERP to accounts that register a company
// without holding a stronger role.
func (s *Server) upgradeRole(ctx context.Context, userID string) error {
	current := policy.RoleNone
	user, err := s.identity.GetUser(ctx, userID)
	switch {
	case err == nil:
		current = user.Role
	case !errors.Is(err, identity.ErrUserNotFound):
		return err
	}

	next, changed := policy.UpgradeOnCompanyRegistration(current)
	if !changed {
		return nil
	}
	if err := s.identity.SetRole(ctx, userID, next); err != nil {
		return fmt.Errorf("set role %s: %w", next, err)
	}
	s.publish(events.Event{Type: events.UserRoleChanged, UserID: userID, From: string(current), To: string(next)})
	return nil
}

func (s *Server) handleListMyCompanies(w http.ResponseWriter, r *http.Request) {
	c := s.caller(r)
	if !s.allow(w, r, policy.Authenticated(c), ownCompanyDenials) {
		return
	}

	companies, err := s.store.ListCompaniesByUser(r.Context(), c.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, companies)
}

func (s *Server) handleGetCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id", "Invalid Company ID format")
	if !ok {
		return
	}

	company, err := s.store.GetCompanyByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if company == nil {
		s.errorResponse(w, http.StatusNotFound, "Company Not Found")
		return
	}
	s.jsonResponse(w, http.StatusOK, company)
}

// ownedCompany loads a company and checks that the caller owns it.
func (s *Server) ownedCompany(w http.ResponseWriter, r *http.Request, param string) (*db.Company, bool) {
	c := s.caller(r)
	if !s.allow(w, r, policy.Authenticated(c), ownCompanyDenials) {
		return nil, false
	}
	id, ok := s.pathID(w, r, param, "Invalid Company ID format")
	if !ok {
		return nil, false
	}

	company, err := s.store.GetCompanyByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	if company == nil {
		s.errorResponse(w, http.StatusNotFound, "Company not found")
		return nil, false
	}
	if !s.allow(w, r, policy.Owner(c, company.UserID), ownCompanyDenials) {
		return nil, false
	}
	return company, true
}

func (s *Server) handleUpdateCompany(w http.ResponseWriter, r *http.Request) {
	company, ok := s.ownedCompany(w, r, "id")
	if !ok {
		return
	}

	var req types.UpdateCompanyRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		field, rule := types.FailedRule(err)
		if rule == "email" {
			s.errorResponse(w, http.StatusBadRequest, "Invalid email format")
			return
		}
		s.errorResponse(w, http.StatusBadRequest, "Invalid value for "+field)
		return
	}

	u := db.CompanyUpdate{
		Name:                        req.Name,
		LegalName:                   req.LegalName,
		RegistrationNumber:          req.RegistrationNumber,
		LogoURL:                     req.LogoURL,
		Website:                     req.Website,
		Industry:                    req.Industry,
		CompanySize:                 req.CompanySize,
		About:                       req.About,
		ContactEmail:                req.ContactEmail,
		CompanyType:                 req.CompanyType,
		RegistrationCertificateURL:  req.RegistrationCertificateURL,
		TaxCertificateURL:           req.TaxCertificateURL,
		IncorporationCertificateURL: req.IncorporationCertificateURL,
		AdditionalDocumentsURL:      req.AdditionalDocumentsURL,
	}
	if req.YearFounded != nil {
		u.YearFounded = req.YearFounded.Ptr()
	}

	updated, err := s.store.UpdateCompany(r.Context(), company.ID, u)
	if err != nil {
		if errors.Is(err, db.ErrUniqueViolation) {
			s.errorResponse(w, http.StatusConflict, duplicateCompany)
			return
		}
		s.writeError(w, r, err)
		return
	}
	if updated == nil {
		s.errorResponse(w, http.StatusNotFound, "Company not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteCompany(w http.ResponseWriter, r *http.Request) {
	company, ok := s.ownedCompany(w, r, "id")
	if !ok {
		return
	}

	deleted, err := s.store.DeleteCompany(r.Context(), company.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !deleted {
		s.errorResponse(w, http.StatusNotFound, "Company not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"message": "Company deleted successfully"})
}

// publish sends e in the background.
func (s *Server) publish(e events.Event) {
	if e.At.IsZero() {
		e.At = s.now().UTC()
	}
	s.bg.Go("events", func(ctx context.Context) error {
		return s.events.Publish(ctx, e)
	})
}
