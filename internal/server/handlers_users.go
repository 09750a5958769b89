package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/jonathan/nexthire/internal/db"
	"github.com/jonathan/nexthire/internal/identity"
	"github.com/jonathan/nexthire/internal/policy"
	"github.com/jonathan/nexthire/internal/schemas"
	"github.com/jonathan/nexthire/internal/storage"
	"github.com/jonathan/nexthire/internal/types"
)

const invalidResumeURL = "Invalid URL format. Please provide a valid resume URL."

var profileDenials = denials{
	unauthenticated: "Unauthorized - Please sign in",
	forbidden:       "Forbidden",
}

func (s *Server) handleGetUserInfo(w http.ResponseWriter, r *http.Request) {
	c := s.caller(r)
	if !s.allow(w, r, policy.Authenticated(c), profileDenials) {
		return
	}

	companies, err := s.store.ListCompaniesByUser(r.Context(), c.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var companyID *string
	if len(companies) > 0 {
		companyID = &companies[0].ID
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"userId":    c.UserID,
		"companyId": companyID,
	})
}

// resumeURL derives the profile resume link: the latest application's
// resume, else the one recorded at the identity provider.
func (s *Server) resumeURL(ctx context.Context, userID string) (*string, error) {
	url, err := s.store.LatestResumeURL(ctx, userID)
	if err != nil || url != nil {
		return url, err
	}
	user, err := s.identity.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return nil, nil
		}
		log.Printf("[profile] resume lookup for %s failed: %v", userID, err)
		return nil, nil
	}
	if user.ResumeURL == "" {
		return nil, nil
	}
	return &user.ResumeURL, nil
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	c := s.caller(r)
	if !s.allow(w, r, policy.Authenticated(c), profileDenials) {
		return
	}

	profile, err := s.store.GetProfile(r.Context(), c.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if profile == nil {
		s.errorResponse(w, http.StatusNotFound, "Profile not found. Please create a profile first.")
		return
	}
	if profile.ResumeURL, err = s.resumeURL(r.Context(), c.UserID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, profile)
}

// schemaErrorResponse writes the field errors of a rejected profile section.
func (s *Server) schemaErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var ve *schemas.ValidationError
	if !errors.As(err, &ve) {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusBadRequest, map[string]any{
		"error":   "Invalid " + ve.Schema,
		"details": ve.Errors,
	})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	c := s.caller(r)
	if !s.allow(w, r, policy.Authenticated(c), profileDenials) {
		return
	}

	var req types.ProfileRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, invalidResumeURL)
		return
	}

	u := db.ProfileUpdate{
		Headline: trimmed(req.Headline),
		Bio:      trimmed(req.Bio),
		Location: trimmed(req.Location),
	}
	if req.Skills != nil {
		u.Skills = []string(*req.Skills)
	}
	if types.Present(req.Experience) {
		if err := schemas.Validate(schemas.Experience, req.Experience); err != nil {
			s.schemaErrorResponse(w, r, err)
			return
		}
		u.Experience = db.RawList(req.Experience)
	}
	if types.Present(req.Education) {
		if err := schemas.Validate(schemas.Education, req.Education); err != nil {
			s.schemaErrorResponse(w, r, err)
			return
		}
		u.Education = db.RawList(req.Education)
	}
	if types.Present(req.SocialLinks) {
		if !bytes.HasPrefix(bytes.TrimSpace(req.SocialLinks), []byte("{")) || !json.Valid(req.SocialLinks) {
			s.errorResponse(w, http.StatusBadRequest, "socialLinks must be an object")
			return
		}
		u.SocialLinks = db.RawObject(req.SocialLinks)
	}

	if req.ResumeURL != nil {
		if url := strings.TrimSpace(*req.ResumeURL); url != "" {
			if err := s.identity.SetResumeURL(r.Context(), c.UserID, url); err != nil {
				s.writeError(w, r, err)
				return
			}
		}
	}

	profile, err := s.store.UpsertProfile(r.Context(), c.UserID, u)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if profile.ResumeURL, err = s.resumeURL(r.Context(), c.UserID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, profile)
}

func (s *Server) handleUploadProfileResume(w http.ResponseWriter, r *http.Request) {
	c := s.caller(r)
	if !s.allow(w, r, policy.Authenticated(c), profileDenials) {
		return
	}
	f, ok := s.requireFile(w, r, pdfOnly("file"))
	if !ok {
		return
	}

	obj, err := s.saveFile(r.Context(), storage.FolderResumes, storage.UserResumeID(c.UserID, f.Name, s.now()), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	replaced, err := s.store.ReplaceLatestResume(r.Context(), c.UserID, obj.URL)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !replaced {
		log.Printf("[profile] %s has no application to attach the resume to", c.UserID)
	}
	if err := s.identity.SetResumeURL(r.Context(), c.UserID, obj.URL); err != nil {
		log.Printf("[profile] mirroring resume of %s failed: %v", c.UserID, err)
	}

	s.jsonResponse(w, http.StatusOK, map[string]string{"resumeUrl": obj.URL})
}
