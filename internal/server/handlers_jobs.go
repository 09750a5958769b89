package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/jonathan/nexthire/internal/db"
	"github.com/jonathan/nexthire/internal/objectid"
	"github.com/jonathan/nexthire/internal/policy"
	"github.com/jonathan/nexthire/internal/types"
)

const missingJobFields = "Missing required fields: title, description, companyId, location, employmentType"

var (
	postJobDenials = denials{unauthenticated: "Unauthorized", forbidden: "Forbidden: Only company ERP users can post jobs"}
	ownJobDenials  = denials{unauthenticated: "Unauthorized", forbidden: "You do not own this job posting"}
)

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil {
		page = 1
	}

	f := db.JobFilter{
		EmploymentType: strings.TrimSpace(q.Get("employmentType")),
		Status:         strings.TrimSpace(q.Get("status")),
		Search:         strings.TrimSpace(q.Get("search")),
		ExcludeIDs:     objectid.ParseList(q.Get("excludeIds")),
		Page:           db.NormalizePage(page),
	}
	if raw := q.Get("companyId"); raw != "" {
		id, ok := objectid.Parse(raw)
		if !ok {
			s.errorResponse(w, http.StatusBadRequest, "Invalid Company ID format.")
			return
		}
		f.CompanyID = id
	}

	if queryFlag(r, "mine") {
		c := s.caller(r)
		if !s.allow(w, r, policy.Authenticated(c), signInRequired) {
			return
		}
		f.PostedBy = c.UserID
	} else if f.Status == "" {
		f.Status = db.JobStatusActive
	}

	result, err := s.store.ListJobs(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	c, err := s.callerWithRole(r.Context(), r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !s.allow(w, r, policy.HasRole(c, policy.RoleCompanyERP), postJobDenials) {
		return
	}

	var req types.CreateJobRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, missingJobFields)
		return
	}
	companyID, ok := objectid.Parse(req.CompanyID)
	if !ok {
		s.errorResponse(w, http.StatusBadRequest, "Invalid Company ID format.")
		return
	}

	company, err := s.store.GetCompanyByID(r.Context(), companyID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if company == nil {
		s.errorResponse(w, http.StatusNotFound, "Company not found")
		return
	}

	job, err := s.store.CreateJob(r.Context(), &db.Job{
		Title:            req.Title,
		Description:      req.Description,
		CompanyID:        companyID,
		UserID:           c.UserID,
		Location:         req.Location,
		EmploymentType:   req.EmploymentType,
		SalaryMin:        req.SalaryMin.Ptr(),
		SalaryMax:        req.SalaryMax.Ptr(),
		SalaryCurrency:   strings.TrimSpace(req.SalaryCurrency),
		Requirements:     req.Requirements,
		Responsibilities: req.Responsibilities,
		ApplyLink:        strings.TrimSpace(req.ApplyLink),
		Status:           strings.TrimSpace(req.Status),
		ExpiresAt:        req.ExpiresAt.Ptr(),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, job)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id", "Invalid Job ID format")
	if !ok {
		return
	}

	job, err := s.store.GetJobByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if job == nil {
		s.errorResponse(w, http.StatusNotFound, "Job not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, job)
}

// ownedJob loads a job and checks that the caller posted it.
func (s *Server) ownedJob(w http.ResponseWriter, r *http.Request) (*db.Job, bool) {
	c := s.caller(r)
	if !s.allow(w, r, policy.Authenticated(c), ownJobDenials) {
		return nil, false
	}
	id, ok := s.pathID(w, r, "id", "Invalid Job ID format")
	if !ok {
		return nil, false
	}

	job, err := s.store.GetJobByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	if job == nil {
		s.errorResponse(w, http.StatusNotFound, "Job posting not found")
		return nil, false
	}
	if !s.allow(w, r, policy.Owner(c, job.UserID), ownJobDenials) {
		return nil, false
	}
	return job, true
}

func (s *Server) handleUpdateJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.ownedJob(w, r)
	if !ok {
		return
	}

	var req types.UpdateJobRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		field, _ := types.FailedRule(err)
		s.errorResponse(w, http.StatusBadRequest, "Invalid value for "+field)
		return
	}

	updated, err := s.store.UpdateJob(r.Context(), job.ID, jobUpdate(req))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if updated == nil {
		s.errorResponse(w, http.StatusNotFound, "Job posting not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, updated)
}

func jobUpdate(req types.UpdateJobRequest) db.JobUpdate {
	u := db.JobUpdate{
		Title:          trimmed(req.Title),
		Description:    trimmed(req.Description),
		Location:       trimmed(req.Location),
		EmploymentType: trimmed(req.EmploymentType),
		SalaryCurrency: trimmed(req.SalaryCurrency),
		ApplyLink:      trimmed(req.ApplyLink),
		Status:         trimmed(req.Status),
	}
	if req.SalaryMin != nil {
		u.SalaryMin = req.SalaryMin.Ptr()
	}
	if req.SalaryMax != nil {
		u.SalaryMax = req.SalaryMax.Ptr()
	}
	if req.Requirements != nil {
		u.Requirements = append([]string{}, *req.Requirements...)
	}
	if req.Responsibilities != nil {
		u.Responsibilities = append([]string{}, *req.Responsibilities...)
	}
	if req.ExpiresAt.Set {
		u.ClearExpiresAt = req.ExpiresAt.Null
		u.ExpiresAt = req.ExpiresAt.Ptr()
	}
	return u
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.ownedJob(w, r)
	if !ok {
		return
	}

	deleted, err := s.store.DeleteJob(r.Context(), job.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !deleted {
		s.errorResponse(w, http.StatusNotFound, "Job posting not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"message": "Job deleted successfully"})
}

func (s *Server) handleRecommendJobs(w http.ResponseWriter, r *http.Request) {
	c := s.caller(r)
	if !s.allow(w, r, policy.Authenticated(c), denials{
		unauthenticated: "Unauthorized. Please sign in to get job recommendations.",
	}) {
		return
	}

	profile, err := s.store.GetProfile(r.Context(), c.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if profile == nil || len(types.CleanList(profile.Skills)) == 0 {
		s.jsonResponse(w, http.StatusOK, []db.Job{})
		return
	}

	skills := types.CleanList(profile.Skills)
	jobs, err := s.store.RecommendJobs(r.Context(), c.UserID, s.skills.VariationsFor(skills), skills)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, jobs)
}
