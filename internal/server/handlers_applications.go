package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/jonathan/nexthire/internal/db"
	"github.com/jonathan/nexthire/internal/events"
	"github.com/jonathan/nexthire/internal/mailer"
	"github.com/jonathan/nexthire/internal/objectid"
	"github.com/jonathan/nexthire/internal/policy"
	"github.com/jonathan/nexthire/internal/storage"
	"github.com/jonathan/nexthire/internal/types"
)

const (
	alreadyApplied       = "You have already applied for this job."
	missingApplyFields   = "Missing required fields: jobId, applicantName, applicantEmail, and resumeUrl are required"
	missingUploadFields  = "Missing required fields: applicantName, applicantEmail, and resume file are required"
	applicationSubmitted = "Application submitted successfully"
)

var (
	applyDenials = denials{
		unauthenticated: "Unauthorized - Please sign in",
	}
	updateApplicationDenials = denials{
		unauthenticated: "Unauthorized - Please sign in",
		forbidden:       "You do not have permission to update this application",
	}
	interviewDenials = denials{
		unauthenticated: "Unauthorized. Please sign in.",
		forbidden:       "You can only schedule interviews for your own job postings",
	}
)

// submission is an application ready to be inserted.
type submission struct {
	job    *db.Job
	userID string
	in     db.NewApplication
}

// submit creates the applicant's profile when missing and inserts the
// application. Duplicate applications map to ErrConflict.
func (s *Server) submit(ctx context.Context, sub submission) (*db.Application, error) {
	if _, created, err := s.store.EnsureProfile(ctx, sub.userID, sub.in.ApplicantName); err != nil {
		return nil, err
	} else if created {
		log.Printf("[applications] created profile for %s", sub.userID)
	}

	sub.in.JobID = sub.job.ID
	sub.in.UserID = sub.userID
	app, err := s.store.CreateApplication(ctx, sub.in)
	switch {
	case errors.Is(err, db.ErrAlreadyApplied):
		return nil, &ErrConflict{Message: alreadyApplied}
	case errors.Is(err, db.ErrMissingReference):
		return nil, &ErrNotFound{Message: "Job not found"}
	case err != nil:
		return nil, err
	}

	s.publish(events.Event{
		Type:          events.ApplicationSubmitted,
		ApplicationID: app.ID,
		JobID:         sub.job.ID,
		CompanyID:     sub.job.CompanyID,
		UserID:        sub.userID,
	})
	return app, nil
}

// findJob loads the job an application targets. ok is false when a
// response has been written.
func (s *Server) findJob(w http.ResponseWriter, r *http.Request, raw string) (*db.Job, bool) {
	id, valid := objectid.Parse(raw)
	if !valid {
		s.errorResponse(w, http.StatusBadRequest, "Invalid Job ID format")
		return nil, false
	}
	job, err := s.store.GetJobByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	if job == nil {
		s.errorResponse(w, http.StatusNotFound, "Job not found")
		return nil, false
	}
	return job, true
}

func (s *Server) handleCreateApplication(w http.ResponseWriter, r *http.Request) {
	c := s.caller(r)
	if !s.allow(w, r, policy.Authenticated(c), applyDenials) {
		return
	}

	var req types.CreateApplicationRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		if len(types.MissingFields(err)) > 0 {
			s.errorResponse(w, http.StatusBadRequest, missingApplyFields)
			return
		}
		s.errorResponse(w, http.StatusBadRequest, "Invalid email format")
		return
	}

	job, ok := s.findJob(w, r, req.JobID)
	if !ok {
		return
	}

	app, err := s.submit(r.Context(), submission{
		job:    job,
		userID: c.UserID,
		in: db.NewApplication{
			ApplicantName:  req.ApplicantName,
			ApplicantEmail: req.ApplicantEmail,
			ResumeURL:      strings.TrimSpace(req.ResumeURL),
			CoverLetter:    req.CoverLetter,
			ATSStatus:      db.ATSSkipped,
		},
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, map[string]any{
		"message":     applicationSubmitted,
		"application": app,
	})
}

// handleApply accepts a multipart application with a PDF resume and
// queues ATS scoring.
func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	c := s.caller(r)
	if !s.allow(w, r, policy.Authenticated(c), applyDenials) {
		return
	}
	jobID := r.PathValue("jobId")
	if _, valid := objectid.Parse(jobID); !valid {
		s.errorResponse(w, http.StatusBadRequest, "Invalid Job ID format")
		return
	}
	if !s.parseForm(w, r) {
		return
	}

	req := types.ApplyRequest{
		ApplicantName:  r.FormValue("applicantName"),
		ApplicantEmail: r.FormValue("applicantEmail"),
		CoverLetter:    r.FormValue("coverLetter"),
	}
	reqErr := req.Validate()
	if reqErr != nil && len(types.MissingFields(reqErr)) > 0 {
		s.errorResponse(w, http.StatusBadRequest, missingUploadFields)
		return
	}
	resume, ok := s.readFile(w, r, pdfOnly("resume"))
	if !ok {
		return
	}
	if resume == nil {
		s.errorResponse(w, http.StatusBadRequest, missingUploadFields)
		return
	}
	if reqErr != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid email format")
		return
	}

	job, ok := s.findJob(w, r, jobID)
	if !ok {
		return
	}

	publicID := storage.ApplicationResumeID(resume.Name, s.now())
	obj, err := s.saveFile(r.Context(), storage.FolderResumes, publicID, resume)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	app, err := s.submit(r.Context(), submission{
		job:    job,
		userID: c.UserID,
		in: db.NewApplication{
			ApplicantName:  req.ApplicantName,
			ApplicantEmail: req.ApplicantEmail,
			ResumeURL:      obj.URL,
			CoverLetter:    strings.TrimSpace(req.CoverLetter),
			ATSStatus:      db.ATSPending,
		},
	})
	if err != nil {
		s.bg.Go("storage", func(ctx context.Context) error {
			return s.files.Delete(ctx, storage.FolderResumes, obj.PublicID)
		})
		s.writeError(w, r, err)
		return
	}

	if err := s.scorer.Submit(app.ID, resume.Data, job.Requirements); err != nil {
		log.Printf("[applications] scoring not queued for %s: %v", app.ID, err)
	}

	s.jsonResponse(w, http.StatusCreated, map[string]any{
		"message": applicationSubmitted,
		"application": map[string]any{
			"id":        app.ID,
			"jobId":     app.JobID,
			"status":    app.Status,
			"createdAt": app.CreatedAt,
		},
	})
}

func (s *Server) handleMyApplications(w http.ResponseWriter, r *http.Request) {
	c := s.caller(r)
	if !s.allow(w, r, policy.Authenticated(c), applyDenials) {
		return
	}

	apps, err := s.store.ListApplicationsByUser(r.Context(), c.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, apps)
}

func (s *Server) handleCompanyApplications(w http.ResponseWriter, r *http.Request) {
	company, ok := s.ownedCompany(w, r, "companyId")
	if !ok {
		return
	}

	apps, err := s.store.ListApplicationsByCompany(r.Context(), company.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, apps)
}

// companyOwner owns status decisions on a job's applications.
func companyOwner(j *db.ApplicationJob) string { return j.CompanyOwner }

// jobPoster owns interview scheduling on a job's applications.
func jobPoster(j *db.ApplicationJob) string { return j.UserID }

// ownedApplication loads an application and checks the caller against
// the owner that ownerOf picks from its job.
func (s *Server) ownedApplication(w http.ResponseWriter, r *http.Request, d denials, ownerOf func(*db.ApplicationJob) string) (*db.Application, bool) {
	c := s.caller(r)
	if !s.allow(w, r, policy.Authenticated(c), d) {
		return nil, false
	}
	id, ok := s.pathID(w, r, "id", "Invalid Application ID format")
	if !ok {
		return nil, false
	}

	app, err := s.store.GetApplication(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	if app == nil || app.Job == nil {
		s.errorResponse(w, http.StatusNotFound, "Application not found")
		return nil, false
	}
	if !s.allow(w, r, policy.Owner(c, ownerOf(app.Job)), d) {
		return nil, false
	}
	return app, true
}

func (s *Server) handleUpdateApplicationStatus(w http.ResponseWriter, r *http.Request) {
	app, ok := s.ownedApplication(w, r, updateApplicationDenials, companyOwner)
	if !ok {
		return
	}

	var req types.StatusRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Status is required and must be a string")
		return
	}
	status, err := db.ParseApplicationStatus(req.Status)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid status. Must be one of: "+db.StatusList())
		return
	}

	updated, err := s.store.UpdateApplicationStatus(r.Context(), app.ID, status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if updated == nil {
		s.errorResponse(w, http.StatusNotFound, "Application not found")
		return
	}

	s.sendMail(func() (mailer.Message, error) {
		return mailer.StatusUpdateMessage(mailer.StatusUpdate{
			ApplicantName:  app.ApplicantName,
			ApplicantEmail: app.ApplicantEmail,
			JobTitle:       app.Job.Title,
			Status:         string(status),
		})
	})
	s.publish(events.Event{
		Type:          events.ApplicationStatusChanged,
		ApplicationID: app.ID,
		JobID:         app.JobID,
		UserID:        app.UserID,
		From:          string(app.Status),
		To:            string(status),
	})

	s.jsonResponse(w, http.StatusOK, updated)
}

func (s *Server) handleScheduleInterview(w http.ResponseWriter, r *http.Request) {
	app, ok := s.ownedApplication(w, r, interviewDenials, jobPoster)
	if !ok {
		return
	}

	var req types.InterviewRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		if len(types.MissingFields(err)) > 0 {
			s.errorResponse(w, http.StatusBadRequest, "Missing required fields")
			return
		}
		s.errorResponse(w, http.StatusBadRequest, "Invalid meeting link")
		return
	}
	at, ok := parseInterviewDate(req.InterviewDate)
	if !ok {
		s.errorResponse(w, http.StatusBadRequest, "Invalid interview date")
		return
	}
	if !at.After(s.now()) {
		s.errorResponse(w, http.StatusBadRequest, "Interview date must be in the future")
		return
	}

	updated, err := s.store.ScheduleInterview(r.Context(), app.ID, at, req.InterviewLink)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if updated == nil {
		s.errorResponse(w, http.StatusNotFound, "Application not found")
		return
	}

	companyName := ""
	if app.Job.Company != nil {
		companyName = app.Job.Company.Name
	}
	s.sendMail(func() (mailer.Message, error) {
		return mailer.InterviewMessage(mailer.Interview{
			ApplicantName:  app.ApplicantName,
			ApplicantEmail: app.ApplicantEmail,
			JobTitle:       app.Job.Title,
			CompanyName:    companyName,
			Location:       app.Job.Location,
			Link:           req.InterviewLink,
			At:             at,
		})
	})
	s.publish(events.Event{
		Type:          events.InterviewScheduled,
		ApplicationID: app.ID,
		JobID:         app.JobID,
		UserID:        app.UserID,
		From:          string(app.Status),
		To:            string(db.StatusInterview),
	})

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"message":     "Interview scheduled successfully",
		"application": updated,
	})
}

// interviewLayouts are tried in order. Values without an offset, as sent
// by datetime-local inputs, are read as UTC.
var interviewLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04"}

func parseInterviewDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range interviewLayouts {
		if at, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return at, true
		}
	}
	return time.Time{}, false
}

func (s *Server) handleCancelInterview(w http.ResponseWriter, r *http.Request) {
	app, ok := s.ownedApplication(w, r, interviewDenials, jobPoster)
	if !ok {
		return
	}

	updated, err := s.store.CancelInterview(r.Context(), app.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if updated == nil {
		s.errorResponse(w, http.StatusNotFound, "Application not found")
		return
	}

	s.publish(events.Event{
		Type:          events.InterviewCanceled,
		ApplicationID: app.ID,
		JobID:         app.JobID,
		UserID:        app.UserID,
		From:          string(app.Status),
		To:            string(db.StatusReviewed),
	})

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"message":     "Interview cancelled",
		"application": updated,
	})
}

// sendMail builds and sends a message in the background. Failures are
// logged by the runner and never reach the caller.
func (s *Server) sendMail(build func() (mailer.Message, error)) {
	s.bg.Go("mail", func(ctx context.Context) error {
		msg, err := build()
		if err != nil {
			return err
		}
		return s.mailer.Send(ctx, msg)
	})
}
