package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jonathan/nexthire/internal/objectid"
)

// ErrAlreadyApplied is returned when the (job, user) pair already has an application.
var ErrAlreadyApplied = errors.New("already applied for this job")

// ErrMissingReference is returned when an insert points at a row that no longer exists.
var ErrMissingReference = errors.New("referenced row does not exist")

const foreignKeyViolationCode = "23503"

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolationCode
}

// -----------------------------------------------------------------------------
// Application Methods
// -----------------------------------------------------------------------------

const applicationColumns = `a.id, a.job_id, a.user_id, a.applicant_name, a.applicant_email,
	a.resume_url, a.cover_letter, a.status, a.ats_score, a.ats_status, a.interview_date,
	a.interview_link, a.created_at, a.updated_at`

const applicationWithJobColumns = applicationColumns + `,
	j.id, j.title, j.location, j.employment_type, j.status, j.user_id,
	c.id, c.name, c.logo_url, c.user_id`

const applicationJoins = `JOIN jobs j ON j.id = a.job_id
	LEFT JOIN companies c ON c.id = j.company_id`

const applicationWithJobFrom = `FROM applications a ` + applicationJoins

func scanApplication(row rowScanner) (*Application, error) {
	var a Application
	err := row.Scan(
		&a.ID, &a.JobID, &a.UserID, &a.ApplicantName, &a.ApplicantEmail,
		&a.ResumeURL, &a.CoverLetter, &a.Status, &a.ATSScore, &a.ATSStatus, &a.InterviewDate,
		&a.InterviewLink, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func scanApplicationWithJob(row rowScanner) (*Application, error) {
	var a Application
	var j ApplicationJob
	var companyID, companyName, companyLogo, companyOwner *string
	err := row.Scan(
		&a.ID, &a.JobID, &a.UserID, &a.ApplicantName, &a.ApplicantEmail,
		&a.ResumeURL, &a.CoverLetter, &a.Status, &a.ATSScore, &a.ATSStatus, &a.InterviewDate,
		&a.InterviewLink, &a.CreatedAt, &a.UpdatedAt,
		&j.ID, &j.Title, &j.Location, &j.EmploymentType, &j.Status, &j.UserID,
		&companyID, &companyName, &companyLogo, &companyOwner,
	)
	if err != nil {
		return nil, err
	}
	if companyID != nil {
		j.Company = &CompanySummary{ID: *companyID}
		if companyName != nil {
			j.Company.Name = *companyName
		}
		if companyLogo != nil {
			j.Company.LogoURL = *companyLogo
		}
	}
	if companyOwner != nil {
		j.CompanyOwner = *companyOwner
	}
	a.Job = &j
	return &a, nil
}

// CreateApplication inserts an application in one statement. A second
// application for the same job and user returns ErrAlreadyApplied; a job
// deleted underneath the insert returns ErrMissingReference.
func (db *DB) CreateApplication(ctx context.Context, in NewApplication) (*Application, error) {
	atsStatus := in.ATSStatus
	if atsStatus == "" {
		atsStatus = ATSPending
	}

	row := db.pool.QueryRow(ctx,
		`INSERT INTO applications AS a (id, job_id, user_id, applicant_name, applicant_email,
		        resume_url, cover_letter, status, ats_score, ats_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9)
		 ON CONFLICT (job_id, user_id) DO NOTHING
		 RETURNING `+applicationColumns,
		objectid.New(), in.JobID, in.UserID, in.ApplicantName, in.ApplicantEmail,
		in.ResumeURL, in.CoverLetter, StatusPending, atsStatus,
	)
	a, err := scanApplication(row)
	if err != nil {
		switch {
		case isNoRows(err):
			return nil, ErrAlreadyApplied
		case isForeignKeyViolation(err):
			return nil, fmt.Errorf("create application: %w", ErrMissingReference)
		}
		return nil, wrapWriteErr(err, "create application")
	}
	return a, nil
}

// GetApplication retrieves an application with its job and company
// context. Returns nil, nil when absent.
func (db *DB) GetApplication(ctx context.Context, id string) (*Application, error) {
	a, err := scanApplicationWithJob(db.pool.QueryRow(ctx,
		`SELECT `+applicationWithJobColumns+` `+applicationWithJobFrom+` WHERE a.id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return a, nil
}

func (db *DB) updateApplication(ctx context.Context, what, set string, args ...any) (*Application, error) {
	// The joined row must come from RETURNING; the outer query does not
	// see the CTE's write.
	query := fmt.Sprintf(
		`WITH a AS (
		   UPDATE applications SET %s, updated_at = NOW() WHERE id = $1 RETURNING *
		 )
		 SELECT %s FROM a %s`,
		set, applicationWithJobColumns, applicationJoins,
	)
	a, err := scanApplicationWithJob(db.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to %s: %w", what, err)
	}
	return a, nil
}

// UpdateApplicationStatus sets the status without checking the previous
// one. Returns nil, nil when absent.
func (db *DB) UpdateApplicationStatus(ctx context.Context, id string, status ApplicationStatus) (*Application, error) {
	return db.updateApplication(ctx, "update application status", "status = $2", id, status)
}

// ScheduleInterview sets the interview date and link and moves the
// application to Interview in one statement.
func (db *DB) ScheduleInterview(ctx context.Context, id string, at time.Time, link string) (*Application, error) {
	return db.updateApplication(ctx, "schedule interview",
		"status = $2, interview_date = $3, interview_link = $4", id, StatusInterview, at, link)
}

// CancelInterview clears the interview fields and moves the application
// back to Reviewed, whatever its current status.
func (db *DB) CancelInterview(ctx context.Context, id string) (*Application, error) {
	return db.updateApplication(ctx, "cancel interview",
		"status = $2, interview_date = NULL, interview_link = ''", id, StatusReviewed)
}

// SetATSResult records the outcome of resume scoring.
func (db *DB) SetATSResult(ctx context.Context, id string, score int, status string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE applications SET ats_score = $2, ats_status = $3, updated_at = NOW() WHERE id = $1`,
		id, score, status,
	)
	if err != nil {
		return fmt.Errorf("failed to set ATS result: %w", err)
	}
	return nil
}

func (db *DB) listApplications(ctx context.Context, where string, arg any) ([]Application, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+applicationWithJobColumns+` `+applicationWithJobFrom+` WHERE `+where+
			` ORDER BY a.created_at DESC`, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	apps := make([]Application, 0)
	for rows.Next() {
		a, err := scanApplicationWithJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, *a)
	}
	return apps, rows.Err()
}

// ListApplicationsByUser lists the applications a user submitted, newest first.
func (db *DB) ListApplicationsByUser(ctx context.Context, userID string) ([]Application, error) {
	return db.listApplications(ctx, "a.user_id = $1", userID)
}

// ListApplicationsByCompany lists applications to a company's jobs, newest first.
func (db *DB) ListApplicationsByCompany(ctx context.Context, companyID string) ([]Application, error) {
	return db.listApplications(ctx, "j.company_id = $1", companyID)
}

// LatestResumeURL returns the resume of the user's most recent
// application, or nil when they have none.
func (db *DB) LatestResumeURL(ctx context.Context, userID string) (*string, error) {
	var url string
	err := db.pool.QueryRow(ctx,
		`SELECT resume_url FROM applications WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`,
		userID,
	).Scan(&url)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest resume: %w", err)
	}
	return &url, nil
}

// ReplaceLatestResume points the user's most recent application at url.
// Reports whether an application was updated.
func (db *DB) ReplaceLatestResume(ctx context.Context, userID, url string) (bool, error) {
	tag, err := db.pool.Exec(ctx,
		`UPDATE applications SET resume_url = $2, updated_at = NOW()
		 WHERE id = (SELECT id FROM applications WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1)`,
		userID, url,
	)
	if err != nil {
		return false, fmt.Errorf("failed to replace resume: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
