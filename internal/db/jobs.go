package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/nexthire/internal/objectid"
)

// -----------------------------------------------------------------------------
// Job Methods
// -----------------------------------------------------------------------------

const jobColumns = `j.id, j.title, j.description, COALESCE(j.company_id, ''), j.user_id, j.location,
	j.employment_type, j.salary_min, j.salary_max, j.salary_currency, j.requirements,
	j.responsibilities, j.apply_link, j.status, j.posted_at, j.expires_at, j.updated_at`

const jobWithCompanyColumns = jobColumns + `, c.id, c.name, c.logo_url`

func scanJob(row rowScanner) (*Job, error) {
	var j Job
	err := row.Scan(
		&j.ID, &j.Title, &j.Description, &j.CompanyID, &j.UserID, &j.Location,
		&j.EmploymentType, &j.SalaryMin, &j.SalaryMax, &j.SalaryCurrency, &j.Requirements,
		&j.Responsibilities, &j.ApplyLink, &j.Status, &j.PostedAt, &j.ExpiresAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	normalizeJobLists(&j)
	return &j, nil
}

func scanJobWithCompany(row rowScanner) (*Job, error) {
	var j Job
	var companyID, companyName, companyLogo *string
	err := row.Scan(
		&j.ID, &j.Title, &j.Description, &j.CompanyID, &j.UserID, &j.Location,
		&j.EmploymentType, &j.SalaryMin, &j.SalaryMax, &j.SalaryCurrency, &j.Requirements,
		&j.Responsibilities, &j.ApplyLink, &j.Status, &j.PostedAt, &j.ExpiresAt, &j.UpdatedAt,
		&companyID, &companyName, &companyLogo,
	)
	if err != nil {
		return nil, err
	}
	normalizeJobLists(&j)
	if companyID != nil {
		j.Company = &CompanySummary{ID: *companyID}
		if companyName != nil {
			j.Company.Name = *companyName
		}
		if companyLogo != nil {
			j.Company.LogoURL = *companyLogo
		}
	}
	return &j, nil
}

func normalizeJobLists(j *Job) {
	if j.Requirements == nil {
		j.Requirements = []string{}
	}
	if j.Responsibilities == nil {
		j.Responsibilities = []string{}
	}
}

// CreateJob inserts j, assigning its id and defaulting its status.
func (db *DB) CreateJob(ctx context.Context, j *Job) (*Job, error) {
	if j.ID == "" {
		j.ID = objectid.New()
	}
	if j.Status == "" {
		j.Status = JobStatusActive
	}
	normalizeJobLists(j)

	row := db.pool.QueryRow(ctx,
		`INSERT INTO jobs AS j (id, title, description, company_id, user_id, location, employment_type,
		        salary_min, salary_max, salary_currency, requirements, responsibilities, apply_link,
		        status, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 RETURNING `+jobColumns,
		j.ID, j.Title, j.Description, j.CompanyID, j.UserID, j.Location, j.EmploymentType,
		j.SalaryMin, j.SalaryMax, j.SalaryCurrency, j.Requirements, j.Responsibilities, j.ApplyLink,
		j.Status, j.ExpiresAt,
	)
	created, err := scanJob(row)
	if err != nil {
		return nil, wrapWriteErr(err, "create job")
	}
	return created, nil
}

// GetJobByID retrieves a job with its company summary. Returns nil, nil
// when absent.
func (db *DB) GetJobByID(ctx context.Context, id string) (*Job, error) {
	j, err := scanJobWithCompany(db.pool.QueryRow(ctx,
		`SELECT `+jobWithCompanyColumns+`
		 FROM jobs j LEFT JOIN companies c ON c.id = j.company_id
		 WHERE j.id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return j, nil
}

// UpdateJob applies a partial update. Returns nil, nil when absent.
func (db *DB) UpdateJob(ctx context.Context, id string, u JobUpdate) (*Job, error) {
	var b setBuilder
	if u.Title != nil {
		b.add("title", *u.Title)
	}
	if u.Description != nil {
		b.add("description", *u.Description)
	}
	if u.Location != nil {
		b.add("location", *u.Location)
	}
	if u.EmploymentType != nil {
		b.add("employment_type", *u.EmploymentType)
	}
	if u.SalaryMin != nil {
		b.add("salary_min", *u.SalaryMin)
	}
	if u.SalaryMax != nil {
		b.add("salary_max", *u.SalaryMax)
	}
	if u.SalaryCurrency != nil {
		b.add("salary_currency", *u.SalaryCurrency)
	}
	if u.Requirements != nil {
		b.add("requirements", u.Requirements)
	}
	if u.Responsibilities != nil {
		b.add("responsibilities", u.Responsibilities)
	}
	if u.ApplyLink != nil {
		b.add("apply_link", *u.ApplyLink)
	}
	if u.Status != nil {
		b.add("status", *u.Status)
	}
	switch {
	case u.ClearExpiresAt:
		b.clauses = append(b.clauses, "expires_at = NULL")
	case u.ExpiresAt != nil:
		b.add("expires_at", *u.ExpiresAt)
	}

	if b.empty() {
		return db.GetJobByID(ctx, id)
	}

	query := fmt.Sprintf(
		`UPDATE jobs AS j SET %s, updated_at = NOW() WHERE j.id = %s RETURNING %s`,
		strings.Join(b.clauses, ", "), b.next(id), jobColumns,
	)
	j, err := scanJob(db.pool.QueryRow(ctx, query, b.args...))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, wrapWriteErr(err, "update job")
	}
	return j, nil
}

// DeleteJob removes a job and its applications. Reports whether a row was deleted.
func (db *DB) DeleteJob(ctx context.Context, id string) (bool, error) {
	tag, err := db.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete job: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListJobs returns one page of jobs matching f, newest first, together
// with the total number of matches.
func (db *DB) ListJobs(ctx context.Context, f JobFilter) (*JobPage, error) {
	where, args := buildJobListWhere(f)
	from := `FROM jobs j JOIN companies c ON c.id = j.company_id ` + where

	var total int
	if err := db.pool.QueryRow(ctx, `SELECT COUNT(*) `+from, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}

	page := NormalizePage(f.Page)
	query := fmt.Sprintf(`SELECT %s %s ORDER BY j.posted_at DESC LIMIT %d OFFSET %d`,
		jobWithCompanyColumns, from, JobsPerPage, PageOffset(page))

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]Job, 0, JobsPerPage)
	for rows.Next() {
		j, err := scanJobWithCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return &JobPage{Jobs: jobs, TotalJobs: total, Page: page, TotalPages: TotalPages(total)}, nil
}

// RecommendJobs returns active jobs not posted by viewer whose
// requirements contain a skill variant or whose title or description
// mention a skill.
func (db *DB) RecommendJobs(ctx context.Context, viewer string, variants, skills []string) ([]Job, error) {
	jobs := make([]Job, 0)
	if len(variants) == 0 && len(skills) == 0 {
		return jobs, nil
	}

	query, args := buildRecommendationQuery(viewer, variants, skills)
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to recommend jobs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		j, err := scanJobWithCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}
