package server

import (
	"context"
	"time"

	"github.com/jonathan/nexthire/internal/db"
)

// Store is the persistence API used by the handlers. *db.DB implements it.
type Store interface {
	Ping(ctx context.Context) error

	CreateCompany(ctx context.Context, c *db.Company) (*db.Company, error)
	GetCompanyByID(ctx context.Context, id string) (*db.Company, error)
	ListCompaniesByUser(ctx context.Context, userID string) ([]db.CompanySummary, error)
	ListUnverifiedCompanies(ctx context.Context) ([]db.Company, error)
	UpdateCompany(ctx context.Context, id string, u db.CompanyUpdate) (*db.Company, error)
	VerifyCompany(ctx context.Context, id string) (*db.Company, error)
	DeleteCompany(ctx context.Context, id string) (bool, error)

	CreateJob(ctx context.Context, j *db.Job) (*db.Job, error)
	GetJobByID(ctx context.Context, id string) (*db.Job, error)
	UpdateJob(ctx context.Context, id string, u db.JobUpdate) (*db.Job, error)
	DeleteJob(ctx context.Context, id string) (bool, error)
	ListJobs(ctx context.Context, f db.JobFilter) (*db.JobPage, error)
	RecommendJobs(ctx context.Context, viewer string, variants, skills []string) ([]db.Job, error)

	CreateApplication(ctx context.Context, in db.NewApplication) (*db.Application, error)
	GetApplication(ctx context.Context, id string) (*db.Application, error)
	UpdateApplicationStatus(ctx context.Context, id string, status db.ApplicationStatus) (*db.Application, error)
	ScheduleInterview(ctx context.Context, id string, at time.Time, link string) (*db.Application, error)
	CancelInterview(ctx context.Context, id string) (*db.Application, error)
	ListApplicationsByUser(ctx context.Context, userID string) ([]db.Application, error)
	ListApplicationsByCompany(ctx context.Context, companyID string) ([]db.Application, error)
	LatestResumeURL(ctx context.Context, userID string) (*string, error)
	ReplaceLatestResume(ctx context.Context, userID, url string) (bool, error)

	GetProfile(ctx context.Context, userID string) (*db.UserProfile, error)
	EnsureProfile(ctx context.Context, userID, headline string) (*db.UserProfile, bool, error)
	UpsertProfile(ctx context.Context, userID string, u db.ProfileUpdate) (*db.UserProfile, error)
	DeleteProfile(ctx context.Context, userID string) (bool, error)

	Analytics(ctx context.Context) (*db.Analytics, error)
	JobsByIndustry(ctx context.Context, limit int) ([]db.IndustryCount, error)
	CompanyDashboard(ctx context.Context, ownerID string) (*db.CompanyDashboard, error)
}

var _ Store = (*db.DB)(nil)
