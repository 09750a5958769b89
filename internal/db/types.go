package db

import (
	"fmt"
	"strings"
	"time"
)

// -----------------------------------------------------------------------------
// Companies
// -----------------------------------------------------------------------------

// Company is an employer registered by a user.
type Company struct {
	ID                          string    `json:"id"`
	Name                        string    `json:"name"`
	LegalName                   string    `json:"legalName"`
	UserID                      string    `json:"userId"`
	RegistrationNumber          string    `json:"registrationNumber"`
	LogoURL                     string    `json:"logoUrl"`
	Website                     string    `json:"website"`
	Industry                    string    `json:"industry"`
	CompanySize                 string    `json:"companySize"`
	About                       string    `json:"about"`
	ContactEmail                string    `json:"contactEmail"`
	YearFounded                 int       `json:"yearFounded"`
	CompanyType                 string    `json:"companyType"`
	IsVerified                  bool      `json:"isVerified"`
	RegistrationCertificateURL  string    `json:"registrationCertificateUrl"`
	TaxCertificateURL           string    `json:"taxCertificateUrl"`
	IncorporationCertificateURL string    `json:"incorporationCertificateUrl"`
	AdditionalDocumentsURL      string    `json:"additionalDocumentsUrl"`
	CreatedAt                   time.Time `json:"createdAt"`
	UpdatedAt                   time.Time `json:"updatedAt"`
}

// CompanyUpdate carries the fields of a partial company update. Nil
// fields are left unchanged.
type CompanyUpdate struct {
	Name                        *string
	LegalName                   *string
	RegistrationNumber          *string
	LogoURL                     *string
	Website                     *string
	Industry                    *string
	CompanySize                 *string
	About                       *string
	ContactEmail                *string
	YearFounded                 *int
	CompanyType                 *string
	RegistrationCertificateURL  *string
	TaxCertificateURL           *string
	IncorporationCertificateURL *string
	AdditionalDocumentsURL      *string
}

// CompanySummary is the short form used in listings.
type CompanySummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	LogoURL string `json:"logoUrl,omitempty"`
}

// -----------------------------------------------------------------------------
// Jobs
// -----------------------------------------------------------------------------

// Job statuses written by the service.
const (
	JobStatusActive  = "active"
	JobStatusExpired = "expired"
)

// JobsPerPage is the fixed page size of the job listing.
const JobsPerPage = 8

// Job is a posting owned by a company and by the posting user.
type Job struct {
	ID               string          `json:"id"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	CompanyID        string          `json:"companyId"`
	UserID           string          `json:"userId"`
	Location         string          `json:"location"`
	EmploymentType   string          `json:"employmentType"`
	SalaryMin        *int            `json:"salaryMin"`
	SalaryMax        *int            `json:"salaryMax"`
	SalaryCurrency   string          `json:"salaryCurrency"`
	Requirements     []string        `json:"requirements"`
	Responsibilities []string        `json:"responsibilities"`
	ApplyLink        string          `json:"applyLink"`
	Status           string          `json:"status"`
	PostedAt         time.Time       `json:"postedAt"`
	ExpiresAt        *time.Time      `json:"expiresAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
	Company          *CompanySummary `json:"company,omitempty"`
}

// JobUpdate carries the fields of a partial job update. ClearExpiresAt
// sets expires_at to NULL.
type JobUpdate struct {
	Title            *string
	Description      *string
	Location         *string
	EmploymentType   *string
	SalaryMin        *int
	SalaryMax        *int
	SalaryCurrency   *string
	Requirements     []string
	Responsibilities []string
	ApplyLink        *string
	Status           *string
	ExpiresAt        *time.Time
	ClearExpiresAt   bool
}

// JobFilter selects jobs for the public listing.
type JobFilter struct {
	CompanyID      string
	EmploymentType string
	Status         string
	Search         string
	ExcludeIDs     []string
	PostedBy       string
	Page           int
}

// JobPage is one page of the job listing.
type JobPage struct {
	Jobs       []Job `json:"jobs"`
	TotalJobs  int   `json:"totalJobs"`
	Page       int   `json:"page"`
	TotalPages int   `json:"totalPages"`
}

// -----------------------------------------------------------------------------
// Applications
// -----------------------------------------------------------------------------

// ApplicationStatus is the review state of an application.
type ApplicationStatus string

// Application statuses, stored in this spelling.
const (
	StatusPending   ApplicationStatus = "Pending"
	StatusReviewed  ApplicationStatus = "Reviewed"
	StatusInterview ApplicationStatus = "Interview"
	StatusAccepted  ApplicationStatus = "Accepted"
	StatusRejected  ApplicationStatus = "Rejected"
)

// ApplicationStatuses lists every settable status.
var ApplicationStatuses = []ApplicationStatus{
	StatusPending, StatusReviewed, StatusInterview, StatusAccepted, StatusRejected,
}

// ParseApplicationStatus matches s case-insensitively against the known statuses.
func ParseApplicationStatus(s string) (ApplicationStatus, error) {
	s = strings.TrimSpace(s)
	for _, st := range ApplicationStatuses {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid status %q: must be one of %s", s, StatusList())
}

// StatusList renders the statuses for error messages.
func StatusList() string {
	names := make([]string, len(ApplicationStatuses))
	for i, st := range ApplicationStatuses {
		names[i] = strings.ToUpper(string(st))
	}
	return strings.Join(names, ", ")
}

// ATS scoring outcomes recorded in ats_status.
const (
	ATSPending   = "pending"
	ATSScored    = "scored"
	ATSNoSkills  = "no_skills"
	ATSNoMatch   = "no_match"
	ATSEmptyText = "empty_text"
	ATSFailed    = "failed"
	// ATSSkipped marks applications whose resume was linked by URL.
	ATSSkipped = "skipped"
)

// Application links a job and an applicant.
type Application struct {
	ID             string            `json:"id"`
	JobID          string            `json:"jobId"`
	UserID         string            `json:"userId"`
	ApplicantName  string            `json:"applicantName"`
	ApplicantEmail string            `json:"applicantEmail"`
	ResumeURL      string            `json:"resumeUrl"`
	CoverLetter    string            `json:"coverLetter"`
	Status         ApplicationStatus `json:"status"`
	ATSScore       int               `json:"atsScore"`
	ATSStatus      string            `json:"atsStatus"`
	InterviewDate  *time.Time        `json:"interviewDate"`
	InterviewLink  string            `json:"interviewLink"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
	Job            *ApplicationJob   `json:"job,omitempty"`
}

// ApplicationJob is the job context attached to an application.
type ApplicationJob struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Location       string          `json:"location"`
	EmploymentType string          `json:"employmentType"`
	Status         string          `json:"status"`
	UserID         string          `json:"-"`
	Company        *CompanySummary `json:"company,omitempty"`
	CompanyOwner   string          `json:"-"`
}

// NewApplication is the input of CreateApplication.
type NewApplication struct {
	JobID          string
	UserID         string
	ApplicantName  string
	ApplicantEmail string
	ResumeURL      string
	CoverLetter    string
	ATSStatus      string
}

// -----------------------------------------------------------------------------
// Profiles
// -----------------------------------------------------------------------------

// UserProfile holds job-seeker details for an identity-provider user.
type UserProfile struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Headline    string    `json:"headline"`
	Bio         string    `json:"bio"`
	Location    string    `json:"location"`
	Skills      []string  `json:"skills"`
	Experience  RawList   `json:"experience"`
	Education   RawList   `json:"education"`
	SocialLinks RawObject `json:"socialLinks"`
	ResumeURL   *string   `json:"resumeUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ProfileUpdate carries the fields of a profile upsert. Nil fields are
// left unchanged on update and defaulted on insert.
type ProfileUpdate struct {
	Headline    *string
	Bio         *string
	Location    *string
	Skills      []string
	Experience  RawList
	Education   RawList
	SocialLinks RawObject
}

// -----------------------------------------------------------------------------
// Analytics
// -----------------------------------------------------------------------------

// BasicStats are platform-wide counters.
type BasicStats struct {
	TotalUsers          int `json:"totalUsers"`
	TotalCompanies      int `json:"totalCompanies"`
	VerifiedCompanies   int `json:"verifiedCompanies"`
	TotalJobs           int `json:"totalJobs"`
	TotalApplications   int `json:"totalApplications"`
	PendingApplications int `json:"pendingApplications"`
}

// CompanyJobCount ranks companies by postings.
type CompanyJobCount struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	JobCount int    `json:"jobCount"`
}

// CompanyAppCount ranks companies by applications received.
type CompanyAppCount struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	JobCount         int    `json:"jobCount"`
	ApplicationCount int    `json:"applicationCount"`
}

// IndustryCount counts jobs per company industry.
type IndustryCount struct {
	Industry string `json:"industry"`
	Count    int    `json:"count"`
}

// Analytics is the admin analytics payload.
type Analytics struct {
	BasicStats         BasicStats        `json:"basicStats"`
	TopCompaniesByJobs []CompanyJobCount `json:"topCompaniesByJobs"`
	CompanyAppStats    []CompanyAppCount `json:"companyAppStats"`
}

// JobAppCount counts applications for one job.
type JobAppCount struct {
	JobID string `json:"jobId"`
	Title string `json:"title"`
	Count int    `json:"count"`
}

// CompanyDashboard aggregates applications for the companies a user owns.
type CompanyDashboard struct {
	TotalApps    int            `json:"totalApps"`
	TotalJobs    int            `json:"totalJobs"`
	ATSProcessed int            `json:"atsProcessed"`
	AppsByStatus map[string]int `json:"appsByStatus"`
	AppsByJob    []JobAppCount  `json:"appsByJob"`
}
