// Package types defines the request bodies accepted by the HTTP API and
// their validation rules.
package types

import (
	"encoding/json"
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	emailPattern       = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	meetingLinkPattern = regexp.MustCompile(`^(https?://)?([\da-z.-]+)\.([a-z.]{2,6})([/\w .-]*)*/?$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("simple_email", func(fl validator.FieldLevel) bool {
		return ValidEmail(fl.Field().String())
	})
	_ = v.RegisterValidation("meeting_link", func(fl validator.FieldLevel) bool {
		return ValidMeetingLink(fl.Field().String())
	})
	return v
}

// ValidEmail applies the loose address check used for applicant emails.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// ValidMeetingLink reports whether s looks like a meeting URL.
func ValidMeetingLink(s string) bool {
	return meetingLinkPattern.MatchString(s)
}

// MissingFields lists the JSON names of fields that failed a required rule.
func MissingFields(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	var out []string
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			out = append(out, fe.Field())
		}
	}
	return out
}

// FailedRule returns the field and rule of the first validation failure.
func FailedRule(err error) (field, rule string) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "", ""
	}
	return verrs[0].Field(), verrs[0].Tag()
}

// CreateJobRequest is the body of a job posting.
type CreateJobRequest struct {
	Title            string       `json:"title" validate:"required"`
	Description      string       `json:"description" validate:"required"`
	CompanyID        string       `json:"companyId" validate:"required"`
	Location         string       `json:"location" validate:"required"`
	EmploymentType   string       `json:"employmentType" validate:"required"`
	SalaryMin        FlexInt      `json:"salaryMin"`
	SalaryMax        FlexInt      `json:"salaryMax"`
	SalaryCurrency   string       `json:"salaryCurrency"`
	Requirements     StringList   `json:"requirements"`
	Responsibilities StringList   `json:"responsibilities"`
	ApplyLink        string       `json:"applyLink"`
	Status           string       `json:"status"`
	ExpiresAt        OptionalTime `json:"expiresAt"`
}

// Validate validates the CreateJobRequest using the validator.
func (r *CreateJobRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Location = strings.TrimSpace(r.Location)
	r.EmploymentType = strings.TrimSpace(r.EmploymentType)
	return validate.Struct(r)
}

// UpdateJobRequest is a partial job update. Absent fields stay unchanged.
type UpdateJobRequest struct {
	Title            *string      `json:"title" validate:"omitempty,min=1"`
	Description      *string      `json:"description" validate:"omitempty,min=1"`
	Location         *string      `json:"location"`
	EmploymentType   *string      `json:"employmentType"`
	SalaryMin        *FlexInt     `json:"salaryMin"`
	SalaryMax        *FlexInt     `json:"salaryMax"`
	SalaryCurrency   *string      `json:"salaryCurrency"`
	Requirements     *StringList  `json:"requirements"`
	Responsibilities *StringList  `json:"responsibilities"`
	ApplyLink        *string      `json:"applyLink"`
	Status           *string      `json:"status"`
	ExpiresAt        OptionalTime `json:"expiresAt"`
}

// Validate validates the UpdateJobRequest using the validator.
func (r *UpdateJobRequest) Validate() error {
	return validate.Struct(r)
}

// CreateCompanyRequest is the body of a company registration.
type CreateCompanyRequest struct {
	Name                        string  `json:"name" validate:"required"`
	LegalName                   string  `json:"legalName"`
	RegistrationNumber          string  `json:"registrationNumber" validate:"required"`
	LogoURL                     string  `json:"logoUrl"`
	Website                     string  `json:"website"`
	Industry                    string  `json:"industry"`
	CompanySize                 string  `json:"companySize"`
	About                       string  `json:"about"`
	ContactEmail                string  `json:"contactEmail" validate:"required,email"`
	YearFounded                 FlexInt `json:"yearFounded"`
	CompanyType                 string  `json:"companyType"`
	RegistrationCertificateURL  string  `json:"registrationCertificateUrl"`
	TaxCertificateURL           string  `json:"taxCertificateUrl"`
	IncorporationCertificateURL string  `json:"incorporationCertificateUrl"`
	AdditionalDocumentsURL      string  `json:"additionalDocumentsUrl"`
}

// Validate validates the CreateCompanyRequest using the validator.
func (r *CreateCompanyRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.RegistrationNumber = strings.TrimSpace(r.RegistrationNumber)
	r.ContactEmail = strings.TrimSpace(r.ContactEmail)
	return validate.Struct(r)
}

// UpdateCompanyRequest is a partial company update.
type UpdateCompanyRequest struct {
	Name                        *string  `json:"name" validate:"omitempty,min=1"`
	LegalName                   *string  `json:"legalName"`
	RegistrationNumber          *string  `json:"registrationNumber" validate:"omitempty,min=1"`
	LogoURL                     *string  `json:"logoUrl"`
	Website                     *string  `json:"website"`
	Industry                    *string  `json:"industry"`
	CompanySize                 *string  `json:"companySize"`
	About                       *string  `json:"about"`
	ContactEmail                *string  `json:"contactEmail" validate:"omitempty,email"`
	YearFounded                 *FlexInt `json:"yearFounded"`
	CompanyType                 *string  `json:"companyType"`
	RegistrationCertificateURL  *string  `json:"registrationCertificateUrl"`
	TaxCertificateURL           *string  `json:"taxCertificateUrl"`
	IncorporationCertificateURL *string  `json:"incorporationCertificateUrl"`
	AdditionalDocumentsURL      *string  `json:"additionalDocumentsUrl"`
}

// Validate validates the UpdateCompanyRequest using the validator.
func (r *UpdateCompanyRequest) Validate() error {
	return validate.Struct(r)
}

// CreateApplicationRequest is the JSON application body.
type CreateApplicationRequest struct {
	JobID          string `json:"jobId" validate:"required"`
	ApplicantName  string `json:"applicantName" validate:"required"`
	ApplicantEmail string `json:"applicantEmail" validate:"required,simple_email"`
	ResumeURL      string `json:"resumeUrl" validate:"required"`
	CoverLetter    string `json:"coverLetter"`
}

// Validate validates the CreateApplicationRequest using the validator.
func (r *CreateApplicationRequest) Validate() error {
	r.ApplicantName = strings.TrimSpace(r.ApplicantName)
	r.ApplicantEmail = strings.TrimSpace(r.ApplicantEmail)
	return validate.Struct(r)
}

// ApplyRequest holds the text fields of a multipart application.
type ApplyRequest struct {
	ApplicantName  string `json:"applicantName" validate:"required"`
	ApplicantEmail string `json:"applicantEmail" validate:"required,simple_email"`
	CoverLetter    string `json:"coverLetter"`
}

// Validate validates the ApplyRequest using the validator.
func (r *ApplyRequest) Validate() error {
	r.ApplicantName = strings.TrimSpace(r.ApplicantName)
	r.ApplicantEmail = strings.TrimSpace(r.ApplicantEmail)
	return validate.Struct(r)
}

// StatusRequest sets an application status.
type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// Validate validates the StatusRequest using the validator.
func (r *StatusRequest) Validate() error {
	return validate.Struct(r)
}

// InterviewRequest schedules an interview.
type InterviewRequest struct {
	InterviewDate string `json:"interviewDate" validate:"required"`
	InterviewLink string `json:"interviewLink" validate:"required,meeting_link"`
}

// Validate validates the InterviewRequest using the validator.
func (r *InterviewRequest) Validate() error {
	r.InterviewLink = strings.TrimSpace(r.InterviewLink)
	return validate.Struct(r)
}

// RoleRequest changes a user's role.
type RoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// Validate validates the RoleRequest using the validator.
func (r *RoleRequest) Validate() error {
	r.Role = strings.TrimSpace(r.Role)
	return validate.Struct(r)
}

// ProfileRequest upserts a user profile. Experience and education are
// raw JSON arrays checked against the profile schemas.
type ProfileRequest struct {
	Headline    *string         `json:"headline"`
	Bio         *string         `json:"bio"`
	Location    *string         `json:"location"`
	Skills      *StringList     `json:"skills"`
	Experience  json.RawMessage `json:"experience"`
	Education   json.RawMessage `json:"education"`
	SocialLinks json.RawMessage `json:"socialLinks"`
	ResumeURL   *string         `json:"resumeUrl" validate:"omitempty,url"`
}

// Validate validates the ProfileRequest using the validator.
func (r *ProfileRequest) Validate() error {
	return validate.Struct(r)
}

// Present reports whether a raw field was sent with a non-null value.
func Present(raw json.RawMessage) bool {
	return len(raw) > 0 && !isNull(raw)
}
