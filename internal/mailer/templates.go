package mailer

import (
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFiles embed.FS

var templates = template.Must(template.ParseFS(templateFiles, "templates/*.html"))

// TemplateError is returned when an email body cannot be rendered.
type TemplateError struct {
	Template string
	Cause    error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("failed to render %s: %v", e.Template, e.Cause)
}

func (e *TemplateError) Unwrap() error {
	return e.Cause
}

func render(name string, data any) (string, error) {
	var b strings.Builder
	if err := templates.ExecuteTemplate(&b, name, data); err != nil {
		return "", &TemplateError{Template: name, Cause: err}
	}
	return b.String(), nil
}

// StatusUpdate is the data of the status-change email.
type StatusUpdate struct {
	ApplicantName  string
	ApplicantEmail string
	JobTitle       string
	Status         string
}

// StatusUpdateMessage builds the email sent when a company changes an
// application's status.
func StatusUpdateMessage(d StatusUpdate) (Message, error) {
	d.Status = strings.ToUpper(d.Status)
	body, err := render("status_update.html", d)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      d.ApplicantEmail,
		Subject: "Application Status Update - " + d.JobTitle,
		HTML:    body,
	}, nil
}

// Interview is the data of the interview invitation.
type Interview struct {
	ApplicantName  string
	ApplicantEmail string
	JobTitle       string
	CompanyName    string
	Location       string
	Link           string
	At             time.Time
}

// When renders the interview time for the email body.
func (d Interview) When() string {
	return d.At.Format("Monday, January 2, 2006 at 03:04 PM MST")
}

// InterviewMessage builds the interview invitation email.
func InterviewMessage(d Interview) (Message, error) {
	body, err := render("interview_scheduled.html", d)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      d.ApplicantEmail,
		Subject: "Interview Scheduled: " + d.JobTitle,
		HTML:    body,
	}, nil
}
