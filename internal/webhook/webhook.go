// Package webhook verifies and decodes identity-provider webhooks signed
// with the Svix scheme.
package webhook

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	svix "github.com/svix/svix-webhooks/go"
)

// Header names carried by every delivery.
const (
	HeaderID        = "svix-id"
	HeaderTimestamp = "svix-timestamp"
	HeaderSignature = "svix-signature"
)

const secretPrefix = "whsec_"

var (
	// ErrMissingHeaders is returned when a svix header is absent.
	ErrMissingHeaders = errors.New("missing svix headers")
	// ErrInvalidSignature is returned when no signature matches or the
	// timestamp is outside the svix tolerance.
	ErrInvalidSignature = errors.New("webhook verification failed")
)

// Verifier checks delivery signatures.
type Verifier struct {
	wh *svix.Webhook
}

// NewVerifier decodes a "whsec_<base64>" secret.
func NewVerifier(secret string) (*Verifier, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, secretPrefix))
	if err != nil {
		return nil, fmt.Errorf("invalid webhook secret: %w", err)
	}
	if len(key) == 0 {
		return nil, errors.New("invalid webhook secret: empty key")
	}
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook secret: %w", err)
	}
	return &Verifier{wh: wh}, nil
}

// Headers holds the svix delivery headers.
type Headers struct {
	ID        string
	Timestamp string
	Signature string
}

// HeadersFrom reads the svix headers, failing if any is missing.
func HeadersFrom(h http.Header) (Headers, error) {
	out := Headers{
		ID:        h.Get(HeaderID),
		Timestamp: h.Get(HeaderTimestamp),
		Signature: h.Get(HeaderSignature),
	}
	if out.ID == "" || out.Timestamp == "" || out.Signature == "" {
		return Headers{}, ErrMissingHeaders
	}
	return out, nil
}

// Sign returns the "v1,<signature>" entry for body sent as id at ts.
func (v *Verifier) Sign(id string, ts time.Time, body []byte) (string, error) {
	return v.wh.Sign(id, ts, body)
}

// Verify checks the signature entries and timestamp window of one delivery.
func (v *Verifier) Verify(h Headers, body []byte) error {
	header := http.Header{}
	header.Set(HeaderID, h.ID)
	header.Set(HeaderTimestamp, h.Timestamp)
	header.Set(HeaderSignature, h.Signature)
	if err := v.wh.Verify(body, header); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}

// Event types handled by the service.
const (
	EventUserCreated = "user.created"
	EventUserDeleted = "user.deleted"
)

// Event is a decoded delivery.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// EmailAddress is one address of a provider user.
type EmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

// UserData is the payload of user.created and user.deleted.
type UserData struct {
	ID                    string         `json:"id"`
	FirstName             string         `json:"first_name"`
	LastName              string         `json:"last_name"`
	PrimaryEmailAddressID string         `json:"primary_email_address_id"`
	EmailAddresses        []EmailAddress `json:"email_addresses"`
	Deleted               bool           `json:"deleted"`
}

// PrimaryEmail returns the primary address, or "" when none is marked.
func (u UserData) PrimaryEmail() string {
	for _, e := range u.EmailAddresses {
		if e.ID == u.PrimaryEmailAddressID {
			return e.EmailAddress
		}
	}
	return ""
}

// DisplayName joins first and last name.
func (u UserData) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Parse decodes body into an Event.
func Parse(body []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(body, &e); err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}
	return &e, nil
}

// User decodes the event data as a user.
func (e *Event) User() (*UserData, error) {
	var u UserData
	if err := json.Unmarshal(e.Data, &u); err != nil {
		return nil, fmt.Errorf("invalid user payload: %w", err)
	}
	return &u, nil
}
