package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/nexthire/internal/policy"
	"golang.org/x/time/rate"
)

// pageSize is the number of users fetched per list request.
const pageSize = 100

// Clerk is a client for the Clerk backend API. Outbound calls share one
// token-bucket limiter.
type Clerk struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClerk creates a client. ratePerSec and burst bound outbound calls.
func NewClerk(baseURL, secretKey string, ratePerSec float64, burst int) *Clerk {
	if burst < 1 {
		burst = 1
	}
	return &Clerk{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), burst),
	}
}

type clerkEmail struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

type clerkUser struct {
	ID                    string         `json:"id"`
	FirstName             *string        `json:"first_name"`
	LastName              *string        `json:"last_name"`
	PrimaryEmailAddressID string         `json:"primary_email_address_id"`
	EmailAddresses        []clerkEmail   `json:"email_addresses"`
	PublicMetadata        map[string]any `json:"public_metadata"`
	CreatedAt             int64          `json:"created_at"`
}

func (u clerkUser) toUser() User {
	out := User{
		ID:        u.ID,
		Role:      roleFromMetadata(u.PublicMetadata),
		CreatedAt: time.UnixMilli(u.CreatedAt).UTC(),
	}
	if u.FirstName != nil {
		out.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		out.LastName = *u.LastName
	}
	for _, e := range u.EmailAddresses {
		if e.ID == u.PrimaryEmailAddressID {
			out.Email = e.EmailAddress
		}
	}
	if out.Email == "" && len(u.EmailAddresses) > 0 {
		out.Email = u.EmailAddresses[0].EmailAddress
	}
	out.ResumeURL, _ = u.PublicMetadata[MetadataResumeURL].(string)
	return out
}

// APIError is a non-2xx response from the provider.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("clerk API returned %d: %s", e.Status, e.Body)
}

func (c *Clerk) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("clerk rate limit: %w", err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("clerk request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrUserNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode clerk response: %w", err)
	}
	return nil
}

// GetUser fetches one user.
func (c *Clerk) GetUser(ctx context.Context, id string) (*User, error) {
	var u clerkUser
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil, &u); err != nil {
		return nil, err
	}
	user := u.toUser()
	return &user, nil
}

// ListUsers pages through every user, newest first.
func (c *Clerk) ListUsers(ctx context.Context) ([]User, error) {
	users := make([]User, 0)
	for offset := 0; ; offset += pageSize {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(pageSize))
		q.Set("offset", strconv.Itoa(offset))
		q.Set("order_by", "-created_at")

		var page []clerkUser
		if err := c.do(ctx, http.MethodGet, "/users?"+q.Encode(), nil, &page); err != nil {
			return nil, err
		}
		for _, u := range page {
			users = append(users, u.toUser())
		}
		if len(page) < pageSize {
			return users, nil
		}
	}
}

// CountUsers returns the total number of users.
func (c *Clerk) CountUsers(ctx context.Context) (int, error) {
	var out struct {
		TotalCount int `json:"total_count"`
	}
	if err := c.do(ctx, http.MethodGet, "/users/count", nil, &out); err != nil {
		return 0, err
	}
	return out.TotalCount, nil
}

// DeleteUser removes a user.
func (c *Clerk) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), nil, nil)
}

// SetRole merges the role into the user's public metadata.
func (c *Clerk) SetRole(ctx context.Context, id string, role policy.Role) error {
	return c.patchMetadata(ctx, id, map[string]any{MetadataRole: string(role)})
}

// SetResumeURL merges the resume URL into the user's public metadata.
func (c *Clerk) SetResumeURL(ctx context.Context, id, resumeURL string) error {
	return c.patchMetadata(ctx, id, map[string]any{MetadataResumeURL: resumeURL})
}

func (c *Clerk) patchMetadata(ctx context.Context, id string, md map[string]any) error {
	body := map[string]any{"public_metadata": md}
	return c.do(ctx, http.MethodPatch, "/users/"+url.PathEscape(id)+"/metadata", body, nil)
}
