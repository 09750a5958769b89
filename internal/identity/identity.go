// Package identity talks to the external identity provider that owns
// user accounts, roles and public metadata.
package identity

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/jonathan/nexthire/internal/policy"
)

// ErrUserNotFound is returned when the provider has no such user.
var ErrUserNotFound = errors.New("user not found")

// Public metadata keys.
const (
	MetadataRole      = "role"
	MetadataResumeURL = "resumeUrl"
)

// User is an identity-provider account.
type User struct {
	ID        string      `json:"id"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Email     string      `json:"email"`
	Role      policy.Role `json:"role"`
	ResumeURL string      `json:"resumeUrl,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Provider is the identity-provider API used by the service.
type Provider interface {
	GetUser(ctx context.Context, id string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	CountUsers(ctx context.Context) (int, error)
	DeleteUser(ctx context.Context, id string) error
	SetRole(ctx context.Context, id string, role policy.Role) error
	SetResumeURL(ctx context.Context, id, url string) error
}

// roleFromMetadata reads the role claim. Unknown values count as no role.
func roleFromMetadata(md map[string]any) policy.Role {
	raw, _ := md[MetadataRole].(string)
	role, err := policy.ParseRole(raw)
	if err != nil {
		log.Printf("[identity] ignoring unknown role %q", raw)
		return policy.RoleNone
	}
	return role
}
