// Package policy holds the authorization checks shared by every route:
// who is calling, what role they hold, and whether they own a resource.
package policy

import (
	"errors"
	"fmt"
	"strings"
)

// Role is a coarse-grained role claim stored at the identity provider.
type Role string

// Known roles. RoleNone means the account has no role claim yet.
const (
	RoleNone       Role = ""
	RoleJobSeeker  Role = "JOB_SEEKER"
	RoleCompanyERP Role = "COMPANY_ERP"
	RoleAdmin      Role = "ADMIN"
	RoleApplicant  Role = "APPLICANT"
)

// AssignableRoles are the roles an administrator may grant.
var AssignableRoles = []Role{RoleJobSeeker, RoleCompanyERP, RoleAdmin}

// ParseRole normalizes a role string. Comparison is case-insensitive.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case RoleNone, RoleJobSeeker, RoleCompanyERP, RoleAdmin, RoleApplicant:
		return r, nil
	}
	return RoleNone, fmt.Errorf("unknown role %q", s)
}

// Assignable reports whether r may be set through the admin role endpoint.
func (r Role) Assignable() bool {
	for _, a := range AssignableRoles {
		if r == a {
			return true
		}
	}
	return false
}

// Caller is the authenticated identity behind a request.
type Caller struct {
	UserID string
	Role   Role
}

var (
	// ErrUnauthenticated means no caller identity was resolved.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden means the caller is known but not allowed.
	ErrForbidden = errors.New("forbidden")
)

// Denied wraps ErrUnauthenticated or ErrForbidden with the message the
// caller should see.
type Denied struct {
	Reason  error
	Message string
}

func (d *Denied) Error() string {
	return d.Message
}

func (d *Denied) Unwrap() error {
	return d.Reason
}

// Deny attaches a caller-facing message to a policy error. Other errors
// and nil pass through unchanged.
func Deny(err error, message string) error {
	if errors.Is(err, ErrUnauthenticated) || errors.Is(err, ErrForbidden) {
		return &Denied{Reason: unwrapReason(err), Message: message}
	}
	return err
}

func unwrapReason(err error) error {
	if errors.Is(err, ErrUnauthenticated) {
		return ErrUnauthenticated
	}
	return ErrForbidden
}

// Authenticated allows any resolved caller.
func Authenticated(c *Caller) error {
	if c == nil || c.UserID == "" {
		return ErrUnauthenticated
	}
	return nil
}

// Owner allows the caller whose id equals ownerID.
func Owner(c *Caller, ownerID string) error {
	if err := Authenticated(c); err != nil {
		return err
	}
	if ownerID == "" || c.UserID != ownerID {
		return ErrForbidden
	}
	return nil
}

// HasRole allows a caller holding any of roles.
func HasRole(c *Caller, roles ...Role) error {
	if err := Authenticated(c); err != nil {
		return err
	}
	for _, r := range roles {
		if c.Role == r {
			return nil
		}
	}
	return ErrForbidden
}

// UpgradeOnCompanyRegistration returns the role an account should hold
// after registering its first company, and whether it changed.
func UpgradeOnCompanyRegistration(current Role) (Role, bool) {
	switch current {
	case RoleNone, RoleJobSeeker, RoleApplicant:
		return RoleCompanyERP, true
	}
	return current, false
}
