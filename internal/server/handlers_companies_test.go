package server

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/nexthire/internal/db"
	"github.com/jonathan/nexthire/internal/events"
	"github.com/jonathan/nexthire/internal/objectid"
	"github.com/jonathan/nexthire/internal/policy"
)

func companyBody() map[string]any {
	return map[string]any{
		"name":               "Acme",
		"registrationNumber": "REG-1",
		"contactEmail":       "hr@acme.test",
		"yearFounded":        "1999",
		"industry":           "Software",
	}
}

func TestHandleCreateCompany_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name    string
		user    string
		body    map[string]any
		status  int
		message string
	}{
		{"anonymous", "", companyBody(), http.StatusUnauthorized, "Unauthorized - Please sign in"},
		{"missing name", "owner", with(companyBody(), "name", " "), http.StatusBadRequest, "Missing required fields"},
		{"bad email", "owner", with(companyBody(), "contactEmail", "not-an-email"), http.StatusBadRequest, "Invalid email format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/companies", tt.body, tt.user)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.message, errorOf(t, w))
		})
	}
}

func TestHandleCreateCompany_UpgradesRole(t *testing.T) {
	env := newTestEnv(t)
	env.user("owner", policy.RoleJobSeeker)

	w := env.do(t, http.MethodPost, "/api/companies", companyBody(), "owner")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	company := decode[db.Company](t, w)
	assert.Equal(t, "owner", company.UserID)
	assert.Equal(t, 1999, company.YearFounded)
	assert.False(t, company.IsVerified)

	user, err := env.users.GetUser(context.Background(), "owner")
	require.NoError(t, err)
	assert.Equal(t, policy.RoleCompanyERP, user.Role)

	env.wait(t)
	assert.Equal(t, []string{events.CompanyRegistered, events.UserRoleChanged}, env.events.types())
	changed, ok := env.events.find(events.UserRoleChanged)
	require.True(t, ok)
	assert.Equal(t, string(policy.RoleJobSeeker), changed.From)
	assert.Equal(t, string(policy.RoleCompanyERP), changed.To)
	require.Len(t, env.notes.texts, 1)
	assert.Contains(t, env.notes.texts[0], "Acme")
}

func TestHandleCreateCompany_AdminKeepsRole(t *testing.T) {
	env := newTestEnv(t)
	env.user("admin", policy.RoleAdmin)

	w := env.do(t, http.MethodPost, "/api/companies", companyBody(), "admin")
	require.Equal(t, http.StatusCreated, w.Code)

	user, err := env.users.GetUser(context.Background(), "admin")
	require.NoError(t, err)
	assert.Equal(t, policy.RoleAdmin, user.Role)
}

func TestHandleCreateCompany_Duplicate(t *testing.T) {
	env := newTestEnv(t)
	env.user("owner", policy.RoleNone)

	w := env.do(t, http.MethodPost, "/api/companies", companyBody(), "owner")
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodPost, "/api/companies", companyBody(), "owner")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, duplicateCompany, errorOf(t, w))
}

func TestHandleListMyCompanies(t *testing.T) {
	env := newTestEnv(t)
	env.seedCompany(t, "owner", "Acme")
	env.seedCompany(t, "owner", "Initech")
	env.seedCompany(t, "other", "Globex")

	w := env.do(t, http.MethodGet, "/api/companies", nil, "owner")
	require.Equal(t, http.StatusOK, w.Code)

	companies := decode[[]db.CompanySummary](t, w)
	require.Len(t, companies, 2)
	assert.Equal(t, "Acme", companies[0].Name)
	assert.Equal(t, "Initech", companies[1].Name)
}

func TestHandleGetCompany(t *testing.T) {
	env := newTestEnv(t)
	company := env.seedCompany(t, "owner", "Acme")

	w := env.do(t, http.MethodGet, "/api/companies/"+company.ID, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Acme", decode[db.Company](t, w).Name)

	w = env.do(t, http.MethodGet, "/api/companies/not-a-valid-id", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid Company ID format", errorOf(t, w))

	w = env.do(t, http.MethodGet, "/api/companies/"+objectid.New(), nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Company Not Found", errorOf(t, w))
}

func TestHandleUpdateCompany(t *testing.T) {
	env := newTestEnv(t)
	company := env.seedCompany(t, "owner", "Acme")
	env.seedCompany(t, "other", "Globex")
	path := "/api/companies/" + company.ID

	tests := []struct {
		name    string
		user    string
		body    map[string]any
		status  int
		message string
	}{
		{"anonymous", "", map[string]any{"about": "x"}, http.StatusUnauthorized, "Unauthorized - Please sign in"},
		{"not owner", "other", map[string]any{"about": "x"}, http.StatusForbidden, "Forbidden - You do not own this company"},
		{"bad email", "owner", map[string]any{"contactEmail": "nope"}, http.StatusBadRequest, "Invalid email format"},
		{"taken email", "owner", map[string]any{"contactEmail": "globex@corp.test"}, http.StatusConflict, duplicateCompany},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPatch, path, tt.body, tt.user)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.message, errorOf(t, w))
		})
	}

	w := env.do(t, http.MethodPatch, path, map[string]any{"about": "We make everything", "yearFounded": 2001}, "owner")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[db.Company](t, w)
	assert.Equal(t, "We make everything", updated.About)
	assert.Equal(t, 2001, updated.YearFounded)
	assert.Equal(t, "Acme", updated.Name)
}

func TestHandleDeleteCompany(t *testing.T) {
	env := newTestEnv(t)
	company := env.seedCompany(t, "owner", "Acme")

	w := env.do(t, http.MethodDelete, "/api/companies/"+company.ID, nil, "other")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodDelete, "/api/companies/"+company.ID, nil, "owner")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Company deleted successfully", decode[map[string]string](t, w)["message"])

	w = env.do(t, http.MethodDelete, "/api/companies/"+company.ID, nil, "owner")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Company not found", errorOf(t, w))
}
