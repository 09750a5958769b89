package server

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/nexthire/internal/db"
	"github.com/jonathan/nexthire/internal/policy"
)

func TestHandleGetUserInfo(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/user", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodGet, "/api/user", nil, "owner")
	require.Equal(t, http.StatusOK, w.Code)
	info := decode[map[string]any](t, w)
	assert.Equal(t, "owner", info["userId"])
	assert.Nil(t, info["companyId"])

	company := env.seedCompany(t, "owner", "Acme")
	w = env.do(t, http.MethodGet, "/api/user", nil, "owner")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, company.ID, decode[map[string]any](t, w)["companyId"])
}

func TestHandleGetProfile(t *testing.T) {
	env := newTestEnv(t)
	env.user("seeker", policy.RoleJobSeeker)

	w := env.do(t, http.MethodGet, "/api/user/profile", nil, "seeker")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Profile not found. Please create a profile first.", errorOf(t, w))

	_, _, err := env.store.EnsureProfile(context.Background(), "seeker", "Engineer")
	require.NoError(t, err)
	require.NoError(t, env.users.SetResumeURL(context.Background(), "seeker", "https://cdn.test/cv.pdf"))

	w = env.do(t, http.MethodGet, "/api/user/profile", nil, "seeker")
	require.Equal(t, http.StatusOK, w.Code)
	profile := decode[db.UserProfile](t, w)
	assert.Equal(t, "Engineer", profile.Headline)
	require.NotNil(t, profile.ResumeURL)
	assert.Equal(t, "https://cdn.test/cv.pdf", *profile.ResumeURL)

	company := env.seedCompany(t, "owner", "Acme")
	app := env.seedApplication(t, env.seedJob(t, company, "Go Dev"), "seeker")

	w = env.do(t, http.MethodGet, "/api/user/profile", nil, "seeker")
	require.Equal(t, http.StatusOK, w.Code)
	profile = decode[db.UserProfile](t, w)
	require.NotNil(t, profile.ResumeURL)
	assert.Equal(t, app.ResumeURL, *profile.ResumeURL)
}

func TestHandleUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	env.user("seeker", policy.RoleJobSeeker)

	t.Run("invalid resume url", func(t *testing.T) {
		w := env.do(t, http.MethodPatch, "/api/user/profile", map[string]any{"resumeUrl": "not a url"}, "seeker")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, invalidResumeURL, errorOf(t, w))
	})

	t.Run("experience fails schema", func(t *testing.T) {
		w := env.do(t, http.MethodPatch, "/api/user/profile", map[string]any{
			"experience": []map[string]any{{"title": "Engineer"}},
		}, "seeker")
		require.Equal(t, http.StatusBadRequest, w.Code)
		resp := decode[map[string]any](t, w)
		assert.Equal(t, "Invalid experience", resp["error"])
		assert.NotEmpty(t, resp["details"])
	})

	t.Run("social links must be an object", func(t *testing.T) {
		w := env.do(t, http.MethodPatch, "/api/user/profile", map[string]any{"socialLinks": []string{"x"}}, "seeker")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	w := env.do(t, http.MethodPatch, "/api/user/profile", map[string]any{
		"headline":    " Backend Engineer ",
		"skills":      "Go, Rust,",
		"experience":  []map[string]any{{"title": "Engineer", "company": "Acme"}},
		"education":   []map[string]any{{"school": "MIT"}},
		"socialLinks": map[string]string{"github": "https://github.com/ada"},
		"resumeUrl":   "https://cdn.test/ada.pdf",
	}, "seeker")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	profile := decode[db.UserProfile](t, w)
	assert.Equal(t, "Backend Engineer", profile.Headline)
	assert.Equal(t, []string{"Go", "Rust"}, profile.Skills)
	assert.JSONEq(t, `[{"title":"Engineer","company":"Acme"}]`, string(profile.Experience))
	assert.JSONEq(t, `{"github":"https://github.com/ada"}`, string(profile.SocialLinks))
	require.NotNil(t, profile.ResumeURL)
	assert.Equal(t, "https://cdn.test/ada.pdf", *profile.ResumeURL)

	user, err := env.users.GetUser(context.Background(), "seeker")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/ada.pdf", user.ResumeURL)

	w = env.do(t, http.MethodPatch, "/api/user/profile", map[string]any{"bio": "Hi"}, "seeker")
	require.Equal(t, http.StatusOK, w.Code)
	profile = decode[db.UserProfile](t, w)
	assert.Equal(t, "Hi", profile.Bio)
	assert.Equal(t, "Backend Engineer", profile.Headline)
	assert.Equal(t, []string{"Go", "Rust"}, profile.Skills)
}

func TestHandleUploadProfileResume(t *testing.T) {
	env := newTestEnv(t)
	env.user("seeker", policy.RoleJobSeeker)
	company := env.seedCompany(t, "owner", "Acme")
	app := env.seedApplication(t, env.seedJob(t, company, "Go Dev"), "seeker")

	pdf := &formFile{field: "file", name: "resume.pdf", contentType: mimePDF, data: samplePDF}

	w := env.upload(t, "/api/user/profile/resume", nil, pdf, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.upload(t, "/api/user/profile/resume", nil, nil, "seeker")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No file uploaded", errorOf(t, w))

	w = env.upload(t, "/api/user/profile/resume", nil, pdf, "seeker")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	url := decode[map[string]string](t, w)["resumeUrl"]
	assert.True(t, strings.HasPrefix(url, "https://files.test/resumes/resume_seeker_"), url)
	assert.True(t, strings.HasSuffix(url, ".pdf"), url)

	assert.Equal(t, url, env.store.apps[app.ID].ResumeURL)
	user, err := env.users.GetUser(context.Background(), "seeker")
	require.NoError(t, err)
	assert.Equal(t, url, user.ResumeURL)
}
