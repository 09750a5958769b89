package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jonathan/nexthire/internal/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserJSON = `{
	"id": "user_1",
	"first_name": "Ada",
	"last_name": null,
	"primary_email_address_id": "e2",
	"email_addresses": [
		{"id": "e1", "email_address": "old@example.com"},
		{"id": "e2", "email_address": "ada@example.com"}
	],
	"public_metadata": {"role": "admin", "resumeUrl": "https://files/r.pdf"},
	"created_at": 1700000000000
}`

func newTestClerk(t *testing.T, h http.HandlerFunc) *Clerk {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClerk(srv.URL+"/v1", "sk_test", 1000, 100)
}

func TestClerk_GetUser(t *testing.T) {
	c := newTestClerk(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/v1/users/user_1":
			fmt.Fprint(w, testUserJSON)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	u, err := c.GetUser(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.FirstName)
	assert.Empty(t, u.LastName)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, policy.RoleAdmin, u.Role)
	assert.Equal(t, "https://files/r.pdf", u.ResumeURL)
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), u.CreatedAt)

	_, err = c.GetUser(context.Background(), "user_missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestClerk_ListUsersPages(t *testing.T) {
	c := newTestClerk(t, func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		assert.Equal(t, "-created_at", r.URL.Query().Get("order_by"))
		n := pageSize
		if offset >= pageSize {
			n = 3
		}
		page := make([]map[string]any, n)
		for i := range page {
			page[i] = map[string]any{"id": fmt.Sprintf("user_%d", offset+i)}
		}
		_ = json.NewEncoder(w).Encode(page)
	})

	users, err := c.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, pageSize+3)
	assert.Equal(t, policy.RoleNone, users[0].Role)
}

func TestClerk_CountUsers(t *testing.T) {
	c := newTestClerk(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/users/count", r.URL.Path)
		fmt.Fprint(w, `{"object":"total_count","total_count":42}`)
	})

	n, err := c.CountUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}

func TestClerk_SetRole(t *testing.T) {
	var mu sync.Mutex
	var got map[string]any
	c := newTestClerk(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/v1/users/user_1/metadata", r.URL.Path)
		mu.Lock()
		defer mu.Unlock()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, testUserJSON)
	})

	require.NoError(t, c.SetRole(context.Background(), "user_1", policy.RoleCompanyERP))
	assert.Equal(t, map[string]any{"public_metadata": map[string]any{"role": "COMPANY_ERP"}}, got)
}

func TestClerk_APIError(t *testing.T) {
	c := newTestClerk(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"errors":[{"message":"bad"}]}`)
	})

	err := c.DeleteUser(context.Background(), "user_1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
}

func TestClerk_RateLimitHonorsContext(t *testing.T) {
	c := NewClerk("http://127.0.0.1:0", "sk", 0.001, 1)
	c.limiter.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := c.GetUser(ctx, "user_1")
	assert.ErrorContains(t, err, "rate limit")
}

func TestMemory(t *testing.T) {
	older := User{ID: "a", CreatedAt: time.Unix(1, 0)}
	newer := User{ID: "b", CreatedAt: time.Unix(2, 0)}
	m := NewMemory(older, newer)
	ctx := context.Background()

	users, err := m.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, []string{users[0].ID, users[1].ID})

	require.NoError(t, m.SetRole(ctx, "a", policy.RoleAdmin))
	u, err := m.GetUser(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, policy.RoleAdmin, u.Role)

	require.NoError(t, m.DeleteUser(ctx, "a"))
	assert.ErrorIs(t, m.DeleteUser(ctx, "a"), ErrUserNotFound)
	assert.ErrorIs(t, m.SetResumeURL(ctx, "a", "x"), ErrUserNotFound)

	n, err := m.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
