package identity

import (
	"context"
	"sort"
	"sync"

	"github.com/jonathan/nexthire/internal/policy"
)

// Memory is an in-process Provider for development and tests.
type Memory struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewMemory creates a provider seeded with users.
func NewMemory(users ...User) *Memory {
	m := &Memory{users: make(map[string]User, len(users))}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

// Put adds or replaces a user.
func (m *Memory) Put(u User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

// GetUser returns a copy of the user.
func (m *Memory) GetUser(_ context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

// ListUsers returns every user, newest first.
func (m *Memory) ListUsers(context.Context) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// CountUsers returns the number of users.
func (m *Memory) CountUsers(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users), nil
}

// DeleteUser removes a user.
func (m *Memory) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}

// SetRole updates the role of an existing user.
func (m *Memory) SetRole(_ context.Context, id string, role policy.Role) error {
	return m.update(id, func(u *User) { u.Role = role })
}

// SetResumeURL updates the resume URL of an existing user.
func (m *Memory) SetResumeURL(_ context.Context, id, url string) error {
	return m.update(id, func(u *User) { u.ResumeURL = url })
}

func (m *Memory) update(id string, fn func(*User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrUserNotFound
	}
	fn(&u)
	m.users[id] = u
	return nil
}
