// Package events publishes domain events to Redis pub/sub.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Event types, also used as channel names.
const (
	ApplicationSubmitted     = "application.submitted"
	ApplicationStatusChanged = "application.status_changed"
	InterviewScheduled       = "interview.scheduled"
	InterviewCanceled        = "interview.canceled"
	CompanyRegistered        = "company.registered"
	CompanyVerified          = "company.verified"
	UserRoleChanged          = "user.role_changed"
)

// Event is the payload published for each domain change.
type Event struct {
	Type          string    `json:"type"`
	ApplicationID string    `json:"applicationId,omitempty"`
	JobID         string    `json:"jobId,omitempty"`
	CompanyID     string    `json:"companyId,omitempty"`
	UserID        string    `json:"userId,omitempty"`
	From          string    `json:"from,omitempty"`
	To            string    `json:"to,omitempty"`
	At            time.Time `json:"at"`
}

// Publisher sends events. Publishing is best effort.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// pubsub is the subset of *redis.Client used here.
type pubsub interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Redis publishes each event as JSON on the channel named by its type,
// prefixed by Prefix when set.
type Redis struct {
	client pubsub
	Prefix string
	now    func() time.Time
}

// NewRedis wraps a connected client.
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, Prefix: prefix, now: time.Now}
}

// Connect parses redisURL and verifies the connection.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// Publish sends e. A zero At is stamped with the current time.
func (r *Redis) Publish(ctx context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = r.now().UTC()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", e.Type, err)
	}
	if err := r.client.Publish(ctx, r.Prefix+e.Type, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish %s: %w", e.Type, err)
	}
	return nil
}

// Noop discards events.
type Noop struct{}

// Publish does nothing.
func (Noop) Publish(context.Context, Event) error { return nil }
