package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock drives a limiter without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestLimiter(config *Config) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l := NewLimiter(config)
	l.now = clock.now
	return l, clock
}

func TestTokenBucket_Take(t *testing.T) {
	now := time.Unix(0, 0)
	bucket := newTokenBucket(10, 1.0, now)

	for i := 0; i < 10; i++ {
		if ok, _, _ := bucket.take(now); !ok {
			t.Errorf("Expected request %d to be allowed", i+1)
		}
	}
	if ok, _, _ := bucket.take(now); ok {
		t.Error("Expected 11th request to be denied")
	}

	later := now.Add(1100 * time.Millisecond)
	if ok, _, _ := bucket.take(later); !ok {
		t.Error("Expected request to be allowed after refill")
	}
	if ok, _, _ := bucket.take(later); ok {
		t.Error("Expected request to be denied after consuming refilled token")
	}
}

func TestTokenBucket_ResetTime(t *testing.T) {
	now := time.Unix(0, 0)
	bucket := newTokenBucket(10, 1.0, now)
	for i := 0; i < 4; i++ {
		bucket.take(now)
	}
	_, remaining, full := bucket.take(now)
	if remaining != 5 {
		t.Errorf("Expected 5 remaining tokens, got %d", remaining)
	}
	if want := now.Add(5 * time.Second); !full.Equal(want) {
		t.Errorf("Expected bucket full at %v, got %v", want, full)
	}
}

func TestLimiter_Allow(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute})
	defer limiter.Stop()

	for i := 0; i < 10; i++ {
		allowed, info := limiter.Allow("127.0.0.1", "/api/jobs", "GET")
		if !allowed {
			t.Errorf("Expected request %d to be allowed", i+1)
		}
		if info.Limit != 10 {
			t.Errorf("Expected limit 10, got %d", info.Limit)
		}
		if info.Remaining != 9-i {
			t.Errorf("Expected remaining %d, got %d", 9-i, info.Remaining)
		}
	}

	allowed, info := limiter.Allow("127.0.0.1", "/api/jobs", "GET")
	if allowed {
		t.Error("Expected 11th request to be denied")
	}
	if info.RetryAfter != 6*time.Second {
		t.Errorf("Expected retry after 6s, got %v", info.RetryAfter)
	}
}

func TestLimiter_DefaultBucketIsSharedAcrossPaths(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{Enabled: true, DefaultLimit: 2, DefaultWindow: time.Minute})
	defer limiter.Stop()

	limiter.Allow("c", "/api/jobs/65a1b2c3d4e5f6a7b8c9d0e1", "GET")
	limiter.Allow("c", "/api/jobs/65a1b2c3d4e5f6a7b8c9d0e2", "GET")
	if allowed, _ := limiter.Allow("c", "/api/companies/65a1b2c3d4e5f6a7b8c9d0e3", "GET"); allowed {
		t.Error("Expected default bucket to be exhausted across ids")
	}
	if allowed, _ := limiter.Allow("other", "/api/jobs", "GET"); !allowed {
		t.Error("Expected a different client to have its own bucket")
	}
}

func TestLimiter_EndpointRule(t *testing.T) {
	limiter, clock := newTestLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  1000,
		DefaultWindow: time.Minute,
		EndpointConfigs: []EndpointConfig{
			{Path: "/api/applications/apply/", Method: "POST", Limit: 2, Window: time.Minute, Burst: 2},
		},
	})
	defer limiter.Stop()

	for i := 0; i < 2; i++ {
		if allowed, _ := limiter.Allow("c", fmt.Sprintf("/api/applications/apply/job%d", i), "POST"); !allowed {
			t.Errorf("Expected apply %d to be allowed", i+1)
		}
	}
	if allowed, _ := limiter.Allow("c", "/api/applications/apply/job9", "POST"); allowed {
		t.Error("Expected third apply to be denied")
	}
	if allowed, _ := limiter.Allow("c", "/api/applications/apply/job9", "GET"); !allowed {
		t.Error("Expected other methods to use the default rule")
	}

	clock.advance(31 * time.Second)
	if allowed, _ := limiter.Allow("c", "/api/applications/apply/job9", "POST"); !allowed {
		t.Error("Expected a token after half the window")
	}
}

func TestLimiter_WhitelistBlacklistDisabled(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Minute,
		Whitelist:     map[string]bool{"10.0.0.1": true},
		Blacklist:     map[string]bool{"10.0.0.2": true},
	})
	defer limiter.Stop()

	for i := 0; i < 50; i++ {
		if allowed, _ := limiter.Allow("10.0.0.1", "/api/jobs", "GET"); !allowed {
			t.Fatal("Expected whitelisted client to be allowed")
		}
	}
	if allowed, _ := limiter.Allow("10.0.0.2", "/api/jobs", "GET"); allowed {
		t.Error("Expected blacklisted client to be denied")
	}

	disabled, _ := newTestLimiter(&Config{Enabled: false})
	defer disabled.Stop()
	for i := 0; i < 50; i++ {
		if allowed, _ := disabled.Allow("c", "/api/jobs", "GET"); !allowed {
			t.Fatal("Expected disabled limiter to allow everything")
		}
	}
}

func TestLimiter_Cleanup(t *testing.T) {
	limiter, clock := newTestLimiter(&Config{Enabled: true, DefaultLimit: 5, DefaultWindow: time.Minute, IdleTimeout: time.Hour})
	defer limiter.Stop()

	limiter.Allow("old", "/api/jobs", "GET")
	clock.advance(2 * time.Hour)
	limiter.Allow("fresh", "/api/jobs", "GET")
	limiter.cleanup()

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	if len(limiter.buckets) != 1 {
		t.Errorf("Expected 1 bucket after cleanup, got %d", len(limiter.buckets))
	}
}

func TestMatchEndpoint(t *testing.T) {
	configs := []EndpointConfig{
		{Path: "/api/applications", Method: "POST", Limit: 1},
		{Path: "/api/applications/", Method: "POST", Limit: 2},
		{Path: "/api/applications/apply/", Method: "POST", Limit: 3},
		{Path: "/api/webhooks/", Method: "*", Limit: 4},
	}

	tests := []struct {
		path, method string
		want         int
	}{
		{"/api/applications", "POST", 1},
		{"/api/applications/x", "POST", 2},
		{"/api/applications/apply/x", "POST", 3},
		{"/api/webhooks/clerk", "GET", 4},
		{"/api/health", "GET", 0},
		{"/files/resumes/a.pdf", "GET", 0},
		{"/api/jobs", "GET", -1},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, configs)
			switch {
			case tt.want == -1 && got != nil:
				t.Errorf("Expected no match, got %+v", got)
			case tt.want >= 0 && got == nil:
				t.Errorf("Expected limit %d, got no match", tt.want)
			case tt.want >= 0 && got.Limit != tt.want:
				t.Errorf("Expected limit %d, got %d", tt.want, got.Limit)
			}
		})
	}
}

func TestLoadConfig_Disabled(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	if LoadConfig().Enabled {
		t.Error("Expected limiter to be disabled")
	}

	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_WHITELIST", "10.0.0.1, 10.0.0.2,")
	cfg := LoadConfig()
	if len(cfg.Whitelist) != 2 {
		t.Errorf("Expected 2 whitelisted ips, got %d", len(cfg.Whitelist))
	}
}
