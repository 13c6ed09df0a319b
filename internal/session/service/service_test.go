package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"authcore/internal/session/domain"
)

type memSessionRepo struct {
	mu sync.Mutex
	m  map[string]*domain.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{m: make(map[string]*domain.Session)}
}

func (r *memSessionRepo) Create(ctx context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s2 := *s
	r.m[s.ID] = &s2
	return nil
}

func (r *memSessionRepo) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m[id], nil
}

func (r *memSessionRepo) ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Session
	for _, s := range r.m {
		if s.UserID == userID && s.IsActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memSessionRepo) Deactivate(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.m[id]; ok {
		s.IsActive = false
	}
	return nil
}

func (r *memSessionRepo) DeactivateAllByUser(ctx context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.m {
		if s.UserID == userID && s.IsActive {
			s.IsActive = false
			n++
		}
	}
	return n, nil
}

func (r *memSessionRepo) DeactivateExpired(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	var n int64
	for _, s := range r.m {
		if s.IsActive && s.ExpiresAt.Before(now) {
			s.IsActive = false
			n++
		}
	}
	return n, nil
}

func (r *memSessionRepo) TouchMostRecent(ctx context.Context, userID string) error {
	return nil
}

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.109 Safari/537.36"

func TestCreateRecordsParsedDevice(t *testing.T) {
	repo := newMemSessionRepo()
	svc := NewService(repo, nil)

	sess, err := svc.Create(context.Background(), "user-1", "203.0.113.10", chromeUA, 2, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sess.Browser != "Chrome 120" {
		t.Errorf("Browser = %q, want Chrome 120", sess.Browser)
	}
	if sess.OS != "Windows" {
		t.Errorf("OS = %q, want Windows", sess.OS)
	}
	if sess.Device != "Desktop" {
		t.Errorf("Device = %q, want Desktop", sess.Device)
	}
	if sess.TokenVersion != 2 {
		t.Errorf("TokenVersion = %d, want 2", sess.TokenVersion)
	}
	if !sess.IsActive {
		t.Error("new session not active")
	}
	if want := sess.CreatedAt.Add(30 * 24 * time.Hour); !sess.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", sess.ExpiresAt, want)
	}
}

func TestRevokeChecksOwnership(t *testing.T) {
	repo := newMemSessionRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	sess, err := svc.Create(ctx, "user-1", "203.0.113.10", chromeUA, 0, time.Hour)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Another user revoking this session sees not-found, not forbidden.
	if err := svc.Revoke(ctx, "user-2", sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("foreign revoke: err = %v, want ErrSessionNotFound", err)
	}
	if err := svc.Revoke(ctx, "user-1", "no-such-session"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("missing session: err = %v, want ErrSessionNotFound", err)
	}

	if err := svc.Revoke(ctx, "user-1", sess.ID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	// Revoking an already-inactive session also reads as not-found.
	if err := svc.Revoke(ctx, "user-1", sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("double revoke: err = %v, want ErrSessionNotFound", err)
	}
}

func TestRevokeAllAndList(t *testing.T) {
	repo := newMemSessionRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Create(ctx, "user-1", "203.0.113.10", chromeUA, 0, time.Hour); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if _, err := svc.Create(ctx, "user-2", "203.0.113.11", chromeUA, 0, time.Hour); err != nil {
		t.Fatalf("Create: %v", err)
	}

	list, err := svc.ListForUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len(list) = %d, want 3", len(list))
	}

	if err := svc.RevokeAll(ctx, "user-1"); err != nil {
		t.Fatalf("RevokeAll: %v", err)
	}
	list, err = svc.ListForUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("len(list) after RevokeAll = %d, want 0", len(list))
	}

	// Other users' sessions are untouched.
	other, _ := svc.ListForUser(ctx, "user-2")
	if len(other) != 1 {
		t.Errorf("user-2 sessions = %d, want 1", len(other))
	}
}

func TestCleanupExpiredIsIdempotent(t *testing.T) {
	repo := newMemSessionRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "user-1", "203.0.113.10", chromeUA, 0, -time.Minute); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Create(ctx, "user-1", "203.0.113.10", chromeUA, 0, time.Hour); err != nil {
		t.Fatalf("Create: %v", err)
	}

	n, err := svc.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("CleanupExpired: %v", err)
	}
	if n != 1 {
		t.Errorf("first sweep = %d, want 1", n)
	}

	n, err = svc.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("CleanupExpired: %v", err)
	}
	if n != 0 {
		t.Errorf("second sweep = %d, want 0", n)
	}
}

func TestParseUserAgent(t *testing.T) {
	cases := []struct {
		name            string
		ua              string
		browser, osName string
		device          string
	}{
		{
			"desktop chrome",
			chromeUA,
			"Chrome 120", "Windows", "Desktop",
		},
		{
			"iphone safari",
			"Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1",
			"Safari 17", "iOS", "Mobile",
		},
		{
			"empty",
			"",
			"Unknown", "Unknown", "Unknown",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			browser, osName, device := ParseUserAgent(tc.ua)
			if browser != tc.browser || osName != tc.osName || device != tc.device {
				t.Errorf("ParseUserAgent = (%q, %q, %q), want (%q, %q, %q)",
					browser, osName, device, tc.browser, tc.osName, tc.device)
			}
		})
	}
}
