package token

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"authcore/internal/security"
	"authcore/internal/user/domain"
)

const (
	testAccessSecret  = "access-secret-for-tests-0123456789ab"
	testRefreshSecret = "refresh-secret-for-tests-0123456789a"
	testUA            = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.109 Safari/537.36"
	testIP            = "203.0.113.10"
)

type memUserStore struct {
	mu sync.Mutex
	m  map[string]*domain.User
}

func (s *memUserStore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m[id], nil
}

func (s *memUserStore) put(u *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u2 := *u
	s.m[u.ID] = &u2
}

type memRevocations struct {
	mu sync.Mutex
	m  map[string]bool
}

func (r *memRevocations) IsBlacklisted(ctx context.Context, jti string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m[jti]
}

func (r *memRevocations) Add(ctx context.Context, jti string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[jti] = true
	return nil
}

func newTestService(t *testing.T) (*Service, *memUserStore, *memRevocations) {
	t.Helper()
	users := &memUserStore{m: make(map[string]*domain.User)}
	revocations := &memRevocations{m: make(map[string]bool)}
	svc := NewService(
		testAccessSecret, testRefreshSecret, "test-issuer",
		15*time.Minute, 24*time.Hour,
		security.NewFingerprinter(24, 64),
		users, revocations,
	)
	return svc, users, revocations
}

func testUser() *domain.User {
	return &domain.User{
		ID:           "user-1",
		Email:        "alice@example.com",
		PasswordHash: "x",
		Role:         domain.RoleUser,
		TokenVersion: 3,
		IsActive:     true,
	}
}

func testReqCtx() RequestContext {
	return RequestContext{IP: testIP, UserAgent: testUA}
}

func TestGenerateProducesVerifiablePair(t *testing.T) {
	svc, _, _ := newTestService(t)
	u := testUser()

	pair, err := svc.Generate(u, testReqCtx())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if pair.AccessJTI == pair.RefreshJTI {
		t.Error("access and refresh tokens share a jti")
	}

	claims, err := svc.VerifyAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if claims.Subject != u.ID {
		t.Errorf("sub = %q, want %q", claims.Subject, u.ID)
	}
	if claims.Role != u.Role {
		t.Errorf("role = %q, want %q", claims.Role, u.Role)
	}
	if claims.TokenVersion != u.TokenVersion {
		t.Errorf("tokenVersion = %d, want %d", claims.TokenVersion, u.TokenVersion)
	}
	if claims.Fingerprint == "" {
		t.Error("fingerprint claim empty")
	}

	refreshClaims, err := svc.VerifyRefresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("VerifyRefresh: %v", err)
	}
	if refreshClaims.Fingerprint != claims.Fingerprint {
		t.Error("access and refresh tokens do not share a fingerprint")
	}
}

func TestSecretsAreNotInterchangeable(t *testing.T) {
	svc, _, _ := newTestService(t)
	pair, err := svc.Generate(testUser(), testReqCtx())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := svc.VerifyAccess(pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Error("refresh token accepted by VerifyAccess")
	}
	if _, err := svc.VerifyRefresh(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Error("access token accepted by VerifyRefresh")
	}
}

func TestVerifyAccessRejectsGarbage(t *testing.T) {
	svc, _, _ := newTestService(t)
	for _, in := range []string{"", "garbage", "a.b.c"} {
		if _, err := svc.VerifyAccess(in); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("VerifyAccess(%q): err = %v, want ErrInvalidToken", in, err)
		}
	}
}

func TestRefreshRotatesPair(t *testing.T) {
	svc, users, revocations := newTestService(t)
	u := testUser()
	users.put(u)

	pair, err := svc.Generate(u, testReqCtx())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	next, gotUser, err := svc.Refresh(context.Background(), pair.RefreshToken, testReqCtx())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if gotUser.ID != u.ID {
		t.Errorf("user = %q, want %q", gotUser.ID, u.ID)
	}
	if next.RefreshJTI == pair.RefreshJTI {
		t.Error("rotation reused the refresh jti")
	}
	if next.RefreshToken == pair.RefreshToken {
		t.Error("rotation reissued the presented refresh token")
	}
	// The consumed refresh token is retired; replaying it is rejected.
	if !revocations.IsBlacklisted(context.Background(), pair.RefreshJTI) {
		t.Error("consumed refresh jti not blacklisted")
	}
	if _, _, err := svc.Refresh(context.Background(), pair.RefreshToken, testReqCtx()); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("replayed refresh: err = %v, want ErrTokenRevoked", err)
	}
}

func TestRefreshRejectsFingerprintMismatch(t *testing.T) {
	svc, users, _ := newTestService(t)
	u := testUser()
	users.put(u)

	pair, err := svc.Generate(u, testReqCtx())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	otherNetwork := RequestContext{IP: "198.51.100.7", UserAgent: testUA}
	if _, _, err := svc.Refresh(context.Background(), pair.RefreshToken, otherNetwork); !errors.Is(err, ErrFingerprintMismatch) {
		t.Errorf("different subnet: err = %v, want ErrFingerprintMismatch", err)
	}

	otherBrowser := RequestContext{IP: testIP, UserAgent: "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"}
	if _, _, err := svc.Refresh(context.Background(), pair.RefreshToken, otherBrowser); !errors.Is(err, ErrFingerprintMismatch) {
		t.Errorf("different browser: err = %v, want ErrFingerprintMismatch", err)
	}
}

func TestRefreshToleratesMinorClientChanges(t *testing.T) {
	svc, users, _ := newTestService(t)
	u := testUser()
	users.put(u)

	pair, err := svc.Generate(u, testReqCtx())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// Same /24, browser patch bump: still the same fingerprint.
	nearby := RequestContext{
		IP:        "203.0.113.99",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.225 Safari/537.36",
	}
	if _, _, err := svc.Refresh(context.Background(), pair.RefreshToken, nearby); err != nil {
		t.Errorf("Refresh from nearby context: %v", err)
	}
}

func TestRefreshEpochCheck(t *testing.T) {
	svc, users, _ := newTestService(t)
	u := testUser()
	users.put(u)

	pair, err := svc.Generate(u, testReqCtx())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// Token minted at version v is accepted while the user is still at v.
	if _, _, err := svc.Refresh(context.Background(), pair.RefreshToken, testReqCtx()); err != nil {
		t.Fatalf("Refresh at matching epoch: %v", err)
	}

	// Bump the epoch; the same-version token is now rejected.
	pair2, err := svc.Generate(u, testReqCtx())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	u.TokenVersion++
	users.put(u)
	if _, _, err := svc.Refresh(context.Background(), pair2.RefreshToken, testReqCtx()); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("stale epoch: err = %v, want ErrTokenRevoked", err)
	}
}

func TestRefreshRejectsDisabledAndUnknownUsers(t *testing.T) {
	svc, users, _ := newTestService(t)
	u := testUser()
	users.put(u)

	pair, err := svc.Generate(u, testReqCtx())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	u.IsActive = false
	users.put(u)
	if _, _, err := svc.Refresh(context.Background(), pair.RefreshToken, testReqCtx()); !errors.Is(err, ErrAccountDisabled) {
		t.Errorf("disabled user: err = %v, want ErrAccountDisabled", err)
	}

	ghost := testUser()
	ghost.ID = "user-unknown"
	ghostPair, err := svc.Generate(ghost, testReqCtx())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, _, err := svc.Refresh(context.Background(), ghostPair.RefreshToken, testReqCtx()); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("unknown user: err = %v, want ErrInvalidToken", err)
	}
}

func TestRefreshRejectsBlacklistedToken(t *testing.T) {
	svc, users, revocations := newTestService(t)
	u := testUser()
	users.put(u)

	pair, err := svc.Generate(u, testReqCtx())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := revocations.Add(context.Background(), pair.RefreshJTI, time.Hour); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, _, err := svc.Refresh(context.Background(), pair.RefreshToken, testReqCtx()); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("blacklisted refresh: err = %v, want ErrTokenRevoked", err)
	}
}
