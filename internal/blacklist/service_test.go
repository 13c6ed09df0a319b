package blacklist

import (
	"context"
	"errors"
	"testing"
	"time"

	"authcore/internal/cache"
)

// failingStore simulates an unreachable backing store.
type failingStore struct{}

var errStoreDown = errors.New("store unreachable")

func (failingStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return errStoreDown
}
func (failingStore) SetMany(ctx context.Context, keys []string, value string, ttl time.Duration) error {
	return errStoreDown
}
func (failingStore) Get(ctx context.Context, key string) (string, error) {
	return "", errStoreDown
}
func (failingStore) Exists(ctx context.Context, key string) (bool, error) {
	return false, errStoreDown
}
func (failingStore) Delete(ctx context.Context, key string) error { return errStoreDown }
func (failingStore) Close() error                                 { return nil }

func TestAddThenIsBlacklisted(t *testing.T) {
	svc := NewService(cache.NewMemory(), time.Second, nil)
	ctx := context.Background()

	if svc.IsBlacklisted(ctx, "jti-1") {
		t.Fatal("fresh jti reported blacklisted")
	}
	if err := svc.Add(ctx, "jti-1", time.Minute); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !svc.IsBlacklisted(ctx, "jti-1") {
		t.Error("blacklisted jti reported clean")
	}
}

func TestRemoveClearsEntry(t *testing.T) {
	svc := NewService(cache.NewMemory(), time.Second, nil)
	ctx := context.Background()

	if err := svc.Add(ctx, "jti-1", time.Minute); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := svc.Remove(ctx, "jti-1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if svc.IsBlacklisted(ctx, "jti-1") {
		t.Error("removed jti still blacklisted")
	}
}

func TestAddMany(t *testing.T) {
	svc := NewService(cache.NewMemory(), time.Second, nil)
	ctx := context.Background()

	jtis := []string{"a", "b", "c"}
	if err := svc.AddMany(ctx, jtis, time.Minute); err != nil {
		t.Fatalf("AddMany: %v", err)
	}
	for _, jti := range jtis {
		if !svc.IsBlacklisted(ctx, jti) {
			t.Errorf("jti %s not blacklisted after AddMany", jti)
		}
	}
}

func TestEntriesExpireWithTokenLifetime(t *testing.T) {
	store := cache.NewMemory()
	svc := NewService(store, time.Second, nil)
	ctx := context.Background()

	now := time.Now()
	store.SetNow(func() time.Time { return now })
	if err := svc.Add(ctx, "jti-1", time.Minute); err != nil {
		t.Fatalf("Add: %v", err)
	}

	store.SetNow(func() time.Time { return now.Add(2 * time.Minute) })
	if svc.IsBlacklisted(ctx, "jti-1") {
		t.Error("entry outlived its TTL")
	}
}

func TestAddIgnoresExpiredTokens(t *testing.T) {
	svc := NewService(cache.NewMemory(), time.Second, nil)
	if err := svc.Add(context.Background(), "jti-1", -time.Minute); err != nil {
		t.Fatalf("Add with negative ttl: %v", err)
	}
}

func TestFailClosedOnStoreOutage(t *testing.T) {
	svc := NewService(failingStore{}, time.Second, nil)
	ctx := context.Background()

	// Any jti queried during the outage is treated as revoked.
	for _, jti := range []string{"x", "y", "never-added"} {
		if !svc.IsBlacklisted(ctx, jti) {
			t.Errorf("jti %s reported clean during store outage", jti)
		}
	}
}
