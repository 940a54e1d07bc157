package profiles

import (
	"context"
	"testing"
	"time"
)

type stubResolver struct {
	username string
	err      error
	calls    int
}

func (s *stubResolver) Username(context.Context, string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.username, nil
}

func TestCachingResolverUsername(t *testing.T) {
	base := &stubResolver{username: "ava"}
	cache := NewCachingResolver(base, time.Minute)

	ctx := context.Background()

	username, err := cache.Username(ctx, "user-1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if username != "ava" {
		t.Fatalf("unexpected username: %q", username)
	}
	if base.calls != 1 {
		t.Fatalf("expected base called once got %d", base.calls)
	}

	username, err = cache.Username(ctx, "user-1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if base.calls != 1 {
		t.Fatalf("expected cached result got %d calls", base.calls)
	}
}

func TestCachingResolverErrors(t *testing.T) {
	cache := NewCachingResolver(nil, time.Minute)
	if _, err := cache.Username(context.Background(), "user-1"); err != ErrResolverUnavailable {
		t.Fatalf("expected resolver unavailable got %v", err)
	}

	base := &stubResolver{err: ErrResolverUnavailable}
	cache = NewCachingResolver(base, time.Minute)
	if _, err := cache.Username(context.Background(), "user-1"); err != ErrResolverUnavailable {
		t.Fatalf("expected resolver unavailable got %v", err)
	}
	if base.calls != 1 {
		t.Fatalf("expected base called once got %d", base.calls)
	}

	// Errors are not cached.
	if _, err := cache.Username(context.Background(), "user-1"); err != ErrResolverUnavailable {
		t.Fatalf("expected resolver unavailable got %v", err)
	}
	if base.calls != 2 {
		t.Fatalf("expected retry after error got %d calls", base.calls)
	}
}

func TestCachingResolverExpiry(t *testing.T) {
	base := &stubResolver{username: "ava"}
	cache := NewCachingResolver(base, time.Millisecond)

	if _, err := cache.Username(context.Background(), "user-1"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if base.calls != 1 {
		t.Fatalf("expected 1 call got %d", base.calls)
	}

	time.Sleep(2 * time.Millisecond)

	if _, err := cache.Username(context.Background(), "user-1"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if base.calls != 2 {
		t.Fatalf("expected cache miss after expiry got %d calls", base.calls)
	}
}

func TestCachingResolverDefaultTTL(t *testing.T) {
	cache := NewCachingResolver(&stubResolver{username: "ava"}, 0)

	if cache.ttl <= 0 {
		t.Fatalf("expected ttl to default positive got %v", cache.ttl)
	}
}
