package cache

import (
	"context"
	"testing"
	"time"

	appconfig "contextgate/config"
)

func TestMemoryExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemory(func() time.Time { return now })
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), time.Minute)
	if got, ok := c.Get(ctx, "k"); !ok || string(got) != "v" {
		t.Fatalf("expected hit, got %q %v", got, ok)
	}

	now = now.Add(59 * time.Second)
	if _, ok := c.Get(ctx, "k"); !ok {
		t.Fatal("entry expired early")
	}

	now = now.Add(time.Second)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("entry should expire at its ttl")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry not removed, len=%d", c.Len())
	}
}

func TestMemoryCopiesValue(t *testing.T) {
	c := NewMemory(nil)
	ctx := context.Background()
	buf := []byte("abc")
	c.Set(ctx, "k", buf, 0)
	buf[0] = 'z'
	got, ok := c.Get(ctx, "k")
	if !ok || string(got) != "abc" {
		t.Fatalf("cache aliased caller buffer: %q", got)
	}
}

func TestNewSelectsBackend(t *testing.T) {
	if _, ok := New(appconfig.RedisConfig{}).(*Memory); !ok {
		t.Fatal("expected memory cache without address")
	}
	c := New(appconfig.RedisConfig{Addr: "127.0.0.1:6399"})
	r, ok := c.(*Redis)
	if !ok {
		t.Fatal("expected redis cache with address")
	}
	t.Cleanup(func() { r.Close() })
}
