package cache

import (
	"context"
	"testing"
	"time"

	"bitmax/internal/config"
)

func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }

	if err := s.Set(ctx, "price:btc", []byte("100"), 10*time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := s.Get(ctx, "price:btc")
	if err != nil || !ok || string(got) != "100" {
		t.Fatalf("get=%q ok=%v err=%v", got, ok, err)
	}

	now = now.Add(11 * time.Second)
	if _, ok, _ := s.Get(ctx, "price:btc"); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestMemoryStore_NoExpiryAndDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "k"); !ok {
		t.Fatalf("expected entry without ttl to be found")
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatalf("expected entry to be deleted")
	}
}

func TestMemoryStore_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.Set(ctx, "k", []byte("abc"), 0)
	got, _, _ := s.Get(ctx, "k")
	got[0] = 'x'
	again, _, _ := s.Get(ctx, "k")
	if string(again) != "abc" {
		t.Fatalf("stored value mutated: %q", again)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), config.CacheConfig{Driver: "memcached"}); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
	s, err := Open(context.Background(), config.CacheConfig{Driver: "memory"})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Fatalf("store=%T want *MemoryStore", s)
	}
}
