package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prodlens/backend/internal/domain"
)

func TestMemoryCache_SetAndGet(t *testing.T) {
	cache := NewMemoryCache()
	defer cache.Close()
	ctx := context.Background()

	tests := []struct {
		name  string
		key   string
		value []byte
		ttl   time.Duration
	}{
		{
			name:  "store and retrieve bytes",
			key:   "test-key-1",
			value: []byte("test-value"),
			ttl:   1 * time.Minute,
		},
		{
			name:  "store and retrieve json",
			key:   "test-key-2",
			value: []byte(`{"product_name":"Acme Lipstick","match_confidence":95}`),
			ttl:   1 * time.Minute,
		},
		{
			name:  "store with short TTL",
			key:   "test-key-3",
			value: []byte("expires-soon"),
			ttl:   1 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := cache.Set(ctx, tt.key, tt.value, tt.ttl); err != nil {
				t.Fatalf("Set() error = %v", err)
			}

			// For short TTL test, wait for expiration
			if tt.ttl < 10*time.Millisecond {
				time.Sleep(10 * time.Millisecond)
				_, err := cache.Get(ctx, tt.key)
				if err != domain.ErrCacheMiss {
					t.Errorf("Expected cache miss after expiration, got error = %v", err)
				}
				return
			}

			got, err := cache.Get(ctx, tt.key)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if string(got) != string(tt.value) {
				t.Errorf("Get() = %s, want %s", got, tt.value)
			}
		})
	}
}

func TestMemoryCache_Get_CacheMiss(t *testing.T) {
	cache := NewMemoryCache()
	defer cache.Close()

	_, err := cache.Get(context.Background(), "non-existent-key")
	if err != domain.ErrCacheMiss {
		t.Errorf("Get() error = %v, want %v", err, domain.ErrCacheMiss)
	}
}

func TestMemoryCache_ValuesAreCopied(t *testing.T) {
	cache := NewMemoryCache()
	defer cache.Close()
	ctx := context.Background()

	value := []byte("original")
	_ = cache.Set(ctx, "k", value, time.Minute)
	value[0] = 'X'

	got, _ := cache.Get(ctx, "k")
	if string(got) != "original" {
		t.Errorf("stored value mutated through caller slice: %s", got)
	}

	got[0] = 'Y'
	again, _ := cache.Get(ctx, "k")
	if string(again) != "original" {
		t.Errorf("stored value mutated through returned slice: %s", again)
	}
}

func TestMemoryCache_Delete(t *testing.T) {
	cache := NewMemoryCache()
	defer cache.Close()
	ctx := context.Background()

	_ = cache.Set(ctx, "k", []byte("v"), time.Minute)
	if err := cache.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := cache.Get(ctx, "k"); err != domain.ErrCacheMiss {
		t.Errorf("expected cache miss after delete, got %v", err)
	}

	// Deleting a missing key is not an error
	if err := cache.Delete(ctx, "missing"); err != nil {
		t.Errorf("Delete() of missing key error = %v", err)
	}
}

func TestMemoryCache_Exists(t *testing.T) {
	cache := NewMemoryCache()
	defer cache.Close()
	ctx := context.Background()

	_ = cache.Set(ctx, "live", []byte("v"), time.Minute)
	_ = cache.Set(ctx, "expired", []byte("v"), time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	tests := []struct {
		key  string
		want bool
	}{
		{"live", true},
		{"expired", false},
		{"missing", false},
	}

	for _, tt := range tests {
		got, err := cache.Exists(ctx, tt.key)
		if err != nil {
			t.Fatalf("Exists(%q) error = %v", tt.key, err)
		}
		if got != tt.want {
			t.Errorf("Exists(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestMemoryCache_CleanupRemovesExpired(t *testing.T) {
	cache := newMemoryCache(5 * time.Millisecond)
	defer cache.Close()
	ctx := context.Background()

	_ = cache.Set(ctx, "short", []byte("v"), time.Millisecond)
	_ = cache.Set(ctx, "long", []byte("v"), time.Hour)

	deadline := time.Now().Add(time.Second)
	for entryCount(cache) != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if entryCount(cache) != 1 {
		t.Errorf("entries = %d, want 1 after cleanup", entryCount(cache))
	}
}

func TestMemoryCache_CloseIsIdempotent(t *testing.T) {
	cache := NewMemoryCache()
	_ = cache.Close()
	_ = cache.Close()
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	cache := NewMemoryCache()
	defer cache.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i%26))
			_ = cache.Set(ctx, key, []byte{byte(i)}, time.Minute)
			_, _ = cache.Get(ctx, key)
			_, _ = cache.Exists(ctx, key)
		}(i)
	}
	wg.Wait()

	if entryCount(cache) == 0 {
		t.Error("expected entries after concurrent writes")
	}
}

// entryCount counts stored entries, expired ones included
func entryCount(c *MemoryCache) int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}
