package cache

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemoryCache_BasicOperations(t *testing.T) {
	c := NewMemoryCache(1024)

	if err := c.Put("a", []byte("hola")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, ok := c.Get("a")
	if !ok || string(got) != "hola" {
		t.Fatalf("Get() = %q, %v, want hola, true", got, ok)
	}
	if c.Size() != 4 {
		t.Errorf("Size() = %d, want 4", c.Size())
	}

	if err := c.Delete("a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if c.Contains("a") {
		t.Error("key still present after Delete")
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0", c.Size())
	}
}

func TestMemoryCache_LRUEviction(t *testing.T) {
	c := NewMemoryCache(30)

	for _, k := range []string{"a", "b", "c"} {
		if err := c.Put(k, make([]byte, 10)); err != nil {
			t.Fatalf("Put(%s) failed: %v", k, err)
		}
	}
	// Touch "a" so "b" becomes the oldest.
	c.Get("a")

	if err := c.Put("d", make([]byte, 10)); err != nil {
		t.Fatalf("Put(d) failed: %v", err)
	}

	if c.Contains("b") {
		t.Error("b should have been evicted")
	}
	for _, k := range []string{"a", "c", "d"} {
		if !c.Contains(k) {
			t.Errorf("%s should still be cached", k)
		}
	}
	if got := c.Stats().Evictions; got != 1 {
		t.Errorf("Evictions = %d, want 1", got)
	}
}

func TestMemoryCache_ItemTooLarge(t *testing.T) {
	c := NewMemoryCache(10)
	if err := c.Put("big", make([]byte, 11)); !errors.Is(err, ErrItemTooLarge) {
		t.Errorf("Put() error = %v, want ErrItemTooLarge", err)
	}
}

func TestMemoryCache_UpdateExisting(t *testing.T) {
	c := NewMemoryCache(100)
	_ = c.Put("k", make([]byte, 10))
	_ = c.Put("k", make([]byte, 25))

	if c.Size() != 25 {
		t.Errorf("Size() = %d, want 25", c.Size())
	}
	if got := c.Stats().Items; got != 1 {
		t.Errorf("Items = %d, want 1", got)
	}
}

func TestMemoryCache_Stats(t *testing.T) {
	c := NewMemoryCache(100)
	_ = c.Put("k", []byte("v"))
	c.Get("k")
	c.Get("k")
	c.Get("missing")

	stats := c.Stats()
	if stats.Hits != 2 || stats.Misses != 1 {
		t.Errorf("Hits/Misses = %d/%d, want 2/1", stats.Hits, stats.Misses)
	}
	if want := 2.0 / 3.0; stats.HitRate != want {
		t.Errorf("HitRate = %v, want %v", stats.HitRate, want)
	}
}

func TestMemoryCache_Prune(t *testing.T) {
	c := NewMemoryCache(100)
	_ = c.Put("old", []byte("x"))
	time.Sleep(20 * time.Millisecond)
	_ = c.Put("new", []byte("y"))

	if got := c.Prune(10 * time.Millisecond); got != 1 {
		t.Errorf("Prune() = %d, want 1", got)
	}
	if c.Contains("old") || !c.Contains("new") {
		t.Error("Prune removed the wrong entry")
	}
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	c := NewMemoryCache(1 << 20)
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k-%d-%d", id, j%10)
				_ = c.Put(key, []byte(key))
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	if got := c.Stats().Items; got != 80 {
		t.Errorf("Items = %d, want 80", got)
	}
}
