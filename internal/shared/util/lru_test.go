package util

import (
	"sync"
	"testing"
)

func TestLRU_GetAdd(t *testing.T) {
	c := NewLRU[string, int](3)

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Add("a", 1)
	c.Add("b", 2)
	c.Add("c", 3)

	if c.Len() != 3 {
		t.Fatalf("expected len 3, got %d", c.Len())
	}
	for k, want := range map[string]int{"a": 1, "b": 2, "c": 3} {
		v, ok := c.Get(k)
		if !ok || v != want {
			t.Fatalf("key %q: want %d got %d (ok=%v)", k, want, v, ok)
		}
	}

	hits, misses := c.Stats()
	if hits != 3 || misses != 1 {
		t.Fatalf("expected 3 hits and 1 miss, got %d and %d", hits, misses)
	}
}

func TestLRU_EvictsLeastRecent(t *testing.T) {
	c := NewLRU[string, int](2)
	c.Add("a", 1)
	c.Add("b", 2)
	c.Get("a")

	if !c.Add("c", 3) {
		t.Fatal("expected eviction when adding past capacity")
	}
	if _, ok := c.Get("b"); ok {
		t.Fatal("expected 'b' to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected 'a' to survive")
	}
}

func TestLRU_UpdateExisting(t *testing.T) {
	c := NewLRU[string, int](2)
	c.Add("a", 1)
	c.Add("b", 2)

	if c.Add("a", 99) {
		t.Fatal("updating a key must not evict")
	}
	if v, _ := c.Get("a"); v != 99 {
		t.Fatalf("expected updated value 99, got %d", v)
	}
	c.Add("c", 3)
	if _, ok := c.Get("b"); ok {
		t.Fatal("expected 'b' to be evicted after 'a' was refreshed")
	}
}

func TestLRU_RemoveAndPurge(t *testing.T) {
	c := NewLRU[string, int](5)
	c.Add("a", 1)
	c.Add("b", 2)

	c.Remove("a")
	c.Remove("missing")
	if c.Len() != 1 {
		t.Fatalf("expected len 1 after remove, got %d", c.Len())
	}

	c.Purge()
	if c.Len() != 0 {
		t.Fatalf("expected empty cache after purge, got %d", c.Len())
	}
	if hits, misses := c.Stats(); hits != 0 || misses != 0 {
		t.Fatalf("expected counters reset, got %d/%d", hits, misses)
	}
}

func TestLRU_NonPositiveCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		if got := NewLRU[int, int](capacity).Cap(); got != 1 {
			t.Errorf("capacity %d: expected 1, got %d", capacity, got)
		}
	}
}

func TestLRU_ConcurrentAccess(t *testing.T) {
	const workers = 16
	const ops = 200
	c := NewLRU[int, int](50)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(id int) {
			defer wg.Done()
			for i := 0; i < ops; i++ {
				key := (id*ops + i) % 80
				c.Add(key, key*2)
				c.Get(key)
				if key%10 == 0 {
					c.Remove(key)
				}
			}
		}(w)
	}
	wg.Wait()
	if c.Len() > c.Cap() {
		t.Fatalf("len %d exceeds capacity %d", c.Len(), c.Cap())
	}
}
