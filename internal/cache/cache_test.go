package cache

import (
	"testing"
	"time"
)

func TestCacheSetGetRemove(t *testing.T) {
	c := New[int](10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("expected a=1, got %d %t", v, ok)
	}
	c.Remove("a")
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected a removed")
	}
	if c.Len() != 1 {
		t.Fatalf("expected len 1, got %d", c.Len())
	}
}

func TestCacheEvictsOldestOnOverflow(t *testing.T) {
	c := New[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	if c.Contains("a") {
		t.Fatalf("expected oldest entry evicted")
	}
	if !c.Contains("b") || !c.Contains("c") {
		t.Fatalf("expected newer entries kept")
	}
}

func TestCacheExpiresByAge(t *testing.T) {
	c := New[int](10, 50*time.Millisecond)
	c.Set("a", 1)
	time.Sleep(120 * time.Millisecond)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected entry expired")
	}
}

func TestCacheKeysSnapshot(t *testing.T) {
	c := New[int](10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	keys := c.Keys()
	c.Set("c", 3)
	if len(keys) != 2 {
		t.Fatalf("expected snapshot of 2 keys, got %d", len(keys))
	}
}
