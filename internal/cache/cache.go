package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache is a bounded key→value store where entries fall out either by age or
// by LRU pressure, whichever comes first. Used to remember short-lived
// cohorts (recent joiners, flagged spammers, already-banned users) without
// unbounded growth.
type Cache[V any] struct {
	lru *expirable.LRU[string, V]
}

func New[V any](maxLen int, maxAge time.Duration) *Cache[V] {
	return &Cache[V]{lru: expirable.NewLRU[string, V](maxLen, nil, maxAge)}
}

func (c *Cache[V]) Get(key string) (V, bool) {
	return c.lru.Get(key)
}

func (c *Cache[V]) Set(key string, value V) {
	c.lru.Add(key, value)
}

func (c *Cache[V]) Remove(key string) {
	c.lru.Remove(key)
}

func (c *Cache[V]) Contains(key string) bool {
	return c.lru.Contains(key)
}

// Keys returns a snapshot of the live keys, safe to iterate while other
// goroutines keep inserting.
func (c *Cache[V]) Keys() []string {
	return c.lru.Keys()
}

func (c *Cache[V]) Len() int {
	return c.lru.Len()
}
