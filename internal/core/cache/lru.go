package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// LRU is a size-bounded, goroutine-safe cache.
type LRU[K comparable, V any] struct {
	c *lru.Cache[K, V]
}

func NewLRU[K comparable, V any](capacity int) *LRU[K, V] {
	if capacity <= 0 {
		capacity = 1
	}
	c, _ := lru.New[K, V](capacity)
	return &LRU[K, V]{c: c}
}

func (c *LRU[K, V]) Get(key K) (V, bool) {
	if c == nil {
		var zero V
		return zero, false
	}
	return c.c.Get(key)
}

func (c *LRU[K, V]) Put(key K, val V) {
	if c == nil {
		return
	}
	c.c.Add(key, val)
}

func (c *LRU[K, V]) Remove(key K) {
	if c == nil {
		return
	}
	c.c.Remove(key)
}

func (c *LRU[K, V]) Len() int {
	if c == nil {
		return 0
	}
	return c.c.Len()
}

func (c *LRU[K, V]) Purge() {
	if c == nil {
		return
	}
	c.c.Purge()
}
