package cachestore

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Size-bounded LRU where entries also expire after a fixed TTL.
type MemCache[V any] struct {
	lru *expirable.LRU[string, V]
}

func NewMemCache[V any](capacity int, ttl time.Duration) *MemCache[V] {
	return &MemCache[V]{
		lru: expirable.NewLRU[string, V](capacity, nil, ttl),
	}
}

func (c *MemCache[V]) Get(key string) (V, bool) {
	return c.lru.Get(key)
}

func (c *MemCache[V]) Set(key string, val V) {
	c.lru.Add(key, val)
}

func (c *MemCache[V]) Purge(key string) {
	c.lru.Remove(key)
}

func (c *MemCache[V]) Len() int {
	return c.lru.Len()
}
