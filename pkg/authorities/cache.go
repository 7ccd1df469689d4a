// Copyright 2025 Certen Protocol
//
// cache.go implements the BlockStateCache: a bounded, process-scoped LRU
// mapping BlockHash to AuthoritiesList, shielding the chain runtime from
// repeated authority-set queries (spec §3).

package authorities

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheCapacity is the default number of block hashes the cache
// holds before evicting the least-recently-used entry.
const DefaultCacheCapacity = 256

// Cache is a concurrency-safe BlockHash -> AuthoritiesList LRU. The
// underlying hashicorp/golang-lru cache is itself internally locked, so
// Cache adds no locking of its own (spec §5: read-mostly, mutate-on-miss,
// harmless for two concurrent misses to both populate the same key).
type Cache struct {
	lru *lru.Cache[BlockHash, AuthoritiesList]
}

// NewCache creates a BlockStateCache with the given capacity. A capacity
// of zero or less uses DefaultCacheCapacity.
func NewCache(capacity int) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	c, err := lru.New[BlockHash, AuthoritiesList](capacity)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c}, nil
}

// Get returns the cached AuthoritiesList for a block hash, if present.
func (c *Cache) Get(hash BlockHash) (AuthoritiesList, bool) {
	return c.lru.Get(hash)
}

// Put inserts or refreshes the AuthoritiesList for a block hash.
func (c *Cache) Put(list AuthoritiesList) {
	c.lru.Add(list.BlockHash, list)
}

// Len returns the number of entries currently cached.
func (c *Cache) Len() int {
	return c.lru.Len()
}
