/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package decompose

import (
	"crypto/md5" //nolint:gosec // cache key, not security
	"encoding/hex"
	"sync"

	"chainguard.dev/agentjudge/agenttrace"
)

// Cache memoizes decompositions for the life of the process. It has no
// eviction; it is bounded by the distinct (task, criterion) pairs seen.
// Keys are immutable hashes, so concurrent writers for the same key
// converge on equivalent values and overwriting is idempotent.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Decomposition
}

// NewCache creates an empty decomposition cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Decomposition)}
}

// CacheKey derives the cache key for a task and optional criterion.
func CacheKey(task agenttrace.BrowserTask, criterion *agenttrace.Criterion) string {
	raw := task.Name + "_" + task.URL
	if criterion != nil {
		raw += "_" + criterion.Title
	}
	sum := md5.Sum([]byte(raw)) //nolint:gosec // cache key, not security
	return hex.EncodeToString(sum[:])
}

// Get returns the cached decomposition for key, if any.
func (c *Cache) Get(key string) (*Decomposition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.entries[key]
	return d, ok
}

// Put stores a decomposition under key.
func (c *Cache) Put(key string, d *Decomposition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = d
}

// Len returns the number of cached decompositions.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}
