// cache.go - In-memory cache for provider answers

package storage

import (
	"crypto/md5"
	"encoding/hex"
	"sync"
)

// CacheStats reports cache usage since creation or the last Clear
type CacheStats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// ResponseCache maps (text, model) to the answer the model gave for that text.
// Entries never expire; the whole cache is dropped with Clear.
type ResponseCache struct {
	entries map[string]string
	hits    int64
	misses  int64
	mu      sync.RWMutex
}

// NewResponseCache creates an empty cache owned by the caller
func NewResponseCache() *ResponseCache {
	return &ResponseCache{entries: make(map[string]string)}
}

// CacheKey builds the "{model}_{md5(text)}" key for a text/model pair
func CacheKey(text, model string) string {
	sum := md5.Sum([]byte(text))
	return model + "_" + hex.EncodeToString(sum[:])
}

// Get returns the cached answer for text and model
func (c *ResponseCache) Get(text, model string) (string, bool) {
	key := CacheKey(text, model)

	c.mu.Lock()
	defer c.mu.Unlock()

	response, ok := c.entries[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return response, ok
}

// Set stores response for text and model, replacing any previous answer
func (c *ResponseCache) Set(text, model, response string) {
	key := CacheKey(text, model)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = response
}

// Len returns the number of cached answers
func (c *ResponseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns a snapshot of the cache counters
func (c *ResponseCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheStats{Entries: len(c.entries), Hits: c.hits, Misses: c.misses}
}

// Clear removes all cached data and resets the counters
func (c *ResponseCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]string)
	c.hits = 0
	c.misses = 0
}
