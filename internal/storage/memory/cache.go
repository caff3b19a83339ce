// Package memory keeps cached pages and scrape results in process memory for
// development and tests.
package memory

import (
	"context"
	"sync"
)

// Cache maps URLs to bodies in memory.
type Cache struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{data: make(map[string]string)}
}

// Get returns the body stored for rawURL.
func (c *Cache) Get(_ context.Context, rawURL string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	body, ok := c.data[rawURL]
	if !ok {
		return "", false
	}
	return body, true
}

// Put stores body for rawURL, replacing any previous entry.
func (c *Cache) Put(_ context.Context, rawURL, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[rawURL] = body
	return nil
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
