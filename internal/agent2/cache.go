package agent2

import (
	"sync"
	"time"

	"github.com/m-erhardt/check-vcenter/internal/check"
)

// ResultCache holds the most recent check result per mode in a thread-safe
// manner.
type ResultCache struct {
	mu      sync.RWMutex
	results map[string]check.Result
	updated map[string]time.Time
}

// NewResultCache creates a new empty cache.
func NewResultCache() *ResultCache {
	return &ResultCache{
		results: make(map[string]check.Result),
		updated: make(map[string]time.Time),
	}
}

// Update replaces the cached result for one mode atomically.
func (c *ResultCache) Update(mode string, result check.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[mode] = result
	c.updated[mode] = time.Now()
}

// Result returns the cached result for a mode and whether one exists.
func (c *ResultCache) Result(mode string) (check.Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.results[mode]
	return r, ok
}

// UpdatedAt returns when the mode's result was last refreshed.
func (c *ResultCache) UpdatedAt(mode string) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.updated[mode]
	return t, ok
}
