package scan

import "sync"

// resultCache is a single-slot cache: each completed scan replaces the
// previous result wholesale. Readers always see either nothing or one
// complete, internally consistent result.
type resultCache struct {
	mu   sync.RWMutex
	last *Result
}

var cache resultCache

func (c *resultCache) store(r *Result) {
	c.mu.Lock()
	c.last = r
	c.mu.Unlock()
}

func (c *resultCache) load() (*Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.last == nil {
		return nil, false
	}
	return c.last, true
}

// Remember records r as the most recent scan result.
func Remember(r *Result) {
	cache.store(r)
}

// LastResult returns the most recent completed scan result, or false
// when no scan has run yet.
func LastResult() (*Result, bool) {
	return cache.load()
}
