package engine

import (
	"sync"
)

// RunContext is the per-run scratch store behind tool deduplication. Each
// run gets a fresh instance and never shares it: isolation between
// concurrent runs is structural, not locked-for.
type RunContext struct {
	mu     sync.RWMutex
	values map[string]any
}

func NewRunContext() *RunContext {
	return &RunContext{values: make(map[string]any)}
}

// Get returns the stored value for key.
func (c *RunContext) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

// Set stores value under key, overwriting any previous value.
func (c *RunContext) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

// Reset drops all stored values.
func (c *RunContext) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = make(map[string]any)
}

// Len returns the number of stored values.
func (c *RunContext) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}
