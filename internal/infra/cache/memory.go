package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	val     []byte
	expires time.Time
}

// Memory is a process local QueryCache.
type Memory struct {
	mu  sync.RWMutex
	ttl time.Duration
	m    map[string]entry
	gens map[string]uint64
	now  func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, m: make(map[string]entry), gens: make(map[string]uint64), now: time.Now}
}

func (c *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if c.ttl > 0 && c.now().After(e.expires) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	return e.val, true, nil
}

func (c *Memory) Set(_ context.Context, key string, val []byte) error {
	c.mu.Lock()
	c.m[key] = entry{val: val, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return nil
}

func (c *Memory) Invalidate(_ context.Context, keys ...string) error {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.m, k)
		c.gens[k]++
	}
	c.mu.Unlock()
	return nil
}

func (c *Memory) Generation(_ context.Context, key string) (uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gens[key], nil
}

func (c *Memory) SetIfCurrent(_ context.Context, key string, val []byte, gen uint64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[key] != gen {
		return false, nil
	}
	c.m[key] = entry{val: val, expires: c.now().Add(c.ttl)}
	return true, nil
}
