package pattern

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache memoizes compiled patterns by source. Script cops compile their
// patterns on every run, so the cache keeps that off the hot path. Errors
// are not cached.
type Cache struct {
	lru  *lru.Cache[string, *Pattern]
	opts []Option
}

// NewCache returns a cache holding up to size patterns, each compiled with
// opts.
func NewCache(size int, opts ...Option) (*Cache, error) {
	c, err := lru.New[string, *Pattern](size)
	if err != nil {
		return nil, fmt.Errorf("pattern cache: %w", err)
	}
	return &Cache{lru: c, opts: opts}, nil
}

// Get returns the compiled pattern for src, compiling it on a miss.
func (c *Cache) Get(src string) (*Pattern, error) {
	if p, ok := c.lru.Get(src); ok {
		return p, nil
	}
	p, err := Compile(src, c.opts...)
	if err != nil {
		return nil, err
	}
	c.lru.Add(src, p)
	return p, nil
}

// Len returns the number of cached patterns.
func (c *Cache) Len() int { return c.lru.Len() }
