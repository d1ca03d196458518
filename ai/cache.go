package ai

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
)

// CachingAnnotator memoizes annotations by text. Heading labels are
// annotated on every question that reaches them, so the scorer relies on
// this to keep backend traffic proportional to distinct labels.
//
// Cached annotations are shared between callers and must be treated as
// read-only. Errors are never cached.
type CachingAnnotator struct {
	next   Annotator
	cache  *cache.Cache
	hits   atomic.Int64
	misses atomic.Int64
}

var _ Annotator = (*CachingAnnotator)(nil)

// NewCachingAnnotator wraps next with a cache whose entries live for ttl.
// A zero ttl keeps entries forever.
func NewCachingAnnotator(next Annotator, ttl time.Duration) *CachingAnnotator {
	expiration := cache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		expiration = ttl
		cleanup = 2 * ttl
	}
	return &CachingAnnotator{
		next:  next,
		cache: cache.New(expiration, cleanup),
	}
}

// Annotate returns the cached annotation for text or computes and stores it.
func (c *CachingAnnotator) Annotate(ctx context.Context, text string) (*Annotation, error) {
	if cached, found := c.cache.Get(text); found {
		c.hits.Add(1)
		return cached.(*Annotation), nil
	}

	c.misses.Add(1)
	annotation, err := c.next.Annotate(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(text, annotation, cache.DefaultExpiration)
	return annotation, nil
}

// Stats returns the number of cache hits and misses so far.
func (c *CachingAnnotator) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Flush drops every cached annotation.
func (c *CachingAnnotator) Flush() {
	c.cache.Flush()
}
