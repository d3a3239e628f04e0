package fetch

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheSize bounds the number of bodies kept by NewCached.
const DefaultCacheSize = 256

// Cached remembers successful responses by URL. Concurrent requests for the
// same URL share one underlying fetch. Failures are never cached.
type Cached struct {
	next  Fetcher
	cache *lru.Cache[string, Response]
	group singleflight.Group
}

func NewCached(next Fetcher, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, Response](size)
	if err != nil {
		return nil, err
	}
	return &Cached{next: next, cache: c}, nil
}

func (c *Cached) Fetch(ctx context.Context, url string) (Response, error) {
	if resp, ok := c.cache.Get(url); ok {
		return resp, nil
	}
	v, err, _ := c.group.Do(url, func() (any, error) {
		resp, err := c.next.Fetch(ctx, url)
		if err != nil {
			return Response{}, err
		}
		c.cache.Add(url, resp)
		return resp, nil
	})
	if err != nil {
		return Response{}, err
	}
	return v.(Response), nil
}

// Len reports how many bodies are cached.
func (c *Cached) Len() int {
	return c.cache.Len()
}

// Purge drops every cached body.
func (c *Cached) Purge() {
	c.cache.Purge()
}
