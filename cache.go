package variant

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of assigners kept by a Cache created with
// non-positive size.
const DefaultCacheSize = 128

// Cache is a bounded cache of assigners keyed by their configuration. Least
// recently used assigners are evicted first.
//
// Cache is purely an optimization: assigners returned by Cache assign
// identifiers exactly as ones built by New for the same config.
// It is goroutine safe.
type Cache struct {
	lru *lru.Cache[string, *Assigner]

	hits   atomic.Uint64
	misses atomic.Uint64
}

// CacheStats holds cache counters.
type CacheStats struct {
	Hits   uint64
	Misses uint64
	Len    int
}

// NewCache returns cache holding at most size assigners. If size is not
// positive, DefaultCacheSize is used.
func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, *Assigner](size)
	if err != nil {
		panic(fmt.Sprintf("variant: internal error: can't create lru: %v", err))
	}
	return &Cache{lru: c}
}

// Get returns assigner for c. It builds and stores a new assigner if there
// is no cached one. Configuration errors are returned as is and never
// cached.
func (c *Cache) Get(cfg Config) (*Assigner, error) {
	key := cacheKey(cfg)
	if a, ok := c.lru.Get(key); ok {
		c.hits.Add(1)
		return a, nil
	}
	c.misses.Add(1)

	a, err := New(cfg)
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, a)

	return a, nil
}

// Stats returns cache counters.
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Len:    c.lru.Len(),
	}
}

// Purge removes all cached assigners.
func (c *Cache) Purge() {
	c.lru.Purge()
}

// cacheKey encodes every field of cfg unambiguously.
func cacheKey(cfg Config) string {
	var sb strings.Builder
	sb.WriteString(strconv.Quote(cfg.Seed))
	sb.WriteByte('|')
	for i, w := range cfg.Weights {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(w, 'g', -1, 64))
	}
	sb.WriteByte('|')
	sb.WriteString(strconv.Itoa(cfg.TableSize))
	sb.WriteByte('|')
	sb.WriteString(strconv.Itoa(int(cfg.Algorithm)))
	sb.WriteByte('|')
	sb.WriteString(strconv.Itoa(int(cfg.Distribution)))
	if p := cfg.MAD; p != nil && cfg.Distribution == MAD {
		fmt.Fprintf(&sb, "|%d,%d,%d", p.A, p.B, p.prime())
	}
	return sb.String()
}
