package app

import (
	"sync/atomic"

	"github.com/zeebo/xxh3"

	"github.com/getAsterisk/stackwalk/internal/engine/extract"
	"github.com/getAsterisk/stackwalk/internal/shared/util"
)

type cacheEntry struct {
	hash   uint64
	result *extract.FileResult
}

// resultCache keeps extraction results keyed by root-relative path and
// validated by a content hash, so unchanged files skip parsing on the next
// run of the same Indexer.
// A stale hash counts as a miss.
type resultCache struct {
	lru    *util.LRU[string, cacheEntry]
	hits   atomic.Uint64
	misses atomic.Uint64
}

func newResultCache(capacity int) *resultCache {
	if capacity <= 0 {
		return nil
	}
	return &resultCache{lru: util.NewLRU[string, cacheEntry](capacity)}
}

func contentHash(src []byte) uint64 {
	return xxh3.Hash(src)
}

func (c *resultCache) get(path string, hash uint64) (*extract.FileResult, bool) {
	if c == nil {
		return nil, false
	}
	entry, ok := c.lru.Get(path)
	if !ok || entry.hash != hash {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return entry.result, true
}

func (c *resultCache) put(path string, hash uint64, fr *extract.FileResult) {
	if c == nil {
		return
	}
	c.lru.Add(path, cacheEntry{hash: hash, result: fr})
}

func (c *resultCache) stats() (hits, misses uint64) {
	if c == nil {
		return 0, 0
	}
	return c.hits.Load(), c.misses.Load()
}
