package index

import (
	"maps"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cachedResult struct {
	generation uint64
	result     QueryResult
}

// queryCache remembers recent query results for one index generation.
// Any index mutation bumps the generation, which turns older entries into misses.
type queryCache struct {
	entries *lru.Cache[string, cachedResult]
}

// newQueryCache returns a disabled cache when size is not positive.
func newQueryCache(size int) (*queryCache, error) {
	if size <= 0 {
		return &queryCache{}, nil
	}
	entries, err := lru.New[string, cachedResult](size)
	if err != nil {
		return nil, err
	}
	return &queryCache{entries: entries}, nil
}

func (c *queryCache) get(token string, generation uint64) (QueryResult, bool) {
	if c.entries == nil {
		return QueryResult{}, false
	}
	cached, ok := c.entries.Get(token)
	if !ok {
		return QueryResult{}, false
	}
	if cached.generation != generation {
		c.entries.Remove(token)
		return QueryResult{}, false
	}
	return cached.result.clone(), true
}

func (c *queryCache) put(token string, generation uint64, result QueryResult) {
	if c.entries == nil {
		return
	}
	c.entries.Add(token, cachedResult{generation: generation, result: result.clone()})
}

func (c *queryCache) purge() {
	if c.entries != nil {
		c.entries.Purge()
	}
}

func (r QueryResult) clone() QueryResult {
	r.Occurrences = maps.Clone(r.Occurrences)
	return r
}
