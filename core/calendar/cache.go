package calendar

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tmwangi/chuo/core"
)

type (
	// occurrenceCache memoizes resolved occurrences per pattern. Resolution
	// is deterministic for a (patternID, rangeStart, rangeEnd) tuple, so an
	// entry stays valid until the pattern or one of its exceptions changes;
	// every mutation path must call invalidate.
	occurrenceCache struct {
		cache *lru.Cache[string, *occurrenceCacheEntry]
	}

	occurrenceCacheEntry struct {
		occurrences []Occurrence
		rangeStart  core.Date
		rangeEnd    core.Date
	}
)

// newOccurrenceCache returns nil when size <= 0; all methods are nil-safe,
// so a disabled cache just means every lookup misses.
func newOccurrenceCache(size int) (*occurrenceCache, error) {
	if size <= 0 {
		return nil, nil
	}
	cache, err := lru.New[string, *occurrenceCacheEntry](size)
	if err != nil {
		return nil, err
	}
	return &occurrenceCache{cache: cache}, nil
}

func (c *occurrenceCache) get(patternID string, rangeStart, rangeEnd core.Date) ([]Occurrence, bool) {
	if c == nil {
		return nil, false
	}
	entry, ok := c.cache.Get(patternID)
	if !ok || !entry.rangeStart.Equal(rangeStart.Time) || !entry.rangeEnd.Equal(rangeEnd.Time) {
		return nil, false
	}
	return entry.occurrences, true
}

func (c *occurrenceCache) put(patternID string, rangeStart, rangeEnd core.Date, occs []Occurrence) {
	if c == nil {
		return
	}
	c.cache.Add(patternID, &occurrenceCacheEntry{
		occurrences: occs,
		rangeStart:  rangeStart,
		rangeEnd:    rangeEnd,
	})
}

func (c *occurrenceCache) invalidate(patternID string) {
	if c == nil {
		return
	}
	c.cache.Remove(patternID)
}
