package service

import (
	"context"
	"sync"

	"github.com/jbdelacruz/barangay-portal/internal/application/port"
)

// StatsCache caches per-status request counts for the dashboard. Any
// successful transition invalidates it; the next read repopulates from the
// repository.
type StatsCache struct {
	mu       sync.Mutex
	counts   map[string]int
	valid    bool
	requests port.RequestRepository
}

// NewStatsCache creates a new stats cache backed by the request repository
func NewStatsCache(requests port.RequestRepository) *StatsCache {
	return &StatsCache{requests: requests}
}

// Get returns the per-status counts, loading them on a cache miss
func (c *StatsCache) Get(ctx context.Context) (map[string]int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.valid {
		return copyCounts(c.counts), nil
	}

	counts, err := c.requests.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	c.counts = counts
	c.valid = true
	return copyCounts(counts), nil
}

// Invalidate drops the cached counts
func (c *StatsCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
	c.counts = nil
}

func copyCounts(src map[string]int) map[string]int {
	dst := make(map[string]int, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
