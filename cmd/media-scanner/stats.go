package main

import (
	"context"
	"time"

	"media-scanner/internal/logging"
	"media-scanner/internal/metrics"
)

// cacheStats is the part of *database.Database the collector reads.
type cacheStats interface {
	Count(ctx context.Context) (int64, error)
	FileSizes() map[string]int64
}

// queueStats is the part of *events.Queue the collector reads.
type queueStats interface {
	Len() int
}

// statsAdapter feeds the metrics collector and the health endpoint.
type statsAdapter struct {
	db    cacheStats
	queue queueStats
}

// GetStats implements metrics.StatsProvider
func (a *statsAdapter) GetStats() metrics.Stats {
	var stats metrics.Stats
	if a.queue != nil {
		stats.QueueDepth = a.queue.Len()
	}
	if a.db != nil {
		stats.CacheEntries = a.CachedEntries()
		stats.DBFileSizes = a.db.FileSizes()
	}
	return stats
}

// CachedEntries implements handlers.CacheCounter
func (a *statsAdapter) CachedEntries() int64 {
	if a.db == nil {
		return 0
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	n, err := a.db.Count(ctx)
	if err != nil {
		logging.Debug("Failed to count scan cache entries: %v", err)
		return 0
	}
	return n
}
