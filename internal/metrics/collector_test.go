package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type mockStatsProvider struct {
	mu    sync.Mutex
	stats Stats
	calls int
}

func (m *mockStatsProvider) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.stats
}

func (m *mockStatsProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestCollectUpdatesGauges(t *testing.T) {
	provider := &mockStatsProvider{stats: Stats{
		CacheEntries: 1234,
		QueueDepth:   7,
		DBFileSizes:  map[string]int64{"main": 4096, "wal": 1024},
	}}

	c := NewCollector(provider, time.Hour)
	c.collect()

	if got := testutil.ToFloat64(CacheEntries); got != 1234 {
		t.Errorf("CacheEntries = %v, want 1234", got)
	}
	if got := testutil.ToFloat64(EventQueueDepth); got != 7 {
		t.Errorf("EventQueueDepth = %v, want 7", got)
	}
	if got := testutil.ToFloat64(DBSizeBytes.WithLabelValues("main")); got != 4096 {
		t.Errorf("DBSizeBytes{main} = %v, want 4096", got)
	}
	if got := testutil.ToFloat64(DBSizeBytes.WithLabelValues("wal")); got != 1024 {
		t.Errorf("DBSizeBytes{wal} = %v, want 1024", got)
	}
}

func TestCollectWithNilProvider(_ *testing.T) {
	c := NewCollector(nil, time.Hour)
	// Must not panic
	c.collect()
}

func TestCollectorStartStop(t *testing.T) {
	provider := &mockStatsProvider{}
	c := NewCollector(provider, 5*time.Millisecond)

	c.Start()
	deadline := time.Now().Add(time.Second)
	for provider.callCount() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	c.Stop()

	n := provider.callCount()
	if n < 3 {
		t.Fatalf("collector ran %d times, want at least 3", n)
	}

	time.Sleep(20 * time.Millisecond)
	if provider.callCount() != n {
		t.Error("collector kept running after Stop")
	}
}

func TestCollectorImmediateCollection(t *testing.T) {
	provider := &mockStatsProvider{}
	c := NewCollector(provider, time.Hour)

	c.Start()
	deadline := time.Now().Add(time.Second)
	for provider.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	c.Stop()

	if provider.callCount() != 1 {
		t.Errorf("collector ran %d times before the first tick, want 1", provider.callCount())
	}
}

func TestFilesystemObserver(t *testing.T) {
	obs := NewFilesystemObserver()

	errsBefore := testutil.ToFloat64(FilesystemOperationErrors.WithLabelValues("photos", "open"))
	obs.ObserveOperation("photos", "open", 0.01, errors.New("boom"))
	obs.ObserveOperation("photos", "open", 0.01, nil)
	if got := testutil.ToFloat64(FilesystemOperationErrors.WithLabelValues("photos", "open")) - errsBefore; got != 1 {
		t.Errorf("operation errors grew by %v, want 1", got)
	}

	staleBefore := testutil.ToFloat64(FilesystemStaleErrors.WithLabelValues("stat", "photos"))
	obs.ObserveStaleError("stat", "photos")
	obs.ObserveRetryAttempt("stat", "photos")
	obs.ObserveRetrySuccess("stat", "photos")
	obs.ObserveRetryFailure("stat", "photos")
	obs.ObserveRetryDuration("stat", "photos", 0.2)
	if got := testutil.ToFloat64(FilesystemStaleErrors.WithLabelValues("stat", "photos")) - staleBefore; got != 1 {
		t.Errorf("stale errors grew by %v, want 1", got)
	}
}
