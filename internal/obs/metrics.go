package obs

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects lightweight counters and latency stats for the realtime
// pipeline. All methods are nil-safe so instrumentation can be left out.
type Metrics struct {
	mu           sync.RWMutex
	tickerCounts map[string]uint64

	statusChanges uint64
	watcherDrops  uint64

	feedLatency LatencyStats
	chatLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64        `json:"count"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Avg   time.Duration `json:"avg"`
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	TickerCounts  map[string]uint64 `json:"tickerCounts"`
	StatusChanges uint64            `json:"statusChanges"`
	WatcherDrops  uint64            `json:"watcherDrops"`
	FeedLatency   LatencySnapshot   `json:"feedLatency"`
	ChatLatency   LatencySnapshot   `json:"chatLatency"`
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{tickerCounts: make(map[string]uint64)}
}

// ObserveTicker counts one ticker event per source and tracks feed latency.
// Negative latency (clock skew) is counted but not sampled.
func (m *Metrics) ObserveTicker(source string, latencyMs int64) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.tickerCounts[source]++
	m.mu.Unlock()
	if latencyMs >= 0 {
		m.feedLatency.Observe(time.Duration(latencyMs) * time.Millisecond)
	}
}

// IncStatusChange records one adapter status transition.
func (m *Metrics) IncStatusChange() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.statusChanges, 1)
}

// IncWatcherDrop records an event dropped on a slow watcher.
func (m *Metrics) IncWatcherDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.watcherDrops, 1)
}

// ObserveChatTurn measures one full assistant turn.
func (m *Metrics) ObserveChatTurn(d time.Duration) {
	if m == nil {
		return
	}
	m.chatLatency.Observe(d)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	counts := make(map[string]uint64)
	m.mu.RLock()
	for source, v := range m.tickerCounts {
		counts[source] = v
	}
	m.mu.RUnlock()
	return Snapshot{
		TickerCounts:  counts,
		StatusChanges: atomic.LoadUint64(&m.statusChanges),
		WatcherDrops:  atomic.LoadUint64(&m.watcherDrops),
		FeedLatency:   m.feedLatency.Snapshot(),
		ChatLatency:   m.chatLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	min := atomic.LoadUint64(&l.min)
	max := atomic.LoadUint64(&l.max)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(max),
		Avg:   time.Duration(sum / count),
	}
}
