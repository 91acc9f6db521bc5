package store

import (
	"context"
	"sync"

	"pulsedesk/internal/model"
	"pulsedesk/internal/model/enum"
	"pulsedesk/internal/source"
)

// Realtime is the process-wide table of latest ticker values plus the
// aggregate connection status. The only writer path is adapter events
// consumed through the source manager; UI readers take snapshots or watch.
type Realtime struct {
	mu      sync.RWMutex
	tickers map[string]model.TickerRecord
	status  enum.ConnectionStatus

	manager *source.Manager

	watchMu  sync.Mutex
	watchers map[uint64]chan model.TickerRecord
	watchSeq uint64
}

// NewRealtime creates a store delegating subscriptions to the manager.
func NewRealtime(manager *source.Manager) *Realtime {
	return &Realtime{
		tickers:  make(map[string]model.TickerRecord),
		manager:  manager,
		watchers: make(map[uint64]chan model.TickerRecord),
	}
}

// Apply stores a record, deriving PrevPrice from the record it replaces.
// This is the only place PrevPrice is computed; adapters emit it as zero.
// First observation of a symbol keeps PrevPrice equal to Price so there is
// no flash effect on arrival.
func (r *Realtime) Apply(record model.TickerRecord) {
	r.mu.Lock()
	if existing, ok := r.tickers[record.Symbol]; ok {
		record.PrevPrice = existing.Price
	} else {
		record.PrevPrice = record.Price
	}
	r.tickers[record.Symbol] = record
	r.mu.Unlock()

	r.watchMu.Lock()
	for _, ch := range r.watchers {
		select {
		case ch <- record:
		default:
		}
	}
	r.watchMu.Unlock()
}

// SetConnectionStatus stores the already-aggregated status. No re-reduction
// happens here.
func (r *Realtime) SetConnectionStatus(s enum.ConnectionStatus) {
	r.mu.Lock()
	r.status = s
	r.mu.Unlock()
}

// ConnectionStatus returns the aggregate status.
func (r *Realtime) ConnectionStatus() enum.ConnectionStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Ticker returns the latest record for a symbol.
func (r *Realtime) Ticker(symbol string) (model.TickerRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.tickers[symbol]
	return record, ok
}

// Tickers returns a snapshot of every stored record. Stale records persist
// after unsubscribe; there is no eviction.
func (r *Realtime) Tickers() []model.TickerRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.TickerRecord, 0, len(r.tickers))
	for _, record := range r.tickers {
		out = append(out, record)
	}
	return out
}

// Subscribe passes through to the manager; the store holds no reference
// counts of its own.
func (r *Realtime) Subscribe(symbol string) {
	r.manager.Subscribe(symbol)
}

// Unsubscribe passes through to the manager.
func (r *Realtime) Unsubscribe(symbol string) {
	r.manager.Unsubscribe(symbol)
}

// Watch attaches a ticker listener. Updates to any symbol are delivered;
// slow listeners drop rather than block the writer.
func (r *Realtime) Watch() (<-chan model.TickerRecord, func()) {
	ch := make(chan model.TickerRecord, 256)
	r.watchMu.Lock()
	r.watchSeq++
	id := r.watchSeq
	r.watchers[id] = ch
	r.watchMu.Unlock()

	cancel := func() {
		r.watchMu.Lock()
		if _, ok := r.watchers[id]; ok {
			delete(r.watchers, id)
			close(ch)
		}
		r.watchMu.Unlock()
	}
	return ch, cancel
}

// Run attaches to the manager's event stream and applies events until ctx is
// done. The watcher is detached on the way out.
func (r *Realtime) Run(ctx context.Context) {
	events, cancel := r.manager.Watch()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			switch e.Type {
			case source.EventTicker:
				r.Apply(e.Ticker)
			case source.EventStatus:
				r.SetConnectionStatus(e.Aggregate)
			}
		}
	}
}
