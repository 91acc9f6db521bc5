package source

import (
	"context"
	"sync"

	"github.com/yanun0323/logs"

	"pulsedesk/internal/model/enum"
	"pulsedesk/internal/obs"
	"pulsedesk/pkg/exception"
)

// RoutePolicy picks the adapter that carries a symbol's underlying
// subscription. Adapters are given in registration order.
type RoutePolicy func(adapters []Adapter, symbol string) Adapter

// FirstRegistered routes every symbol to the first registered adapter.
func FirstRegistered(adapters []Adapter, _ string) Adapter {
	if len(adapters) == 0 {
		return nil
	}
	return adapters[0]
}

// Manager multiplexes symbol subscriptions across registered adapters via
// reference counting and fans adapter events out to watchers. It owns the
// only reference-count table in the process.
type Manager struct {
	mu       sync.Mutex
	adapters []Adapter
	refs     map[string]int
	routes   map[string]Adapter
	policy   RoutePolicy
	sink     *Sink
	metrics  *obs.Metrics

	watchMu  sync.Mutex
	watchers map[uint64]chan Event
	watchSeq uint64
}

// NewManager creates a manager with the given route policy.
// A nil policy falls back to FirstRegistered.
func NewManager(policy RoutePolicy) *Manager {
	if policy == nil {
		policy = FirstRegistered
	}
	return &Manager{
		refs:     make(map[string]int),
		routes:   make(map[string]Adapter),
		policy:   policy,
		sink:     NewSink(1024),
		watchers: make(map[uint64]chan Event),
	}
}

// Sink returns the event sink adapters publish into.
func (m *Manager) Sink() *Sink {
	return m.sink
}

// SetMetrics attaches pipeline instrumentation. A nil metrics is fine; all
// observation calls are nil-safe.
func (m *Manager) SetMetrics(metrics *obs.Metrics) {
	m.metrics = metrics
}

// Register appends an adapter. Registration is append-only; duplicate
// detection is the caller's responsibility.
func (m *Manager) Register(a Adapter) {
	m.mu.Lock()
	m.adapters = append(m.adapters, a)
	m.mu.Unlock()
	logs.Infof("source registered: %s", a.Name())
}

// ConnectAll fans out to every registered adapter.
func (m *Manager) ConnectAll(ctx context.Context) {
	for _, a := range m.snapshot() {
		a.Connect(ctx)
	}
}

// DisconnectAll fans out to every registered adapter.
func (m *Manager) DisconnectAll() {
	for _, a := range m.snapshot() {
		a.Disconnect()
	}
}

// Subscribe increments the symbol's reference count. Only the 0 to 1
// transition reaches an adapter.
func (m *Manager) Subscribe(symbol string) {
	m.mu.Lock()
	m.refs[symbol]++
	first := m.refs[symbol] == 1
	var routed Adapter
	if first {
		routed = m.policy(m.adapters, symbol)
		if routed != nil {
			m.routes[symbol] = routed
		}
	}
	m.mu.Unlock()

	if !first {
		return
	}
	if routed == nil {
		logs.Warnf("%v: cannot route symbol %s", exception.ErrNoAdapterRegistered, symbol)
		return
	}
	routed.Subscribe(symbol)
}

// Unsubscribe decrements the symbol's reference count. Only the transition
// to 0 reaches an adapter; an unmatched unsubscribe is a no-op.
func (m *Manager) Unsubscribe(symbol string) {
	m.mu.Lock()
	count, ok := m.refs[symbol]
	if !ok {
		m.mu.Unlock()
		return
	}
	if count > 1 {
		m.refs[symbol] = count - 1
		m.mu.Unlock()
		return
	}
	delete(m.refs, symbol)
	routed := m.routes[symbol]
	delete(m.routes, symbol)
	m.mu.Unlock()

	if routed != nil {
		routed.Unsubscribe(symbol)
	}
}

// OverallStatus reduces all adapter statuses with the precedence
// connected > reconnecting > connecting > disconnected.
func (m *Manager) OverallStatus() enum.ConnectionStatus {
	overall := enum.ConnectionDisconnected
	for _, a := range m.snapshot() {
		switch a.Status() {
		case enum.ConnectionConnected:
			return enum.ConnectionConnected
		case enum.ConnectionReconnecting:
			overall = enum.ConnectionReconnecting
		case enum.ConnectionConnecting:
			if overall != enum.ConnectionReconnecting {
				overall = enum.ConnectionConnecting
			}
		}
	}
	return overall
}

// Watch attaches a listener. The returned cancel detaches it; events are
// dropped rather than block a slow listener.
func (m *Manager) Watch() (<-chan Event, func()) {
	ch := make(chan Event, 256)
	m.watchMu.Lock()
	m.watchSeq++
	id := m.watchSeq
	m.watchers[id] = ch
	m.watchMu.Unlock()

	cancel := func() {
		m.watchMu.Lock()
		if _, ok := m.watchers[id]; ok {
			delete(m.watchers, id)
			close(ch)
		}
		m.watchMu.Unlock()
	}
	return ch, cancel
}

// Run drains the sink, stamps status events with the aggregate, and fans
// everything out to watchers. Blocks until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	m.sink.Run(ctx, func(e Event) {
		switch e.Type {
		case EventTicker:
			m.metrics.ObserveTicker(e.Ticker.Source, e.Ticker.LatencyMs)
		case EventStatus:
			e.Aggregate = m.OverallStatus()
			m.metrics.IncStatusChange()
			logs.Debugf("source %s status %s (aggregate %s)", e.Source, e.Status, e.Aggregate)
		}
		m.watchMu.Lock()
		for _, ch := range m.watchers {
			select {
			case ch <- e:
			default:
				m.metrics.IncWatcherDrop()
			}
		}
		m.watchMu.Unlock()
	})
}

func (m *Manager) snapshot() []Adapter {
	m.mu.Lock()
	out := make([]Adapter, len(m.adapters))
	copy(out, m.adapters)
	m.mu.Unlock()
	return out
}

func (m *Manager) refCount(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refs[symbol]
}
