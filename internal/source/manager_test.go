package source

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulsedesk/internal/model"
	"pulsedesk/internal/model/enum"
	"pulsedesk/internal/obs"
)

type fakeAdapter struct {
	mu           sync.Mutex
	name         string
	status       enum.ConnectionStatus
	subscribes   []string
	unsubscribes []string
	connected    int
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Connect(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected++
	f.status = enum.ConnectionConnected
}

func (f *fakeAdapter) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = enum.ConnectionDisconnected
}

func (f *fakeAdapter) Subscribe(symbol string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribes = append(f.subscribes, symbol)
}

func (f *fakeAdapter) Unsubscribe(symbol string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribes = append(f.unsubscribes, symbol)
}

func (f *fakeAdapter) Status() enum.ConnectionStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func TestSubscribeRefCounting(t *testing.T) {
	m := NewManager(nil)
	a := &fakeAdapter{name: "fake"}
	m.Register(a)

	const n = 5
	for i := 0; i < n; i++ {
		m.Subscribe("BTC")
	}
	for i := 0; i < n; i++ {
		m.Unsubscribe("BTC")
	}

	assert.Equal(t, []string{"BTC"}, a.subscribes)
	assert.Equal(t, []string{"BTC"}, a.unsubscribes)
	assert.Zero(t, m.refCount("BTC"))
}

func TestSubscribeTwiceUnsubscribeOnce(t *testing.T) {
	m := NewManager(nil)
	a := &fakeAdapter{name: "fake"}
	m.Register(a)

	m.Subscribe("BTC")
	m.Subscribe("BTC")
	m.Unsubscribe("BTC")

	assert.Equal(t, 1, m.refCount("BTC"))
	assert.Len(t, a.subscribes, 1)
	assert.Empty(t, a.unsubscribes)
}

func TestUnsubscribeWithoutSubscribeIsNoop(t *testing.T) {
	m := NewManager(nil)
	a := &fakeAdapter{name: "fake"}
	m.Register(a)

	m.Unsubscribe("ETH")
	m.Unsubscribe("ETH")

	assert.Zero(t, m.refCount("ETH"))
	assert.Empty(t, a.unsubscribes)
}

func TestSubscribeWithNoAdapterKeepsCount(t *testing.T) {
	m := NewManager(nil)
	m.Subscribe("BTC")
	assert.Equal(t, 1, m.refCount("BTC"))
	m.Unsubscribe("BTC")
	assert.Zero(t, m.refCount("BTC"))
}

func TestOverallStatusPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		statuses []enum.ConnectionStatus
		want     enum.ConnectionStatus
	}{
		{"empty", nil, enum.ConnectionDisconnected},
		{"one connected wins", []enum.ConnectionStatus{enum.ConnectionDisconnected, enum.ConnectionConnected}, enum.ConnectionConnected},
		{"connected beats reconnecting", []enum.ConnectionStatus{enum.ConnectionReconnecting, enum.ConnectionConnected}, enum.ConnectionConnected},
		{"reconnecting beats connecting", []enum.ConnectionStatus{enum.ConnectionConnecting, enum.ConnectionReconnecting}, enum.ConnectionReconnecting},
		{"connecting beats disconnected", []enum.ConnectionStatus{enum.ConnectionDisconnected, enum.ConnectionConnecting}, enum.ConnectionConnecting},
		{"all disconnected", []enum.ConnectionStatus{enum.ConnectionDisconnected, enum.ConnectionDisconnected}, enum.ConnectionDisconnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(nil)
			for _, s := range tt.statuses {
				m.Register(&fakeAdapter{name: "fake", status: s})
			}
			assert.Equal(t, tt.want, m.OverallStatus())
		})
	}
}

func TestRoutePolicyPicksAdapter(t *testing.T) {
	m := NewManager(func(adapters []Adapter, symbol string) Adapter {
		return adapters[len(adapters)-1]
	})
	first := &fakeAdapter{name: "first"}
	last := &fakeAdapter{name: "last"}
	m.Register(first)
	m.Register(last)

	m.Subscribe("BTC")

	assert.Empty(t, first.subscribes)
	assert.Equal(t, []string{"BTC"}, last.subscribes)
}

func TestRunStampsAggregateAndFansOut(t *testing.T) {
	m := NewManager(nil)
	m.Register(&fakeAdapter{name: "fake", status: enum.ConnectionConnected})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	ch, detach := m.Watch()
	defer detach()

	require.NoError(t, m.Sink().TryPublish(Event{
		Type:   EventStatus,
		Source: "fake",
		Status: enum.ConnectionReconnecting,
	}))

	select {
	case e := <-ch:
		assert.Equal(t, EventStatus, e.Type)
		assert.Equal(t, enum.ConnectionReconnecting, e.Status)
		assert.Equal(t, enum.ConnectionConnected, e.Aggregate)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for status event")
	}
}

func TestRunCountsTickersPerSource(t *testing.T) {
	m := NewManager(nil)
	metrics := obs.NewMetrics()
	m.SetMetrics(metrics)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	require.NoError(t, m.Sink().TryPublish(Event{
		Type:   EventTicker,
		Ticker: model.TickerRecord{Source: "binance", Symbol: "BTC", LatencyMs: 12},
	}))
	require.NoError(t, m.Sink().TryPublish(Event{
		Type:   EventTicker,
		Ticker: model.TickerRecord{Source: "upbit", Symbol: "BTC", LatencyMs: 7},
	}))

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		snap := metrics.Snapshot()
		if snap.TickerCounts["binance"] == 1 && snap.TickerCounts["upbit"] == 1 {
			assert.NotContains(t, snap.TickerCounts, "")
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("ticker counts never keyed by source: %v", metrics.Snapshot().TickerCounts)
}

func TestWatchDetachStopsDelivery(t *testing.T) {
	m := NewManager(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	ch, detach := m.Watch()
	detach()
	detach() // second detach is harmless

	require.NoError(t, m.Sink().TryPublish(Event{
		Type:   EventTicker,
		Ticker: model.TickerRecord{Symbol: "BTC", Price: 1},
	}))

	_, open := <-ch
	assert.False(t, open)
}
