package upbit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/yanun0323/logs"

	"pulsedesk/internal/model/enum"
	"pulsedesk/internal/source"
	"pulsedesk/pkg/backoff"
)

const (
	Name = "upbit"

	defaultURL = "wss://api.upbit.com/websocket/v1"
)

// Adapter owns one Upbit websocket. Upbit's protocol replaces the whole
// subscription list on every request, so a tracked-set change re-sends the
// full list instead of an incremental control message.
type Adapter struct {
	mu         sync.Mutex
	status     enum.ConnectionStatus
	subscribed map[string]struct{}
	conn       *websocket.Conn
	cancel     context.CancelFunc
	gen        uint64

	sink    *source.Sink
	backoff backoff.Backoff
	url     string
}

// New creates an adapter publishing into the given sink. An optional URL
// overrides the production endpoint for tests.
func New(sink *source.Sink, urlOptional ...string) *Adapter {
	u := defaultURL
	if len(urlOptional) > 0 && urlOptional[0] != "" {
		u = urlOptional[0]
	}
	return &Adapter{
		subscribed: make(map[string]struct{}),
		sink:       sink,
		backoff:    backoff.Default(),
		url:        u,
	}
}

func (a *Adapter) Name() string { return Name }

// Status returns the current transport status.
func (a *Adapter) Status() enum.ConnectionStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Connect starts the transport loop. A no-op unless fully disconnected.
func (a *Adapter) Connect(ctx context.Context) {
	a.mu.Lock()
	if a.status != enum.ConnectionDisconnected {
		a.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.gen++
	gen := a.gen
	a.setStatusLocked(enum.ConnectionConnecting)
	a.mu.Unlock()

	go a.run(runCtx, gen)
}

// Disconnect tears the transport down unconditionally and cancels any
// pending reconnect timer.
func (a *Adapter) Disconnect() {
	a.mu.Lock()
	a.setStatusLocked(enum.ConnectionDisconnected)
	conn := a.conn
	a.conn = nil
	cancel := a.cancel
	a.cancel = nil
	a.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if cancel != nil {
		cancel()
	}
}

// Subscribe adds a symbol to the tracked set and re-sends the list while
// live. Already-tracked symbols are no-ops.
func (a *Adapter) Subscribe(symbol string) {
	a.mu.Lock()
	if _, ok := a.subscribed[symbol]; ok {
		a.mu.Unlock()
		return
	}
	a.subscribed[symbol] = struct{}{}
	conn, symbols := a.conn, a.symbolsLocked()
	a.mu.Unlock()

	if conn != nil {
		a.writeSubscription(conn, symbols)
	}
}

// Unsubscribe removes a symbol from the tracked set and re-sends the list
// while live. Untracked symbols are no-ops.
func (a *Adapter) Unsubscribe(symbol string) {
	a.mu.Lock()
	if _, ok := a.subscribed[symbol]; !ok {
		a.mu.Unlock()
		return
	}
	delete(a.subscribed, symbol)
	conn, symbols := a.conn, a.symbolsLocked()
	a.mu.Unlock()

	// an empty list is not a valid request; the stream is cleared on the
	// next reconnect instead
	if conn != nil && len(symbols) > 0 {
		a.writeSubscription(conn, symbols)
	}
}

// run owns one transport generation. A later Connect supersedes it; a
// superseded loop must exit without touching shared status or conn.
func (a *Adapter) run(ctx context.Context, gen uint64) {
	attempt := 0
	for {
		dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
		conn, _, err := dialer.DialContext(ctx, a.url, nil)
		if err != nil {
			a.mu.Lock()
			if a.gen != gen || a.status == enum.ConnectionDisconnected {
				a.mu.Unlock()
				return
			}
			a.setStatusLocked(enum.ConnectionReconnecting)
			a.mu.Unlock()
			attempt++
			logs.Warnf("upbit dial failed (attempt %d): %v", attempt, err)
			if !a.wait(ctx, attempt) {
				return
			}
			continue
		}

		attempt = 0
		a.mu.Lock()
		if a.gen != gen {
			a.mu.Unlock()
			_ = conn.Close()
			return
		}
		a.conn = conn
		a.setStatusLocked(enum.ConnectionConnected)
		symbols := a.symbolsLocked()
		a.mu.Unlock()

		if len(symbols) > 0 {
			a.writeSubscription(conn, symbols)
		}

		a.readLoop(conn)

		a.mu.Lock()
		if a.conn == conn {
			a.conn = nil
		}
		stale := a.gen != gen
		deliberate := a.status == enum.ConnectionDisconnected
		if !stale && !deliberate {
			a.setStatusLocked(enum.ConnectionReconnecting)
		}
		a.mu.Unlock()
		if stale || deliberate {
			return
		}
		attempt++
		if !a.wait(ctx, attempt) {
			return
		}
	}
}

func (a *Adapter) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		record, ok := parseTicker(raw, time.Now())
		if !ok {
			continue
		}
		if err := a.sink.TryPublish(source.Event{Type: source.EventTicker, Ticker: record}); err != nil {
			logs.Warnf("upbit ticker dropped: %v", err)
		}
	}
}

func (a *Adapter) wait(ctx context.Context, attempt int) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(a.backoff.Next(attempt)):
		return true
	}
}

func (a *Adapter) writeSubscription(conn *websocket.Conn, symbols []string) {
	if err := conn.WriteJSON(subscribePayload(uuid.NewString(), symbols)); err != nil {
		logs.Warnf("upbit subscription write failed: %v", err)
	}
}

func (a *Adapter) symbolsLocked() []string {
	out := make([]string, 0, len(a.subscribed))
	for s := range a.subscribed {
		out = append(out, s)
	}
	return out
}

func (a *Adapter) setStatusLocked(s enum.ConnectionStatus) {
	if a.status == s {
		return
	}
	a.status = s
	_ = a.sink.TryPublish(source.Event{Type: source.EventStatus, Source: Name, Status: s})
}
