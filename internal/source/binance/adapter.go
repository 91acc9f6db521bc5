package binance

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yanun0323/logs"

	"pulsedesk/internal/model/enum"
	"pulsedesk/internal/source"
	"pulsedesk/pkg/backoff"
)

const (
	Name = "binance"

	defaultURL = "wss://stream.binance.com:9443/ws"
)

// Adapter owns one Binance websocket and translates 24hrTicker frames into
// canonical records published to the manager's sink.
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
	reqID   atomic.Int64
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

// Connect starts the transport loop. A no-op while already connected or
// connecting.
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

// Disconnect tears the transport down unconditionally. The disconnected
// status suppresses the reconnect loop and cancels any pending retry timer.
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

// Subscribe adds a symbol to the tracked set. Already-tracked symbols are
// no-ops; a wire subscribe is only sent while the transport is live.
func (a *Adapter) Subscribe(symbol string) {
	a.mu.Lock()
	if _, ok := a.subscribed[symbol]; ok {
		a.mu.Unlock()
		return
	}
	a.subscribed[symbol] = struct{}{}
	conn := a.conn
	a.mu.Unlock()

	if conn != nil {
		a.writeControl(conn, "SUBSCRIBE", []string{streamName(symbol)})
	}
}

// Unsubscribe removes a symbol from the tracked set. Untracked symbols are
// no-ops; a wire unsubscribe is only sent while the transport is live.
func (a *Adapter) Unsubscribe(symbol string) {
	a.mu.Lock()
	if _, ok := a.subscribed[symbol]; !ok {
		a.mu.Unlock()
		return
	}
	delete(a.subscribed, symbol)
	conn := a.conn
	a.mu.Unlock()

	if conn != nil {
		a.writeControl(conn, "UNSUBSCRIBE", []string{streamName(symbol)})
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
			logs.Warnf("binance dial failed (attempt %d): %v", attempt, err)
			if !a.wait(ctx, attempt) {
				return
			}
			continue
		}

		// successful open resets the backoff schedule
		attempt = 0
		a.mu.Lock()
		if a.gen != gen {
			a.mu.Unlock()
			_ = conn.Close()
			return
		}
		a.conn = conn
		a.setStatusLocked(enum.ConnectionConnected)
		symbols := make([]string, 0, len(a.subscribed))
		for s := range a.subscribed {
			symbols = append(symbols, s)
		}
		a.mu.Unlock()

		// the transport does not remember subscriptions across connections;
		// re-send everything as one batch
		if len(symbols) > 0 {
			params := make([]string, 0, len(symbols))
			for _, s := range symbols {
				params = append(params, streamName(s))
			}
			a.writeControl(conn, "SUBSCRIBE", params)
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

// readLoop consumes frames until the connection closes. Unrecognized and
// malformed frames are dropped; read errors only end the loop, the close
// handling in run schedules the reconnect.
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
			logs.Warnf("binance ticker dropped: %v", err)
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

func (a *Adapter) writeControl(conn *websocket.Conn, method string, params []string) {
	req := subscribeRequest{
		Method: method,
		Params: params,
		ID:     a.reqID.Add(1),
	}
	// write errors do not schedule a reconnect; only the close event does
	if err := conn.WriteJSON(req); err != nil {
		logs.Warnf("binance %s write failed: %v", method, err)
	}
}

func (a *Adapter) setStatusLocked(s enum.ConnectionStatus) {
	if a.status == s {
		return
	}
	a.status = s
	_ = a.sink.TryPublish(source.Event{Type: source.EventStatus, Source: Name, Status: s})
}
