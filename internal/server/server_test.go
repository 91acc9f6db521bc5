package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulsedesk/internal/assistant"
	"pulsedesk/internal/collect"
	"pulsedesk/internal/model"
	"pulsedesk/internal/model/enum"
	"pulsedesk/internal/obs"
	"pulsedesk/internal/source"
	"pulsedesk/internal/store"
)

type recordingAdapter struct {
	subs []string
}

func (a *recordingAdapter) Name() string                  { return "fake" }
func (a *recordingAdapter) Connect(context.Context)       {}
func (a *recordingAdapter) Disconnect()                   {}
func (a *recordingAdapter) Subscribe(symbol string)       { a.subs = append(a.subs, symbol) }
func (a *recordingAdapter) Unsubscribe(string)            {}
func (a *recordingAdapter) Status() enum.ConnectionStatus { return enum.ConnectionConnected }

// echoTransport replies with fixed text, no tool calls.
type echoTransport struct {
	reply string
}

func (t *echoTransport) Configured() bool { return true }

func (t *echoTransport) Stream(context.Context, assistant.Request) (<-chan assistant.StreamEvent, func(), error) {
	ch := make(chan assistant.StreamEvent, 2)
	ch <- assistant.StreamEvent{Type: assistant.StreamTextDelta, Text: t.reply}
	ch <- assistant.StreamEvent{Type: assistant.StreamEnd}
	close(ch)
	return ch, func() {}, nil
}

func newTestServer() (*Server, *store.Realtime, *store.Canvas, *recordingAdapter) {
	adapter := &recordingAdapter{}
	manager := source.NewManager(nil)
	manager.Register(adapter)
	realtime := store.NewRealtime(manager)
	canvas := store.NewCanvas()
	investigation := store.NewInvestigation(realtime, canvas)
	feed := store.NewFeed()
	chat := assistant.New(&echoTransport{reply: "hello"}, assistant.NewExecutor(canvas, noSearch{}), "test-model")
	return New("127.0.0.1:0", realtime, canvas, investigation, feed, chat), realtime, canvas, adapter
}

type noSearch struct{}

func (noSearch) Search(context.Context, string) string { return "no results" }

func TestHealthEndpoint(t *testing.T) {
	s, realtime, _, _ := newTestServer()
	realtime.SetConnectionStatus(enum.ConnectionConnected)

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"connected"`)
}

func TestTickersSnapshot(t *testing.T) {
	s, realtime, _, _ := newTestServer()
	realtime.Apply(model.TickerRecord{Symbol: "BTC", Price: 50000})

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/tickers", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Tickers []model.TickerRecord `json:"tickers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Tickers, 1)
	assert.Equal(t, "BTC", body.Tickers[0].Symbol)
}

func TestCanvasSnapshotFiltersDanglingEdges(t *testing.T) {
	s, _, canvas, _ := newTestServer()
	a := canvas.AddCard(model.Card{Title: "a"})
	b := canvas.AddCard(model.Card{Title: "b"})
	canvas.AddEdge(a, b, enum.EdgeStrong)
	canvas.AddEdge(a, "ghost", enum.EdgeWeak)

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/canvas", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Edges []model.Edge `json:"edges"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Edges, 1)
}

func TestSubscribeDelegatesToManager(t *testing.T) {
	s, _, _, adapter := newTestServer()

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/subscribe/BTC", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"BTC"}, adapter.subs)
}

func TestInvestigationOpenAndState(t *testing.T) {
	s, _, canvas, _ := newTestServer()
	id := canvas.AddCard(model.Card{Title: "BTC", Symbol: "BTC"})

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/investigation/open/"+id, nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/investigation", nil))
	var body struct {
		Open   bool          `json:"open"`
		Panels []model.Panel `json:"panels"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Open)
	assert.Len(t, body.Panels, 6)
}

func TestInvestigationOpenUnknownCard(t *testing.T) {
	s, _, _, _ := newTestServer()

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/investigation/open/ghost", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChatEndpoint(t *testing.T) {
	s, _, _, _ := newTestServer()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	s.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "hello")
}

func TestChatMissingMessage(t *testing.T) {
	s, _, _, _ := newTestServer()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	s.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type fixedSentiment struct {
	latest *collect.Sentiment
}

func (f fixedSentiment) Latest() *collect.Sentiment { return f.latest }

func TestSentimentEndpoint(t *testing.T) {
	s, _, _, _ := newTestServer()

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sentiment", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	s.SetSentiment(fixedSentiment{latest: &collect.Sentiment{Value: 72, Classification: "Greed"}})
	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sentiment", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"Greed"`)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _, _, _ := newTestServer()
	m := obs.NewMetrics()
	m.ObserveTicker("binance", 12)
	s.SetMetrics(m)

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var snap obs.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, uint64(1), snap.TickerCounts["binance"])
}

func TestWebsocketReceivesTickerPush(t *testing.T) {
	s, realtime, _, _ := newTestServer()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.hub.Run(ctx)
	go s.relayTickers(ctx)

	srv := httptest.NewServer(s.engine)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// registration races the broadcast; retry until the frame lands
	deadline := time.Now().Add(3 * time.Second)
	_ = conn.SetReadDeadline(deadline)
	received := make(chan []byte, 1)
	go func() {
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				return
			}
			received <- frame
			return
		}
	}()

	var frame []byte
	for frame == nil && time.Now().Before(deadline) {
		realtime.Apply(model.TickerRecord{Symbol: "ETH", Price: 3000})
		select {
		case frame = <-received:
		case <-time.After(50 * time.Millisecond):
		}
	}
	require.NotNil(t, frame, "no ticker frame received")

	var parsed tickerFrame
	require.NoError(t, json.Unmarshal(frame, &parsed))
	assert.Equal(t, "ticker", parsed.Type)
	assert.Equal(t, "ETH", parsed.Ticker.Symbol)
}
