package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yanun0323/logs"

	"pulsedesk/internal/assistant"
	"pulsedesk/internal/collect"
	"pulsedesk/internal/model"
	"pulsedesk/internal/obs"
	"pulsedesk/internal/store"
	"pulsedesk/pkg/exception"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Server exposes the desk state over HTTP and pushes realtime ticker
// updates to websocket clients through the hub.
type Server struct {
	addr          string
	engine        *gin.Engine
	hub           *Hub
	realtime      *store.Realtime
	canvas        *store.Canvas
	investigation *store.Investigation
	feed          *store.Feed
	chat          *assistant.Assistant
	metrics       *obs.Metrics
	derivatives   DerivativesFetcher
	sentiment     SentimentReader
}

// DerivativesFetcher serves on-demand futures data for a symbol.
type DerivativesFetcher interface {
	collect.FundingRateFetcher
	collect.OpenInterestFetcher
}

// SentimentReader exposes the latest polled fear/greed reading.
type SentimentReader interface {
	Latest() *collect.Sentiment
}

func New(addr string, realtime *store.Realtime, canvas *store.Canvas, investigation *store.Investigation, feed *store.Feed, chat *assistant.Assistant) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		addr:          addr,
		engine:        gin.New(),
		hub:           NewHub(),
		realtime:      realtime,
		canvas:        canvas,
		investigation: investigation,
		feed:          feed,
		chat:          chat,
	}
	s.engine.Use(gin.Recovery())
	s.routes()
	return s
}

// SetMetrics attaches pipeline instrumentation; nil disables it.
func (s *Server) SetMetrics(m *obs.Metrics) {
	s.metrics = m
}

// SetDerivatives attaches the futures fetcher backing /api/derivatives.
func (s *Server) SetDerivatives(d DerivativesFetcher) {
	s.derivatives = d
}

// SetSentiment attaches the fear/greed reader backing /api/sentiment.
func (s *Server) SetSentiment(r SentimentReader) {
	s.sentiment = r
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.health)
	s.engine.GET("/ws", s.websocket)

	api := s.engine.Group("/api")
	api.GET("/tickers", s.tickers)
	api.GET("/metrics", s.metricsSnapshot)
	api.GET("/derivatives/:symbol", s.derivativesSnapshot)
	api.GET("/sentiment", s.sentimentSnapshot)
	api.GET("/canvas", s.canvasSnapshot)
	api.GET("/feed", s.feedItems)
	api.POST("/subscribe/:symbol", s.subscribe)
	api.POST("/unsubscribe/:symbol", s.unsubscribe)

	api.GET("/investigation", s.investigationState)
	api.POST("/investigation/open/:id", s.investigationOpen)
	api.POST("/investigation/close", s.investigationClose)
	api.POST("/investigation/panels/:id/maximize", s.panelMaximize)
	api.POST("/investigation/panels/:id/fold", s.panelFold)

	api.POST("/chat", s.chatTurn)
}

// Run serves until ctx is done, then shuts down gracefully. The hub and the
// ticker relay share the same lifetime.
func (s *Server) Run(ctx context.Context) error {
	go s.hub.Run(ctx)
	go s.relayTickers(ctx)

	srv := &http.Server{Addr: s.addr, Handler: s.engine}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logs.Infof("http server listening on %s", s.addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// relayTickers forwards every realtime store change to the hub as JSON.
func (s *Server) relayTickers(ctx context.Context) {
	updates, cancel := s.realtime.Watch()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case record, ok := <-updates:
			if !ok {
				return
			}
			frame, err := json.Marshal(tickerFrame{Type: "ticker", Ticker: record})
			if err != nil {
				continue
			}
			s.hub.Broadcast(frame)
		}
	}
}

type tickerFrame struct {
	Type   string             `json:"type"`
	Ticker model.TickerRecord `json:"ticker"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"connection": s.realtime.ConnectionStatus().String(),
	})
}

func (s *Server) derivativesSnapshot(c *gin.Context) {
	if s.derivatives == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no derivatives source configured"})
		return
	}
	symbol := c.Param("symbol")
	ctx := c.Request.Context()

	funding, err := s.derivatives.FetchFundingRate(ctx, symbol)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	openInterest, err := s.derivatives.FetchOpenInterest(ctx, symbol)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol":       symbol,
		"fundingRate":  funding,
		"openInterest": openInterest,
	})
}

func (s *Server) sentimentSnapshot(c *gin.Context) {
	if s.sentiment == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no sentiment source configured"})
		return
	}
	latest := s.sentiment.Latest()
	if latest == nil {
		c.JSON(http.StatusOK, gin.H{"sentiment": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sentiment": gin.H{
		"value":          latest.Value,
		"classification": latest.Classification,
		"timestamp":      latest.Timestamp,
	}})
}

func (s *Server) metricsSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, s.metrics.Snapshot())
}

func (s *Server) tickers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tickers": s.realtime.Tickers()})
}

func (s *Server) canvasSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"items":    s.canvas.Items(),
		"edges":    s.canvas.LiveEdges(),
		"viewport": s.canvas.Viewport(),
	})
}

func (s *Server) feedItems(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": s.feed.Items()})
}

func (s *Server) subscribe(c *gin.Context) {
	symbol := c.Param("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing symbol"})
		return
	}
	s.realtime.Subscribe(symbol)
	c.JSON(http.StatusOK, gin.H{"subscribed": symbol})
}

func (s *Server) unsubscribe(c *gin.Context) {
	symbol := c.Param("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing symbol"})
		return
	}
	s.realtime.Unsubscribe(symbol)
	c.JSON(http.StatusOK, gin.H{"unsubscribed": symbol})
}

func (s *Server) investigationState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"open":   s.investigation.IsOpen(),
		"panels": s.investigation.Panels(),
	})
}

func (s *Server) investigationOpen(c *gin.Context) {
	item, ok := s.canvas.Item(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": exception.ErrItemNotFound.Error()})
		return
	}
	card, ok := item.(model.Card)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": exception.ErrNotACard.Error()})
		return
	}
	s.investigation.Open(card)
	c.JSON(http.StatusOK, gin.H{"panels": s.investigation.Panels()})
}

func (s *Server) investigationClose(c *gin.Context) {
	s.investigation.Close()
	c.Status(http.StatusNoContent)
}

func (s *Server) panelMaximize(c *gin.Context) {
	s.investigation.ToggleMaximize(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"panels": s.investigation.Panels()})
}

func (s *Server) panelFold(c *gin.Context) {
	s.investigation.ToggleFold(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"panels": s.investigation.Panels()})
}

func (s *Server) chatTurn(c *gin.Context) {
	var body struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing message"})
		return
	}

	start := time.Now()
	reply, err := s.chat.Send(c.Request.Context(), body.Message, nil)
	s.metrics.ObserveChatTurn(time.Since(start))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"reply": reply})
	case errors.Is(err, exception.ErrMissingAPIKey):
		c.JSON(http.StatusPreconditionFailed, gin.H{"error": err.Error()})
	case errors.Is(err, exception.ErrTurnInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		// the failed turn is already recorded as assistant content
		c.JSON(http.StatusOK, gin.H{"reply": reply, "failed": true})
	}
}

func (s *Server) websocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logs.Warnf("websocket upgrade failed: %v", err)
		return
	}
	s.hub.attach(conn)
}
