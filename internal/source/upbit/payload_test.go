package upbit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTicker(t *testing.T) {
	now := time.UnixMilli(1_700_000_001_000)
	raw := []byte(`{"type":"ticker","code":"KRW-BTC","trade_price":58000000,"signed_change_rate":0.0123,"acc_trade_volume_24h":1500.5,"high_price":59000000,"low_price":57000000,"timestamp":1700000000000}`)

	record, ok := parseTicker(raw, now)
	require.True(t, ok)
	assert.Equal(t, "BTC", record.Symbol)
	assert.Equal(t, 58000000.0, record.Price)
	assert.InDelta(t, 1.23, record.Change24h, 1e-9)
	assert.Equal(t, int64(1000), record.LatencyMs)
	assert.Equal(t, Name, record.Source)
}

func TestParseTickerRejectsNonTicker(t *testing.T) {
	_, ok := parseTicker([]byte(`{"type":"trade","code":"KRW-BTC"}`), time.Now())
	assert.False(t, ok)

	_, ok = parseTicker([]byte(`{"type":"ticker","code":"USDT-BTC"}`), time.Now())
	assert.False(t, ok)

	_, ok = parseTicker([]byte(`garbage`), time.Now())
	assert.False(t, ok)
}

func TestSubscribePayloadReplacesWholeList(t *testing.T) {
	frames := subscribePayload("ticket-1", []string{"BTC", "ETH"})
	require.Len(t, frames, 3)
	assert.Equal(t, ticketFrame{Ticket: "ticket-1"}, frames[0])
	assert.Equal(t, typeFrame{Type: "ticker", Codes: []string{"KRW-BTC", "KRW-ETH"}}, frames[1])
	assert.Equal(t, formatFrame{Format: "DEFAULT"}, frames[2])
}
