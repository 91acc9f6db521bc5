package binance

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"pulsedesk/internal/model"
)

const quoteSuffix = "USDT"

type subscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

type tickerEvent struct {
	EventType string `json:"e"` // "24hrTicker"
	EventTime int64  `json:"E"` // ms
	Symbol    string `json:"s"` // "BTCUSDT"
	LastPrice string `json:"c"`
	PctChange string `json:"P"`
	Volume    string `json:"v"`
	High      string `json:"h"`
	Low       string `json:"l"`
}

// streamName maps a canonical symbol to its ticker stream parameter.
func streamName(symbol string) string {
	return strings.ToLower(symbol) + strings.ToLower(quoteSuffix) + "@ticker"
}

// parseTicker translates one wire frame into a canonical record.
// Frames that are not a recognized ticker event return false.
func parseTicker(raw []byte, now time.Time) (model.TickerRecord, bool) {
	var ev tickerEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return model.TickerRecord{}, false
	}
	if ev.EventType != "24hrTicker" {
		return model.TickerRecord{}, false
	}

	price, err := strconv.ParseFloat(ev.LastPrice, 64)
	if err != nil {
		return model.TickerRecord{}, false
	}
	change, err := strconv.ParseFloat(ev.PctChange, 64)
	if err != nil {
		return model.TickerRecord{}, false
	}
	volume, err := strconv.ParseFloat(ev.Volume, 64)
	if err != nil {
		return model.TickerRecord{}, false
	}
	high, err := strconv.ParseFloat(ev.High, 64)
	if err != nil {
		return model.TickerRecord{}, false
	}
	low, err := strconv.ParseFloat(ev.Low, 64)
	if err != nil {
		return model.TickerRecord{}, false
	}

	// clock skew may produce negative latency; pass it through as-is
	latency := now.UnixMilli() - ev.EventTime

	return model.TickerRecord{
		Symbol:     strings.TrimSuffix(ev.Symbol, quoteSuffix),
		Price:      price,
		Change24h:  change,
		Volume24h:  volume,
		High24h:    high,
		Low24h:     low,
		LatencyMs:  latency,
		LastUpdate: now,
		Source:     Name,
	}, true
}
