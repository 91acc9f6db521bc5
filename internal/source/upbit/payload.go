package upbit

import (
	"encoding/json"
	"strings"
	"time"

	"pulsedesk/internal/model"
)

const marketPrefix = "KRW-"

type ticketFrame struct {
	Ticket string `json:"ticket"`
}

type typeFrame struct {
	Type  string   `json:"type"`
	Codes []string `json:"codes"`
}

type formatFrame struct {
	Format string `json:"format"`
}

type tickerEvent struct {
	Type             string  `json:"type"` // "ticker"
	Code             string  `json:"code"` // "KRW-BTC"
	TradePrice       float64 `json:"trade_price"`
	SignedChangeRate float64 `json:"signed_change_rate"`
	AccTradeVolume   float64 `json:"acc_trade_volume_24h"`
	HighPrice        float64 `json:"high_price"`
	LowPrice         float64 `json:"low_price"`
	Timestamp        int64   `json:"timestamp"` // ms
}

func marketCode(symbol string) string {
	return marketPrefix + strings.ToUpper(symbol)
}

// subscribePayload builds the request that replaces the connection's whole
// subscription list. Upbit has no incremental subscribe.
func subscribePayload(ticket string, symbols []string) []any {
	codes := make([]string, 0, len(symbols))
	for _, s := range symbols {
		codes = append(codes, marketCode(s))
	}
	return []any{
		ticketFrame{Ticket: ticket},
		typeFrame{Type: "ticker", Codes: codes},
		formatFrame{Format: "DEFAULT"},
	}
}

// parseTicker translates one wire frame into a canonical record.
// Frames that are not a recognized ticker event return false.
func parseTicker(raw []byte, now time.Time) (model.TickerRecord, bool) {
	var ev tickerEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return model.TickerRecord{}, false
	}
	if ev.Type != "ticker" || !strings.HasPrefix(ev.Code, marketPrefix) {
		return model.TickerRecord{}, false
	}

	return model.TickerRecord{
		Symbol:     strings.TrimPrefix(ev.Code, marketPrefix),
		Price:      ev.TradePrice,
		Change24h:  ev.SignedChangeRate * 100,
		Volume24h:  ev.AccTradeVolume,
		High24h:    ev.HighPrice,
		Low24h:     ev.LowPrice,
		LatencyMs:  now.UnixMilli() - ev.Timestamp,
		LastUpdate: now,
		Source:     Name,
	}, true
}
