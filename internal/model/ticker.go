package model

import "time"

// TickerRecord is the canonical live snapshot for one trading symbol.
// Adapters emit PrevPrice as zero; the realtime store substitutes the prior
// stored price before overwrite.
type TickerRecord struct {
	Symbol     string    `json:"symbol"`
	Price      float64   `json:"price"`
	PrevPrice  float64   `json:"prevPrice"`
	Change24h  float64   `json:"change24h"`
	Volume24h  float64   `json:"volume24h"`
	High24h    float64   `json:"high24h"`
	Low24h     float64   `json:"low24h"`
	LatencyMs  int64     `json:"latencyMs"`
	LastUpdate time.Time `json:"lastUpdate"`
	Source     string    `json:"sourceName"`
}
