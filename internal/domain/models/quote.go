package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// QuoteSnapshot is the live market state of one symbol at fetch time.
type QuoteSnapshot struct {
	Symbol           string          `json:"symbol"`
	LastPrice        decimal.Decimal `json:"last_price"`
	PercentChange24h decimal.Decimal `json:"percent_change_24h"`
}

// PlaceholderQuote is displayed for symbols missing from a live response.
func PlaceholderQuote(symbol string) QuoteSnapshot {
	return QuoteSnapshot{Symbol: symbol, LastPrice: decimal.Zero, PercentChange24h: decimal.Zero}
}

// QuoteCard is one ticker tile on the dashboard.
type QuoteCard struct {
	Symbol           string          `json:"symbol"`
	Label            string          `json:"label"`
	LastPrice        decimal.Decimal `json:"last_price"`
	PercentChange24h decimal.Decimal `json:"percent_change_24h"`
	Available        bool            `json:"available"`
}

// QuoteBoard is the result of one quote cycle. Live is false when the
// fetch produced nothing, in which case Cards is empty.
type QuoteBoard struct {
	Live      bool                     `json:"live"`
	FetchedAt time.Time                `json:"fetched_at"`
	Quotes    map[string]QuoteSnapshot `json:"quotes"`
	Cards     []QuoteCard              `json:"cards,omitempty"`
}

// QuoteLabel strips the USDT quote asset for display.
func QuoteLabel(symbol string) string {
	return strings.ReplaceAll(symbol, "USDT", "")
}
