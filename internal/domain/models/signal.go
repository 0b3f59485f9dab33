package models

import (
	"strings"
	"time"
)

// Column headers written by the upstream bot.
const (
	ColTimestamp = "Fecha"
	ColPair      = "Par"
	ColType      = "Tipo"
	ColRSI       = "RSI"
	ColMacroBTC  = "Macro_BTC"
)

// RequiredColumns lists the headers every signal store must carry.
var RequiredColumns = []string{ColTimestamp, ColPair, ColType, ColRSI, ColMacroBTC}

// Signal directions.
const (
	SignalLong  = "LONG"
	SignalShort = "SHORT"
)

// Weekdays holds the canonical day labels in Monday-first order.
var Weekdays = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// WeekdayIndex maps a time.Weekday onto the Monday-first Weekdays index.
func WeekdayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// RawRow is one field-named record as read from a signal store.
type RawRow map[string]string

// SignalRecord is a logged signal annotated with its hour and weekday.
type SignalRecord struct {
	Timestamp     time.Time         `json:"timestamp"`
	Pair          string            `json:"pair"`
	Type          string            `json:"type"`
	RSI           *float64          `json:"rsi,omitempty"`
	MacroBTCTrend string            `json:"macro_btc_trend"`
	Hour          int               `json:"hour"`
	Weekday       string            `json:"weekday"`
	Extra         map[string]string `json:"extra,omitempty"`
	Position      int               `json:"position"` // index in source order
}

// IsLong reports whether the signal direction is LONG.
func (r SignalRecord) IsLong() bool {
	return strings.EqualFold(strings.TrimSpace(r.Type), SignalLong)
}

// Direction returns the normalized direction label.
func (r SignalRecord) Direction() string {
	return strings.ToUpper(strings.TrimSpace(r.Type))
}
