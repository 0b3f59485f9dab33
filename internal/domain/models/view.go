package models

import "time"

// HoursPerDay is the heatmap column count.
const HoursPerDay = 24

// Heatmap counts signals per (weekday, hour). Rows follow Weekdays order.
type Heatmap struct {
	Days   [7]string           `json:"days"`
	Counts [7][HoursPerDay]int `json:"counts"`
}

// HeatmapCell is the long-form representation consumed by chart widgets.
type HeatmapCell struct {
	Day   string `json:"day"`
	Hour  int    `json:"hour"`
	Count int    `json:"count"`
}

// NewHeatmap returns a zeroed heatmap with canonical day labels.
func NewHeatmap() Heatmap {
	return Heatmap{Days: Weekdays}
}

// Add increments the bucket for a Monday-first weekday index and hour.
// Out-of-range coordinates are ignored.
func (h *Heatmap) Add(day, hour int) {
	if day < 0 || day >= len(h.Counts) || hour < 0 || hour >= HoursPerDay {
		return
	}
	h.Counts[day][hour]++
}

// Count returns the bucket for a day label and hour, zero when absent.
func (h Heatmap) Count(day string, hour int) int {
	if hour < 0 || hour >= HoursPerDay {
		return 0
	}
	for i, d := range h.Days {
		if d == day {
			return h.Counts[i][hour]
		}
	}
	return 0
}

// Total sums every bucket.
func (h Heatmap) Total() int {
	total := 0
	for i := range h.Counts {
		for _, c := range h.Counts[i] {
			total += c
		}
	}
	return total
}

// Cells lists buckets in day-then-hour order. Zero buckets are included
// only when dense is set.
func (h Heatmap) Cells(dense bool) []HeatmapCell {
	out := make([]HeatmapCell, 0)
	for i, day := range h.Days {
		for hour, c := range h.Counts[i] {
			if c == 0 && !dense {
				continue
			}
			out = append(out, HeatmapCell{Day: day, Hour: hour, Count: c})
		}
	}
	return out
}

// Totals are the headline metrics of the signal log.
type Totals struct {
	TotalCount       int        `json:"total_count"`
	LongCount        int        `json:"long_count"`
	ShortCount       int        `json:"short_count"`
	LatestMacroTrend string     `json:"latest_macro_trend"`
	LatestPair       string     `json:"latest_pair"`
	LatestAt         *time.Time `json:"latest_at,omitempty"`
	AverageRSI       *float64   `json:"average_rsi"`
	WinRate          *float64   `json:"win_rate"`
}

// PairShare is one slice of the pair distribution.
type PairShare struct {
	Pair  string  `json:"pair"`
	Count int     `json:"count"`
	Share float64 `json:"share"`
}

// AggregateView is derived from the full record set on every refresh.
type AggregateView struct {
	Heatmap      Heatmap        `json:"heatmap"`
	Totals       Totals         `json:"totals"`
	Distribution []PairShare    `json:"distribution"`
	Directions   map[string]int `json:"directions"`
	SkippedRows  int            `json:"skipped_rows"`
	SkipReasons  []string       `json:"skip_reasons,omitempty"`
}

// LogStatus classifies the outcome of loading the signal log.
type LogStatus string

const (
	LogStatusOK         LogStatus = "ok"
	LogStatusEmpty      LogStatus = "empty"
	LogStatusNotFound   LogStatus = "not_found"
	LogStatusAuthFailed LogStatus = "auth_failed"
	LogStatusMalformed  LogStatus = "malformed"
	LogStatusError      LogStatus = "error"
)

// LogView is the signal-log half of a dashboard refresh.
type LogView struct {
	Status    LogStatus      `json:"status"`
	Source    string         `json:"source"`
	Message   string         `json:"message,omitempty"`
	Aggregate *AggregateView `json:"aggregate,omitempty"`
	Records   []SignalRecord `json:"records,omitempty"`
}

// DashboardView is everything one refresh cycle produced.
type DashboardView struct {
	ID          string     `json:"id"`
	GeneratedAt time.Time  `json:"generated_at"`
	Quotes      QuoteBoard `json:"quotes"`
	Log         LogView    `json:"log"`
}

// WithoutRecords returns a shallow copy with the record list dropped.
func (v *DashboardView) WithoutRecords() *DashboardView {
	if v == nil {
		return nil
	}
	cp := *v
	cp.Log.Records = nil
	return &cp
}
