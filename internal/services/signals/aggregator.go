package signals

import (
	"sort"

	"SignalDeck/internal/domain/models"

	"github.com/shopspring/decimal"
)

// LatestPolicy decides which record counts as the most recent one.
type LatestPolicy string

const (
	// LatestByTimestamp picks the maximum timestamp; ties go to the later row.
	LatestByTimestamp LatestPolicy = "timestamp"
	// LatestByPosition picks the last row in source order.
	LatestByPosition LatestPolicy = "position"
)

// ParseLatestPolicy maps a config value onto a policy, defaulting to timestamp.
func ParseLatestPolicy(s string) LatestPolicy {
	if LatestPolicy(s) == LatestByPosition {
		return LatestByPosition
	}
	return LatestByTimestamp
}

// Aggregator derives the heatmap, totals and distributions. It holds no
// state besides its policy and is safe for concurrent use.
type Aggregator struct {
	latest LatestPolicy
}

func NewAggregator(latest LatestPolicy) *Aggregator {
	return &Aggregator{latest: ParseLatestPolicy(string(latest))}
}

// Aggregate computes the view for records. Identical input yields identical output.
func (a *Aggregator) Aggregate(records []models.SignalRecord) models.AggregateView {
	view := models.AggregateView{
		Heatmap:      models.NewHeatmap(),
		Distribution: make([]models.PairShare, 0),
		Directions:   make(map[string]int),
	}

	pairs := make(map[string]int)
	var rsiSum float64
	var rsiN int
	for _, r := range records {
		view.Heatmap.Add(models.WeekdayIndex(r.Timestamp.Weekday()), r.Hour)
		pairs[r.Pair]++
		view.Directions[r.Direction()]++
		if r.IsLong() {
			view.Totals.LongCount++
		} else if r.Direction() == models.SignalShort {
			view.Totals.ShortCount++
		}
		if r.RSI != nil {
			rsiSum += *r.RSI
			rsiN++
		}
	}

	total := len(records)
	view.Totals.TotalCount = total
	if rsiN > 0 {
		avg := round1(rsiSum / float64(rsiN))
		view.Totals.AverageRSI = &avg
	}
	if total > 0 {
		wr := round1(float64(view.Totals.LongCount) / float64(total) * 100)
		view.Totals.WinRate = &wr
	}
	if latest, ok := a.pickLatest(records); ok {
		at := latest.Timestamp
		view.Totals.LatestAt = &at
		view.Totals.LatestPair = latest.Pair
		view.Totals.LatestMacroTrend = latest.MacroBTCTrend
	}

	for pair, c := range pairs {
		view.Distribution = append(view.Distribution, models.PairShare{
			Pair:  pair,
			Count: c,
			Share: round1(float64(c) / float64(total) * 100),
		})
	}
	sort.Slice(view.Distribution, func(i, j int) bool {
		di, dj := view.Distribution[i], view.Distribution[j]
		if di.Count != dj.Count {
			return di.Count > dj.Count
		}
		return di.Pair < dj.Pair
	})

	return view
}

func (a *Aggregator) pickLatest(records []models.SignalRecord) (models.SignalRecord, bool) {
	if len(records) == 0 {
		return models.SignalRecord{}, false
	}
	if a.latest == LatestByPosition {
		return records[len(records)-1], true
	}
	best := records[0]
	for _, r := range records[1:] {
		if !r.Timestamp.Before(best.Timestamp) {
			best = r
		}
	}
	return best, true
}

// NewestFirst returns a copy of records ordered by descending timestamp,
// keeping source order between equal timestamps reversed.
func NewestFirst(records []models.SignalRecord) []models.SignalRecord {
	out := make([]models.SignalRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Position > out[j].Position
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

func round1(v float64) float64 {
	return decimal.NewFromFloat(v).RoundBank(1).InexactFloat64()
}
