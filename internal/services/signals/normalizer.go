package signals

import (
	"fmt"
	"strings"
	"time"

	"SignalDeck/internal/domain/models"
	drepo "SignalDeck/internal/domain/repository"
	"SignalDeck/pkg/util"
)

// maxSkipReasons bounds how many skip reasons are kept for display.
const maxSkipReasons = 5

// Normalizer turns raw rows into SignalRecords with hour and weekday.
type Normalizer struct {
	loc    *time.Location
	strict bool
}

// NormalizerOption configures Normalizer.
type NormalizerOption func(*Normalizer)

// WithLocation sets the zone used for timestamps without an offset.
func WithLocation(loc *time.Location) NormalizerOption {
	return func(n *Normalizer) {
		if loc != nil {
			n.loc = loc
		}
	}
}

// WithStrict makes the first malformed row fail the whole batch.
func WithStrict(strict bool) NormalizerOption {
	return func(n *Normalizer) {
		n.strict = strict
	}
}

func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{loc: time.UTC}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// NormalizeResult holds the accepted records and what was dropped.
type NormalizeResult struct {
	Records        []models.SignalRecord
	Skipped        int
	SkipReasons    []string
	MissingColumns []string
}

// Normalize parses every row. In strict mode any malformed row, or any
// missing required column, returns ErrMalformedRecord. Otherwise malformed
// rows are counted and skipped; only a missing timestamp column is fatal.
func (n *Normalizer) Normalize(rows []models.RawRow) (NormalizeResult, error) {
	res := NormalizeResult{Records: make([]models.SignalRecord, 0, len(rows))}
	if len(rows) == 0 {
		return res, nil
	}

	res.MissingColumns = missingColumns(rows[0])
	for _, col := range res.MissingColumns {
		if n.strict || col == models.ColTimestamp {
			return NormalizeResult{}, fmt.Errorf("%w: missing column %q", drepo.ErrMalformedRecord, col)
		}
	}

	for i, row := range rows {
		rec, err := n.normalizeRow(i, row)
		if err != nil {
			// row numbers are 1-based and skip the header line
			err = fmt.Errorf("%w: row %d: %v", drepo.ErrMalformedRecord, i+2, err)
			if n.strict {
				return NormalizeResult{}, err
			}
			res.Skipped++
			if len(res.SkipReasons) < maxSkipReasons {
				res.SkipReasons = append(res.SkipReasons, err.Error())
			}
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

func (n *Normalizer) normalizeRow(pos int, row models.RawRow) (models.SignalRecord, error) {
	ts, err := util.ParseTimeIn(row[models.ColTimestamp], n.loc)
	if err != nil {
		return models.SignalRecord{}, err
	}

	rec := models.SignalRecord{
		Timestamp:     ts,
		Pair:          strings.TrimSpace(row[models.ColPair]),
		Type:          strings.TrimSpace(row[models.ColType]),
		MacroBTCTrend: strings.TrimSpace(row[models.ColMacroBTC]),
		Hour:          ts.Hour(),
		Weekday:       models.Weekdays[models.WeekdayIndex(ts.Weekday())],
		Position:      pos,
	}
	if v, ok := util.ParseNumber(row[models.ColRSI]); ok {
		rec.RSI = &v
	}
	for k, v := range row {
		if isKnownColumn(k) {
			continue
		}
		if rec.Extra == nil {
			rec.Extra = make(map[string]string)
		}
		rec.Extra[k] = v
	}
	return rec, nil
}

func missingColumns(row models.RawRow) []string {
	var missing []string
	for _, col := range models.RequiredColumns {
		if _, ok := row[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}

func isKnownColumn(k string) bool {
	for _, col := range models.RequiredColumns {
		if k == col {
			return true
		}
	}
	return false
}
