package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"SignalDeck/internal/domain/models"
	domrepo "SignalDeck/internal/domain/repository"
	"SignalDeck/internal/services/signals"
	applogger "SignalDeck/pkg/logger"

	"github.com/google/uuid"
)

const (
	msgWaitingForData = "waiting for data"
	msgNothingParsed  = "no row of the signal log could be parsed"
)

// Dashboard produces the current view: live quotes and the aggregated
// signal log. It holds no state between calls.
type Dashboard struct {
	quotes     domrepo.QuoteFetcher
	source     domrepo.SignalSource
	symbols    []string
	normalizer *signals.Normalizer
	aggregator *signals.Aggregator
	metrics    domrepo.Metrics
	l          *applogger.Logger
	now        func() time.Time
}

// DashboardOption configures Dashboard.
type DashboardOption func(*Dashboard)

func WithNormalizer(n *signals.Normalizer) DashboardOption {
	return func(d *Dashboard) { d.normalizer = n }
}

func WithAggregator(a *signals.Aggregator) DashboardOption {
	return func(d *Dashboard) { d.aggregator = a }
}

func WithMetrics(m domrepo.Metrics) DashboardOption {
	return func(d *Dashboard) { d.metrics = m }
}

func WithLogger(l *applogger.Logger) DashboardOption {
	return func(d *Dashboard) {
		if l != nil {
			d.l = l
		}
	}
}

func NewDashboard(quotes domrepo.QuoteFetcher, source domrepo.SignalSource, symbols []string, opts ...DashboardOption) *Dashboard {
	d := &Dashboard{
		quotes:     quotes,
		source:     source,
		symbols:    symbols,
		normalizer: signals.NewNormalizer(),
		aggregator: signals.NewAggregator(signals.LatestByTimestamp),
		l:          applogger.Nop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ProduceView runs the quote and log halves concurrently and combines them.
// It only fails when ctx is cancelled; every source problem is reported in
// the view's log status instead.
func (d *Dashboard) ProduceView(ctx context.Context) (*models.DashboardView, error) {
	view := &models.DashboardView{ID: uuid.NewString()}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		q := d.quotes.Fetch(ctx, d.symbols)
		view.Quotes = BuildQuoteBoard(d.symbols, q, d.now())
	}()
	go func() {
		defer wg.Done()
		view.Log = d.loadLog(ctx)
	}()
	wg.Wait()

	if errors.Is(ctx.Err(), context.Canceled) {
		return nil, ctx.Err()
	}
	view.GeneratedAt = d.now()
	return view, nil
}

// BuildQuoteBoard shapes a quote map for display. Cards exist only when the
// fetch returned data; configured symbols missing from it get a zero
// placeholder.
func BuildQuoteBoard(symbols []string, quotes map[string]models.QuoteSnapshot, at time.Time) models.QuoteBoard {
	if quotes == nil {
		quotes = map[string]models.QuoteSnapshot{}
	}
	board := models.QuoteBoard{Live: len(quotes) > 0, FetchedAt: at, Quotes: quotes}
	if !board.Live {
		return board
	}

	board.Cards = make([]models.QuoteCard, 0, len(symbols))
	for _, sym := range symbols {
		q, ok := quotes[sym]
		if !ok {
			q = models.PlaceholderQuote(sym)
		}
		board.Cards = append(board.Cards, models.QuoteCard{
			Symbol:           sym,
			Label:            models.QuoteLabel(sym),
			LastPrice:        q.LastPrice,
			PercentChange24h: q.PercentChange24h,
			Available:        ok,
		})
	}
	return board
}

func (d *Dashboard) loadLog(ctx context.Context) models.LogView {
	name := d.source.Name()
	lv := models.LogView{Source: name}

	rows, err := d.source.Load(ctx)
	if err != nil {
		lv.Status = ClassifyLogError(err)
		lv.Message = err.Error()
		d.recordError("source_" + string(lv.Status))
		d.l.Warn("signal log unavailable",
			applogger.String("source", name),
			applogger.String("status", string(lv.Status)),
			applogger.Error(err),
		)
		return lv
	}
	d.recordRows(name, len(rows), 0)

	if len(rows) == 0 {
		lv.Status = models.LogStatusEmpty
		lv.Message = msgWaitingForData
		return lv
	}

	res, err := d.normalizer.Normalize(rows)
	if err != nil {
		lv.Status = ClassifyLogError(err)
		lv.Message = err.Error()
		d.recordError("normalize")
		d.l.Warn("signal log rejected", applogger.String("source", name), applogger.Error(err))
		return lv
	}
	if len(res.MissingColumns) > 0 {
		d.l.Warn("signal log missing columns",
			applogger.String("source", name),
			applogger.Strings("columns", res.MissingColumns),
		)
	}
	d.recordRows(name, len(rows), res.Skipped)
	if res.Skipped > 0 {
		d.l.Info("signal rows skipped",
			applogger.String("source", name),
			applogger.Int("skipped", res.Skipped),
			applogger.Strings("reasons", res.SkipReasons),
		)
	}

	agg := d.aggregator.Aggregate(res.Records)
	agg.SkippedRows = res.Skipped
	agg.SkipReasons = res.SkipReasons
	lv.Aggregate = &agg

	if len(res.Records) == 0 {
		lv.Status = models.LogStatusMalformed
		lv.Message = msgNothingParsed
		return lv
	}
	lv.Status = models.LogStatusOK
	lv.Records = signals.NewestFirst(res.Records)
	return lv
}

// ClassifyLogError maps a source or normalizer error onto a log status.
func ClassifyLogError(err error) models.LogStatus {
	switch {
	case err == nil:
		return models.LogStatusOK
	case errors.Is(err, domrepo.ErrSourceNotFound):
		return models.LogStatusNotFound
	case errors.Is(err, domrepo.ErrAuthentication):
		return models.LogStatusAuthFailed
	case errors.Is(err, domrepo.ErrMalformedRecord):
		return models.LogStatusMalformed
	default:
		return models.LogStatusError
	}
}

func (d *Dashboard) recordRows(source string, loaded, skipped int) {
	if d.metrics == nil {
		return
	}
	d.metrics.RecordRowsLoaded(source, loaded)
	d.metrics.RecordRowsSkipped(source, skipped)
}

func (d *Dashboard) recordError(kind string) {
	if d.metrics != nil {
		d.metrics.RecordError(kind)
	}
}
