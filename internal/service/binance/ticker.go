package binance

import (
	"context"
	"fmt"
	"time"

	"SignalDeck/internal/domain/models"
	drepo "SignalDeck/internal/domain/repository"
	applogger "SignalDeck/pkg/logger"

	"github.com/shopspring/decimal"
)

const tickerPath = "/api/v3/ticker/24hr"

// ticker is the part of a 24h ticker statistics entry the dashboard uses.
// Binance sends numbers as strings.
type ticker struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
}

// toSnapshots keeps only requested symbols. Any unparsable number fails
// the whole batch.
func toSnapshots(requested []string, tickers []ticker) (map[string]models.QuoteSnapshot, error) {
	want := make(map[string]struct{}, len(requested))
	for _, s := range requested {
		want[s] = struct{}{}
	}

	out := make(map[string]models.QuoteSnapshot, len(tickers))
	for _, t := range tickers {
		if _, ok := want[t.Symbol]; !ok {
			continue
		}
		price, err := decimal.NewFromString(t.LastPrice)
		if err != nil {
			return nil, fmt.Errorf("%s lastPrice %q: %w", t.Symbol, t.LastPrice, err)
		}
		change, err := decimal.NewFromString(t.PriceChangePercent)
		if err != nil {
			return nil, fmt.Errorf("%s priceChangePercent %q: %w", t.Symbol, t.PriceChangePercent, err)
		}
		out[t.Symbol] = models.QuoteSnapshot{Symbol: t.Symbol, LastPrice: price, PercentChange24h: change}
	}
	return out, nil
}

type fetchFunc func(ctx context.Context, symbols []string) ([]ticker, error)

// observed turns a fallible fetch into the never-failing QuoteFetcher
// contract: errors are logged, counted and replaced by an empty map.
type observed struct {
	provider string
	timeout  time.Duration
	fetch    fetchFunc
	metrics  drepo.Metrics
	l        *applogger.Logger
}

func (o *observed) Fetch(ctx context.Context, symbols []string) map[string]models.QuoteSnapshot {
	if len(symbols) == 0 {
		return map[string]models.QuoteSnapshot{}
	}
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	start := time.Now()
	tickers, err := o.fetch(ctx, symbols)
	var out map[string]models.QuoteSnapshot
	if err == nil {
		out, err = toSnapshots(symbols, tickers)
	}
	elapsed := time.Since(start)

	if err != nil {
		if o.metrics != nil {
			o.metrics.RecordQuoteFetch(false, elapsed.Seconds())
			o.metrics.RecordError("quote_fetch")
		}
		if o.l != nil {
			o.l.Warn("quote fetch failed",
				applogger.String("provider", o.provider),
				applogger.Strings("symbols", symbols),
				applogger.Duration("elapsed_ms", elapsed),
				applogger.Error(err),
			)
		}
		return map[string]models.QuoteSnapshot{}
	}

	if o.metrics != nil {
		o.metrics.RecordQuoteFetch(true, elapsed.Seconds())
		for sym, q := range out {
			o.metrics.RecordLastPrice(sym, q.LastPrice.InexactFloat64())
		}
	}
	return out
}
