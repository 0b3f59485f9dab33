package binance

import (
	"context"
	"strings"
	"time"

	drepo "SignalDeck/internal/domain/repository"
	xhttp "SignalDeck/pkg/http"
	applogger "SignalDeck/pkg/logger"

	gobinance "github.com/adshao/go-binance/v2"
)

// SDKFetcher reads 24h tickers through the go-binance REST client.
type SDKFetcher struct {
	observed
	client *gobinance.Client
}

// NewSDKFetcher creates an unauthenticated client; ticker statistics are
// public market data.
func NewSDKFetcher(baseURL string, timeout time.Duration, metrics drepo.Metrics, l *applogger.Logger) *SDKFetcher {
	client := gobinance.NewClient("", "")
	if baseURL != "" {
		client.BaseURL = strings.TrimRight(baseURL, "/")
	}
	client.HTTPClient = xhttp.NewClient(xhttp.WithTimeout(timeout)).HTTPClient()

	f := &SDKFetcher{client: client}
	f.observed = observed{provider: "binance", timeout: timeout, fetch: f.tickers, metrics: metrics, l: l}
	return f
}

func (f *SDKFetcher) tickers(ctx context.Context, symbols []string) ([]ticker, error) {
	stats, err := f.client.NewListPriceChangeStatsService().Symbols(symbols).Do(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ticker, 0, len(stats))
	for _, s := range stats {
		if s == nil {
			continue
		}
		out = append(out, ticker{
			Symbol:             s.Symbol,
			LastPrice:          s.LastPrice,
			PriceChangePercent: s.PriceChangePercent,
		})
	}
	return out, nil
}
