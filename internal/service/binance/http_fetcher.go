package binance

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	drepo "SignalDeck/internal/domain/repository"
	xhttp "SignalDeck/pkg/http"
	applogger "SignalDeck/pkg/logger"
)

// HTTPFetcher reads 24h tickers for all symbols in one REST call.
type HTTPFetcher struct {
	observed
	client  *xhttp.Client
	baseURL string
}

// NewHTTPFetcher creates a fetcher against baseURL (https://api.binance.com).
// Requests are bounded by timeout.
func NewHTTPFetcher(baseURL string, timeout time.Duration, metrics drepo.Metrics, l *applogger.Logger) *HTTPFetcher {
	f := &HTTPFetcher{
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
	f.observed = observed{provider: "http", timeout: timeout, fetch: f.tickers, metrics: metrics, l: l}
	return f
}

func (f *HTTPFetcher) tickers(ctx context.Context, symbols []string) ([]ticker, error) {
	// The endpoint takes the symbol list as a JSON array in one parameter.
	list, err := json.Marshal(symbols)
	if err != nil {
		return nil, err
	}

	var out []ticker
	err = f.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         f.baseURL + tickerPath,
		QueryParams: map[string][]string{"symbols": {string(list)}},
	}, &out)
	return out, err
}
