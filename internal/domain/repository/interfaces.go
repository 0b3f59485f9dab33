package repository

import (
	"context"

	"SignalDeck/internal/domain/models"
)

// SignalSource reads the raw signal log from one backing store.
type SignalSource interface {
	Name() string
	Load(ctx context.Context) ([]models.RawRow, error)
}

// QuoteFetcher returns live quotes keyed by symbol. Failures yield an
// empty map, never an error.
type QuoteFetcher interface {
	Fetch(ctx context.Context, symbols []string) map[string]models.QuoteSnapshot
}

// ViewSink receives every freshly produced dashboard view.
type ViewSink interface {
	Name() string
	Deliver(ctx context.Context, v *models.DashboardView) error
}

// ViewStore keeps the latest view for readers.
type ViewStore interface {
	ViewSink
	Latest(ctx context.Context) (*models.DashboardView, error)
}

type Metrics interface {
	RecordRefresh(status string, seconds float64)
	RecordQuoteFetch(ok bool, seconds float64)
	RecordLastPrice(symbol string, price float64)
	RecordRowsLoaded(source string, n int)
	RecordRowsSkipped(source string, n int)
	RecordError(kind string)
}
