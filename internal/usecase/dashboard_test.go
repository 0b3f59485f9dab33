package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"SignalDeck/internal/domain/models"
	domrepo "SignalDeck/internal/domain/repository"

	"github.com/shopspring/decimal"
)

type fakeQuotes struct {
	out   map[string]models.QuoteSnapshot
	calls int
}

func (f *fakeQuotes) Fetch(ctx context.Context, symbols []string) map[string]models.QuoteSnapshot {
	f.calls++
	return f.out
}

type fakeSource struct {
	rows []models.RawRow
	err  error
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Load(ctx context.Context) ([]models.RawRow, error) {
	return f.rows, f.err
}

func signalRow(ts, pair, typ string) models.RawRow {
	return models.RawRow{
		models.ColTimestamp: ts,
		models.ColPair:      pair,
		models.ColType:      typ,
		models.ColRSI:       "55",
		models.ColMacroBTC:  "BULL",
	}
}

func snapshot(sym, price, pct string) models.QuoteSnapshot {
	return models.QuoteSnapshot{
		Symbol:           sym,
		LastPrice:        decimal.RequireFromString(price),
		PercentChange24h: decimal.RequireFromString(pct),
	}
}

func TestBuildQuoteBoardPlaceholders(t *testing.T) {
	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	board := BuildQuoteBoard([]string{"BTCUSDT", "ETHUSDT"},
		map[string]models.QuoteSnapshot{"BTCUSDT": snapshot("BTCUSDT", "42000.5", "1.2")}, at)

	if !board.Live {
		t.Fatal("expected live board")
	}
	if len(board.Cards) != 2 {
		t.Fatalf("cards %d", len(board.Cards))
	}
	btc, eth := board.Cards[0], board.Cards[1]
	if btc.Label != "BTC" || !btc.Available || !btc.LastPrice.Equal(decimal.RequireFromString("42000.5")) {
		t.Fatalf("btc card %+v", btc)
	}
	if eth.Label != "ETH" || eth.Available || !eth.LastPrice.IsZero() || !eth.PercentChange24h.IsZero() {
		t.Fatalf("eth placeholder %+v", eth)
	}
	if len(board.Quotes) != 1 {
		t.Fatalf("raw quotes must stay untouched, got %d", len(board.Quotes))
	}
}

func TestBuildQuoteBoardEmptyIsNotLive(t *testing.T) {
	board := BuildQuoteBoard([]string{"BTCUSDT"}, nil, time.Now())
	if board.Live || len(board.Cards) != 0 {
		t.Fatalf("unexpected board %+v", board)
	}
	if board.Quotes == nil {
		t.Fatal("quotes map should be non-nil")
	}
}

func TestProduceViewOK(t *testing.T) {
	quotes := &fakeQuotes{out: map[string]models.QuoteSnapshot{"BTCUSDT": snapshot("BTCUSDT", "1", "0")}}
	src := &fakeSource{rows: []models.RawRow{
		signalRow("2024-01-01T10:00", "BTCUSDT", "LONG"),
		signalRow("2024-01-02T11:00", "ETHUSDT", "SHORT"),
		signalRow("not a date", "ETHUSDT", "SHORT"),
	}}
	d := NewDashboard(quotes, src, []string{"BTCUSDT"})

	v, err := d.ProduceView(context.Background())
	if err != nil {
		t.Fatalf("produce: %v", err)
	}
	if v.ID == "" || v.GeneratedAt.IsZero() {
		t.Fatalf("missing id or timestamp: %+v", v)
	}
	if quotes.calls != 1 || !v.Quotes.Live {
		t.Fatalf("quotes not fetched: %+v", v.Quotes)
	}
	if v.Log.Status != models.LogStatusOK || v.Log.Source != "fake" {
		t.Fatalf("log status %s source %s", v.Log.Status, v.Log.Source)
	}
	agg := v.Log.Aggregate
	if agg == nil || agg.Totals.TotalCount != 2 || agg.SkippedRows != 1 {
		t.Fatalf("aggregate %+v", agg)
	}
	if len(v.Log.Records) != 2 || v.Log.Records[0].Pair != "ETHUSDT" {
		t.Fatalf("records not newest first: %+v", v.Log.Records)
	}
}

func TestProduceViewLogStatuses(t *testing.T) {
	cases := []struct {
		name string
		src  *fakeSource
		want models.LogStatus
	}{
		{"empty", &fakeSource{}, models.LogStatusEmpty},
		{"not found", &fakeSource{err: fmt.Errorf("open: %w", domrepo.ErrSourceNotFound)}, models.LogStatusNotFound},
		{"auth", &fakeSource{err: fmt.Errorf("creds: %w", domrepo.ErrAuthentication)}, models.LogStatusAuthFailed},
		{"other", &fakeSource{err: errors.New("boom")}, models.LogStatusError},
		{"all malformed", &fakeSource{rows: []models.RawRow{signalRow("garbage", "BTCUSDT", "LONG")}}, models.LogStatusMalformed},
		{"missing timestamp column", &fakeSource{rows: []models.RawRow{{models.ColPair: "BTCUSDT"}}}, models.LogStatusMalformed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := NewDashboard(&fakeQuotes{}, tc.src, []string{"BTCUSDT"})
			v, err := d.ProduceView(context.Background())
			if err != nil {
				t.Fatalf("produce: %v", err)
			}
			if v.Log.Status != tc.want {
				t.Fatalf("status %s, want %s (%s)", v.Log.Status, tc.want, v.Log.Message)
			}
			if v.Quotes.Live {
				t.Fatal("empty quote map must not be live")
			}
		})
	}
}

func TestProduceViewEmptyMessage(t *testing.T) {
	d := NewDashboard(&fakeQuotes{}, &fakeSource{}, nil)
	v, _ := d.ProduceView(context.Background())
	if v.Log.Message != msgWaitingForData || v.Log.Aggregate != nil {
		t.Fatalf("empty log view %+v", v.Log)
	}
}

func TestProduceViewCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := NewDashboard(&fakeQuotes{}, &fakeSource{}, nil)
	if _, err := d.ProduceView(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
