package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"SignalDeck/internal/domain/models"
	domrepo "SignalDeck/internal/domain/repository"
	"SignalDeck/pkg/cache"

	"github.com/shopspring/decimal"
)

func sampleView() *models.DashboardView {
	return &models.DashboardView{
		ID:          "cycle-1",
		GeneratedAt: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC),
		Quotes: models.QuoteBoard{
			Live: true,
			Quotes: map[string]models.QuoteSnapshot{
				"BTCUSDT": {Symbol: "BTCUSDT", LastPrice: decimal.RequireFromString("65000.12"), PercentChange24h: decimal.RequireFromString("-1.5")},
			},
		},
		Log: models.LogView{
			Status:  models.LogStatusOK,
			Source:  "csv",
			Records: []models.SignalRecord{{Pair: "BTC/USDT", Type: "LONG"}},
		},
	}
}

func TestCacheViewStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	mc := cache.NewMemoryCache()
	defer mc.Close()
	store := NewCacheViewStore(mc, time.Minute)

	if _, err := store.Latest(ctx); !errors.Is(err, domrepo.ErrNoView) {
		t.Fatalf("expected ErrNoView, got %v", err)
	}
	if err := store.Deliver(ctx, sampleView()); err != nil {
		t.Fatal(err)
	}
	got, err := store.Latest(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "cycle-1" || len(got.Log.Records) != 1 {
		t.Fatalf("got %+v", got)
	}
	if !got.Quotes.Quotes["BTCUSDT"].LastPrice.Equal(decimal.RequireFromString("65000.12")) {
		t.Fatalf("price lost precision: %v", got.Quotes.Quotes["BTCUSDT"].LastPrice)
	}
}

type capturePublisher struct {
	topic string
	key   []byte
	value interface{}
}

func (c *capturePublisher) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	c.topic, c.key, c.value = topic, key, value
	return nil
}

func TestKafkaViewPublisherDropsRecords(t *testing.T) {
	pub := &capturePublisher{}
	if err := NewKafkaViewPublisher(pub, "signaldeck.views").Deliver(context.Background(), sampleView()); err != nil {
		t.Fatal(err)
	}
	v, ok := pub.value.(*models.DashboardView)
	if !ok || pub.topic != "signaldeck.views" || string(pub.key) != "dashboard" {
		t.Fatalf("published %+v", pub)
	}
	if v.Log.Records != nil || v.ID != "cycle-1" {
		t.Fatalf("records should be stripped: %+v", v.Log)
	}
}
