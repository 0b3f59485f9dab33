package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"SignalDeck/internal/domain/models"
	domrepo "SignalDeck/internal/domain/repository"

	"github.com/labstack/echo/v4"
)

type memStore struct {
	mu sync.Mutex
	v  *models.DashboardView
}

func (s *memStore) Name() string { return "mem" }

func (s *memStore) Deliver(ctx context.Context, v *models.DashboardView) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v = v
	return nil
}

func (s *memStore) Latest(ctx context.Context) (*models.DashboardView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.v == nil {
		return nil, domrepo.ErrNoView
	}
	return s.v, nil
}

func sampleView() *models.DashboardView {
	hm := models.NewHeatmap()
	hm.Add(0, 10)
	hm.Add(0, 10)
	hm.Add(1, 11)
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	return &models.DashboardView{
		ID:          "view-1",
		GeneratedAt: at,
		Quotes:      models.QuoteBoard{Live: false, FetchedAt: at, Quotes: map[string]models.QuoteSnapshot{}},
		Log: models.LogView{
			Status:    models.LogStatusOK,
			Source:    "csv",
			Aggregate: &models.AggregateView{Heatmap: hm, Totals: models.Totals{TotalCount: 3}},
			Records: []models.SignalRecord{
				{Pair: "ETHUSDT", Type: "SHORT", Timestamp: at.Add(2 * time.Hour)},
				{Pair: "BTCUSDT", Type: "LONG", Timestamp: at.Add(time.Hour)},
				{Pair: "BTCUSDT", Type: "LONG", Timestamp: at},
			},
		},
	}
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doGet(t *testing.T, store domrepo.ViewStore, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	e := echo.New()
	NewDashboardHandler(nil, store).RegisterRoutes(e)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %s: %v (%s)", target, err, rec.Body.String())
	}
	return rec, env
}

func TestDashboardNotReady(t *testing.T) {
	for _, path := range []string{"/api/quotes", "/api/view", "/api/heatmap", "/api/signals"} {
		rec, env := doGet(t, &memStore{}, path)
		if rec.Code != http.StatusServiceUnavailable || env.Status != http.StatusServiceUnavailable {
			t.Fatalf("%s: code %d", path, rec.Code)
		}
	}
}

func TestDashboardViewDropsRecords(t *testing.T) {
	store := &memStore{v: sampleView()}
	rec, env := doGet(t, store, "/api/view")
	if rec.Code != http.StatusOK {
		t.Fatalf("code %d", rec.Code)
	}
	var v models.DashboardView
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatal(err)
	}
	if v.ID != "view-1" || v.Log.Status != models.LogStatusOK || len(v.Log.Records) != 0 {
		t.Fatalf("view %+v", v)
	}
	if len(store.v.Log.Records) != 3 {
		t.Fatal("stored view must keep its records")
	}
}

func TestDashboardQuotes(t *testing.T) {
	rec, env := doGet(t, &memStore{v: sampleView()}, "/api/quotes")
	if rec.Code != http.StatusOK {
		t.Fatalf("code %d", rec.Code)
	}
	var board models.QuoteBoard
	if err := json.Unmarshal(env.Data, &board); err != nil {
		t.Fatal(err)
	}
	if board.Live {
		t.Fatal("expected offline board")
	}
}

func TestDashboardHeatmap(t *testing.T) {
	store := &memStore{v: sampleView()}

	_, env := doGet(t, store, "/api/heatmap")
	var sparse models.HeatmapResponse
	if err := json.Unmarshal(env.Data, &sparse); err != nil {
		t.Fatal(err)
	}
	if sparse.Total != 3 || len(sparse.Cells) != 2 {
		t.Fatalf("sparse heatmap %+v", sparse)
	}
	if c := sparse.Cells[0]; c.Day != "Monday" || c.Hour != 10 || c.Count != 2 {
		t.Fatalf("first cell %+v", c)
	}

	_, env = doGet(t, store, "/api/heatmap?dense=true")
	var dense models.HeatmapResponse
	if err := json.Unmarshal(env.Data, &dense); err != nil {
		t.Fatal(err)
	}
	if len(dense.Cells) != 7*models.HoursPerDay {
		t.Fatalf("dense cells %d", len(dense.Cells))
	}
}

func TestDashboardSignals(t *testing.T) {
	store := &memStore{v: sampleView()}

	cases := []struct {
		target    string
		wantRows  int
		wantTotal int64
		firstPair string
	}{
		{"/api/signals", 3, 3, "ETHUSDT"},
		{"/api/signals?limit=1", 1, 3, "ETHUSDT"},
		{"/api/signals?pair=btcusdt", 2, 2, "BTCUSDT"},
	}
	for _, tc := range cases {
		rec, env := doGet(t, store, tc.target)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: code %d", tc.target, rec.Code)
		}
		var list struct {
			Rows  []models.SignalRecord `json:"rows"`
			Total int64                 `json:"total"`
		}
		if err := json.Unmarshal(env.Data, &list); err != nil {
			t.Fatal(err)
		}
		if len(list.Rows) != tc.wantRows || list.Total != tc.wantTotal || list.Rows[0].Pair != tc.firstPair {
			t.Fatalf("%s: rows %d total %d first %s", tc.target, len(list.Rows), list.Total, list.Rows[0].Pair)
		}
	}
}

func TestDashboardSignalsValidation(t *testing.T) {
	for _, target := range []string{"/api/signals?limit=0", "/api/signals?limit=5000", "/api/signals?pair=BTC-USDT"} {
		rec, _ := doGet(t, &memStore{v: sampleView()}, target)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: code %d", target, rec.Code)
		}
	}
}

func TestHealthz(t *testing.T) {
	rec, _ := doGet(t, &memStore{}, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("code %d", rec.Code)
	}
}
