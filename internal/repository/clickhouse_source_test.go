package repository

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	domrepo "SignalDeck/internal/domain/repository"
	pkgch "SignalDeck/pkg/clickhouse"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
)

func TestStringifyValue(t *testing.T) {
	rsi := 28.5
	var nilPtr *float64
	ts := time.Date(2024, 3, 4, 10, 15, 0, 0, time.FixedZone("CET", 3600))

	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"LONG", "LONG"},
		{[]byte("BTC"), "BTC"},
		{ts, "2024-03-04T10:15:00+01:00"},
		{time.Time{}, ""},
		{28.5, "28.5"},
		{float32(12.25), "12.25"},
		{&rsi, "28.5"},
		{nilPtr, ""},
		{int64(7), "7"},
		{decimal.RequireFromString("44.10"), "44.1"},
		{math.NaN(), "NaN"},
	}
	for _, tc := range cases {
		if got := stringifyValue(tc.in); got != tc.want {
			t.Errorf("stringifyValue(%#v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNewCHSignalSourceRejectsInjection(t *testing.T) {
	client := pkgch.NewFromDB(nil)
	for _, table := range []string{"log; DROP TABLE x", "a b", "", "1abc"} {
		if _, err := NewCHSignalSource(client, table, "Fecha"); err == nil {
			t.Errorf("table %q should be rejected", table)
		}
	}
	if _, err := NewCHSignalSource(client, "trading_log", "Fecha DESC"); err == nil {
		t.Error("order column with spaces should be rejected")
	}

	s, err := NewCHSignalSource(client, "bot.trading_log", "Fecha")
	if err != nil {
		t.Fatal(err)
	}
	if got := s.query(); got != "SELECT * FROM bot.trading_log ORDER BY Fecha ASC" {
		t.Fatalf("query %q", got)
	}
}

func TestCHSignalSourceClassify(t *testing.T) {
	s := &CHSignalSource{table: "trading_log"}
	if err := s.classify(&clickhouse.Exception{Code: chUnknownTable, Message: "Table default.trading_log does not exist"}); !errors.Is(err, domrepo.ErrSourceNotFound) {
		t.Fatalf("unknown table: %v", err)
	}
	if err := s.classify(&clickhouse.Exception{Code: chAuthenticationFailed}); !errors.Is(err, domrepo.ErrAuthentication) {
		t.Fatalf("auth: %v", err)
	}
	if err := s.classify(errors.New("broken pipe")); errors.Is(err, domrepo.ErrSourceNotFound) {
		t.Fatalf("generic: %v", err)
	}
}

func newMockSource(t *testing.T) (*CHSignalSource, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	s, err := NewCHSignalSource(pkgch.NewFromDB(db), "trading_log", "Fecha")
	if err != nil {
		t.Fatal(err)
	}
	return s, mock
}

func TestCHSignalSourceLoadKeepsSourceOrder(t *testing.T) {
	s, mock := newMockSource(t)
	fecha := time.Date(2024, 1, 5, 9, 30, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"Fecha", "Par", "Tipo", "RSI", "Macro_BTC"}).
		AddRow(fecha, "BTCUSDT", "LONG", 61.5, "BULL").
		AddRow(fecha.Add(time.Hour), "ETHUSDT", "SHORT", nil, "BEAR").
		AddRow(fecha.Add(2*time.Hour), "SOLUSDT", "LONG", 44.0, nil)
	mock.ExpectQuery("SELECT * FROM trading_log ORDER BY Fecha ASC").WillReturnRows(rows)

	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("rows %d", len(got))
	}
	for i, pair := range []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"} {
		if got[i]["Par"] != pair {
			t.Fatalf("row %d pair %q want %q", i, got[i]["Par"], pair)
		}
	}
	if got[0]["Fecha"] != "2024-01-05T09:30:00Z" || got[0]["RSI"] != "61.5" {
		t.Fatalf("first row %v", got[0])
	}
	if got[1]["RSI"] != "" || got[2]["Macro_BTC"] != "" || got[2]["RSI"] != "44" {
		t.Fatalf("null handling %v %v", got[1], got[2])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestCHSignalSourceLoadEmptyTable(t *testing.T) {
	s, mock := newMockSource(t)
	mock.ExpectQuery("SELECT * FROM trading_log ORDER BY Fecha ASC").
		WillReturnRows(sqlmock.NewRows([]string{"Fecha", "Par"}))

	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty slice, got %#v", got)
	}
}

func TestCHSignalSourceLoadClassifiesErrors(t *testing.T) {
	s, mock := newMockSource(t)
	mock.ExpectQuery("SELECT * FROM trading_log ORDER BY Fecha ASC").
		WillReturnError(&clickhouse.Exception{Code: chWrongPassword, Message: "wrong password"})
	if _, err := s.Load(context.Background()); !errors.Is(err, domrepo.ErrAuthentication) {
		t.Fatalf("query error: %v", err)
	}

	rows := sqlmock.NewRows([]string{"Fecha"}).
		AddRow("2024-01-05 09:30:00").
		RowError(0, &clickhouse.Exception{Code: chUnknownTable, Message: "table dropped"})
	mock.ExpectQuery("SELECT * FROM trading_log ORDER BY Fecha ASC").WillReturnRows(rows)
	if _, err := s.Load(context.Background()); !errors.Is(err, domrepo.ErrSourceNotFound) {
		t.Fatalf("row error: %v", err)
	}
}
