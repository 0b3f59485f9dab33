package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	domrepo "SignalDeck/internal/domain/repository"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trading_log.csv")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCSVSourceLoadsRows(t *testing.T) {
	path := writeFile(t, "\ufeffFecha,Par,Tipo,RSI,Macro_BTC,Nota\n"+
		"2024-03-04 10:15:00,BTC/USDT,LONG,28.5,ALCISTA,first\n"+
		"2024-03-04 11:00:00,ETH/USDT,SHORT\n"+
		",,,,,\n")

	rows, err := NewCSVSource(path).Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows %d", len(rows))
	}
	if rows[0]["Fecha"] != "2024-03-04 10:15:00" || rows[0]["Nota"] != "first" {
		t.Fatalf("row 0 %v", rows[0])
	}
	if v, ok := rows[1]["RSI"]; !ok || v != "" {
		t.Fatalf("short row should be padded, got %v", rows[1])
	}
}

func TestCSVSourceEmptyAndHeaderOnly(t *testing.T) {
	for name, content := range map[string]string{
		"zero bytes":  "",
		"header only": "Fecha,Par,Tipo,RSI,Macro_BTC\n",
	} {
		t.Run(name, func(t *testing.T) {
			rows, err := NewCSVSource(writeFile(t, content)).Load(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			if rows == nil || len(rows) != 0 {
				t.Fatalf("expected empty non-nil slice, got %v", rows)
			}
		})
	}
}

func TestCSVSourceMissingFile(t *testing.T) {
	_, err := NewCSVSource(filepath.Join(t.TempDir(), "nope.csv")).Load(context.Background())
	if !errors.Is(err, domrepo.ErrSourceNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDecodeCSVQuotedFields(t *testing.T) {
	rows, err := DecodeCSV(strings.NewReader("Fecha,Par,RSI\n\"2024-01-01 00:00\",\"SOL/USDT\",\"45,5\"\n"))
	if err != nil {
		t.Fatal(err)
	}
	if rows[0]["RSI"] != "45,5" || rows[0]["Par"] != "SOL/USDT" {
		t.Fatalf("row %v", rows[0])
	}
}

func TestRowsFromValuesDropsBlankHeaders(t *testing.T) {
	rows := RowsFromValues([][]string{
		{"Fecha", "", "Par"},
		{"2024-01-01", "junk", "BTC"},
	})
	if _, ok := rows[0][""]; ok || rows[0]["Par"] != "BTC" {
		t.Fatalf("row %v", rows[0])
	}
}
