package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSendAndParseDecodesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbols"); got != `["BTCUSDT"]` {
			t.Errorf("query symbols = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"price":"1.5"}`))
	}))
	defer srv.Close()

	var out struct {
		Price string `json:"price"`
	}
	err := NewClient(WithTimeout(time.Second)).SendAndParse(context.Background(), &RequestOptions{
		URL:         srv.URL,
		QueryParams: map[string][]string{"symbols": {`["BTCUSDT"]`}},
	}, &out)
	if err != nil {
		t.Fatal(err)
	}
	if out.Price != "1.5" {
		t.Fatalf("price %q", out.Price)
	}
}

func TestSendAndParseReturnsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":-1121,"msg":"Invalid symbol."}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewClient().SendAndParse(context.Background(), &RequestOptions{URL: srv.URL}, nil)
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected StatusError 400, got %v", err)
	}
}

func TestClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	err := NewClient(WithTimeout(20*time.Millisecond)).SendAndParse(context.Background(), &RequestOptions{URL: srv.URL}, nil)
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestHTTPClientCarriesTimeout(t *testing.T) {
	c := NewClient(WithTimeout(750 * time.Millisecond))
	if c.HTTPClient().Timeout != 750*time.Millisecond {
		t.Fatalf("timeout %v", c.HTTPClient().Timeout)
	}
}
