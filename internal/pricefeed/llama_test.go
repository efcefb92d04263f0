package pricefeed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func newTestClient(url string) *LlamaClient {
	return &LlamaClient{
		HTTP:         &http.Client{Timeout: 2 * time.Second},
		BaseURL:      url,
		CoinPrefix:   "coingecko",
		MaxRetries:   3,
		RetryInitial: time.Millisecond,
	}
}

func TestLlamaClient_CurrentPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/prices/current/coingecko:bitcoin" {
			t.Errorf("path=%q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"coins":{"coingecko:bitcoin":{"price":64250.5,"symbol":"BTC","timestamp":1700000000,"confidence":0.99}}}`))
	}))
	defer srv.Close()

	price, err := newTestClient(srv.URL).CurrentPrice(context.Background(), "Bitcoin")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !price.Equal(decimal.RequireFromString("64250.5")) {
		t.Fatalf("price=%s want=64250.5", price)
	}
}

func TestLlamaClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"coins":{"coingecko:ethereum":{"price":3000}}}`))
	}))
	defer srv.Close()

	price, err := newTestClient(srv.URL).CurrentPrice(context.Background(), "ethereum")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !price.Equal(decimal.NewFromInt(3000)) {
		t.Fatalf("price=%s want=3000", price)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls=%d want=3", calls.Load())
	}
}

func TestLlamaClient_NotFoundIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CurrentPrice(context.Background(), "nope")
	if !errors.Is(err, ErrPriceUnavailable) {
		t.Fatalf("err=%v want ErrPriceUnavailable", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls=%d want=1", calls.Load())
	}
}

func TestLlamaClient_MissingCoinIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"coins":{}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CurrentPrice(context.Background(), "solana")
	if !errors.Is(err, ErrPriceUnavailable) {
		t.Fatalf("err=%v want ErrPriceUnavailable", err)
	}
}

func TestLlamaClient_HistoricalPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/chart/coingecko:bitcoin") {
			t.Errorf("path=%q", r.URL.Path)
		}
		if r.URL.Query().Get("span") != "2" || r.URL.Query().Get("period") != "1h" {
			t.Errorf("query=%q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"coins":{"coingecko:bitcoin":{"symbol":"BTC","prices":[{"timestamp":1700000000,"price":100},{"timestamp":1700003600,"price":101.5}]}}}`))
	}))
	defer srv.Close()

	points, err := newTestClient(srv.URL).HistoricalPrices(context.Background(), "bitcoin", 2)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(points) != 2 {
		t.Fatalf("points=%d want=2", len(points))
	}
	if points[1].Timestamp.Unix() != 1700003600 || !points[1].Price.Equal(decimal.RequireFromString("101.5")) {
		t.Fatalf("point[1]=%+v", points[1])
	}
}
