package okx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appconfig "contextgate/config"
	"contextgate/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(appconfig.OkxConfig{
		BaseURL:   srv.URL,
		Timeout:   time.Second,
		UserAgent: "contextgate-test",
		RateLimit: appconfig.RateLimitConfig{RequestsPerSecond: 100, BurstSize: 10},
	})
}

func TestFetchCandlesReversesToChronological(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != candlesPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("instId"); got != "BTC-USDT-SWAP" {
			t.Errorf("unexpected instId %s", got)
		}
		if got := r.URL.Query().Get("bar"); got != "15m" {
			t.Errorf("unexpected bar %s", got)
		}
		if got := r.Header.Get("User-Agent"); got != "contextgate-test" {
			t.Errorf("unexpected user agent %s", got)
		}
		w.Write([]byte(`{"code":"0","msg":"","data":[
			["1700000900000","101","105","100","104","10","0.1","1040","0"],
			["1700000000000","100","102","99","101","8","0.08","808","1"]
		]}`))
	})

	candles, err := client.FetchCandles(context.Background(), "BTC-USDT-SWAP", "15m", 96)
	if err != nil {
		t.Fatalf("FetchCandles: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(candles))
	}
	if !candles[0].OpenTime.Before(candles[1].OpenTime) {
		t.Fatalf("candles not chronological: %v then %v", candles[0].OpenTime, candles[1].OpenTime)
	}
	if candles[0].High != 102 || candles[0].Low != 99 || candles[0].QuoteVolume != 808 || !candles[0].Confirmed {
		t.Fatalf("unexpected first candle %+v", candles[0])
	}
	if candles[1].Confirmed {
		t.Fatal("open bar reported as confirmed")
	}
}

func TestFetchTicker(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"0","data":[{"instId":"ETH-USDT-SWAP","last":"2000.5","vol24h":"12","volCcy24h":"123456.7","ts":"1700000000000"}]}`))
	})

	ticker, err := client.FetchTicker(context.Background(), "ETH-USDT-SWAP")
	if err != nil {
		t.Fatalf("FetchTicker: %v", err)
	}
	if ticker.QuoteVolume24h != 123456.7 || ticker.Last != 2000.5 {
		t.Fatalf("unexpected ticker %+v", ticker)
	}
	if ticker.Timestamp.UnixMilli() != 1700000000000 {
		t.Fatalf("unexpected timestamp %v", ticker.Timestamp)
	}
}

func TestFetchOpenInterestHistoryFormats(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"objects", `{"code":"0","data":[{"ts":"1700000900000","oi":"150","oiCcy":"1.5"},{"ts":"1700000000000","oi":"100","oiCcy":"1"}]}`},
		{"arrays", `{"code":"0","data":[["1700000900000","150","1.5","300"],["1700000000000","100","1","200"]]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if got := r.URL.Query().Get("instType"); got != "SWAP" {
					t.Errorf("unexpected instType %s", got)
				}
				w.Write([]byte(tt.body))
			})
			history, err := client.FetchOpenInterestHistory(context.Background(), "BTC-USDT-SWAP", "15m", 6)
			if err != nil {
				t.Fatalf("FetchOpenInterestHistory: %v", err)
			}
			if len(history) != 2 || history[0].Value != 100 || history[1].Value != 150 {
				t.Fatalf("unexpected history %+v", history)
			}
			if history.Delta() != 50 {
				t.Fatalf("expected delta 50, got %v", history.Delta())
			}
		})
	}
}

func TestNonZeroCodeIsAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"51001","msg":"Instrument ID does not exist","data":[]}`))
	})

	_, err := client.FetchTicker(context.Background(), "FOO-USDT-SWAP")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != "51001" {
		t.Fatalf("unexpected code %s", apiErr.Code)
	}
}

func TestEmptyDataIsInsufficient(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"0","data":[]}`))
	})

	if _, err := client.FetchCandles(context.Background(), "BTC-USDT-SWAP", "15m", 96); !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
	if _, err := client.FetchOpenInterestHistory(context.Background(), "BTC-USDT-SWAP", "15m", 6); !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestHTTPErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	_, err := client.FetchTicker(context.Background(), "BTC-USDT-SWAP")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, models.ErrInsufficientData) {
		t.Fatal("transport failure must not be reported as missing data")
	}
}

func TestMalformedCandleRow(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"0","data":[["1700000000000","x","1","1","1","1","1","1","1"]]}`))
	})
	if _, err := client.FetchCandles(context.Background(), "BTC-USDT-SWAP", "15m", 96); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestExtractRateLimit(t *testing.T) {
	header := http.Header{}
	header.Set("Rate-Limit-Limit", "12")
	header.Set("Rate-Limit-Remaining", "4")
	header.Set("Rate-Limit-Reset", "1737043200")
	header.Set("Rate-Limit-Interval", "2s")

	rl := ExtractRateLimit(header)
	if !rl.Present || rl.Limit != 12 || rl.Remaining != 4 || rl.WindowSecond != 2 {
		t.Fatalf("unexpected snapshot %+v", rl)
	}
	if rl.ResetUnixMs != 1737043200*1000 {
		t.Fatalf("unexpected reset %v", rl.ResetUnixMs)
	}

	if ExtractRateLimit(http.Header{}).Present {
		t.Fatal("empty header should not be marked present")
	}
	if got := parseIntervalSeconds("500ms"); got != 0.5 {
		t.Fatalf("expected 0.5, got %v", got)
	}
}
