package symbols

import (
	"errors"
	"testing"

	"contextgate/internal/models"
)

func TestNormalizePair(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"BTCUSDT", "BTCUSDT", false},
		{" solusdt ", "SOLUSDT", false},
		{"1000PEPEUSDT", "1000PEPEUSDT", false},
		{"BTC-USDT", "", true},
		{"BTCUSD", "", true},
		{"USDT", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizePair(tt.in)
		if tt.wantErr {
			if !errors.Is(err, models.ErrInvalidPair) {
				t.Errorf("NormalizePair(%q) err=%v, want ErrInvalidPair", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("NormalizePair(%q)=%q,%v want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestOKXCandidates(t *testing.T) {
	got := OKXCandidates("BTCUSDT")
	if len(got) != 2 || got[0] != "BTC-USDT-SWAP" || got[1] != "BTC-USD-SWAP" {
		t.Fatalf("unexpected candidates %v", got)
	}
}

func TestFromOKX(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"BTC-USDT-SWAP", "BTCUSDT"},
		{"eth-usd-swap", "ETHUSDT"},
		{"SOL-USDT", "SOLUSDT"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := FromOKX(tt.in); got != tt.want {
			t.Errorf("FromOKX(%q)=%q want %q", tt.in, got, tt.want)
		}
	}
}
