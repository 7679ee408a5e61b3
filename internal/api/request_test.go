package api

import (
	"strings"
	"testing"
	"time"

	"github.com/rickgao/binance-beast/internal/auth"
)

func TestParams_Encode(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		want   string
	}{
		{
			name:   "empty",
			params: nil,
			want:   "",
		},
		{
			name:   "single",
			params: Params{{Key: "symbol", Value: "BTCUSDT"}},
			want:   "symbol=BTCUSDT",
		},
		{
			name:   "insertion order preserved",
			params: Params{{Key: "symbol", Value: "BTCUSDT"}, {Key: "limit", Value: "10"}},
			want:   "symbol=BTCUSDT&limit=10",
		},
		{
			name:   "not sorted",
			params: Params{}.Add("z", "1").Add("a", "2").Add("m", "3"),
			want:   "z=1&a=2&m=3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.params.Encode(); got != tt.want {
				t.Errorf("Encode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParams_Get(t *testing.T) {
	p := Params{}.Add("symbol", "BTCUSDT").Add("symbol", "ETHUSDT")

	v, ok := p.Get("symbol")
	if !ok || v != "BTCUSDT" {
		t.Errorf("Get(symbol) = %q, %v, want %q, true", v, ok, "BTCUSDT")
	}
	if _, ok := p.Get("limit"); ok {
		t.Error("Get(limit) should not be found")
	}
}

func TestBuildPath_EmptyParams(t *testing.T) {
	creds := auth.Credentials{APIKey: "k", Secret: "s"}

	for _, mode := range []SignMode{Unsigned, HMACSHA256} {
		got, err := BuildPath("/fapi/v1/time", nil, mode, creds, time.Now())
		if err != nil {
			t.Fatalf("BuildPath(%v) failed: %v", mode, err)
		}
		if got != "/fapi/v1/time" {
			t.Errorf("BuildPath(%v) = %q, want %q", mode, got, "/fapi/v1/time")
		}
	}
}

func TestBuildPath_Unsigned(t *testing.T) {
	params := Params{}.Add("symbol", "BTCUSDT").Add("limit", "10")

	got, err := BuildPath("/fapi/v1/depth", params, Unsigned, auth.Credentials{}, time.Now())
	if err != nil {
		t.Fatalf("BuildPath failed: %v", err)
	}

	want := "/fapi/v1/depth?symbol=BTCUSDT&limit=10"
	if got != want {
		t.Errorf("BuildPath() = %q, want %q", got, want)
	}
}

func TestBuildPath_Signed(t *testing.T) {
	creds := auth.Credentials{APIKey: "key", Secret: "secret"}
	now := time.UnixMilli(1700000000123)
	params := Params{}.Add("symbol", "BTCUSDT")

	got, err := BuildPath("/fapi/v1/allOrders", params, HMACSHA256, creds, now)
	if err != nil {
		t.Fatalf("BuildPath failed: %v", err)
	}

	signed := "symbol=BTCUSDT&timestamp=1700000000123"
	want := "/fapi/v1/allOrders?" + signed + "&signature=" + auth.Sign("secret", signed)
	if got != want {
		t.Errorf("BuildPath() = %q, want %q", got, want)
	}
	if strings.Contains(got, "&&") {
		t.Errorf("BuildPath() = %q contains an empty pair", got)
	}

	sig := got[strings.LastIndex(got, "=")+1:]
	if len(sig) != 64 {
		t.Errorf("signature length = %d, want 64", len(sig))
	}
}

func TestBuildPath_SignedWithoutSecret(t *testing.T) {
	params := Params{}.Add("symbol", "BTCUSDT")

	_, err := BuildPath("/fapi/v1/allOrders", params, HMACSHA256, auth.Credentials{APIKey: "key"}, time.Now())
	if err != auth.ErrMissingSecret {
		t.Errorf("BuildPath() error = %v, want %v", err, auth.ErrMissingSecret)
	}
}

func TestSignMode_String(t *testing.T) {
	if Unsigned.String() != "unsigned" {
		t.Errorf("Unsigned.String() = %q", Unsigned.String())
	}
	if HMACSHA256.String() != "hmac_sha256" {
		t.Errorf("HMACSHA256.String() = %q", HMACSHA256.String())
	}
	if SignMode(9).String() != "SignMode(9)" {
		t.Errorf("SignMode(9).String() = %q", SignMode(9).String())
	}
}
