package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stablewatch/velocity-monitor/internal/config"
)

func fraxToken() config.Token {
	return config.Token{Symbol: "FRAX", CoinGeckoID: "frax", Decimals: 18, PegValue: 1.0}
}

func TestFetchSupply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/simple/price"):
			if got := r.URL.Query().Get("ids"); got != "frax" {
				t.Errorf("ids = %q", got)
			}
			w.Write([]byte(`{"frax": {"usd": 0.9987, "last_updated_at": 1724750000}}`))
		case strings.HasPrefix(r.URL.Path, "/coins/frax"):
			w.Write([]byte(`{"market_data": {"total_supply": 319906477.62}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	g := NewCoinGecko(fastClient(), srv.URL, "")
	supply, price, err := g.FetchSupply(context.Background(), fraxToken())
	if err != nil {
		t.Fatalf("FetchSupply: %v", err)
	}
	if supply != 319906477.62 {
		t.Errorf("supply = %v", supply)
	}
	if price != 0.9987 {
		t.Errorf("price = %v", price)
	}
}

func TestFetchSupplyAPIKeyHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-cg-demo-api-key"); got != "test-key" {
			t.Errorf("api key header = %q", got)
		}
		if strings.HasPrefix(r.URL.Path, "/simple/price") {
			w.Write([]byte(`{"frax": {"usd": 1.0}}`))
			return
		}
		w.Write([]byte(`{"market_data": {"total_supply": 100}}`))
	}))
	defer srv.Close()

	g := NewCoinGecko(fastClient(), srv.URL, "test-key")
	if _, _, err := g.FetchSupply(context.Background(), fraxToken()); err != nil {
		t.Fatalf("FetchSupply: %v", err)
	}
}

func TestFetchSupplyMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	g := NewCoinGecko(fastClient(), srv.URL, "")
	_, _, err := g.FetchSupply(context.Background(), fraxToken())
	if err == nil || !strings.Contains(err.Error(), "missing from response") {
		t.Errorf("err = %v, want missing-id error", err)
	}
}

func TestFetchSupplyNoSupplyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/simple/price") {
			w.Write([]byte(`{"frax": {"usd": 1.0}}`))
			return
		}
		w.Write([]byte(`{"market_data": {"total_supply": 0}}`))
	}))
	defer srv.Close()

	g := NewCoinGecko(fastClient(), srv.URL, "")
	_, _, err := g.FetchSupply(context.Background(), fraxToken())
	if err == nil || !strings.Contains(err.Error(), "no supply data") {
		t.Errorf("err = %v, want no-supply error", err)
	}
}
