package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/stablewatch/velocity-monitor/internal/config"
)

// CoinGecko fetches stablecoin supply and price from the CoinGecko API.
type CoinGecko struct {
	client  *Client
	baseURL string
	apiKey  string
}

func NewCoinGecko(client *Client, baseURL, apiKey string) *CoinGecko {
	return &CoinGecko{client: client, baseURL: baseURL, apiKey: apiKey}
}

func (g *CoinGecko) Name() string { return "coingecko" }

type simplePriceEntry struct {
	USD           float64 `json:"usd"`
	LastUpdatedAt int64   `json:"last_updated_at"`
}

type coinDetailResp struct {
	MarketData struct {
		TotalSupply float64 `json:"total_supply"`
	} `json:"market_data"`
}

// FetchSupply returns the current total supply and USD price for a token.
// It issues two requests: the cheap simple-price endpoint for the price and
// the coin detail endpoint for the total supply.
func (g *CoinGecko) FetchSupply(ctx context.Context, tok config.Token) (supply, price float64, err error) {
	priceURL := fmt.Sprintf(
		"%s/simple/price?ids=%s&vs_currencies=usd&include_last_updated_at=true&precision=4",
		g.baseURL, url.QueryEscape(tok.CoinGeckoID))

	var prices map[string]simplePriceEntry
	if err := g.client.GetJSON(ctx, priceURL, g.header(), &prices); err != nil {
		return 0, 0, fmt.Errorf("coingecko price %s: %w", tok.Symbol, err)
	}
	entry, ok := prices[tok.CoinGeckoID]
	if !ok {
		return 0, 0, fmt.Errorf("coingecko price %s: id %q missing from response", tok.Symbol, tok.CoinGeckoID)
	}

	detailURL := fmt.Sprintf(
		"%s/coins/%s?localization=false&tickers=false&market_data=true&community_data=false&developer_data=false&sparkline=false",
		g.baseURL, url.PathEscape(tok.CoinGeckoID))

	var detail coinDetailResp
	if err := g.client.GetJSON(ctx, detailURL, g.header(), &detail); err != nil {
		return 0, 0, fmt.Errorf("coingecko supply %s: %w", tok.Symbol, err)
	}
	if detail.MarketData.TotalSupply <= 0 {
		return 0, 0, fmt.Errorf("coingecko supply %s: no supply data", tok.Symbol)
	}

	return detail.MarketData.TotalSupply, entry.USD, nil
}

func (g *CoinGecko) header() http.Header {
	if g.apiKey == "" {
		return nil
	}
	return http.Header{"x-cg-demo-api-key": []string{g.apiKey}}
}
