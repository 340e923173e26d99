package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Token describes one tracked stablecoin. Order in the list is the order
// tokens appear in every rendered report.
type Token struct {
	Symbol      string  `yaml:"symbol" json:"symbol"`
	CoinGeckoID string  `yaml:"coingecko_id" json:"coingecko_id"`
	Contract    string  `yaml:"contract" json:"contract"`
	Decimals    int     `yaml:"decimals" json:"decimals"`
	PegValue    float64 `yaml:"peg_value" json:"peg_value"`
	PegCurrency string  `yaml:"peg_currency" json:"peg_currency"`
}

type tokensFile struct {
	Tokens []Token `yaml:"tokens"`
}

// DefaultTokens is the built-in watch list (Ethereum mainnet contracts).
func DefaultTokens() []Token {
	return []Token{
		{Symbol: "FRAX", CoinGeckoID: "frax", Contract: "0x853d955acef822db058eb8505911ed77f175b99e", Decimals: 18, PegValue: 1.0, PegCurrency: "USD"},
		{Symbol: "DAI", CoinGeckoID: "dai", Contract: "0x6b175474e89094c44da98b954eedeac495271d0f", Decimals: 18, PegValue: 1.0, PegCurrency: "USD"},
		{Symbol: "EURC", CoinGeckoID: "euro-coin", Contract: "0x1abaea1f7c830bd89acc67ec4af516284b1bc33c", Decimals: 6, PegValue: 1.0, PegCurrency: "EUR"},
		{Symbol: "USDe", CoinGeckoID: "ethena-usde", Contract: "0x4c9edd5852cd905f086c759e8383e09bff1e68b3", Decimals: 18, PegValue: 1.0, PegCurrency: "USD"},
	}
}

// LoadTokens reads the watch list from a YAML file, falling back to the
// built-in defaults when path is empty.
func LoadTokens(path string) ([]Token, error) {
	if path == "" {
		return DefaultTokens(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tokens file: %w", err)
	}

	var tf tokensFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parse tokens file: %w", err)
	}
	if len(tf.Tokens) == 0 {
		return nil, fmt.Errorf("tokens file %s lists no tokens", path)
	}

	for i := range tf.Tokens {
		if tf.Tokens[i].Symbol == "" {
			return nil, fmt.Errorf("tokens file %s: entry %d has no symbol", path, i)
		}
		if tf.Tokens[i].Decimals == 0 {
			tf.Tokens[i].Decimals = 18
		}
		if tf.Tokens[i].PegValue == 0 {
			tf.Tokens[i].PegValue = 1.0
		}
		if tf.Tokens[i].PegCurrency == "" {
			tf.Tokens[i].PegCurrency = "USD"
		}
	}
	return tf.Tokens, nil
}
