package marketdata

import (
	"context"
	"net/url"
	"strconv"
)

// SymbolMatch is one equity returned by the symbol search.
type SymbolMatch struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
}

type yahooSearchResponse struct {
	Quotes []struct {
		Symbol    string `json:"symbol"`
		ShortName string `json:"shortname"`
		LongName  string `json:"longname"`
		QuoteType string `json:"quoteType"`
	} `json:"quotes"`
}

// SearchSymbols looks up equities whose symbol or name matches query. Funds,
// currencies and other quote types are dropped, so fewer than limit matches
// may come back.
func (c *YahooClient) SearchSymbols(ctx context.Context, query string, limit int) ([]SymbolMatch, error) {
	v := url.Values{}
	v.Set("q", query)
	v.Set("quotesCount", strconv.Itoa(limit))
	v.Set("newsCount", "0")
	v.Set("enableFuzzyQuery", "false")

	var resp yahooSearchResponse
	if err := c.getJSON(ctx, "search", query, c.searchURL+"?"+v.Encode(), &resp); err != nil {
		return nil, err
	}

	matches := make([]SymbolMatch, 0, len(resp.Quotes))
	for _, q := range resp.Quotes {
		if q.QuoteType != "EQUITY" || q.Symbol == "" {
			continue
		}
		name := q.ShortName
		if name == "" {
			name = q.LongName
		}
		matches = append(matches, SymbolMatch{Ticker: q.Symbol, Name: name})
	}
	return matches, nil
}
