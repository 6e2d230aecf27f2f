package marketdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"folio/internal/valuation"
)

const aaplSummary = `{"quoteSummary":{"result":[{
	"assetProfile":{"website":"https://www.apple.com","longBusinessSummary":"Apple Inc. designs smartphones."},
	"price":{"longName":"Apple Inc.","marketCap":{"raw":3000000000000,"fmt":"3T"}},
	"summaryDetail":{"dividendYield":{"raw":0.0044},"trailingPE":{"raw":31.456},"forwardPE":{"raw":28.1},
		"fiftyTwoWeekHigh":{"raw":199.62},"fiftyTwoWeekLow":{"raw":164.08},"beta":{"raw":1.286}},
	"defaultKeyStatistics":{"trailingEps":{"raw":6.13},"enterpriseToEbitda":{"raw":23.789},"shortRatio":{"raw":1.5},"pegRatio":{}},
	"financialData":{"debtToEquity":{"raw":145.8},"grossMargins":{"raw":0.45962},"operatingMargins":{"raw":0.30},
		"profitMargins":{"raw":0.2531},"freeCashflow":{"raw":90000000000},"currentRatio":{"raw":0.988},
		"totalDebt":{"raw":108000000000},"totalCash":{"raw":61000000000},"returnOnEquity":{"raw":1.5427},
		"returnOnAssets":{"raw":0.2218},"revenueGrowth":{"raw":-0.014}}
}],"error":null}}`

func TestYahooClient_StockStatistics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/AAPL" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if !strings.Contains(r.URL.Query().Get("modules"), "financialData") {
			t.Errorf("expected financialData module, got %q", r.URL.Query().Get("modules"))
		}
		_, _ = w.Write([]byte(aaplSummary))
	}))
	defer srv.Close()

	c := NewYahooClient(srv.Client(), "").WithEndpoints("", srv.URL)
	stats, err := c.StockStatistics(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.CompanyName != "Apple Inc." || stats.Website != "https://www.apple.com" {
		t.Errorf("unexpected profile %+v", stats)
	}
	if stats.MarketCap != 3000000000000 || stats.Debt != 108000000000 || stats.Cash != 61000000000 {
		t.Errorf("unexpected absolute values %+v", stats)
	}

	checks := []struct {
		name      string
		got, want float64
	}{
		{"eps", stats.EPS, 6.13},
		{"dividend_yield", stats.DividendYield, 0.44},
		{"pe_ratio", stats.PERatio, 31.46},
		{"beta", stats.Beta, 1.29},
		{"gross_margins", stats.GrossMargins, 45.96},
		{"ev_to_ebitda", stats.EVToEBITDA, 23.79},
		{"fcf_yield", stats.FCFYield, 3},
		{"return_on_equity", stats.ReturnOnEquity, 154.27},
		{"revenue_growth", stats.RevenueGrowth, -1.4},
		{"missing_peg_ratio", stats.PEGRatio, 0},
	}
	for _, chk := range checks {
		if chk.got != chk.want {
			t.Errorf("%s: expected %v, got %v", chk.name, chk.want, chk.got)
		}
	}
}

func TestYahooClient_StockStatistics_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"not_found", http.StatusNotFound, ""},
		{"summary_error", http.StatusOK, `{"quoteSummary":{"result":null,"error":{"code":"Not Found","description":"Quote not found for symbol: NOPE"}}}`},
		{"empty_result", http.StatusOK, `{"quoteSummary":{"result":[],"error":null}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewYahooClient(srv.Client(), "").WithEndpoints("", srv.URL)
			_, err := c.StockStatistics(context.Background(), "NOPE")
			if !errors.Is(err, valuation.ErrDataUnavailable) {
				t.Errorf("expected ErrDataUnavailable, got %v", err)
			}
		})
	}
}

func TestStockStatistics_ZeroMarketCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"quoteSummary":{"result":[{"price":{"shortName":"Shell Co"},"financialData":{"freeCashflow":{"raw":5}}}],"error":null}}`))
	}))
	defer srv.Close()

	c := NewYahooClient(srv.Client(), "").WithEndpoints("", srv.URL)
	stats, err := c.StockStatistics(context.Background(), "SHEL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.FCFYield != 0 || stats.CompanyName != "Shell Co" {
		t.Errorf("unexpected statistics %+v", stats)
	}
}
