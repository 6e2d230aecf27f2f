package marketdata

import (
	"context"
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"

	"folio/internal/valuation"
)

// summaryModules are the quoteSummary sections StockStatistics reads.
const summaryModules = "assetProfile,price,summaryDetail,defaultKeyStatistics,financialData"

// StockStatistics is the company profile and fundamentals of one ticker.
// Ratios are rounded to two places; margins, yields and returns are percents.
type StockStatistics struct {
	CompanyName      string  `json:"company_name"`
	Website          string  `json:"website"`
	Description      string  `json:"description"`
	MarketCap        int64   `json:"market_cap"`
	EPS              float64 `json:"eps"`
	DividendYield    float64 `json:"dividend_yield"`
	PERatio          float64 `json:"pe_ratio"`
	ForwardPE        float64 `json:"forward_pe"`
	FiftyTwoWeekHigh float64 `json:"fifty_two_week_high"`
	FiftyTwoWeekLow  float64 `json:"fifty_two_week_low"`
	Beta             float64 `json:"beta"`
	DebtToEquity     float64 `json:"debt_to_equity"`
	GrossMargins     float64 `json:"gross_margins"`
	OperatingMargins float64 `json:"operating_margins"`
	ProfitMargins    float64 `json:"profit_margins"`
	EVToEBITDA       float64 `json:"ev_to_ebitda"`
	ShortRatio       float64 `json:"short_ratio"`
	FCFYield         float64 `json:"fcf_yield"`
	CurrentRatio     float64 `json:"current_ratio"`
	Debt             int64   `json:"debt"`
	Cash             int64   `json:"cash"`
	ReturnOnEquity   float64 `json:"return_on_equity"`
	ReturnOnAssets   float64 `json:"return_on_assets"`
	PEGRatio         float64 `json:"peg_ratio"`
	RevenueGrowth    float64 `json:"revenue_growth"`
}

// rawValue is Yahoo's {"raw": 1.23, "fmt": "1.23"} number. Missing values
// decode as zero.
type rawValue struct {
	Raw decimal.Decimal `json:"raw"`
}

type yahooSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			AssetProfile struct {
				Website             string `json:"website"`
				LongBusinessSummary string `json:"longBusinessSummary"`
			} `json:"assetProfile"`
			Price struct {
				LongName  string   `json:"longName"`
				ShortName string   `json:"shortName"`
				MarketCap rawValue `json:"marketCap"`
			} `json:"price"`
			SummaryDetail struct {
				DividendYield    rawValue `json:"dividendYield"`
				TrailingPE       rawValue `json:"trailingPE"`
				ForwardPE        rawValue `json:"forwardPE"`
				FiftyTwoWeekHigh rawValue `json:"fiftyTwoWeekHigh"`
				FiftyTwoWeekLow  rawValue `json:"fiftyTwoWeekLow"`
				Beta             rawValue `json:"beta"`
			} `json:"summaryDetail"`
			DefaultKeyStatistics struct {
				TrailingEps        rawValue `json:"trailingEps"`
				EnterpriseToEbitda rawValue `json:"enterpriseToEbitda"`
				ShortRatio         rawValue `json:"shortRatio"`
				PegRatio           rawValue `json:"pegRatio"`
			} `json:"defaultKeyStatistics"`
			FinancialData struct {
				DebtToEquity     rawValue `json:"debtToEquity"`
				GrossMargins     rawValue `json:"grossMargins"`
				OperatingMargins rawValue `json:"operatingMargins"`
				ProfitMargins    rawValue `json:"profitMargins"`
				FreeCashflow     rawValue `json:"freeCashflow"`
				CurrentRatio     rawValue `json:"currentRatio"`
				TotalDebt        rawValue `json:"totalDebt"`
				TotalCash        rawValue `json:"totalCash"`
				ReturnOnEquity   rawValue `json:"returnOnEquity"`
				ReturnOnAssets   rawValue `json:"returnOnAssets"`
				RevenueGrowth    rawValue `json:"revenueGrowth"`
			} `json:"financialData"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

// StockStatistics fetches the profile and fundamentals of ticker.
//
// TODO: Yahoo has started gating quoteSummary behind a cookie and crumb pair;
// fetch the crumb from /v1/test/getcrumb once anonymous requests are refused.
func (c *YahooClient) StockStatistics(ctx context.Context, ticker string) (*StockStatistics, error) {
	v := url.Values{}
	v.Set("modules", summaryModules)

	var resp yahooSummaryResponse
	u := c.summaryURL + "/" + url.PathEscape(ticker) + "?" + v.Encode()
	if err := c.getJSON(ctx, "stock_statistics", ticker, u, &resp); err != nil {
		return nil, err
	}
	if e := resp.QuoteSummary.Error; e != nil {
		return nil, fmt.Errorf("%w: %s: %s", valuation.ErrDataUnavailable, ticker, e.Description)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("%w: no statistics for %s", valuation.ErrDataUnavailable, ticker)
	}

	r := resp.QuoteSummary.Result[0]
	fin := r.FinancialData
	name := r.Price.LongName
	if name == "" {
		name = r.Price.ShortName
	}

	var fcfYield decimal.Decimal
	if !r.Price.MarketCap.Raw.IsZero() {
		fcfYield = fin.FreeCashflow.Raw.Div(r.Price.MarketCap.Raw)
	}

	return &StockStatistics{
		CompanyName:      name,
		Website:          r.AssetProfile.Website,
		Description:      r.AssetProfile.LongBusinessSummary,
		MarketCap:        r.Price.MarketCap.Raw.IntPart(),
		EPS:              round2(r.DefaultKeyStatistics.TrailingEps.Raw),
		DividendYield:    percent(r.SummaryDetail.DividendYield.Raw),
		PERatio:          round2(r.SummaryDetail.TrailingPE.Raw),
		ForwardPE:        round2(r.SummaryDetail.ForwardPE.Raw),
		FiftyTwoWeekHigh: round2(r.SummaryDetail.FiftyTwoWeekHigh.Raw),
		FiftyTwoWeekLow:  round2(r.SummaryDetail.FiftyTwoWeekLow.Raw),
		Beta:             round2(r.SummaryDetail.Beta.Raw),
		DebtToEquity:     round2(fin.DebtToEquity.Raw),
		GrossMargins:     percent(fin.GrossMargins.Raw),
		OperatingMargins: percent(fin.OperatingMargins.Raw),
		ProfitMargins:    percent(fin.ProfitMargins.Raw),
		EVToEBITDA:       round2(r.DefaultKeyStatistics.EnterpriseToEbitda.Raw),
		ShortRatio:       round2(r.DefaultKeyStatistics.ShortRatio.Raw),
		FCFYield:         percent(fcfYield),
		CurrentRatio:     round2(fin.CurrentRatio.Raw),
		Debt:             fin.TotalDebt.Raw.IntPart(),
		Cash:             fin.TotalCash.Raw.IntPart(),
		ReturnOnEquity:   percent(fin.ReturnOnEquity.Raw),
		ReturnOnAssets:   percent(fin.ReturnOnAssets.Raw),
		PEGRatio:         round2(r.DefaultKeyStatistics.PegRatio.Raw),
		RevenueGrowth:    percent(fin.RevenueGrowth.Raw),
	}, nil
}

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// percent converts a ratio to a percent rounded to two places.
func percent(d decimal.Decimal) float64 {
	return round2(d.Shift(2))
}
