package valuation

import "errors"

// Replay errors.
var (
	ErrInvalidTransaction    = errors.New("invalid transaction")
	ErrMissingBenchmarkPrice = errors.New("no benchmark price for transaction date")
	ErrOversold              = errors.New("sell exceeds held shares")
)

// Price lookup errors.
var (
	ErrMissingPrice    = errors.New("missing price")
	ErrRateLimited     = errors.New("market data rate limited")
	ErrDataUnavailable = errors.New("market data unavailable")
)

// Input errors.
var (
	ErrInvalidTimeframe     = errors.New("invalid timeframe")
	ErrInvalidCompareSymbol = errors.New("invalid compare symbol")
	ErrZeroBaseline         = errors.New("series starts at zero")
)
