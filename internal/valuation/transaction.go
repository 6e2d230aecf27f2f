// Package valuation replays portfolio transaction histories into holdings,
// aggregates per-ticker positions and builds benchmarked chart series.
//
// Everything in this package is a pure function of its inputs: prices are
// supplied by the caller and no state outlives a single call.
package valuation

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the side of a trade.
type TransactionType string

const (
	Buy  TransactionType = "BUY"
	Sell TransactionType = "SELL"
)

// dateKeyLayout is the calendar-date key used for daily price lookups.
const dateKeyLayout = "2006-01-02"

// Transaction is an immutable trade event.
type Transaction struct {
	Ticker      string
	Quantity    decimal.Decimal
	PriceCents  int64
	Type        TransactionType
	PurchasedAt time.Time
	CreatedAt   time.Time
}

// CostCents returns quantity x unit price rounded to whole cents.
func (t Transaction) CostCents() int64 {
	return t.Quantity.Mul(decimal.NewFromInt(t.PriceCents)).Round(0).IntPart()
}

// Before reports whether t sorts ahead of other by (purchased_at, created_at).
func (t Transaction) Before(other Transaction) bool {
	if !t.PurchasedAt.Equal(other.PurchasedAt) {
		return t.PurchasedAt.Before(other.PurchasedAt)
	}
	return t.CreatedAt.Before(other.CreatedAt)
}

// SortTransactions returns a copy of txs in replay order. Equal keys keep
// their input order.
func SortTransactions(txs []Transaction) []Transaction {
	sorted := make([]Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Before(sorted[j])
	})
	return sorted
}

// SplitAt partitions sorted transactions into those dated strictly before the
// calendar day of cutoff and the rest.
func SplitAt(sorted []Transaction, cutoff time.Time) (before, within []Transaction) {
	day := Day(cutoff)
	i := sort.Search(len(sorted), func(i int) bool {
		return !Day(sorted[i].PurchasedAt).Before(day)
	})
	return sorted[:i], sorted[i:]
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateKey formats the calendar date of t for price maps.
func DateKey(t time.Time) string {
	return t.Format(dateKeyLayout)
}

// BenchmarkPrices maps a calendar date key to the benchmark's price in cents.
type BenchmarkPrices map[string]int64

// On returns the benchmark price for the calendar date of t.
func (b BenchmarkPrices) On(t time.Time) (int64, bool) {
	p, ok := b[DateKey(t)]
	return p, ok && p > 0
}

// Dates returns the distinct calendar dates touched by txs.
func Dates(txs []Transaction) []time.Time {
	seen := make(map[string]bool, len(txs))
	dates := make([]time.Time, 0, len(txs))
	for _, tx := range txs {
		key := DateKey(tx.PurchasedAt)
		if seen[key] {
			continue
		}
		seen[key] = true
		dates = append(dates, Day(tx.PurchasedAt))
	}
	return dates
}

// Tickers returns the distinct tickers in txs, sorted.
func Tickers(txs []Transaction) []string {
	seen := make(map[string]bool)
	var tickers []string
	for _, tx := range txs {
		if !seen[tx.Ticker] {
			seen[tx.Ticker] = true
			tickers = append(tickers, tx.Ticker)
		}
	}
	sort.Strings(tickers)
	return tickers
}
