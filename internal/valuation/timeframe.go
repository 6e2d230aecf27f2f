package valuation

import (
	"fmt"
	"strings"
	"time"
)

// Timeframe is a chart window token.
type Timeframe string

const (
	OneDay      Timeframe = "1D"
	OneWeek     Timeframe = "1W"
	OneMonth    Timeframe = "1M"
	ThreeMonths Timeframe = "3M"
	YearToDate  Timeframe = "YTD"
	OneYear     Timeframe = "1Y"
	All         Timeframe = "ALL"
)

// Timeframes lists every accepted token.
var Timeframes = []Timeframe{OneDay, OneWeek, OneMonth, ThreeMonths, YearToDate, OneYear, All}

// Interval is the sampling granularity of a price grid.
type Interval string

const (
	FiveMinutes   Interval = "5m"
	ThirtyMinutes Interval = "30m"
	NinetyMinutes Interval = "90m"
	Daily         Interval = "1d"
	Weekly        Interval = "1wk"
)

// Intraday reports whether samples are finer than a day.
func (i Interval) Intraday() bool {
	switch i {
	case FiveMinutes, ThirtyMinutes, NinetyMinutes:
		return true
	}
	return false
}

// Display layouts per window width.
const (
	TimeLayout      = "3:04 PM"
	DateTimeLayout  = "01/02 3:04 PM"
	DateLayout      = "01/02/2006"
	epochSeriesYear = 1970
)

// Window is a resolved timeframe.
type Window struct {
	Timeframe  Timeframe
	Start      time.Time
	Interval   Interval
	DateLayout string
}

// ParseTimeframe validates a token. Matching is case-insensitive.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Timeframes {
		if tf == known {
			return tf, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTimeframe, s)
}

// Resolve turns the token into a concrete window ending at now. firstTx is
// the earliest transaction in scope, or the zero time when unknown; it only
// affects ALL.
func (tf Timeframe) Resolve(now, firstTx time.Time) (Window, error) {
	w := Window{Timeframe: tf, DateLayout: DateLayout}
	today := Day(now)

	switch tf {
	case OneDay:
		w.Start = LastBusinessDay(now)
		w.Interval = FiveMinutes
		w.DateLayout = TimeLayout
	case OneWeek:
		w.Start = today.AddDate(0, 0, -7)
		w.Interval = ThirtyMinutes
		w.DateLayout = DateTimeLayout
	case OneMonth:
		w.Start = today.AddDate(0, -1, 0)
		w.Interval = NinetyMinutes
		w.DateLayout = DateTimeLayout
	case ThreeMonths:
		w.Start = today.AddDate(0, -3, 0)
		w.Interval = Daily
	case YearToDate:
		w.Start = time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		w.Interval = Daily
	case OneYear:
		w.Start = today.AddDate(-1, 0, 0)
		w.Interval = Daily
	case All:
		w.Start = time.Date(epochSeriesYear, time.January, 1, 0, 0, 0, 0, time.UTC)
		if !firstTx.IsZero() {
			w.Start = Day(firstTx)
		}
		w.Interval = IntervalForSpan(w.Start, now)
	default:
		return Window{}, fmt.Errorf("%w: %q", ErrInvalidTimeframe, string(tf))
	}
	return w, nil
}

// IntervalForSpan picks a sampling interval for a window starting at start.
func IntervalForSpan(start, now time.Time) Interval {
	span := now.Sub(start)
	day := 24 * time.Hour
	switch {
	case span < 2*day:
		return FiveMinutes
	case span < 7*day:
		return ThirtyMinutes
	case span < 30*day:
		return NinetyMinutes
	case span < 365*day:
		return Daily
	default:
		return Weekly
	}
}
