package features

import (
	"fmt"
	"time"

	"FerryCast/internal/domain/models"
	xutil "FerryCast/pkg/util"
)

// BuildWindow returns the ascending dates a request covers, padded backward so
// that it holds at least lookback days.
//
// A single-day request yields the lookback days ending on that day; a range yields
// every day of the range, extended before start when it is shorter than lookback.
func BuildWindow(start, end time.Time, lookback int) ([]time.Time, error) {
	if lookback < 1 {
		return nil, fmt.Errorf("%w: lookback %d", models.ErrSchemaMismatch, lookback)
	}
	start, end = xutil.TruncateDay(start), xutil.TruncateDay(end)
	if start.After(end) {
		return nil, fmt.Errorf("%w: start %s is after end %s",
			models.ErrInvalidRange, xutil.FormatDate(start), xutil.FormatDate(end))
	}

	span := xutil.DaysBetween(start, end) + 1
	n := span
	if n < lookback {
		n = lookback
	}

	first := xutil.AddDays(end, -(n - 1))
	window := make([]time.Time, n)
	for i := range window {
		window[i] = xutil.AddDays(first, i)
	}
	return window, nil
}

// ModelInput returns the trailing lookback dates of window; the last one is the
// anchor date the model's single prediction refers to.
func ModelInput(window []time.Time, lookback int) ([]time.Time, error) {
	if lookback < 1 || len(window) < lookback {
		return nil, fmt.Errorf("%w: window of %d dates for lookback %d",
			models.ErrSchemaMismatch, len(window), lookback)
	}
	return window[len(window)-lookback:], nil
}
