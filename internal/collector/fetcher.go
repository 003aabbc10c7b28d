package collector

import (
	"context"
	"time"

	"github.com/mdc5017/QuantFinanceCourse/internal/model"
)

// Fetcher loads daily price history for one symbol.
//
// FetchDailyBars returns bars with from <= Time < to in chronological
// order. An unknown symbol or an empty window is reported as
// model.ErrInvalidInput.
type Fetcher interface {
	FetchDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]model.OHLCV, error)
	Name() string
}

// filterRange keeps bars inside [from, to) and sorts them by time.
func filterRange(bars []model.OHLCV, from, to time.Time) []model.OHLCV {
	out := make([]model.OHLCV, 0, len(bars))
	for _, b := range bars {
		if !b.Time.Before(from) && b.Time.Before(to) {
			out = append(out, b)
		}
	}
	sortBars(out)
	return out
}
