// Package store caches downloaded price history so repeated runs over the
// same window do not hit the data provider again. Only raw prices are
// stored; computed portfolios are never persisted.
package store

import (
	"context"
	"time"

	"github.com/mdc5017/QuantFinanceCourse/internal/model"
)

// PriceCache persists daily bars per (symbol, source) and remembers which
// date windows have been fetched in full.
type PriceCache interface {
	// Load returns the cached bars in [from, to) and whether a previous Save
	// covered the whole window.
	Load(ctx context.Context, symbol, source string, from, to time.Time) ([]model.OHLCV, bool, error)
	Save(ctx context.Context, symbol, source string, from, to time.Time, bars []model.OHLCV) error
	Close() error
}
