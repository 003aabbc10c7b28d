package store

import (
	"context"
	"time"

	"github.com/mdc5017/QuantFinanceCourse/internal/model"
)

// NoopCache is used when SQLite is not configured. It never hits.
type NoopCache struct{}

func NewNoopCache() *NoopCache { return &NoopCache{} }

func (n *NoopCache) Load(_ context.Context, _, _ string, _, _ time.Time) ([]model.OHLCV, bool, error) {
	return nil, false, nil
}

func (n *NoopCache) Save(_ context.Context, _, _ string, _, _ time.Time, _ []model.OHLCV) error {
	return nil
}

func (n *NoopCache) Close() error { return nil }
