// Package pipeline runs the Markowitz workflow end to end: fetch prices,
// compute log returns and annualised moments, sample random portfolios and
// find the maximum-Sharpe portfolio.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/mdc5017/QuantFinanceCourse/internal/calculator"
	"github.com/mdc5017/QuantFinanceCourse/internal/collector"
	"github.com/mdc5017/QuantFinanceCourse/internal/markowitz"
	"github.com/mdc5017/QuantFinanceCourse/internal/model"
	"github.com/mdc5017/QuantFinanceCourse/internal/rng"
)

// Settings are the explicit knobs of one run.
type Settings struct {
	Symbols     []string
	From, To    time.Time
	TradingDays float64
	SampleCount int
	// Restarts adds that many of the best sampled portfolios, plus the
	// equal-weight portfolio, as extra optimiser starts.
	Restarts int
	Seed     uint64
	Options  markowitz.Options
}

// Result carries every intermediate artifact of a run.
type Result struct {
	Prices  *model.PriceMatrix
	Returns *model.ReturnMatrix
	Moments *model.MomentEstimates
	Samples []model.PortfolioPoint
	Initial model.WeightVector
	Optimal *model.OptimizationResult
	Elapsed time.Duration
}

// Pipeline wires a Collector to the computation stages.
type Pipeline struct {
	Collector *collector.Collector
	Settings  Settings
	VaR       VaRSettings
}

// New creates a Pipeline.
func New(col *collector.Collector, s Settings) *Pipeline {
	return &Pipeline{Collector: col, Settings: s}
}

// Run fetches prices for the configured window and analyses them.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	prices, err := p.Collector.Collect(ctx, p.Settings.Symbols, p.Settings.From, p.Settings.To)
	if err != nil {
		return nil, fmt.Errorf("collect prices: %w", err)
	}
	log.Printf("[INFO] collected %d aligned rows for %d symbols", prices.Rows(), prices.Cols())
	return Analyze(ctx, prices, p.Settings)
}

// Analyze runs every computation stage on an in-memory price matrix. The
// random source is seeded from s.Seed so a run is reproducible.
func Analyze(ctx context.Context, prices *model.PriceMatrix, s Settings) (*Result, error) {
	start := time.Now()
	res := &Result{Prices: prices}

	var err error
	if res.Returns, err = calculator.ComputeReturns(prices); err != nil {
		return nil, fmt.Errorf("compute returns: %w", err)
	}
	days := s.TradingDays
	if days == 0 {
		days = calculator.DefaultTradingDays
	}
	if res.Moments, err = calculator.ComputeMoments(res.Returns, days); err != nil {
		return nil, fmt.Errorf("compute moments: %w", err)
	}
	if res.Samples, err = markowitz.SamplePortfolios(ctx, res.Moments, s.SampleCount, rng.New(s.Seed)); err != nil {
		return nil, fmt.Errorf("sample portfolios: %w", err)
	}

	// The first sampled portfolio is the initial guess.
	res.Initial = res.Samples[0].Weights.Clone()
	starts := append([]model.WeightVector{res.Initial}, extraStarts(res.Samples, res.Moments.Dim(), s.Restarts)...)

	if len(starts) == 1 {
		res.Optimal, err = markowitz.Optimize(res.Moments, res.Initial, s.Options)
	} else {
		res.Optimal, err = markowitz.OptimizeMultiStart(ctx, res.Moments, starts, s.Options)
	}
	if err != nil {
		return nil, fmt.Errorf("optimize: %w", err)
	}
	res.Elapsed = time.Since(start)
	log.Printf("[INFO] optimum sharpe %.4f after %d iterations (%d starts, %v)",
		res.Optimal.Sharpe, res.Optimal.Iterations, len(starts), res.Elapsed)
	return res, nil
}

func extraStarts(samples []model.PortfolioPoint, n, restarts int) []model.WeightVector {
	if restarts <= 0 {
		return nil
	}
	idx := make([]int, len(samples))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return samples[idx[a]].Sharpe() > samples[idx[b]].Sharpe() })

	out := make([]model.WeightVector, 0, restarts+1)
	for _, i := range idx[:min(restarts, len(idx))] {
		out = append(out, samples[i].Weights.Clone())
	}
	return append(out, model.EqualWeights(n))
}

// PerAssetBounds builds optimiser bounds from a default interval and
// per-symbol overrides. It returns nil when there are no overrides.
func PerAssetBounds(symbols []string, def model.Bounds, overrides map[string]model.Bounds) []model.Bounds {
	if len(overrides) == 0 {
		return nil
	}
	out := make([]model.Bounds, len(symbols))
	for i, s := range symbols {
		out[i] = def
		if b, ok := overrides[s]; ok {
			out[i] = b
		}
	}
	return out
}
