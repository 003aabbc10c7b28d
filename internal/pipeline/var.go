package pipeline

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/mdc5017/QuantFinanceCourse/internal/report"
	"github.com/mdc5017/QuantFinanceCourse/internal/risk"
	"github.com/mdc5017/QuantFinanceCourse/internal/rng"
)

// VaRSettings configures a single-position Value-at-Risk run.
type VaRSettings struct {
	Symbol     string
	From, To   time.Time
	Investment float64
	Confidence float64
	Days       int
	Iterations int
	Seed       uint64
}

// RunVaR fetches the symbol's closes, estimates daily drift and volatility
// and simulates the position value over the horizon.
func (p *Pipeline) RunVaR(ctx context.Context) (*report.VaRReport, error) {
	s := p.VaR
	series, err := p.Collector.FetchSeries(ctx, s.Symbol, s.From, s.To)
	if err != nil {
		return nil, err
	}
	mu, sigma, err := risk.EstimateDailyParams(series.Closes())
	if err != nil {
		return nil, fmt.Errorf("estimate %s returns: %w", s.Symbol, err)
	}
	sim := risk.MonteCarloVaR{
		Investment: s.Investment,
		Mu:         mu,
		Sigma:      sigma,
		Confidence: s.Confidence,
		Days:       s.Days,
		Iterations: s.Iterations,
	}
	res, err := sim.Simulate(rng.New(s.Seed))
	if err != nil {
		return nil, fmt.Errorf("simulate var: %w", err)
	}
	parametric, err := sim.Parametric()
	if err != nil {
		return nil, fmt.Errorf("parametric var: %w", err)
	}
	closes := series.Closes()
	logReturns := make([]float64, len(closes)-1)
	for i := range logReturns {
		logReturns[i] = math.Log(closes[i+1] / closes[i])
	}
	historical, err := risk.Historical(s.Investment, logReturns, s.Confidence)
	if err != nil {
		return nil, fmt.Errorf("historical var: %w", err)
	}
	return &report.VaRReport{
		Symbol:     s.Symbol,
		Params:     sim,
		Simulated:  res,
		Parametric: parametric,
		Historical: historical,
	}, nil
}
