// Package risk estimates Value-at-Risk for a single position under a
// log-normal price model.
package risk

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/mdc5017/QuantFinanceCourse/internal/model"
	"github.com/mdc5017/QuantFinanceCourse/internal/rng"
)

// EstimateDailyParams returns the mean and population standard deviation of
// the daily log returns of closes.
func EstimateDailyParams(closes []float64) (mu, sigma float64, err error) {
	if len(closes) < 2 {
		return 0, 0, fmt.Errorf("%w: need at least 2 prices, got %d", model.ErrInvalidInput, len(closes))
	}
	returns := make([]float64, len(closes)-1)
	for i := range returns {
		if !(closes[i] > 0) || !(closes[i+1] > 0) {
			return 0, 0, fmt.Errorf("%w: non-positive price at %d", model.ErrInvalidInput, i)
		}
		returns[i] = math.Log(closes[i+1] / closes[i])
	}
	mu, sigma = stat.PopMeanStdDev(returns, nil)
	return mu, sigma, nil
}

// MonteCarloVaR simulates the value of Investment after Days days when
// daily log returns are N(Mu, Sigma).
type MonteCarloVaR struct {
	Investment float64
	Mu         float64
	Sigma      float64
	Confidence float64
	Days       int
	Iterations int
}

// Result is a VaR estimate in currency units. Percentile is the simulated
// position value at the 1-Confidence quantile.
type Result struct {
	VaR               float64
	ExpectedShortfall float64
	Percentile        float64
}

func (v MonteCarloVaR) validate() error {
	switch {
	case !(v.Investment > 0):
		return fmt.Errorf("%w: investment must be positive, got %v", model.ErrInvalidInput, v.Investment)
	case !(v.Confidence > 0 && v.Confidence < 1):
		return fmt.Errorf("%w: confidence must be in (0,1), got %v", model.ErrInvalidInput, v.Confidence)
	case v.Days <= 0:
		return fmt.Errorf("%w: horizon must be at least one day, got %d", model.ErrInvalidInput, v.Days)
	case v.Sigma < 0 || math.IsNaN(v.Sigma) || math.IsNaN(v.Mu):
		return fmt.Errorf("%w: invalid return parameters mu=%v sigma=%v", model.ErrInvalidInput, v.Mu, v.Sigma)
	}
	return nil
}

// Simulate draws Iterations terminal values
// S exp(n(mu - sigma^2/2) + sigma sqrt(n) Z) and reports S minus their
// (1-c) percentile, interpolated linearly between order statistics.
func (v MonteCarloVaR) Simulate(src rng.Source) (Result, error) {
	if err := v.validate(); err != nil {
		return Result{}, err
	}
	if v.Iterations <= 0 {
		return Result{}, fmt.Errorf("%w: iterations must be positive, got %d", model.ErrInvalidInput, v.Iterations)
	}
	if src == nil {
		return Result{}, fmt.Errorf("%w: nil random source", model.ErrInvalidInput)
	}

	n := float64(v.Days)
	drift := n * (v.Mu - 0.5*v.Sigma*v.Sigma)
	vol := v.Sigma * math.Sqrt(n)
	values := make([]float64, v.Iterations)
	for i := range values {
		values[i] = v.Investment * math.Exp(drift+vol*src.NormFloat64())
	}
	sort.Float64s(values)

	q := percentile(values, 1-v.Confidence)
	var tail float64
	var k int
	for _, x := range values {
		if x > q {
			break
		}
		tail += x
		k++
	}
	es := v.Investment - q
	if k > 0 {
		es = v.Investment - tail/float64(k)
	}
	return Result{VaR: v.Investment - q, ExpectedShortfall: es, Percentile: q}, nil
}

// Parametric is the closed-form VaR of the same log-normal model:
// S (1 - exp(n(mu - sigma^2/2) + sigma sqrt(n) z)), z the (1-c) normal quantile.
func (v MonteCarloVaR) Parametric() (float64, error) {
	if err := v.validate(); err != nil {
		return 0, err
	}
	n := float64(v.Days)
	z := distuv.UnitNormal.Quantile(1 - v.Confidence)
	return v.Investment * (1 - math.Exp(n*(v.Mu-0.5*v.Sigma*v.Sigma)+v.Sigma*math.Sqrt(n)*z)), nil
}

// Historical is the one-day VaR from the empirical (1-c) quantile of the
// observed log returns.
func Historical(investment float64, logReturns []float64, confidence float64) (float64, error) {
	if len(logReturns) == 0 {
		return 0, fmt.Errorf("%w: no returns", model.ErrInvalidInput)
	}
	if !(confidence > 0 && confidence < 1) {
		return 0, fmt.Errorf("%w: confidence must be in (0,1), got %v", model.ErrInvalidInput, confidence)
	}
	sorted := append([]float64(nil), logReturns...)
	sort.Float64s(sorted)
	q := stat.Quantile(1-confidence, stat.Empirical, sorted, nil)
	return investment * (1 - math.Exp(q)), nil
}

// percentile interpolates at rank p*(len-1) of sorted data, the convention
// of numpy's default percentile; stat.LinInterp ranks by p*len instead.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
