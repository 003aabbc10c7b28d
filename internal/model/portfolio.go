package model

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// MomentEstimates are the annualised first and second moments of a
// ReturnMatrix. Mean and Covariance are scaled by the same TradingDays.
type MomentEstimates struct {
	Symbols     []string
	Mean        []float64
	Covariance  *mat.SymDense
	TradingDays float64
}

// Dim returns the number of assets.
func (m *MomentEstimates) Dim() int { return len(m.Mean) }

// WeightVector holds one weight per asset, summing to 1.
type WeightVector []float64

// Sum returns the total weight.
func (w WeightVector) Sum() float64 {
	var s float64
	for _, v := range w {
		s += v
	}
	return s
}

// EqualWeights returns the 1/n portfolio.
func EqualWeights(n int) WeightVector {
	w := make(WeightVector, n)
	for i := range w {
		w[i] = 1 / float64(n)
	}
	return w
}

// Clone returns an independent copy.
func (w WeightVector) Clone() WeightVector {
	out := make(WeightVector, len(w))
	copy(out, w)
	return out
}

// PortfolioPoint is one evaluated candidate portfolio.
type PortfolioPoint struct {
	Weights    WeightVector
	Return     float64
	Volatility float64
}

// Sharpe is Return/Volatility with a zero risk-free rate.
func (p PortfolioPoint) Sharpe() float64 {
	if p.Volatility == 0 {
		return math.Inf(-1)
	}
	return p.Return / p.Volatility
}

// OptimizationResult is the terminal artifact of a Sharpe optimisation.
type OptimizationResult struct {
	Symbols    []string
	Weights    WeightVector
	Return     float64
	Volatility float64
	Sharpe     float64
	Iterations int
	Converged  bool
}

// Bounds is an inclusive per-asset weight interval.
type Bounds struct {
	Min float64
	Max float64
}

// DefaultBounds is the long-only, no-leverage box [0, 1].
var DefaultBounds = Bounds{Min: 0, Max: 1}
