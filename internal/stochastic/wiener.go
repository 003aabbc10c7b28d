// Package stochastic simulates continuous-time random processes.
package stochastic

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/mdc5017/QuantFinanceCourse/internal/model"
	"github.com/mdc5017/QuantFinanceCourse/internal/rng"
)

// Path is a sampled process: W[i] is the value at T[i].
type Path struct {
	T []float64
	W []float64
}

// WienerProcess samples a standard Brownian motion with n increments of
// variance dt. W[0] is 0 and each later value adds a N(0, sqrt(dt)) draw.
//
// T holds n+1 evenly spaced step labels from x0 to n inclusive, not k*dt
// times.
func WienerProcess(dt, x0 float64, n int, src rng.Source) (*Path, error) {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return nil, fmt.Errorf("%w: dt must be positive, got %v", model.ErrInvalidInput, dt)
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: step count must be positive, got %d", model.ErrInvalidInput, n)
	}
	if src == nil {
		return nil, fmt.Errorf("%w: nil random source", model.ErrInvalidInput)
	}

	t := make([]float64, n+1)
	floats.Span(t, x0, float64(n))

	w := make([]float64, n+1)
	sd := math.Sqrt(dt)
	for i := 1; i <= n; i++ {
		w[i] = src.NormFloat64() * sd
	}
	floats.CumSum(w, w)
	return &Path{T: t, W: w}, nil
}

// GeometricBrownianMotion turns a Wiener path into a stock price path
// S(t) = S0 exp((mu - sigma^2/2) t + sigma W(t)) with t = k*dt.
func GeometricBrownianMotion(s0, mu, sigma, dt float64, w *Path) ([]float64, error) {
	if !(s0 > 0) {
		return nil, fmt.Errorf("%w: initial price must be positive, got %v", model.ErrInvalidInput, s0)
	}
	if w == nil || len(w.W) == 0 {
		return nil, fmt.Errorf("%w: empty wiener path", model.ErrInvalidInput)
	}
	out := make([]float64, len(w.W))
	for k, wk := range w.W {
		t := float64(k) * dt
		out[k] = s0 * math.Exp((mu-0.5*sigma*sigma)*t+sigma*wk)
	}
	return out, nil
}
