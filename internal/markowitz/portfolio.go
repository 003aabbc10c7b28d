// Package markowitz implements mean-variance portfolio evaluation, random
// portfolio sampling and Sharpe-ratio maximisation on annualised moments.
package markowitz

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/mdc5017/QuantFinanceCourse/internal/model"
)

// Evaluate returns the expected return and volatility of w under m.
func Evaluate(m *model.MomentEstimates, w model.WeightVector) (model.PortfolioPoint, error) {
	if err := checkMoments(m); err != nil {
		return model.PortfolioPoint{}, err
	}
	if len(w) != m.Dim() {
		return model.PortfolioPoint{}, fmt.Errorf("%w: weight vector has %d entries, expected %d", model.ErrInvalidInput, len(w), m.Dim())
	}
	ret, vol := evaluate(m, w)
	return model.PortfolioPoint{Weights: w.Clone(), Return: ret, Volatility: vol}, nil
}

// Sharpe is the return-to-volatility ratio with a zero risk-free rate.
// A zero-volatility portfolio scores -Inf.
func Sharpe(ret, vol float64) float64 {
	if vol == 0 {
		return math.Inf(-1)
	}
	return ret / vol
}

func evaluate(m *model.MomentEstimates, w []float64) (ret, vol float64) {
	ret = floats.Dot(m.Mean, w)
	x := mat.NewVecDense(len(w), w)
	variance := mat.Inner(x, m.Covariance, x)
	if variance < 0 {
		// rounding on a singular covariance
		variance = 0
	}
	return ret, math.Sqrt(variance)
}

// sharpeGradient writes dS/dw into dst and returns S.
// dS/dw = mu/sigma - (mu.w) * Sigma w / sigma^3.
func sharpeGradient(dst []float64, m *model.MomentEstimates, w []float64) float64 {
	ret, vol := evaluate(m, w)
	if vol == 0 {
		for i := range dst {
			dst[i] = 0
		}
		return math.Inf(-1)
	}
	sw := mat.NewVecDense(len(w), nil)
	sw.MulVec(m.Covariance, mat.NewVecDense(len(w), w))
	v3 := vol * vol * vol
	for i := range dst {
		dst[i] = m.Mean[i]/vol - ret*sw.AtVec(i)/v3
	}
	return ret / vol
}

func checkMoments(m *model.MomentEstimates) error {
	if m == nil || m.Covariance == nil {
		return fmt.Errorf("%w: nil moment estimates", model.ErrInvalidInput)
	}
	n := m.Dim()
	if n == 0 {
		return fmt.Errorf("%w: moment estimates have no assets", model.ErrInvalidInput)
	}
	if m.Covariance.SymmetricDim() != n {
		return fmt.Errorf("%w: covariance is %dx%d, expected %dx%d", model.ErrInvalidInput,
			m.Covariance.SymmetricDim(), m.Covariance.SymmetricDim(), n, n)
	}
	return nil
}
