package calculator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/mdc5017/QuantFinanceCourse/internal/model"
)

// DefaultTradingDays is the number of trading days used to annualise.
const DefaultTradingDays = 252

// ComputeMoments estimates the annualised mean vector and sample covariance
// (N-1 denominator) of the returns. Both are multiplied by tradingDays.
//
// At least two return rows are needed since sample covariance is undefined
// for a single observation.
func ComputeMoments(returns *model.ReturnMatrix, tradingDays float64) (*model.MomentEstimates, error) {
	if returns == nil {
		return nil, fmt.Errorf("%w: nil return matrix", model.ErrInvalidInput)
	}
	if tradingDays <= 0 || math.IsNaN(tradingDays) || math.IsInf(tradingDays, 0) {
		return nil, fmt.Errorf("%w: trading days per year must be positive, got %v", model.ErrInvalidInput, tradingDays)
	}
	rows, n := returns.Rows(), returns.Cols()
	if n == 0 {
		return nil, fmt.Errorf("%w: return matrix has no assets", model.ErrInvalidInput)
	}
	if rows < 2 {
		return nil, fmt.Errorf("%w: need at least 2 return rows, got %d", model.ErrInvalidInput, rows)
	}

	data := make([]float64, 0, rows*n)
	for t, row := range returns.Values {
		if len(row) != n {
			return nil, fmt.Errorf("%w: return row %d has %d values, expected %d", model.ErrInvalidInput, t, len(row), n)
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: non-finite return at row %d", model.ErrInvalidInput, t)
			}
		}
		data = append(data, row...)
	}
	x := mat.NewDense(rows, n, data)

	mean := make([]float64, n)
	col := make([]float64, rows)
	for j := 0; j < n; j++ {
		mat.Col(col, j, x)
		mean[j] = stat.Mean(col, nil) * tradingDays
	}

	cov := mat.NewSymDense(n, nil)
	stat.CovarianceMatrix(cov, x, nil)
	cov.ScaleSym(tradingDays, cov)

	return &model.MomentEstimates{
		Symbols:     append([]string(nil), returns.Symbols...),
		Mean:        mean,
		Covariance:  cov,
		TradingDays: tradingDays,
	}, nil
}

// Correlation converts annualised moments into a correlation matrix, for
// reporting.
func Correlation(m *model.MomentEstimates) *mat.SymDense {
	n := m.Dim()
	corr := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			d := math.Sqrt(m.Covariance.At(i, i) * m.Covariance.At(j, j))
			if d == 0 {
				continue
			}
			corr.SetSym(i, j, m.Covariance.At(i, j)/d)
		}
	}
	return corr
}
