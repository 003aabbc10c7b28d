package calculator

import (
	"fmt"
	"math"

	"github.com/mdc5017/QuantFinanceCourse/internal/model"
)

// ComputeReturns turns a T x N price matrix into the (T-1) x N matrix of log
// returns ln(p[t+1]/p[t]). Prices must be finite and strictly positive.
func ComputeReturns(prices *model.PriceMatrix) (*model.ReturnMatrix, error) {
	if prices == nil {
		return nil, fmt.Errorf("%w: nil price matrix", model.ErrInvalidInput)
	}
	n := prices.Cols()
	if n == 0 {
		return nil, fmt.Errorf("%w: price matrix has no assets", model.ErrInvalidInput)
	}
	if prices.Rows() < 2 {
		return nil, fmt.Errorf("%w: need at least 2 price rows, got %d", model.ErrInvalidInput, prices.Rows())
	}
	for t, row := range prices.Prices {
		if len(row) != n {
			return nil, fmt.Errorf("%w: row %d has %d prices, expected %d", model.ErrInvalidInput, t, len(row), n)
		}
		for j, p := range row {
			if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
				return nil, fmt.Errorf("%w: price %v at row %d for %s", model.ErrInvalidInput, p, t, prices.Symbols[j])
			}
		}
	}

	values := make([][]float64, prices.Rows()-1)
	for t := range values {
		prev, next := prices.Prices[t], prices.Prices[t+1]
		row := make([]float64, n)
		for j := range row {
			row[j] = math.Log(next[j] / prev[j])
		}
		values[t] = row
	}

	out := &model.ReturnMatrix{
		Symbols: append([]string(nil), prices.Symbols...),
		Values:  values,
	}
	if len(prices.Times) == prices.Rows() {
		out.Times = prices.Times[1:]
	}
	return out, nil
}
