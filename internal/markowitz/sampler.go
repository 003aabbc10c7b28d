package markowitz

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/mdc5017/QuantFinanceCourse/internal/model"
	"github.com/mdc5017/QuantFinanceCourse/internal/rng"
)

// sampleChunk is the number of portfolios evaluated per worker task.
const sampleChunk = 512

// SamplePortfolios draws count random long-only portfolios and evaluates
// each one. A weight vector is N independent uniform(0,1) draws divided by
// their sum. This is not uniform on the simplex; it concentrates mass near
// the centre.
//
// Draws are taken from src in order, so point k always uses the k-th group
// of N draws and a fixed seed reproduces the same points. Evaluation runs
// concurrently.
func SamplePortfolios(ctx context.Context, m *model.MomentEstimates, count int, src rng.Source) ([]model.PortfolioPoint, error) {
	if err := checkMoments(m); err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, fmt.Errorf("%w: sample count must be positive, got %d", model.ErrInvalidInput, count)
	}
	if src == nil {
		return nil, fmt.Errorf("%w: nil random source", model.ErrInvalidInput)
	}

	n := m.Dim()
	points := make([]model.PortfolioPoint, count)
	for k := range points {
		points[k].Weights = drawWeights(src, n)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for lo := 0; lo < count; lo += sampleChunk {
		hi := min(lo+sampleChunk, count)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for k := lo; k < hi; k++ {
				points[k].Return, points[k].Volatility = evaluate(m, points[k].Weights)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("evaluate samples: %w", err)
	}
	return points, nil
}

func drawWeights(src rng.Source, n int) model.WeightVector {
	w := make(model.WeightVector, n)
	for {
		var sum float64
		for i := range w {
			w[i] = src.Float64()
			sum += w[i]
		}
		// all-zero draw, practically unreachable
		if sum == 0 {
			continue
		}
		for i := range w {
			w[i] /= sum
		}
		return w
	}
}

// BestBySharpe returns the index of the highest-Sharpe point, or -1.
func BestBySharpe(points []model.PortfolioPoint) int {
	best := -1
	for i, p := range points {
		if best < 0 || p.Sharpe() > points[best].Sharpe() {
			best = i
		}
	}
	return best
}
