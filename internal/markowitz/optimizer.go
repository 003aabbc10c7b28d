package markowitz

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/mdc5017/QuantFinanceCourse/internal/model"
)

const (
	defaultMaxIterations = 5000
	defaultTolerance     = 1e-8
	defaultFTol          = 1e-12

	// flatSteps is how many consecutive accepted steps must each gain less
	// than FTol (relative) before the objective counts as converged.
	flatSteps = 3

	// stallTolerance is the projected-gradient size below which a failed
	// line search is treated as convergence.
	stallTolerance = 1e-6
	armijo         = 1e-4
	maxBacktracks  = 60
	minStep        = 1e-10
	maxStep        = 1e3
)

// Options configures Optimize. Zero values select the defaults.
type Options struct {
	// Bounds applies to every asset unless PerAsset is set.
	Bounds model.Bounds
	// PerAsset overrides Bounds; its length must equal the asset count.
	PerAsset []model.Bounds

	MaxIterations int
	// Tolerance bounds the projected gradient, scaled by max(1, |sharpe|).
	Tolerance float64
	// FTol bounds the per-step Sharpe gain, scaled by 1 + |sharpe|.
	FTol float64
}

// DefaultOptions returns long-only [0,1] bounds with default limits.
func DefaultOptions() Options {
	return Options{
		Bounds:        model.DefaultBounds,
		MaxIterations: defaultMaxIterations,
		Tolerance:     defaultTolerance,
		FTol:          defaultFTol,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = defaultMaxIterations
	}
	if o.Tolerance <= 0 {
		o.Tolerance = defaultTolerance
	}
	if o.FTol <= 0 {
		o.FTol = defaultFTol
	}
	return o
}

// Optimize maximises the Sharpe ratio over weight vectors that sum to 1 and
// respect the bounds, starting from initial.
//
// The solver is projected-gradient ascent with Barzilai-Borwein step lengths
// safeguarded by Armijo backtracking; the projection onto the bounded
// simplex is exact up to bisection precision. It stops when the projected
// gradient falls below opts.Tolerance*max(1, |S|), or when flatSteps
// accepted steps in a row each raise S by at most opts.FTol*(1+|S|).
// The result is deterministic for fixed inputs.
func Optimize(m *model.MomentEstimates, initial model.WeightVector, opts Options) (*model.OptimizationResult, error) {
	if err := checkMoments(m); err != nil {
		return nil, err
	}
	n := m.Dim()
	if len(initial) != n {
		return nil, fmt.Errorf("%w: initial weights have %d entries, expected %d", model.ErrInvalidInput, len(initial), n)
	}
	for i, v := range initial {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: initial weight %d is %v", model.ErrInvalidInput, i, v)
		}
	}
	opts = opts.withDefaults()
	lo, hi, err := resolveBounds(opts, n)
	if err != nil {
		return nil, err
	}

	w := make([]float64, n)
	projectBoundedSimplex(w, initial, lo, hi)

	grad := make([]float64, n)
	next := make([]float64, n)
	trial := make([]float64, n)
	cand := make([]float64, n)
	diff := make([]float64, n)

	s := sharpeGradient(grad, m, w)
	if math.IsInf(s, -1) {
		return nil, fmt.Errorf("%w: starting portfolio has zero volatility", model.ErrOptimizationFailure)
	}

	step := 1.0
	flat := 0
	for iter := 0; iter < opts.MaxIterations; iter++ {
		pg := projectedGradient(trial, diff, w, grad, lo, hi)
		if pg < opts.Tolerance*math.Max(1, math.Abs(s)) {
			return buildResult(m, w, iter, true), nil
		}

		accepted := false
		t := step
		for k := 0; k < maxBacktracks; k++ {
			floats.AddScaledTo(trial, w, t, grad)
			projectBoundedSimplex(cand, trial, lo, hi)
			floats.SubTo(diff, cand, w)
			if floats.Norm(diff, math.Inf(1)) == 0 {
				break
			}
			ret, vol := evaluate(m, cand)
			if sc := Sharpe(ret, vol); sc >= s+armijo*floats.Dot(grad, diff) {
				accepted = true
				break
			}
			t /= 2
		}
		if !accepted {
			if pg < stallTolerance {
				return buildResult(m, w, iter, true), nil
			}
			return nil, fmt.Errorf("%w: line search stalled after %d iterations (sharpe %.6f)", model.ErrOptimizationFailure, iter, s)
		}

		sNext := sharpeGradient(next, m, cand)
		if sNext-s <= opts.FTol*(1+math.Abs(sNext)) {
			flat++
		} else {
			flat = 0
		}

		// BB1 step for ascent: s = x1-x0, y = -(g1-g0), length s.s/s.y
		floats.SubTo(diff, cand, w)
		floats.SubTo(trial, grad, next)
		ss, sy := floats.Dot(diff, diff), floats.Dot(diff, trial)
		if sy > 0 {
			step = math.Min(math.Max(ss/sy, minStep), maxStep)
		} else {
			step = math.Min(2*t, maxStep)
		}

		copy(w, cand)
		copy(grad, next)
		s = sNext
		if flat >= flatSteps {
			return buildResult(m, w, iter+1, true), nil
		}
	}
	return nil, fmt.Errorf("%w: no convergence within %d iterations", model.ErrOptimizationFailure, opts.MaxIterations)
}

// OptimizeMultiStart runs Optimize from every start concurrently and keeps
// the highest Sharpe ratio; ties go to the earliest start. It fails only
// when every start fails.
func OptimizeMultiStart(ctx context.Context, m *model.MomentEstimates, starts []model.WeightVector, opts Options) (*model.OptimizationResult, error) {
	if len(starts) == 0 {
		return nil, fmt.Errorf("%w: no starting points", model.ErrInvalidInput)
	}
	results := make([]*model.OptimizationResult, len(starts))
	errs := make([]error, len(starts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, x0 := range starts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i], errs[i] = Optimize(m, x0, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var best *model.OptimizationResult
	for _, r := range results {
		if r != nil && (best == nil || r.Sharpe > best.Sharpe) {
			best = r
		}
	}
	if best == nil {
		// invalid input on one start means invalid input on all of them
		for _, err := range errs {
			if errors.Is(err, model.ErrInvalidInput) {
				return nil, err
			}
		}
		return nil, fmt.Errorf("all %d starts failed: %w", len(starts), errs[0])
	}
	return best, nil
}

func buildResult(m *model.MomentEstimates, w []float64, iter int, converged bool) *model.OptimizationResult {
	ret, vol := evaluate(m, w)
	return &model.OptimizationResult{
		Symbols:    append([]string(nil), m.Symbols...),
		Weights:    append(model.WeightVector(nil), w...),
		Return:     ret,
		Volatility: vol,
		Sharpe:     Sharpe(ret, vol),
		Iterations: iter,
		Converged:  converged,
	}
}

// projectedGradient returns max|P(w+g) - w|, zero exactly at a KKT point.
func projectedGradient(scratch, diff, w, g, lo, hi []float64) float64 {
	floats.AddTo(scratch, w, g)
	projectBoundedSimplex(diff, scratch, lo, hi)
	floats.Sub(diff, w)
	return floats.Norm(diff, math.Inf(1))
}

func resolveBounds(opts Options, n int) (lo, hi []float64, err error) {
	lo, hi = make([]float64, n), make([]float64, n)
	switch {
	case opts.PerAsset != nil:
		if len(opts.PerAsset) != n {
			return nil, nil, fmt.Errorf("%w: %d per-asset bounds for %d assets", model.ErrInvalidInput, len(opts.PerAsset), n)
		}
		for i, b := range opts.PerAsset {
			lo[i], hi[i] = b.Min, b.Max
		}
	case opts.Bounds == (model.Bounds{}):
		for i := range lo {
			lo[i], hi[i] = model.DefaultBounds.Min, model.DefaultBounds.Max
		}
	default:
		for i := range lo {
			lo[i], hi[i] = opts.Bounds.Min, opts.Bounds.Max
		}
	}

	var sumLo, sumHi float64
	for i := range lo {
		if math.IsNaN(lo[i]) || math.IsNaN(hi[i]) || lo[i] > hi[i] {
			return nil, nil, fmt.Errorf("%w: malformed bounds [%v, %v] for asset %d", model.ErrInvalidInput, lo[i], hi[i], i)
		}
		sumLo += lo[i]
		sumHi += hi[i]
	}
	if sumLo > 1+1e-12 || sumHi < 1-1e-12 {
		return nil, nil, fmt.Errorf("%w: bounds are infeasible (sum of minimums %.4f, sum of maximums %.4f)",
			model.ErrOptimizationFailure, sumLo, sumHi)
	}
	return lo, hi, nil
}

// projectBoundedSimplex writes into dst the Euclidean projection of v onto
// {x : sum(x) = 1, lo <= x <= hi}. The projection is clip(v - theta, lo, hi)
// for the unique theta that makes the sum 1, found by bisection.
// Bounds must be feasible.
func projectBoundedSimplex(dst, v, lo, hi []float64) {
	a, b := math.Inf(1), math.Inf(-1)
	for i := range v {
		a = math.Min(a, v[i]-hi[i])
		b = math.Max(b, v[i]-lo[i])
	}
	clipped := func(theta float64) float64 {
		var s float64
		for i := range v {
			s += math.Max(lo[i], math.Min(hi[i], v[i]-theta))
		}
		return s
	}
	for k := 0; k < 200 && b-a > 1e-16*(1+math.Abs(a)+math.Abs(b)); k++ {
		mid := 0.5 * (a + b)
		if clipped(mid) > 1 {
			a = mid
		} else {
			b = mid
		}
	}
	theta := 0.5 * (a + b)
	var sum float64
	for i := range v {
		dst[i] = math.Max(lo[i], math.Min(hi[i], v[i]-theta))
		sum += dst[i]
	}

	// spread the residual rounding error over coordinates with slack
	if r := 1 - sum; r != 0 {
		for i := range dst {
			if (r > 0 && dst[i] < hi[i]) || (r < 0 && dst[i] > lo[i]) {
				dst[i] = math.Max(lo[i], math.Min(hi[i], dst[i]+r))
				break
			}
		}
	}
}
