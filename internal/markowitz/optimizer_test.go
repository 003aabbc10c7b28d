package markowitz

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/mdc5017/QuantFinanceCourse/internal/model"
	"github.com/mdc5017/QuantFinanceCourse/internal/rng"
)

func TestOptimize_TwoAssetTangency(t *testing.T) {
	res, err := Optimize(twoAsset(), model.WeightVector{0.5, 0.5}, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Weights[1] <= res.Weights[0] {
		t.Errorf("expected B to be favoured, got %v", res.Weights)
	}
	want := []float64{3.0 / 11, 8.0 / 11}
	for i := range want {
		if math.Abs(res.Weights[i]-want[i]) > 1e-6 {
			t.Errorf("weight %d: expected %.6f, got %.6f", i, want[i], res.Weights[i])
		}
	}
	if !res.Converged {
		t.Error("expected convergence")
	}
	start, _ := Evaluate(twoAsset(), model.WeightVector{0.5, 0.5})
	if res.Sharpe < start.Sharpe() {
		t.Errorf("optimum sharpe %.6f below starting sharpe %.6f", res.Sharpe, start.Sharpe())
	}
}

func TestOptimize_SymmetricIsUniform(t *testing.T) {
	problems := map[string]*model.MomentEstimates{
		"correlated": symmetric(),
		"diagonal":   diagonal(),
	}
	starts := []model.WeightVector{
		{1.0 / 3, 1.0 / 3, 1.0 / 3},
		{0.7, 0.2, 0.1},
		{0, 0, 1},
	}
	for name, m := range problems {
		for _, x0 := range starts {
			res, err := Optimize(m, x0, DefaultOptions())
			if err != nil {
				t.Fatalf("%s start %v: unexpected error: %v", name, x0, err)
			}
			for i, w := range res.Weights {
				if math.Abs(w-1.0/3) > 1e-6 {
					t.Errorf("%s start %v: weight %d = %.8f, expected 1/3", name, x0, i, w)
				}
			}
		}
	}
}

// ill-conditioned 6-asset problem whose optimum has two assets at the
// lower bound; plain gradient steps crawl here
func illConditioned() *model.MomentEstimates {
	return moments([]float64{0.09189, 0.03724, 0.1259, 0.142, 0.2551, 0.1393}, []float64{
		0.007495, 0.07855, -0.006166, -0.003195, -0.01454, 0.004741,
		0.07855, 1.025, -0.08562, -0.03635, -0.1967, 0.0157,
		-0.006166, -0.08562, 0.02019, 0.002854, -0.006607, 0.01163,
		-0.003195, -0.03635, 0.002854, 0.01269, -0.03451, -0.01354,
		-0.01454, -0.1967, -0.006607, -0.03451, 1.282, 0.1306,
		0.004741, 0.0157, 0.01163, -0.01354, 0.1306, 0.1385,
	})
}

func TestOptimize_IllConditioned(t *testing.T) {
	res, err := Optimize(illConditioned(), model.EqualWeights(6), DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Converged {
		t.Error("expected convergence")
	}
	// exact optimum from the KKT system on the support {A, C, D, E}
	const wantSharpe = 2.8655441511
	if math.Abs(res.Sharpe-wantSharpe) > 1e-8 {
		t.Errorf("expected sharpe %.10f, got %.10f", wantSharpe, res.Sharpe)
	}
	want := []float64{0.495180, 0, 0.204783, 0.282942, 0.017095, 0}
	for i := range want {
		if math.Abs(res.Weights[i]-want[i]) > 1e-4 {
			t.Errorf("weight %d: expected %.6f, got %.6f", i, want[i], res.Weights[i])
		}
	}
}

// randomProblem builds annualised-style moments from n+5 normal draws per
// asset, so the covariance is positive definite but often badly scaled.
func randomProblem(r interface {
	IntN(int) int
	Float64() float64
	NormFloat64() float64
}) *model.MomentEstimates {
	n := 3 + r.IntN(8)
	rows := n + 5
	scale := make([]float64, n)
	for j := range scale {
		scale[j] = 0.05 + r.Float64()
	}
	x := make([][]float64, rows)
	for k := range x {
		x[k] = make([]float64, n)
		for j := range x[k] {
			x[k][j] = r.NormFloat64() * scale[j]
		}
	}
	mean := make([]float64, n)
	for j := range mean {
		for k := range x {
			mean[j] += x[k][j]
		}
		mean[j] /= float64(rows)
	}
	cov := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			var c float64
			for k := range x {
				c += (x[k][i] - mean[i]) * (x[k][j] - mean[j])
			}
			cov[i*n+j] = c / float64(rows-1)
		}
	}
	mu := make([]float64, n)
	for j := range mu {
		mu[j] = 0.01 + 0.3*r.Float64()
	}
	return moments(mu, cov)
}

func TestOptimize_RandomPositiveDefinite(t *testing.T) {
	r := rng.New(2024)
	for trial := 0; trial < 1000; trial++ {
		m := randomProblem(r)
		n := m.Dim()
		res, err := Optimize(m, model.EqualWeights(n), DefaultOptions())
		if err != nil {
			t.Fatalf("trial %d (%d assets): unexpected error: %v", trial, n, err)
		}
		if !res.Converged {
			t.Errorf("trial %d: expected convergence", trial)
		}
		// the optimum can be no worse than any vertex or the starting point
		eq, _ := Evaluate(m, model.EqualWeights(n))
		if res.Sharpe < eq.Sharpe()-1e-9 {
			t.Errorf("trial %d: sharpe %.8f below equal-weight %.8f", trial, res.Sharpe, eq.Sharpe())
		}
		for i := 0; i < n; i++ {
			vertex := make(model.WeightVector, n)
			vertex[i] = 1
			p, _ := Evaluate(m, vertex)
			if res.Sharpe < p.Sharpe()-1e-9 {
				t.Errorf("trial %d: sharpe %.8f below single asset %d at %.8f", trial, res.Sharpe, i, p.Sharpe())
			}
		}
	}
}

func TestOptimize_FeasibleResult(t *testing.T) {
	m := moments([]float64{0.15, 0.02, 0.09, 0.11}, []float64{
		0.09, 0.01, 0.02, 0.01,
		0.01, 0.01, 0.00, 0.00,
		0.02, 0.00, 0.04, 0.01,
		0.01, 0.00, 0.01, 0.05,
	})
	res, err := Optimize(m, model.WeightVector{0.25, 0.25, 0.25, 0.25}, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(res.Weights.Sum()-1) > 1e-9 {
		t.Errorf("weights sum to %v", res.Weights.Sum())
	}
	for i, w := range res.Weights {
		if w < 0 || w > 1 {
			t.Errorf("weight %d = %v out of bounds", i, w)
		}
	}
	// no random portfolio should beat the optimum
	points, err := SamplePortfolios(context.Background(), m, 5000, rng.New(11))
	if err != nil {
		t.Fatal(err)
	}
	best := points[BestBySharpe(points)]
	if best.Sharpe() > res.Sharpe+1e-9 {
		t.Errorf("sampled sharpe %.6f beats optimum %.6f", best.Sharpe(), res.Sharpe)
	}
}

func TestOptimize_Deterministic(t *testing.T) {
	a, err := Optimize(twoAsset(), model.WeightVector{0.9, 0.1}, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	b, err := Optimize(twoAsset(), model.WeightVector{0.9, 0.1}, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if a.Weights[0] != b.Weights[0] || a.Iterations != b.Iterations {
		t.Errorf("expected identical results, got %v and %v", a.Weights, b.Weights)
	}
}

func TestOptimize_CustomBounds(t *testing.T) {
	opts := DefaultOptions()
	opts.Bounds = model.Bounds{Min: 0.4, Max: 0.6}
	res, err := Optimize(twoAsset(), model.WeightVector{0.5, 0.5}, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// unconstrained optimum has A at 3/11 < 0.4, so the lower bound binds
	if math.Abs(res.Weights[0]-0.4) > 1e-9 || math.Abs(res.Weights[1]-0.6) > 1e-9 {
		t.Errorf("expected [0.4 0.6], got %v", res.Weights)
	}
}

func TestOptimize_PerAssetBounds(t *testing.T) {
	opts := DefaultOptions()
	opts.PerAsset = []model.Bounds{{Min: 0, Max: 0.2}, {Min: 0, Max: 1}}
	res, err := Optimize(twoAsset(), model.WeightVector{0.5, 0.5}, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Weights[0] > 0.2+1e-12 {
		t.Errorf("weight A %v exceeds its cap", res.Weights[0])
	}
}

func TestOptimize_Errors(t *testing.T) {
	infeasible := DefaultOptions()
	infeasible.Bounds = model.Bounds{Min: 0.6, Max: 1}
	malformed := DefaultOptions()
	malformed.Bounds = model.Bounds{Min: 0.8, Max: 0.2}
	shortPerAsset := DefaultOptions()
	shortPerAsset.PerAsset = []model.Bounds{{Min: 0, Max: 1}}
	tight := DefaultOptions()
	tight.MaxIterations = 1
	tight.Tolerance = 1e-15

	zeroVol := moments([]float64{0.1, 0.1}, []float64{0, 0, 0, 0})

	cases := []struct {
		name string
		m    *model.MomentEstimates
		x0   model.WeightVector
		opts Options
		want error
	}{
		{"length mismatch", twoAsset(), model.WeightVector{1}, DefaultOptions(), model.ErrInvalidInput},
		{"nan start", twoAsset(), model.WeightVector{math.NaN(), 1}, DefaultOptions(), model.ErrInvalidInput},
		{"malformed bounds", twoAsset(), model.WeightVector{0.5, 0.5}, malformed, model.ErrInvalidInput},
		{"per-asset length", twoAsset(), model.WeightVector{0.5, 0.5}, shortPerAsset, model.ErrInvalidInput},
		{"infeasible bounds", twoAsset(), model.WeightVector{0.5, 0.5}, infeasible, model.ErrOptimizationFailure},
		{"zero volatility", zeroVol, model.WeightVector{0.5, 0.5}, DefaultOptions(), model.ErrOptimizationFailure},
		{"iteration limit", twoAsset(), model.WeightVector{0.99, 0.01}, tight, model.ErrOptimizationFailure},
	}
	for _, tc := range cases {
		_, err := Optimize(tc.m, tc.x0, tc.opts)
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestOptimizeMultiStart_PicksBest(t *testing.T) {
	starts := []model.WeightVector{{0.5, 0.5}, {0.1, 0.9}, {0.9, 0.1}}
	res, err := OptimizeMultiStart(context.Background(), twoAsset(), starts, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(res.Weights[0]-3.0/11) > 1e-6 {
		t.Errorf("expected tangency weights, got %v", res.Weights)
	}
}

func TestOptimizeMultiStart_AllFail(t *testing.T) {
	_, err := OptimizeMultiStart(context.Background(), twoAsset(), []model.WeightVector{{1}}, DefaultOptions())
	if !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	_, err = OptimizeMultiStart(context.Background(), twoAsset(), nil, DefaultOptions())
	if !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for no starts, got %v", err)
	}
}

func TestProjectBoundedSimplex(t *testing.T) {
	lo := []float64{0, 0, 0}
	hi := []float64{1, 1, 1}
	dst := make([]float64, 3)
	projectBoundedSimplex(dst, []float64{2, 0, -1}, lo, hi)
	if dst[0] != 1 || dst[1] != 0 || dst[2] != 0 {
		t.Errorf("expected [1 0 0], got %v", dst)
	}
	projectBoundedSimplex(dst, []float64{0.2, 0.2, 0.2}, lo, hi)
	for i, v := range dst {
		if math.Abs(v-1.0/3) > 1e-12 {
			t.Errorf("coord %d: expected 1/3, got %v", i, v)
		}
	}
}
