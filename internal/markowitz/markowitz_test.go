package markowitz

import (
	"context"
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/mdc5017/QuantFinanceCourse/internal/model"
	"github.com/mdc5017/QuantFinanceCourse/internal/rng"
)

func moments(mean []float64, cov []float64) *model.MomentEstimates {
	return &model.MomentEstimates{
		Symbols:     []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J"}[:len(mean)],
		Mean:        mean,
		Covariance:  mat.NewSymDense(len(mean), cov),
		TradingDays: 252,
	}
}

func twoAsset() *model.MomentEstimates {
	return moments([]float64{0.12, 0.08}, []float64{0.04, 0, 0, 0.01})
}

func symmetric() *model.MomentEstimates {
	return moments([]float64{0.1, 0.1, 0.1}, []float64{
		0.04, 0.01, 0.01,
		0.01, 0.04, 0.01,
		0.01, 0.01, 0.04,
	})
}

func diagonal() *model.MomentEstimates {
	return moments([]float64{0.1, 0.1, 0.1}, []float64{
		0.04, 0, 0,
		0, 0.04, 0,
		0, 0, 0.04,
	})
}

func TestEvaluate(t *testing.T) {
	p, err := Evaluate(twoAsset(), model.WeightVector{0.5, 0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(p.Return-0.10) > 1e-12 {
		t.Errorf("expected return 0.10, got %.6f", p.Return)
	}
	// 0.25*0.04 + 0.25*0.01 = 0.0125
	if math.Abs(p.Volatility-math.Sqrt(0.0125)) > 1e-12 {
		t.Errorf("expected volatility %.6f, got %.6f", math.Sqrt(0.0125), p.Volatility)
	}
}

func TestEvaluate_LengthMismatch(t *testing.T) {
	_, err := Evaluate(twoAsset(), model.WeightVector{1})
	if !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSharpe_ZeroVolatility(t *testing.T) {
	if s := Sharpe(0.1, 0); !math.IsInf(s, -1) {
		t.Errorf("expected -Inf, got %v", s)
	}
	p := model.PortfolioPoint{Return: 0.1}
	if s := p.Sharpe(); !math.IsInf(s, -1) {
		t.Errorf("expected -Inf from PortfolioPoint, got %v", s)
	}
}

func TestSamplePortfolios_SimplexInvariants(t *testing.T) {
	m := moments([]float64{0.1, 0.05, 0.08, 0.12}, []float64{
		0.04, 0.01, 0.00, 0.01,
		0.01, 0.02, 0.00, 0.00,
		0.00, 0.00, 0.03, 0.01,
		0.01, 0.00, 0.01, 0.05,
	})
	points, err := SamplePortfolios(context.Background(), m, 2000, rng.New(7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 2000 {
		t.Fatalf("expected 2000 points, got %d", len(points))
	}
	for k, p := range points {
		if math.Abs(p.Weights.Sum()-1) > 1e-9 {
			t.Fatalf("point %d: weights sum to %v", k, p.Weights.Sum())
		}
		for i, w := range p.Weights {
			if w < 0 || w > 1 {
				t.Fatalf("point %d: weight %d = %v out of [0,1]", k, i, w)
			}
		}
		ret, vol := evaluate(m, p.Weights)
		if p.Return != ret || p.Volatility != vol {
			t.Fatalf("point %d: stored moments do not match its weights", k)
		}
	}
}

func TestSamplePortfolios_Reproducible(t *testing.T) {
	m := twoAsset()
	a, err := SamplePortfolios(context.Background(), m, 1500, rng.New(99))
	if err != nil {
		t.Fatal(err)
	}
	b, err := SamplePortfolios(context.Background(), m, 1500, rng.New(99))
	if err != nil {
		t.Fatal(err)
	}
	for k := range a {
		if a[k].Weights[0] != b[k].Weights[0] || a[k].Return != b[k].Return {
			t.Fatalf("point %d differs between runs with the same seed", k)
		}
	}
}

func TestSamplePortfolios_UsesDrawsInOrder(t *testing.T) {
	src := rng.New(3)
	u1, u2 := src.Float64(), src.Float64()
	points, err := SamplePortfolios(context.Background(), twoAsset(), 1, rng.New(3))
	if err != nil {
		t.Fatal(err)
	}
	if want := u1 / (u1 + u2); math.Abs(points[0].Weights[0]-want) > 1e-15 {
		t.Errorf("expected first weight %v, got %v", want, points[0].Weights[0])
	}
}

func TestSamplePortfolios_InvalidCount(t *testing.T) {
	for _, count := range []int{0, -5} {
		_, err := SamplePortfolios(context.Background(), twoAsset(), count, rng.New(1))
		if !errors.Is(err, model.ErrInvalidInput) {
			t.Errorf("count %d: expected ErrInvalidInput, got %v", count, err)
		}
	}
}

func TestSamplePortfolios_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := SamplePortfolios(ctx, twoAsset(), 100, rng.New(1)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestBestBySharpe(t *testing.T) {
	points := []model.PortfolioPoint{
		{Return: 0.1, Volatility: 0.2},
		{Return: 0.1, Volatility: 0},
		{Return: 0.2, Volatility: 0.2},
	}
	if got := BestBySharpe(points); got != 2 {
		t.Errorf("expected index 2, got %d", got)
	}
	if got := BestBySharpe(nil); got != -1 {
		t.Errorf("expected -1 for empty input, got %d", got)
	}
}
