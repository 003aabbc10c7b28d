package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	charts "github.com/vicanso/go-charts/v2"
	"gonum.org/v1/gonum/floats"

	"github.com/mdc5017/QuantFinanceCourse/internal/model"
	"github.com/mdc5017/QuantFinanceCourse/internal/stochastic"
)

// minPieWeight hides slices that round to zero.
const minPieWeight = 0.0005

// WeightsChart renders the portfolio weights as a pie chart PNG.
func WeightsChart(res *model.OptimizationResult) ([]byte, error) {
	var values []float64
	var labels []string
	for i, w := range res.Weights {
		if w < minPieWeight {
			continue
		}
		values = append(values, w)
		labels = append(labels, fmt.Sprintf("%s (%.1f%%)", res.Symbols[i], w*100))
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: no positive weights to chart", model.ErrInvalidInput)
	}

	p, err := charts.PieRender(
		values,
		charts.TitleTextOptionFunc(fmt.Sprintf("Optimal portfolio | Sharpe %.3f", res.Sharpe)),
		charts.LegendOptionFunc(charts.LegendOption{
			Data: labels,
			Top:  charts.PositionTop,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(800),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return nil, fmt.Errorf("render weights chart: %w", err)
	}
	return p.Bytes()
}

// PriceChart renders every column of pm rebased to 100 at the first row.
func PriceChart(pm *model.PriceMatrix) ([]byte, error) {
	if pm == nil || pm.Rows() < 2 || pm.Cols() == 0 {
		return nil, fmt.Errorf("%w: need at least 2 price rows to chart", model.ErrInvalidInput)
	}
	series := make([][]float64, pm.Cols())
	for j := range series {
		col := pm.Column(j)
		floats.Scale(100/col[0], col)
		series[j] = col
	}
	yMin, yMax := padRange(series)

	xLabels := make([]string, pm.Rows())
	for i := range xLabels {
		if i < len(pm.Times) {
			xLabels[i] = pm.Times[i].Format("Jan '06")
		}
	}

	p, err := charts.LineRender(
		series,
		charts.TitleTextOptionFunc("Rebased prices ("+strings.Join(pm.Symbols, ", ")+")"),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        xLabels,
			SplitNumber: splitNumber(len(xLabels)),
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min:         &yMin,
			Max:         &yMax,
			DivideCount: 5,
		}),
		charts.LegendOptionFunc(charts.LegendOption{
			Data: pm.Symbols,
			Top:  charts.PositionTop,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(1000),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return nil, fmt.Errorf("render price chart: %w", err)
	}
	return p.Bytes()
}

// WienerChart renders a sampled path W(t).
func WienerChart(path *stochastic.Path) ([]byte, error) {
	if path == nil || len(path.W) < 2 {
		return nil, fmt.Errorf("%w: empty path", model.ErrInvalidInput)
	}
	xLabels := make([]string, len(path.T))
	for i, t := range path.T {
		xLabels[i] = fmt.Sprintf("%.0f", t)
	}
	yMin, yMax := padRange([][]float64{path.W})

	p, err := charts.LineRender(
		[][]float64{path.W},
		charts.TitleTextOptionFunc("Wiener process"),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        xLabels,
			SplitNumber: splitNumber(len(xLabels)),
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min:         &yMin,
			Max:         &yMax,
			DivideCount: 5,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("render wiener chart: %w", err)
	}
	return p.Bytes()
}

// WriteChart stores a PNG under dir and returns its path.
func WriteChart(dir, name string, png []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create chart dir: %w", err)
	}
	path := filepath.Join(dir, name+".png")
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("write chart: %w", err)
	}
	return path, nil
}

// padRange returns the span of all values widened by 5% on each side.
func padRange(series [][]float64) (float64, float64) {
	lo, hi := floats.Min(series[0]), floats.Max(series[0])
	for _, s := range series[1:] {
		lo = min(lo, floats.Min(s))
		hi = max(hi, floats.Max(s))
	}
	padding := (hi - lo) * 0.05
	if padding == 0 {
		padding = 1
	}
	return lo - padding, hi + padding
}

func splitNumber(points int) int {
	if points > 30 {
		return 6
	}
	return max(points/3, 3)
}
