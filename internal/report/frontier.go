package report

import (
	"bytes"
	"fmt"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/mdc5017/QuantFinanceCourse/internal/model"
)

// FrontierChart renders the sampled portfolios as a volatility/return
// scatter coloured by Sharpe ratio, with the optimum marked on top.
// optimal may be nil.
func FrontierChart(samples []model.PortfolioPoint, optimal *model.OptimizationResult) ([]byte, error) {
	xs := make([]float64, 0, len(samples))
	ys := make([]float64, 0, len(samples))
	sharpe := make([]float64, 0, len(samples))
	for _, p := range samples {
		s := p.Sharpe()
		if math.IsInf(s, 0) || math.IsNaN(s) {
			continue
		}
		xs = append(xs, p.Volatility)
		ys = append(ys, p.Return)
		sharpe = append(sharpe, s)
	}
	if len(xs) == 0 {
		return nil, fmt.Errorf("%w: no sampled portfolios to chart", model.ErrInvalidInput)
	}
	lo, hi := sharpe[0], sharpe[0]
	for _, s := range sharpe[1:] {
		lo, hi = min(lo, s), max(hi, s)
	}

	xSeries, ySeries := [][]float64{xs}, [][]float64{ys}
	if optimal != nil {
		xSeries = append(xSeries, []float64{optimal.Volatility})
		ySeries = append(ySeries, []float64{optimal.Return})
	}
	xMin, xMax := padRange(xSeries)
	yMin, yMax := padRange(ySeries)

	series := []chart.Series{
		chart.ContinuousSeries{
			Name: "Random portfolios",
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    2,
				DotColorProvider: func(_, _ chart.Range, i int, _, _ float64) drawing.Color {
					return chart.Viridis(sharpe[i], lo, hi)
				},
			},
			XValues: xs,
			YValues: ys,
		},
	}
	title := "Random portfolios"
	if optimal != nil {
		title = fmt.Sprintf("Random portfolios | optimum Sharpe %.3f", optimal.Sharpe)
		series = append(series, chart.ContinuousSeries{
			Name: "Optimal portfolio",
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    8,
				DotColor:    drawing.ColorRed,
			},
			XValues: []float64{optimal.Volatility},
			YValues: []float64{optimal.Return},
		})
	}

	graph := chart.Chart{
		Title:  title,
		Width:  1000,
		Height: 600,
		Background: chart.Style{
			Padding: chart.Box{Top: 50},
		},
		XAxis: chart.XAxis{
			Name:           "Expected volatility",
			Range:          &chart.ContinuousRange{Min: xMin, Max: xMax},
			ValueFormatter: chart.PercentValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Expected return",
			Range:          &chart.ContinuousRange{Min: yMin, Max: yMax},
			ValueFormatter: chart.PercentValueFormatter,
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render frontier chart: %w", err)
	}
	return buf.Bytes(), nil
}
