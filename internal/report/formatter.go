// Package report renders analysis results as text, Telegram HTML and PNG
// charts.
package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mdc5017/QuantFinanceCourse/internal/bond"
	"github.com/mdc5017/QuantFinanceCourse/internal/calculator"
	"github.com/mdc5017/QuantFinanceCourse/internal/markowitz"
	"github.com/mdc5017/QuantFinanceCourse/internal/model"
	"github.com/mdc5017/QuantFinanceCourse/internal/pricing"
	"github.com/mdc5017/QuantFinanceCourse/internal/risk"
)

// RoundWeights rounds every weight to 3 decimals for display.
func RoundWeights(w model.WeightVector) []float64 {
	out := make([]float64, len(w))
	for i, v := range w {
		out[i] = math.Round(v*1000) / 1000
	}
	return out
}

// FormatPortfolio renders the optimal portfolio as plain text. The headline
// statistics are those of the displayed (rounded) weights evaluated against
// m; the optimizer's own figures follow. A nil m prints only the latter.
func FormatPortfolio(res *model.OptimizationResult, m *model.MomentEstimates) string {
	var b strings.Builder
	b.WriteString("Optimal portfolio:\n")
	rounded := RoundWeights(res.Weights)
	for i, w := range rounded {
		b.WriteString(fmt.Sprintf("  %-8s %.3f\n", res.Symbols[i], w))
	}
	if m != nil {
		if p, err := markowitz.Evaluate(m, rounded); err == nil {
			b.WriteString(fmt.Sprintf("Expected return, volatility and Sharpe ratio: [%.6f %.6f %.6f]\n",
				p.Return, p.Volatility, p.Sharpe()))
		}
	}
	b.WriteString(fmt.Sprintf("Optimizer (unrounded weights): [%.6f %.6f %.6f]\n",
		res.Return, res.Volatility, res.Sharpe))
	if !res.Converged {
		b.WriteString("(optimizer did not report convergence)\n")
	}
	return b.String()
}

// FormatStatistics renders annualised mean returns and the covariance matrix.
func FormatStatistics(m *model.MomentEstimates) string {
	var b strings.Builder
	b.WriteString("Annualised mean returns:\n")
	for i, s := range m.Symbols {
		b.WriteString(fmt.Sprintf("  %-8s %+.6f\n", s, m.Mean[i]))
	}
	b.WriteString("Annualised covariance:\n")
	b.WriteString(fmt.Sprintf("  %-8s", ""))
	for _, s := range m.Symbols {
		b.WriteString(fmt.Sprintf(" %10s", s))
	}
	b.WriteString("\n")
	for i, s := range m.Symbols {
		b.WriteString(fmt.Sprintf("  %-8s", s))
		for j := range m.Symbols {
			b.WriteString(fmt.Sprintf(" %10.6f", m.Covariance.At(i, j)))
		}
		b.WriteString("\n")
	}
	corr := calculator.Correlation(m)
	b.WriteString("Correlation:\n")
	for i, s := range m.Symbols {
		b.WriteString(fmt.Sprintf("  %-8s", s))
		for j := range m.Symbols {
			b.WriteString(fmt.Sprintf(" %10.4f", corr.At(i, j)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatPortfolioHTML renders the optimal portfolio as a Telegram message.
func FormatPortfolioHTML(res *model.OptimizationResult, samples int, elapsed time.Duration) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>Markowitz report</b> | %s\n\n", time.Now().Format("2006-01-02")))
	b.WriteString("💼 <b>Optimal weights:</b>\n")
	for i, w := range RoundWeights(res.Weights) {
		b.WriteString(fmt.Sprintf("  %s: %.1f%%\n", res.Symbols[i], w*100))
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Expected return: %+.2f%%\n", res.Return*100))
	b.WriteString(fmt.Sprintf("Volatility: %.2f%%\n", res.Volatility*100))
	b.WriteString(fmt.Sprintf("Sharpe ratio: %.3f\n", res.Sharpe))
	b.WriteString(fmt.Sprintf("\n<i>%d random portfolios, %d iterations, %v</i>\n",
		samples, res.Iterations, elapsed.Round(time.Millisecond)))
	return b.String()
}

// OptionQuote groups the closed-form and simulated prices of one contract.
type OptionQuote struct {
	Contract pricing.Contract
	Call     float64
	Put      float64
	MCCall   *pricing.Estimate
	MCPut    *pricing.Estimate
}

// FormatOption renders option prices as plain text.
func FormatOption(q OptionQuote) string {
	var b strings.Builder
	c := q.Contract
	b.WriteString(fmt.Sprintf("S=%.2f K=%.2f T=%.2f r=%.4f sigma=%.4f\n", c.Spot, c.Strike, c.Expiry, c.Rate, c.Volatility))
	b.WriteString(fmt.Sprintf("Call option price according to Black-Scholes model: %.4f\n", q.Call))
	b.WriteString(fmt.Sprintf("Put option price according to Black-Scholes model: %.4f\n", q.Put))
	if q.MCCall != nil {
		b.WriteString(fmt.Sprintf("Value of the call option with Monte-Carlo simulation: %.4f (se %.4f, %d paths)\n",
			q.MCCall.Price, q.MCCall.StdError, q.MCCall.Paths))
	}
	if q.MCPut != nil {
		b.WriteString(fmt.Sprintf("Value of the put option with Monte-Carlo simulation: %.4f (se %.4f, %d paths)\n",
			q.MCPut.Price, q.MCPut.StdError, q.MCPut.Paths))
	}
	return b.String()
}

// FormatBond renders a bond price.
func FormatBond(bd bond.CouponBond, price float64) string {
	return fmt.Sprintf("Bond price (%s, %d years, coupon %.2f%%, market rate %.2f%%): %.2f\n",
		bd.Compounding, bd.Maturity, bd.CouponRate, bd.MarketRate, price)
}

// VaRReport collects the inputs and estimates of one VaR run.
type VaRReport struct {
	Symbol     string
	Params     risk.MonteCarloVaR
	Simulated  risk.Result
	Parametric float64
	// Historical is the one-day VaR from observed returns; zero if unknown.
	Historical float64
}

// FormatVaR renders a VaR estimate as plain text.
func FormatVaR(r VaRReport) string {
	var b strings.Builder
	p := r.Params
	b.WriteString(fmt.Sprintf("%s daily mu=%.6f sigma=%.6f\n", r.Symbol, p.Mu, p.Sigma))
	b.WriteString(fmt.Sprintf("Value at risk with Monte-Carlo simulation: $%.2f\n", r.Simulated.VaR))
	b.WriteString(fmt.Sprintf("Expected shortfall: $%.2f\n", r.Simulated.ExpectedShortfall))
	b.WriteString(fmt.Sprintf("Parametric value at risk: $%.2f\n", r.Parametric))
	if r.Historical != 0 {
		b.WriteString(fmt.Sprintf("Historical one-day value at risk: $%.2f\n", r.Historical))
	}
	b.WriteString(fmt.Sprintf("(investment $%.0f, confidence %.1f%%, %d day(s), %d iterations)\n",
		p.Investment, p.Confidence*100, p.Days, p.Iterations))
	return b.String()
}

// FormatVaRHTML renders a VaR estimate as a Telegram message.
func FormatVaRHTML(r VaRReport) string {
	var b strings.Builder
	p := r.Params
	b.WriteString(fmt.Sprintf("⚠️ <b>Value at risk</b> | %s\n\n", r.Symbol))
	b.WriteString(fmt.Sprintf("Position: $%.0f\n", p.Investment))
	b.WriteString(fmt.Sprintf("Confidence: %.1f%% over %d day(s)\n\n", p.Confidence*100, p.Days))
	b.WriteString(fmt.Sprintf("Monte Carlo VaR: <b>$%.2f</b>\n", r.Simulated.VaR))
	b.WriteString(fmt.Sprintf("Expected shortfall: $%.2f\n", r.Simulated.ExpectedShortfall))
	b.WriteString(fmt.Sprintf("Parametric VaR: $%.2f\n", r.Parametric))
	if r.Historical != 0 {
		b.WriteString(fmt.Sprintf("Historical VaR (1d): $%.2f\n", r.Historical))
	}
	return b.String()
}
