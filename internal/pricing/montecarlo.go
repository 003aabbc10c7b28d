package pricing

import (
	"fmt"
	"math"

	"github.com/mdc5017/QuantFinanceCourse/internal/model"
	"github.com/mdc5017/QuantFinanceCourse/internal/rng"
)

// Estimate is a Monte Carlo price with its standard error.
type Estimate struct {
	Price    float64
	StdError float64
	Paths    int
}

// MonteCarlo prices the contract by simulating the terminal stock price
// S_T = S_0 exp((r - sigma^2/2) T + sigma sqrt(T) Z) for paths standard
// normal draws and discounting the mean payoff at the risk-free rate.
func MonteCarlo(c Contract, typ OptionType, paths int, src rng.Source) (Estimate, error) {
	if err := c.Validate(); err != nil {
		return Estimate{}, err
	}
	if paths <= 0 {
		return Estimate{}, fmt.Errorf("%w: path count must be positive, got %d", model.ErrInvalidInput, paths)
	}
	if src == nil {
		return Estimate{}, fmt.Errorf("%w: nil random source", model.ErrInvalidInput)
	}

	drift := (c.Rate - 0.5*c.Volatility*c.Volatility) * c.Expiry
	vol := c.Volatility * math.Sqrt(c.Expiry)

	var sum, sumSq float64
	for i := 0; i < paths; i++ {
		st := c.Spot * math.Exp(drift+vol*src.NormFloat64())
		var payoff float64
		if typ == Put {
			payoff = math.Max(c.Strike-st, 0)
		} else {
			payoff = math.Max(st-c.Strike, 0)
		}
		sum += payoff
		sumSq += payoff * payoff
	}

	n := float64(paths)
	mean := sum / n
	variance := math.Max(sumSq/n-mean*mean, 0)
	discount := math.Exp(-c.Rate * c.Expiry)
	return Estimate{
		Price:    discount * mean,
		StdError: discount * math.Sqrt(variance/n),
		Paths:    paths,
	}, nil
}
