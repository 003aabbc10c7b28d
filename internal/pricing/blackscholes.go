// Package pricing values European options in closed form and by Monte Carlo.
package pricing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/mdc5017/QuantFinanceCourse/internal/model"
)

// OptionType selects the payoff.
type OptionType int

const (
	Call OptionType = iota
	Put
)

func (t OptionType) String() string {
	if t == Put {
		return "put"
	}
	return "call"
}

// ParseOptionType accepts "call" or "put".
func ParseOptionType(s string) (OptionType, error) {
	switch s {
	case "call", "c":
		return Call, nil
	case "put", "p":
		return Put, nil
	}
	return Call, fmt.Errorf("%w: unknown option type %q", model.ErrInvalidInput, s)
}

// Contract describes a European option on a non-dividend-paying stock.
// Expiry is in years, Rate and Volatility are annual.
type Contract struct {
	Spot       float64
	Strike     float64
	Expiry     float64
	Rate       float64
	Volatility float64
}

// Validate rejects contracts the log-normal model cannot price.
func (c Contract) Validate() error {
	switch {
	case !(c.Spot > 0):
		return fmt.Errorf("%w: spot must be positive, got %v", model.ErrInvalidInput, c.Spot)
	case !(c.Strike > 0):
		return fmt.Errorf("%w: strike must be positive, got %v", model.ErrInvalidInput, c.Strike)
	case !(c.Expiry > 0):
		return fmt.Errorf("%w: expiry must be positive, got %v", model.ErrInvalidInput, c.Expiry)
	case !(c.Volatility > 0):
		return fmt.Errorf("%w: volatility must be positive, got %v", model.ErrInvalidInput, c.Volatility)
	case math.IsNaN(c.Rate) || math.IsInf(c.Rate, 0):
		return fmt.Errorf("%w: rate must be finite", model.ErrInvalidInput)
	}
	return nil
}

// D1D2 returns the Black-Scholes d1 and d2 terms.
func (c Contract) D1D2() (d1, d2 float64) {
	sqrtT := math.Sqrt(c.Expiry)
	d1 = (math.Log(c.Spot/c.Strike) + (c.Rate+c.Volatility*c.Volatility/2)*c.Expiry) / (c.Volatility * sqrtT)
	d2 = d1 - c.Volatility*sqrtT
	return d1, d2
}

// BlackScholes prices the contract in closed form.
func BlackScholes(c Contract, typ OptionType) (float64, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	d1, d2 := c.D1D2()
	n := distuv.UnitNormal
	discount := math.Exp(-c.Rate * c.Expiry)
	if typ == Put {
		return -c.Spot*n.CDF(-d1) + c.Strike*discount*n.CDF(-d2), nil
	}
	return c.Spot*n.CDF(d1) - c.Strike*discount*n.CDF(d2), nil
}
