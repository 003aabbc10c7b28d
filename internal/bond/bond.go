// Package bond prices fixed-coupon bonds by discounting their cash flows.
package bond

import (
	"fmt"
	"math"

	"github.com/mdc5017/QuantFinanceCourse/internal/model"
)

// Compounding selects the discount model.
type Compounding int

const (
	// Discrete discounts a cash flow at year n by (1+r)^n.
	Discrete Compounding = iota
	// Continuous discounts by exp(-r n).
	Continuous
)

func (c Compounding) String() string {
	if c == Continuous {
		return "continuous"
	}
	return "discrete"
}

// ParseCompounding accepts "discrete" or "continuous".
func ParseCompounding(s string) (Compounding, error) {
	switch s {
	case "", "discrete", "annual":
		return Discrete, nil
	case "continuous":
		return Continuous, nil
	}
	return Discrete, fmt.Errorf("%w: unknown compounding %q", model.ErrInvalidInput, s)
}

// CouponBond pays Principal*CouponRate/100 every year for Maturity years and
// the principal at maturity. Rates are given in percent.
type CouponBond struct {
	Principal   float64
	CouponRate  float64
	Maturity    int
	MarketRate  float64
	Compounding Compounding
}

// Validate checks that the bond has a positive principal and maturity.
func (b CouponBond) Validate() error {
	if !(b.Principal > 0) {
		return fmt.Errorf("%w: principal must be positive, got %v", model.ErrInvalidInput, b.Principal)
	}
	if b.Maturity <= 0 {
		return fmt.Errorf("%w: maturity must be at least one year, got %d", model.ErrInvalidInput, b.Maturity)
	}
	if b.CouponRate < 0 || math.IsNaN(b.CouponRate) {
		return fmt.Errorf("%w: coupon rate must be non-negative, got %v", model.ErrInvalidInput, b.CouponRate)
	}
	if b.MarketRate <= -100 || math.IsNaN(b.MarketRate) {
		return fmt.Errorf("%w: market rate must exceed -100%%, got %v", model.ErrInvalidInput, b.MarketRate)
	}
	return nil
}

// PresentValue discounts cash flow x received n years from now.
func (b CouponBond) PresentValue(x float64, n int) float64 {
	r := b.MarketRate / 100
	if b.Compounding == Continuous {
		return x * math.Exp(-r*float64(n))
	}
	return x / math.Pow(1+r, float64(n))
}

// Price sums the discounted coupons and principal.
func (b CouponBond) Price() (float64, error) {
	if err := b.Validate(); err != nil {
		return 0, err
	}
	coupon := b.Principal * b.CouponRate / 100
	var price float64
	for t := 1; t <= b.Maturity; t++ {
		price += b.PresentValue(coupon, t)
	}
	price += b.PresentValue(b.Principal, b.Maturity)
	return price, nil
}
