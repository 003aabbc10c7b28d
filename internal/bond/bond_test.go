package bond

import (
	"errors"
	"math"
	"testing"

	"github.com/mdc5017/QuantFinanceCourse/internal/model"
)

func TestPrice_Discrete(t *testing.T) {
	b := CouponBond{Principal: 1000, CouponRate: 10, Maturity: 3, MarketRate: 4}
	got, err := b.Price()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 100/1.04 + 100/1.04^2 + 1100/1.04^3
	want := 100/1.04 + 100/(1.04*1.04) + 1100/(1.04*1.04*1.04)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("expected %.6f, got %.6f", want, got)
	}
	if math.Abs(got-1166.51) > 0.005 {
		t.Errorf("expected 1166.51, got %.2f", got)
	}
}

func TestPrice_Continuous(t *testing.T) {
	b := CouponBond{Principal: 1000, CouponRate: 10, Maturity: 3, MarketRate: 4, Compounding: Continuous}
	got, err := b.Price()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := 100*math.Exp(-0.04) + 100*math.Exp(-0.08) + 1100*math.Exp(-0.12)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("expected %.6f, got %.6f", want, got)
	}
}

func TestPrice_ParBond(t *testing.T) {
	b := CouponBond{Principal: 1000, CouponRate: 5, Maturity: 10, MarketRate: 5}
	got, _ := b.Price()
	if math.Abs(got-1000) > 1e-9 {
		t.Errorf("coupon equal to market rate should price at par, got %.6f", got)
	}
}

func TestPrice_Invalid(t *testing.T) {
	bad := []CouponBond{
		{Principal: 0, CouponRate: 10, Maturity: 3, MarketRate: 4},
		{Principal: 1000, CouponRate: 10, Maturity: 0, MarketRate: 4},
		{Principal: 1000, CouponRate: -1, Maturity: 3, MarketRate: 4},
		{Principal: 1000, CouponRate: 10, Maturity: 3, MarketRate: -100},
	}
	for _, b := range bad {
		if _, err := b.Price(); !errors.Is(err, model.ErrInvalidInput) {
			t.Errorf("%+v: expected ErrInvalidInput, got %v", b, err)
		}
	}
}

func TestParseCompounding(t *testing.T) {
	if c, err := ParseCompounding("continuous"); err != nil || c != Continuous {
		t.Errorf("expected continuous, got %v %v", c, err)
	}
	if _, err := ParseCompounding("monthly"); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
