package insights

import (
	"errors"
	"testing"

	"homebudget/internal/core"
)

func TestSimulatePayoffPaymentTooLow(t *testing.T) {
	// 12% APR on $1000 accrues $10 the first month; a $5 payment can
	// never reduce the balance.
	_, err := SimulatePayoff(core.PayoffRequest{Balance: 1000, APR: 12, MinPayment: 5})
	if !errors.Is(err, ErrPaymentTooLow) {
		t.Fatalf("SimulatePayoff() error = %v, want ErrPaymentTooLow", err)
	}
}

func TestSimulatePayoff(t *testing.T) {
	res, err := SimulatePayoff(core.PayoffRequest{Balance: 1000, APR: 12, MinPayment: 100})
	if err != nil {
		t.Fatalf("SimulatePayoff() error = %v", err)
	}
	if res.Months != 11 {
		t.Errorf("Months = %d, want 11", res.Months)
	}
	if res.TotalInterest < 58.9 || res.TotalInterest > 59.1 {
		t.Errorf("TotalInterest = %v, want ~58.99", res.TotalInterest)
	}
}

func TestSimulatePayoffZeroAPR(t *testing.T) {
	res, err := SimulatePayoff(core.PayoffRequest{Balance: 1000, APR: 0, MinPayment: 250})
	if err != nil {
		t.Fatalf("SimulatePayoff() error = %v", err)
	}
	if res.Months != 4 {
		t.Errorf("Months = %d, want 4", res.Months)
	}
	if res.TotalInterest != 0 {
		t.Errorf("TotalInterest = %v, want 0", res.TotalInterest)
	}
}

func TestSimulatePayoffExtraPaymentShortensTerm(t *testing.T) {
	base, err := SimulatePayoff(core.PayoffRequest{Balance: 5000, APR: 18, MinPayment: 150})
	if err != nil {
		t.Fatalf("SimulatePayoff() error = %v", err)
	}
	boosted, err := SimulatePayoff(core.PayoffRequest{Balance: 5000, APR: 18, MinPayment: 150, ExtraPayment: 100})
	if err != nil {
		t.Fatalf("SimulatePayoff() with extra error = %v", err)
	}
	if boosted.Months >= base.Months {
		t.Errorf("extra payment did not shorten term: %d vs %d months", boosted.Months, base.Months)
	}
	if boosted.TotalInterest >= base.TotalInterest {
		t.Errorf("extra payment did not reduce interest: %v vs %v", boosted.TotalInterest, base.TotalInterest)
	}
}

func TestSimulatePayoffCapsAtFiftyYears(t *testing.T) {
	// Payment barely covers interest, so the principal shrinks by about a
	// dollar a month and the simulation hits the cap.
	res, err := SimulatePayoff(core.PayoffRequest{Balance: 100000, APR: 12, MinPayment: 1001})
	if err != nil {
		t.Fatalf("SimulatePayoff() error = %v", err)
	}
	if res.Months != payoffCapMonths {
		t.Errorf("Months = %d, want cap %d", res.Months, payoffCapMonths)
	}
}

func TestSimulatePayoffInvalidRequest(t *testing.T) {
	tests := []struct {
		name string
		req  core.PayoffRequest
	}{
		{"zero balance", core.PayoffRequest{APR: 12, MinPayment: 100}},
		{"zero payment", core.PayoffRequest{Balance: 1000, APR: 12}},
		{"negative extra", core.PayoffRequest{Balance: 1000, APR: 12, MinPayment: 100, ExtraPayment: -5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := SimulatePayoff(tt.req); err == nil {
				t.Error("SimulatePayoff() expected validation error")
			}
		})
	}
}
