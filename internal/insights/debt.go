package insights

import (
	"errors"

	"homebudget/internal/core"
)

// ErrPaymentTooLow means the combined payment does not cover the first
// month's interest, so the balance would grow forever.
var ErrPaymentTooLow = errors.New("Payment too low to cover interest.")

// payoffCapMonths bounds the simulation at 50 years.
const payoffCapMonths = 600

// PayoffResult is the outcome of a debt payoff simulation.
type PayoffResult struct {
	Months        int     `json:"months"`
	TotalInterest float64 `json:"totalInterest"`
}

// SimulatePayoff runs a month-by-month amortization: each month accrues
// interest at APR/12 on the running balance, then applies the combined
// minimum-plus-extra payment. It stops when the balance reaches zero or
// the cap is hit, whichever comes first.
func SimulatePayoff(req core.PayoffRequest) (PayoffResult, error) {
	if err := req.Validate(); err != nil {
		return PayoffResult{}, err
	}

	monthlyRate := req.APR / 100 / 12
	payment := req.MinPayment + req.ExtraPayment
	balance := req.Balance
	if payment <= balance*monthlyRate {
		return PayoffResult{}, ErrPaymentTooLow
	}

	var months int
	var totalInterest float64
	for balance > 0 && months < payoffCapMonths {
		interest := balance * monthlyRate
		totalInterest += interest
		balance += interest - payment
		if balance < 0 {
			balance = 0
		}
		months++
	}
	return PayoffResult{Months: months, TotalInterest: round2(totalInterest)}, nil
}
