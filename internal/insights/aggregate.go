package insights

import (
	"math"
	"time"

	"homebudget/internal/core"
)

// AccountBalance is the per-account projection returned by the analysis.
type AccountBalance struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Type    string  `json:"type"`
	Balance float64 `json:"balance"`
}

// TrendPoint is one month of the income/expense trend series.
type TrendPoint struct {
	Month    string  `json:"month"` // YYYY-MM
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
}

// TotalIncome sums positive transaction amounts within the inclusive
// [from, to] window.
func TotalIncome(txs []core.Transaction, from, to string) float64 {
	var total float64
	for _, t := range txs {
		if t.Amount > 0 && t.Date >= from && t.Date <= to {
			total += t.Amount
		}
	}
	return total
}

// TotalExpenses sums negative transaction amounts within the inclusive
// [from, to] window, returned as a positive magnitude.
func TotalExpenses(txs []core.Transaction, from, to string) float64 {
	var total float64
	for _, t := range txs {
		if t.Amount < 0 && t.Date >= from && t.Date <= to {
			total += t.Amount
		}
	}
	return math.Abs(total)
}

// Balances projects accounts to the compact balance view.
func Balances(accounts []core.Account) []AccountBalance {
	out := make([]AccountBalance, len(accounts))
	for i, a := range accounts {
		out[i] = AccountBalance{ID: a.ID, Name: a.Name, Type: a.Type, Balance: a.Balance}
	}
	return out
}

// Trends computes income and expense totals for the trailing n calendar
// months including the current one. It always emits exactly n entries,
// oldest first; months with no data are zero-filled.
func Trends(txs []core.Transaction, now time.Time, n int) []TrendPoint {
	trends := make([]TrendPoint, 0, n)
	for i := n - 1; i >= 0; i-- {
		month := core.MonthStart(now, i)
		from, to := core.MonthWindow(month)
		trends = append(trends, TrendPoint{
			Month:    core.MonthKey(month),
			Income:   TotalIncome(txs, from, to),
			Expenses: TotalExpenses(txs, from, to),
		})
	}
	return trends
}

// spendableBalance sums Checking and Savings balances.
func spendableBalance(accounts []core.Account) float64 {
	var sum float64
	for _, a := range accounts {
		if a.IsSpendable() {
			sum += a.Balance
		}
	}
	return sum
}

// savingsBalance sums Savings-type balances only.
func savingsBalance(accounts []core.Account) float64 {
	var sum float64
	for _, a := range accounts {
		if a.Type == core.AccountSavings {
			sum += a.Balance
		}
	}
	return sum
}

// totalBalance sums every account balance regardless of type.
func totalBalance(accounts []core.Account) float64 {
	var sum float64
	for _, a := range accounts {
		sum += a.Balance
	}
	return sum
}
