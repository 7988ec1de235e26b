// Package records defines the read interface the insights engine consumes.
// The engine never mutates records and holds no handle to the store beyond
// this interface; provisioning and writes live entirely in the storage
// layer.
package records

import (
	"context"

	"homebudget/internal/core"
)

// AmountSign filters transactions by the sign of their amount.
type AmountSign int

const (
	AnySign AmountSign = iota
	IncomeOnly
	ExpenseOnly
)

// Filter narrows a transaction listing. Zero values mean "no constraint".
// From and To are inclusive YYYY-MM-DD bounds.
type Filter struct {
	From     string
	To       string
	Sign     AmountSign
	Category string
}

// Reader is the snapshot query surface over the external store.
type Reader interface {
	ListAccounts(ctx context.Context) ([]core.Account, error)
	ListTransactions(ctx context.Context, f Filter) ([]core.Transaction, error)
	ListDebts(ctx context.Context) ([]core.Debt, error)
	ListGoals(ctx context.Context) ([]core.Goal, error)
	ListIncomeSources(ctx context.Context) ([]core.IncomeSource, error)
}

// Matches reports whether a transaction passes the filter. Storage
// implementations may push these constraints into SQL; in-memory readers
// and tests use it directly.
func (f Filter) Matches(t core.Transaction) bool {
	if f.From != "" && t.Date < f.From {
		return false
	}
	if f.To != "" && t.Date > f.To {
		return false
	}
	switch f.Sign {
	case IncomeOnly:
		if t.Amount <= 0 {
			return false
		}
	case ExpenseOnly:
		if t.Amount >= 0 {
			return false
		}
	}
	if f.Category != "" && t.CategoryOrDefault() != f.Category {
		return false
	}
	return true
}
