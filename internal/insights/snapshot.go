package insights

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"homebudget/internal/core"
	"homebudget/internal/records"
)

// Snapshot is a point-in-time read of every record an analysis needs. The
// engine treats it as immutable; all rule evaluation is pure over it.
//
// Accounts and transactions are required. Debts, goals and income sources
// degrade to empty slices when their reads fail (a missing table should
// shrink the analysis, not abort it).
type Snapshot struct {
	Now          time.Time
	Accounts     []core.Account
	Transactions []core.Transaction
	Debts        []core.Debt
	Goals        []core.Goal
	Sources      []core.IncomeSource
}

// LoadSnapshot reads all record collections concurrently.
func LoadSnapshot(ctx context.Context, r records.Reader, now time.Time) (*Snapshot, error) {
	snap := &Snapshot{Now: now}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		accounts, err := r.ListAccounts(gctx)
		if err != nil {
			return fmt.Errorf("list accounts: %w", err)
		}
		snap.Accounts = accounts
		return nil
	})
	g.Go(func() error {
		txs, err := r.ListTransactions(gctx, records.Filter{})
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		snap.Transactions = txs
		return nil
	})
	g.Go(func() error {
		debts, err := r.ListDebts(gctx)
		if err != nil {
			slog.WarnContext(gctx, "Debts unavailable, continuing without", "error", err)
			return nil
		}
		snap.Debts = debts
		return nil
	})
	g.Go(func() error {
		goals, err := r.ListGoals(gctx)
		if err != nil {
			slog.WarnContext(gctx, "Goals unavailable, continuing without", "error", err)
			return nil
		}
		snap.Goals = goals
		return nil
	})
	g.Go(func() error {
		sources, err := r.ListIncomeSources(gctx)
		if err != nil {
			slog.WarnContext(gctx, "Income sources unavailable, continuing without", "error", err)
			return nil
		}
		snap.Sources = sources
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

// Today returns the snapshot date as YYYY-MM-DD.
func (s *Snapshot) Today() string {
	return core.FormatDay(s.Now)
}

// MonthWindow returns the inclusive bounds of the snapshot's current month.
func (s *Snapshot) MonthWindow() (string, string) {
	return core.MonthWindow(s.Now)
}

// HistoryStart returns the YYYY-MM-DD lower bound for the trailing
// six-month history windows used by several rules.
func (s *Snapshot) HistoryStart() string {
	return core.FormatDay(s.Now.AddDate(0, -6, 0))
}
