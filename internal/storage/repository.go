package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"homebudget/internal/core"
	"homebudget/internal/records"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the single store for all financial records. It
// implements records.Reader for the insights engine and carries the write
// operations the HTTP layer needs.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

var _ records.Reader = (*SQLiteRepository)(nil)

func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, type, balance, institution, last_updated FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		var a core.Account
		var institution, lastUpdated sql.NullString
		if err := rows.Scan(&a.ID, &a.Name, &a.Type, &a.Balance, &institution, &lastUpdated); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		a.Institution = institution.String
		a.LastUpdated = lastUpdated.String
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, f records.Filter) ([]core.Transaction, error) {
	query := `SELECT id, date, amount, category, description, paid, auto_pay, recurrence FROM transactions`
	var conds []string
	var args []any
	if f.From != "" {
		conds = append(conds, "date >= ?")
		args = append(args, f.From)
	}
	if f.To != "" {
		conds = append(conds, "date <= ?")
		args = append(args, f.To)
	}
	switch f.Sign {
	case records.IncomeOnly:
		conds = append(conds, "amount > 0")
	case records.ExpenseOnly:
		conds = append(conds, "amount < 0")
	}
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, f.Category)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY date ASC, id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		var t core.Transaction
		var category, description, recurrence sql.NullString
		if err := rows.Scan(&t.ID, &t.Date, &t.Amount, &category, &description, &t.Paid, &t.AutoPay, &recurrence); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Category = category.String
		t.Description = description.String
		t.Recurrence = recurrence.String
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (r *SQLiteRepository) ListDebts(ctx context.Context) ([]core.Debt, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, type, balance, apr, min_payment, due_date, notes FROM debts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list debts: %w", err)
	}
	defer rows.Close()

	var debts []core.Debt
	for rows.Next() {
		var d core.Debt
		var typ, dueDate, notes sql.NullString
		if err := rows.Scan(&d.ID, &d.Name, &typ, &d.Balance, &d.APR, &d.MinPayment, &dueDate, &notes); err != nil {
			return nil, fmt.Errorf("scan debt: %w", err)
		}
		d.Type = typ.String
		d.DueDate = dueDate.String
		d.Notes = notes.String
		debts = append(debts, d)
	}
	return debts, rows.Err()
}

func (r *SQLiteRepository) ListGoals(ctx context.Context) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, type, target_amount, current_amount, start_date, target_date, notes FROM goals ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var goals []core.Goal
	for rows.Next() {
		var g core.Goal
		var targetDate, notes sql.NullString
		if err := rows.Scan(&g.ID, &g.Name, &g.Type, &g.TargetAmount, &g.CurrentAmount, &g.StartDate, &targetDate, &notes); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		g.TargetDate = targetDate.String
		g.Notes = notes.String
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func (r *SQLiteRepository) ListIncomeSources(ctx context.Context) ([]core.IncomeSource, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, type, earner, frequency, expected_amount,
		        federal_tax, state_tax, social_security, medicare, other_deductions, notes
		 FROM income_sources ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list income sources: %w", err)
	}
	defer rows.Close()

	var sources []core.IncomeSource
	for rows.Next() {
		var s core.IncomeSource
		var typ, earner, notes sql.NullString
		if err := rows.Scan(&s.ID, &s.Name, &typ, &earner, &s.Frequency, &s.ExpectedAmount,
			&s.FederalTax, &s.StateTax, &s.SocialSecurity, &s.Medicare, &s.OtherDeductions, &notes); err != nil {
			return nil, fmt.Errorf("scan income source: %w", err)
		}
		s.Type = typ.String
		s.Earner = earner.String
		s.Notes = notes.String
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (date, amount, category, description, paid, auto_pay, recurrence)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.Date, t.Amount, nullable(t.Category), nullable(t.Description), t.Paid, t.AutoPay, nullable(t.Recurrence))
	if err != nil {
		return 0, fmt.Errorf("create transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("transaction insert id: %w", err)
	}
	slog.InfoContext(ctx, "Transaction saved", "id", id, "date", t.Date, "amount", t.Amount)
	return id, nil
}

func (r *SQLiteRepository) SetTransactionPaid(ctx context.Context, id int64, paid bool) error {
	return r.updateTransactionFlag(ctx, id, "paid", paid)
}

func (r *SQLiteRepository) SetTransactionAutoPay(ctx context.Context, id int64, autoPay bool) error {
	return r.updateTransactionFlag(ctx, id, "auto_pay", autoPay)
}

func (r *SQLiteRepository) updateTransactionFlag(ctx context.Context, id int64, column string, value bool) error {
	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE transactions SET %s = ? WHERE id = ?", column), value, id)
	if err != nil {
		return fmt.Errorf("update transaction %s: %w", column, err)
	}
	return requireRow(res, "transaction")
}

func (r *SQLiteRepository) CreateDebt(ctx context.Context, d core.Debt) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO debts (name, type, balance, apr, min_payment, due_date, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.Name, nullable(d.Type), d.Balance, d.APR, d.MinPayment, nullable(d.DueDate), nullable(d.Notes))
	if err != nil {
		return 0, fmt.Errorf("create debt: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("debt insert id: %w", err)
	}
	slog.InfoContext(ctx, "Debt saved", "id", id, "name", d.Name, "balance", d.Balance)
	return id, nil
}

// UpdateDebt applies only the fields the patch names. Every column stays
// parameterized; the set clause is assembled from a fixed field list.
func (r *SQLiteRepository) UpdateDebt(ctx context.Context, id int64, u core.DebtUpdate) error {
	var sets []string
	var args []any
	set := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if u.Name != nil {
		set("name", *u.Name)
	}
	if u.Type != nil {
		set("type", *u.Type)
	}
	if u.Balance != nil {
		set("balance", *u.Balance)
	}
	if u.APR != nil {
		set("apr", *u.APR)
	}
	if u.MinPayment != nil {
		set("min_payment", *u.MinPayment)
	}
	if u.DueDate != nil {
		set("due_date", *u.DueDate)
	}
	if u.Notes != nil {
		set("notes", *u.Notes)
	}
	if len(sets) == 0 {
		return errors.New("no fields to update")
	}
	args = append(args, id)

	res, err := r.db.ExecContext(ctx,
		"UPDATE debts SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update debt: %w", err)
	}
	return requireRow(res, "debt")
}

func (r *SQLiteRepository) DeleteDebt(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM debts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete debt: %w", err)
	}
	return requireRow(res, "debt")
}

func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.Goal) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO goals (name, type, target_amount, current_amount, start_date, target_date, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.Name, g.Type, g.TargetAmount, g.CurrentAmount, g.StartDate, nullable(g.TargetDate), nullable(g.Notes))
	if err != nil {
		return 0, fmt.Errorf("create goal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("goal insert id: %w", err)
	}
	slog.InfoContext(ctx, "Goal saved", "id", id, "name", g.Name, "target", g.TargetAmount)
	return id, nil
}

func (r *SQLiteRepository) UpdateGoalProgress(ctx context.Context, id int64, currentAmount float64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE goals SET current_amount = ? WHERE id = ?", currentAmount, id)
	if err != nil {
		return fmt.Errorf("update goal progress: %w", err)
	}
	return requireRow(res, "goal")
}

func (r *SQLiteRepository) CreateIncomeSource(ctx context.Context, s core.IncomeSource) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO income_sources (name, type, earner, frequency, expected_amount,
		                             federal_tax, state_tax, social_security, medicare, other_deductions, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Name, nullable(s.Type), nullable(s.Earner), s.Frequency, s.ExpectedAmount,
		s.FederalTax, s.StateTax, s.SocialSecurity, s.Medicare, s.OtherDeductions, nullable(s.Notes))
	if err != nil {
		return 0, fmt.Errorf("create income source: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("income source insert id: %w", err)
	}
	slog.InfoContext(ctx, "Income source saved", "id", id, "name", s.Name)
	return id, nil
}

func (r *SQLiteRepository) UpdateIncomeSource(ctx context.Context, s core.IncomeSource) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE income_sources SET name = ?, type = ?, earner = ?, frequency = ?, expected_amount = ?,
		        federal_tax = ?, state_tax = ?, social_security = ?, medicare = ?, other_deductions = ?, notes = ?
		 WHERE id = ?`,
		s.Name, nullable(s.Type), nullable(s.Earner), s.Frequency, s.ExpectedAmount,
		s.FederalTax, s.StateTax, s.SocialSecurity, s.Medicare, s.OtherDeductions, nullable(s.Notes), s.ID)
	if err != nil {
		return fmt.Errorf("update income source: %w", err)
	}
	return requireRow(res, "income source")
}

func (r *SQLiteRepository) DeleteIncomeSource(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM income_sources WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete income source: %w", err)
	}
	return requireRow(res, "income source")
}

// ListWisdomTips returns the evergreen rules plus seasonal tips matching
// either the season name or the calendar month.
func (r *SQLiteRepository) ListWisdomTips(ctx context.Context, season string, month int) ([]core.WisdomTip, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, message, type, season, month FROM wisdom_tips
		 WHERE type = 'rule' OR (type = 'seasonal' AND (season = ? OR month = ?))`,
		season, month)
	if err != nil {
		return nil, fmt.Errorf("list wisdom tips: %w", err)
	}
	defer rows.Close()

	var tips []core.WisdomTip
	for rows.Next() {
		var t core.WisdomTip
		var typ, tipSeason sql.NullString
		var tipMonth sql.NullInt64
		if err := rows.Scan(&t.ID, &t.Message, &typ, &tipSeason, &tipMonth); err != nil {
			return nil, fmt.Errorf("scan wisdom tip: %w", err)
		}
		t.Type = typ.String
		t.Season = tipSeason.String
		t.Month = int(tipMonth.Int64)
		tips = append(tips, t)
	}
	return tips, rows.Err()
}

// nullable maps empty strings to SQL NULL so optional text columns stay
// NULL instead of storing "".
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func requireRow(res sql.Result, entity string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", entity, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", entity, core.ErrNotFound)
	}
	return nil
}
