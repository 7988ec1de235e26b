package insights

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"homebudget/internal/core"
	"homebudget/internal/records"
)

// ErrGoalNotFound is returned when a projection is requested for an
// unknown goal id.
var ErrGoalNotFound = errors.New("goal not found")

// Engine is the top-level analysis orchestrator. It is stateless: every
// operation loads a fresh snapshot, computes pure results over it, and
// returns. Concurrent calls are safe by construction.
type Engine struct {
	reader records.Reader
	logger *slog.Logger
}

func New(reader records.Reader, logger *slog.Logger) *Engine {
	return &Engine{reader: reader, logger: logger}
}

// Analysis is the combined dashboard payload: balances, current-month
// totals, the six-month trend series, and the full recommendation list.
type Analysis struct {
	Balances        []AccountBalance      `json:"balances"`
	TotalIncome     float64               `json:"totalIncome"`
	TotalExpenses   float64               `json:"totalExpenses"`
	Trends          []TrendPoint          `json:"trends"`
	Recommendations []core.Recommendation `json:"recommendations"`
}

// Analyze runs the full recommendation battery over a fresh snapshot.
func (e *Engine) Analyze(ctx context.Context, now time.Time) (*Analysis, error) {
	snap, err := LoadSnapshot(ctx, e.reader, now)
	if err != nil {
		return nil, err
	}
	from, to := snap.MonthWindow()
	a := &Analysis{
		Balances:        Balances(snap.Accounts),
		TotalIncome:     TotalIncome(snap.Transactions, from, to),
		TotalExpenses:   TotalExpenses(snap.Transactions, from, to),
		Trends:          Trends(snap.Transactions, now, 6),
		Recommendations: Recommendations(snap),
	}
	e.logger.InfoContext(ctx, "Financial analysis computed",
		"recommendations", len(a.Recommendations),
		"totalIncome", a.TotalIncome,
		"totalExpenses", a.TotalExpenses)
	return a, nil
}

// HealthScore maps the current month's net savings and the total balance
// across all accounts onto the 0-100 ladder.
func (e *Engine) HealthScore(ctx context.Context, now time.Time) (int, error) {
	snap, err := LoadSnapshot(ctx, e.reader, now)
	if err != nil {
		return 0, err
	}
	return healthScore(snap), nil
}

func healthScore(s *Snapshot) int {
	income := s.monthIncome()
	expenses := s.monthExpenses()
	net := income - expenses
	available := totalBalance(s.Accounts)

	switch {
	case income <= 0:
		return 10
	case net >= 0.2*income && available >= 0:
		return 100
	case net >= 0.1*income && available >= 0:
		return 90
	case net >= 0 && available >= 0:
		return 75
	case net < 0 && available >= 0:
		return 55
	case available < 0 && available > -1000:
		return 30
	default:
		return 10
	}
}

// PatternAlerts analyzes per-category spending over the trailing window.
func (e *Engine) PatternAlerts(ctx context.Context, now time.Time, months int) ([]core.PatternAlert, error) {
	snap, err := LoadSnapshot(ctx, e.reader, now)
	if err != nil {
		return nil, err
	}
	return PatternAlerts(snap.Transactions, now, months), nil
}

// VariableIncome computes the per-source and aggregate income statistics.
func (e *Engine) VariableIncome(ctx context.Context, now time.Time) (IncomeAnalysis, error) {
	snap, err := LoadSnapshot(ctx, e.reader, now)
	if err != nil {
		return IncomeAnalysis{}, err
	}
	return AnalyzeVariableIncome(snap), nil
}

// DebtPayoff simulates paying a balance down at the given rate.
func (e *Engine) DebtPayoff(req core.PayoffRequest) (PayoffResult, error) {
	return SimulatePayoff(req)
}

// GoalProjection extrapolates a goal's completion date.
func (e *Engine) GoalProjection(ctx context.Context, goalID int64, now time.Time) (GoalProjection, error) {
	goals, err := e.reader.ListGoals(ctx)
	if err != nil {
		return GoalProjection{}, fmt.Errorf("list goals: %w", err)
	}
	for _, g := range goals {
		if g.ID == goalID {
			return ProjectGoal(g, now)
		}
	}
	return GoalProjection{}, ErrGoalNotFound
}

// MonthlySummaryPoint is one month of the income/spending/net series.
type MonthlySummaryPoint struct {
	Month         string  `json:"month"`
	TotalIncome   float64 `json:"totalIncome"`
	TotalSpending float64 `json:"totalSpending"`
	NetSavings    float64 `json:"netSavings"`
}

// MonthlySummary reports the trailing n months including the current one,
// oldest first, zero-filling months with no transactions.
func (e *Engine) MonthlySummary(ctx context.Context, now time.Time, months int) ([]MonthlySummaryPoint, error) {
	if months <= 0 {
		months = 6
	}
	snap, err := LoadSnapshot(ctx, e.reader, now)
	if err != nil {
		return nil, err
	}
	summary := make([]MonthlySummaryPoint, 0, months)
	for _, p := range Trends(snap.Transactions, now, months) {
		summary = append(summary, MonthlySummaryPoint{
			Month:         p.Month,
			TotalIncome:   p.Income,
			TotalSpending: p.Expenses,
			NetSavings:    p.Income - p.Expenses,
		})
	}
	return summary, nil
}

// MoneyLeft is the safe-to-spend breakdown for the rest of the month.
type MoneyLeft struct {
	SafeToSpend     float64 `json:"safeToSpend"`
	DaysLeft        int     `json:"daysLeft"`
	MoneyLeftPerDay float64 `json:"moneyLeftPerDay"`
	AvgSpentPerDay  float64 `json:"avgSpentPerDay"`
	Alert           bool    `json:"alert"`
}

// MoneyLeftPerDay divides the spendable balance across the remaining days
// of the month, today included, and flags when the month-to-date daily
// spending rate exceeds it.
func (e *Engine) MoneyLeftPerDay(ctx context.Context, now time.Time) (MoneyLeft, error) {
	snap, err := LoadSnapshot(ctx, e.reader, now)
	if err != nil {
		return MoneyLeft{}, err
	}
	safeToSpend := spendableBalance(snap.Accounts)
	daysLeft := core.DaysInMonth(now) - now.Day() + 1

	var perDay float64
	if daysLeft > 0 {
		perDay = safeToSpend / float64(daysLeft)
	}
	var avgSpent float64
	if now.Day() > 0 {
		avgSpent = snap.monthExpenses() / float64(now.Day())
	}
	return MoneyLeft{
		SafeToSpend:     safeToSpend,
		DaysLeft:        daysLeft,
		MoneyLeftPerDay: perDay,
		AvgSpentPerDay:  avgSpent,
		Alert:           avgSpent > perDay,
	}, nil
}

// BalanceBreakdown itemizes the inputs to the end-of-month projection.
type BalanceBreakdown struct {
	AvailableBalance          float64 `json:"availableBalance"`
	FutureIncome              float64 `json:"futureIncome"`
	FutureBills               float64 `json:"futureBills"`
	ProjectedVariableSpending float64 `json:"projectedVariableSpending"`
	DaysLeft                  int     `json:"daysLeft"`
	AvgDailySpending          float64 `json:"avgDailySpending"`
	TotalIncome               float64 `json:"totalIncome"`
	TotalExpenses             float64 `json:"totalExpenses"`
}

// ProjectedBalance is the end-of-month outlook.
type ProjectedBalance struct {
	ProjectedBalance float64          `json:"projectedBalance"`
	Status           string           `json:"status"`
	Insight          string           `json:"insight"`
	Breakdown        BalanceBreakdown `json:"breakdown"`
}

// ProjectedEndOfMonthBalance estimates where all balances land at month
// end: current total, plus scheduled income and bills still to come, minus
// variable spending extrapolated from the month-to-date daily rate.
func (e *Engine) ProjectedEndOfMonthBalance(ctx context.Context, now time.Time) (ProjectedBalance, error) {
	snap, err := LoadSnapshot(ctx, e.reader, now)
	if err != nil {
		return ProjectedBalance{}, err
	}

	available := totalBalance(snap.Accounts)
	from, to := snap.MonthWindow()
	totalIncome := TotalIncome(snap.Transactions, from, to)
	totalExpenses := TotalExpenses(snap.Transactions, from, to)

	today := snap.Today()
	futureIncome := TotalIncome(snap.Transactions, nextDay(today), to)
	futureBills := TotalExpenses(snap.Transactions, nextDay(today), to)

	daysLeft := core.DaysInMonth(now) - now.Day()
	var avgDaily float64
	if now.Day() > 0 {
		avgDaily = totalExpenses / float64(now.Day())
	}
	variable := math.Round(avgDaily * float64(daysLeft))
	projected := available + futureIncome - futureBills - variable

	var status, insight string
	switch {
	case projected < 0:
		status = "critical"
		insight = "Warning: You are projected to run out of money by month end."
	case projected < 200:
		status = "warning"
		insight = "Caution: Your projected balance is very low. Consider reducing spending."
	case projected < 500:
		status = "caution"
		insight = "Monitor your spending to avoid a negative balance."
	default:
		status = "healthy"
		insight = "You are on track for a healthy month."
	}

	return ProjectedBalance{
		ProjectedBalance: projected,
		Status:           status,
		Insight:          insight,
		Breakdown: BalanceBreakdown{
			AvailableBalance:          available,
			FutureIncome:              futureIncome,
			FutureBills:               futureBills,
			ProjectedVariableSpending: variable,
			DaysLeft:                  daysLeft,
			AvgDailySpending:          avgDaily,
			TotalIncome:               totalIncome,
			TotalExpenses:             totalExpenses,
		},
	}, nil
}

// nextDay returns the day after a YYYY-MM-DD date, used to turn an
// exclusive lower bound into the engine's inclusive windows.
func nextDay(day string) string {
	t, err := core.ParseDay(day)
	if err != nil {
		return day
	}
	return core.FormatDay(t.AddDate(0, 0, 1))
}

// BillReminder is one upcoming bill with its urgency classification.
type BillReminder struct {
	core.Transaction
	DaysAway int    `json:"daysAway"`
	Urgency  string `json:"urgency"`
}

// BillReminderGroups buckets reminders by urgency.
type BillReminderGroups struct {
	Urgent   []BillReminder `json:"urgent"`
	Soon     []BillReminder `json:"soon"`
	Upcoming []BillReminder `json:"upcoming"`
}

// BillReminderStats summarizes the next seven days of bills.
type BillReminderStats struct {
	TotalDue     float64 `json:"totalDue"`
	UnpaidCount  int     `json:"unpaidCount"`
	AutoPayCount int     `json:"autoPayCount"`
}

type BillReminders struct {
	Grouped BillReminderGroups `json:"grouped"`
	Stats   BillReminderStats  `json:"stats"`
}

// BillReminders groups bills due in the next seven days by urgency: due
// within 2 days is urgent, within 5 soon, the rest upcoming. Paid bills
// stay in the listing but do not count toward the amount due.
func (e *Engine) BillReminders(ctx context.Context, now time.Time) (BillReminders, error) {
	snap, err := LoadSnapshot(ctx, e.reader, now)
	if err != nil {
		return BillReminders{}, err
	}

	today := snap.Today()
	limit := core.FormatDay(now.AddDate(0, 0, 7))

	var out BillReminders
	for _, t := range snap.Transactions {
		if t.Amount >= 0 || t.Date <= today || t.Date > limit {
			continue
		}
		due, perr := core.ParseDay(t.Date)
		if perr != nil {
			continue
		}
		daysAway := int(math.Ceil(due.Sub(now).Hours() / 24))
		reminder := BillReminder{Transaction: t, DaysAway: daysAway}
		switch {
		case daysAway <= 2:
			reminder.Urgency = "urgent"
			out.Grouped.Urgent = append(out.Grouped.Urgent, reminder)
		case daysAway <= 5:
			reminder.Urgency = "soon"
			out.Grouped.Soon = append(out.Grouped.Soon, reminder)
		default:
			reminder.Urgency = "upcoming"
			out.Grouped.Upcoming = append(out.Grouped.Upcoming, reminder)
		}
		if !t.Paid {
			out.Stats.TotalDue += math.Abs(t.Amount)
			out.Stats.UnpaidCount++
		}
		if t.AutoPay {
			out.Stats.AutoPayCount++
		}
	}
	return out, nil
}

// MonthToDateSpending returns this month's expense total as a positive
// magnitude.
func (e *Engine) MonthToDateSpending(ctx context.Context, now time.Time) (float64, error) {
	snap, err := LoadSnapshot(ctx, e.reader, now)
	if err != nil {
		return 0, err
	}
	return snap.monthExpenses(), nil
}

// SpendingVelocity is this month's average daily spending.
func (e *Engine) SpendingVelocity(ctx context.Context, now time.Time) (float64, error) {
	snap, err := LoadSnapshot(ctx, e.reader, now)
	if err != nil {
		return 0, err
	}
	if now.Day() == 0 {
		return 0, nil
	}
	return snap.monthExpenses() / float64(now.Day()), nil
}

// Paycheck is the countdown to the next expected payday.
type Paycheck struct {
	DaysUntilNextPaycheck int    `json:"daysUntilNextPaycheck"`
	NextPaycheckDate      string `json:"nextPaycheckDate"`
}

// NextPaycheck assumes a Friday payday and always reports a future date:
// on a Friday it points at the following week.
func NextPaycheck(now time.Time) Paycheck {
	days := (int(time.Friday) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return Paycheck{
		DaysUntilNextPaycheck: days,
		NextPaycheckDate:      core.FormatDay(now.AddDate(0, 0, days)),
	}
}
