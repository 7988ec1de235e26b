package core

import (
	"errors"
	"strings"
)

// Priority levels for recommendations and pattern alerts, ordered from most
// to least pressing. Positive marks good-news items.
const (
	PriorityCritical Priority = "Critical"
	PriorityUrgent   Priority = "Urgent"
	PriorityHigh     Priority = "High"
	PriorityMedium   Priority = "Medium"
	PriorityLow      Priority = "Low"
	PriorityPositive Priority = "Positive"
)

const (
	ImpactHigh   Impact = "High"
	ImpactMedium Impact = "Medium"
	ImpactLow    Impact = "Low"
)

// Well-known account types. Free-text types are allowed; the engine matches
// retirement/investment accounts by substring.
const (
	AccountChecking   = "Checking"
	AccountSavings    = "Savings"
	AccountCreditCard = "Credit Card"
	AccountLoan       = "Loan"
	AccountRetirement = "Retirement"
	AccountInvestment = "Investment"
)

// Income source payment frequencies.
const (
	FrequencyWeekly      = "weekly"
	FrequencyBiWeekly    = "bi-weekly"
	FrequencySemiMonthly = "semi-monthly"
	FrequencyMonthly     = "monthly"
	FrequencyAnnual      = "annual"
)

type (
	Priority string
	Impact   string

	// Transaction is a single dated money movement. Amount is signed:
	// positive is income, negative is an expense. Date is a YYYY-MM-DD
	// string; date comparisons throughout the engine are lexicographic,
	// which is equivalent to chronological for this format.
	Transaction struct {
		ID          int64   `json:"id"`
		Date        string  `json:"date"`
		Amount      float64 `json:"amount"`
		Category    string  `json:"category"`
		Description string  `json:"description"`
		Paid        bool    `json:"paid"`
		AutoPay     bool    `json:"auto_pay"`
		Recurrence  string  `json:"recurrence,omitempty"`
	}

	Account struct {
		ID          int64   `json:"id"`
		Name        string  `json:"name"`
		Type        string  `json:"type"`
		Balance     float64 `json:"balance"`
		Institution string  `json:"institution,omitempty"`
		LastUpdated string  `json:"lastUpdated,omitempty"`
	}

	Debt struct {
		ID         int64   `json:"id"`
		Name       string  `json:"name"`
		Type       string  `json:"type"`
		Balance    float64 `json:"balance"`
		APR        float64 `json:"apr"`
		MinPayment float64 `json:"min_payment"`
		DueDate    string  `json:"due_date,omitempty"`
		Notes      string  `json:"notes,omitempty"`
	}

	Goal struct {
		ID            int64   `json:"id"`
		Name          string  `json:"name"`
		Type          string  `json:"type"` // savings | debt | life
		TargetAmount  float64 `json:"target_amount"`
		CurrentAmount float64 `json:"current_amount"`
		StartDate     string  `json:"start_date"`
		TargetDate    string  `json:"target_date,omitempty"`
		Notes         string  `json:"notes,omitempty"`
	}

	// IncomeSource describes an expected recurring income stream. The
	// deduction rates are user-supplied percentage estimates, not tax
	// tables.
	IncomeSource struct {
		ID              int64   `json:"id"`
		Name            string  `json:"name"`
		Type            string  `json:"type"`
		Earner          string  `json:"earner,omitempty"`
		Frequency       string  `json:"frequency"`
		ExpectedAmount  float64 `json:"expected_amount"`
		FederalTax      float64 `json:"federal_tax"`
		StateTax        float64 `json:"state_tax"`
		SocialSecurity  float64 `json:"social_security"`
		Medicare        float64 `json:"medicare"`
		OtherDeductions float64 `json:"other_deductions"`
		Notes           string  `json:"notes,omitempty"`
	}

	// Recommendation is a single actionable insight produced by the rule
	// engine. Never persisted.
	Recommendation struct {
		Title          string   `json:"title"`
		Message        string   `json:"message"`
		Priority       Priority `json:"priority"`
		Impact         Impact   `json:"impact"`
		Timeline       string   `json:"timeline"`
		ImpactEstimate float64  `json:"impactEstimate"`
		Actions        []string `json:"actions"`
	}

	// PatternAlert flags a significant deviation of current spending from
	// the historical average for one category and period.
	PatternAlert struct {
		Category       string   `json:"category"`
		Period         string   `json:"period"` // week | month
		Current        float64  `json:"current"`
		Average        float64  `json:"average"`
		Variance       float64  `json:"variance"`
		Severity       string   `json:"severity"`
		Priority       Priority `json:"priority"`
		Positive       bool     `json:"positive"`
		Message        string   `json:"message"`
		Recommendation string   `json:"recommendation"`
	}

	WisdomTip struct {
		ID      int64  `json:"id"`
		Message string `json:"message"`
		Type    string `json:"type"` // rule | seasonal
		Season  string `json:"season,omitempty"`
		Month   int    `json:"month,omitempty"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyName        = errors.New("empty name")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrNotFound         = errors.New("not found")
)

func (t Transaction) IsIncome() bool  { return t.Amount > 0 }
func (t Transaction) IsExpense() bool { return t.Amount < 0 }

// CategoryOrDefault returns the category label, substituting the
// uncategorized placeholder for empty labels.
func (t Transaction) CategoryOrDefault() string {
	if strings.TrimSpace(t.Category) == "" {
		return "Uncategorized"
	}
	return t.Category
}

func (a Account) IsSpendable() bool {
	return a.Type == AccountChecking || a.Type == AccountSavings
}

func (d Debt) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return ErrEmptyName
	}
	if d.Balance < 0 {
		return errors.New("debt balance cannot be negative")
	}
	if d.APR < 0 {
		return errors.New("apr cannot be negative")
	}
	if d.MinPayment < 0 {
		return errors.New("minimum payment cannot be negative")
	}
	return nil
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if g.TargetAmount <= 0 {
		return ErrInvalidAmount
	}
	if g.CurrentAmount < 0 {
		return errors.New("current amount cannot be negative")
	}
	if _, err := ParseDay(g.StartDate); err != nil {
		return ErrInvalidDate
	}
	return nil
}

func (s IncomeSource) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if s.ExpectedAmount <= 0 {
		return ErrInvalidAmount
	}
	switch s.Frequency {
	case FrequencyWeekly, FrequencyBiWeekly, FrequencySemiMonthly, FrequencyMonthly, FrequencyAnnual:
	default:
		return ErrInvalidFrequency
	}
	return nil
}

// Net estimates take-home pay for one expected payment by applying the
// user-supplied deduction percentages. Clamped at zero so over-estimated
// deductions never produce a negative paycheck.
func (s IncomeSource) Net() float64 {
	rate := (s.FederalTax + s.StateTax + s.SocialSecurity + s.Medicare + s.OtherDeductions) / 100
	net := s.ExpectedAmount * (1 - rate)
	if net < 0 {
		return 0
	}
	return net
}

// DebtUpdate is the explicit set of mutable debt fields. Nil means "leave
// unchanged". Arbitrary key/value patches are rejected at the API boundary.
type DebtUpdate struct {
	Name       *string  `json:"name,omitempty"`
	Type       *string  `json:"type,omitempty"`
	Balance    *float64 `json:"balance,omitempty"`
	APR        *float64 `json:"apr,omitempty"`
	MinPayment *float64 `json:"min_payment,omitempty"`
	DueDate    *string  `json:"due_date,omitempty"`
	Notes      *string  `json:"notes,omitempty"`
}

func (u DebtUpdate) IsEmpty() bool {
	return u.Name == nil && u.Type == nil && u.Balance == nil && u.APR == nil &&
		u.MinPayment == nil && u.DueDate == nil && u.Notes == nil
}

func (u DebtUpdate) Validate() error {
	if u.IsEmpty() {
		return errors.New("no fields to update")
	}
	if u.Balance != nil && *u.Balance < 0 {
		return errors.New("debt balance cannot be negative")
	}
	if u.APR != nil && *u.APR < 0 {
		return errors.New("apr cannot be negative")
	}
	if u.MinPayment != nil && *u.MinPayment < 0 {
		return errors.New("minimum payment cannot be negative")
	}
	if u.DueDate != nil && *u.DueDate != "" {
		if _, err := ParseDay(*u.DueDate); err != nil {
			return ErrInvalidDate
		}
	}
	return nil
}

// PayoffRequest are the inputs to the debt payoff simulator.
type PayoffRequest struct {
	Balance      float64 `json:"balance"`
	APR          float64 `json:"apr"`
	MinPayment   float64 `json:"min_payment"`
	ExtraPayment float64 `json:"extra_payment"`
}

func (p PayoffRequest) Validate() error {
	if p.Balance <= 0 {
		return errors.New("balance must be positive")
	}
	if p.APR < 0 {
		return errors.New("apr cannot be negative")
	}
	if p.MinPayment <= 0 {
		return errors.New("minimum payment must be positive")
	}
	if p.ExtraPayment < 0 {
		return errors.New("extra payment cannot be negative")
	}
	return nil
}
