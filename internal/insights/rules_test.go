package insights

import (
	"math"
	"testing"
	"time"

	"homebudget/internal/core"
)

var ratioBandTitles = []string{
	"No Income Detected",
	"Spending Exceeds Income",
	"Severe Budget Risk",
	"High Spending Rate",
	"Moderate Spending",
	"Healthy Spending",
	"Excellent Financial Health",
}

func findRec(recs []core.Recommendation, title string) *core.Recommendation {
	for i := range recs {
		if recs[i].Title == title {
			return &recs[i]
		}
	}
	return nil
}

func midJuly() time.Time {
	return time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)
}

func TestSpendingRatioBands(t *testing.T) {
	tests := []struct {
		name     string
		income   float64
		expenses float64
		want     string
	}{
		{"no income", 0, 500, "No Income Detected"},
		{"overspending", 1000, 1500, "Spending Exceeds Income"},
		{"severe", 1000, 960, "Severe Budget Risk"},
		{"high", 1000, 900, "High Spending Rate"},
		{"moderate", 4000, 3000, "Moderate Spending"},
		{"healthy", 1000, 600, "Healthy Spending"},
		{"excellent", 1000, 200, "Excellent Financial Health"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Snapshot{Now: midJuly()}
			if tt.income > 0 {
				s.Transactions = append(s.Transactions, core.Transaction{Date: "2025-07-01", Amount: tt.income, Paid: true})
			}
			if tt.expenses > 0 {
				s.Transactions = append(s.Transactions, core.Transaction{Date: "2025-07-05", Amount: -tt.expenses, Category: "Rent", Paid: true})
			}
			recs := ruleSpendingRatio(s)
			if len(recs) != 1 {
				t.Fatalf("ruleSpendingRatio returned %d recommendations, want exactly 1", len(recs))
			}
			if recs[0].Title != tt.want {
				t.Errorf("band = %q, want %q", recs[0].Title, tt.want)
			}
		})
	}
}

func TestSpendingRatioModerateImpact(t *testing.T) {
	// $4000 income against $3000 spend is a 75% ratio; the suggested
	// savings potential is 30% of income.
	s := &Snapshot{
		Now: midJuly(),
		Transactions: []core.Transaction{
			{Date: "2025-07-01", Amount: 4000, Paid: true},
			{Date: "2025-07-05", Amount: -3000, Category: "Rent", Paid: true},
		},
	}
	recs := ruleSpendingRatio(s)
	if len(recs) != 1 || recs[0].Title != "Moderate Spending" {
		t.Fatalf("unexpected recommendations: %+v", recs)
	}
	if math.Abs(recs[0].ImpactEstimate-1200) > 1e-9 {
		t.Errorf("ImpactEstimate = %v, want 1200", recs[0].ImpactEstimate)
	}
	if recs[0].Priority != core.PriorityMedium {
		t.Errorf("Priority = %s, want Medium", recs[0].Priority)
	}
}

func TestFullBatteryEmitsSingleRatioBand(t *testing.T) {
	s := &Snapshot{
		Now: midJuly(),
		Accounts: []core.Account{
			{Type: core.AccountChecking, Balance: 2000},
			{Type: core.AccountSavings, Balance: 5000},
		},
		Transactions: []core.Transaction{
			{Date: "2025-07-01", Amount: 4000, Paid: true},
			{Date: "2025-07-05", Amount: -3000, Category: "Rent", Paid: true},
		},
	}
	recs := Recommendations(s)
	var bands int
	for _, title := range ratioBandTitles {
		if findRec(recs, title) != nil {
			bands++
		}
	}
	if bands != 1 {
		t.Errorf("found %d ratio band recommendations, want exactly 1", bands)
	}
}

func TestEmergencyFundRule(t *testing.T) {
	t.Run("below target", func(t *testing.T) {
		s := &Snapshot{
			Now: midJuly(),
			Accounts: []core.Account{
				{Type: core.AccountChecking, Balance: 1000},
				{Type: core.AccountSavings, Balance: 200},
			},
			Transactions: []core.Transaction{
				{Date: "2025-07-05", Amount: -600, Category: "Rent", Paid: true},
			},
		}
		// Six-month average is $100/month, so the target is $300 and
		// the gap is $100.
		recs := ruleEmergencyFund(s)
		if len(recs) != 1 {
			t.Fatalf("expected 1 recommendation, got %d", len(recs))
		}
		if math.Abs(recs[0].ImpactEstimate-100) > 1e-9 {
			t.Errorf("ImpactEstimate = %v, want 100", recs[0].ImpactEstimate)
		}
	})

	t.Run("no expense history stays quiet", func(t *testing.T) {
		s := &Snapshot{
			Now:      midJuly(),
			Accounts: []core.Account{{Type: core.AccountSavings, Balance: 0}},
		}
		if recs := ruleEmergencyFund(s); len(recs) != 0 {
			t.Errorf("expected no recommendations, got %d", len(recs))
		}
	})

	t.Run("funded target stays quiet", func(t *testing.T) {
		s := &Snapshot{
			Now:      midJuly(),
			Accounts: []core.Account{{Type: core.AccountSavings, Balance: 5000}},
			Transactions: []core.Transaction{
				{Date: "2025-07-05", Amount: -600, Category: "Rent", Paid: true},
			},
		}
		if recs := ruleEmergencyFund(s); len(recs) != 0 {
			t.Errorf("expected no recommendations, got %d", len(recs))
		}
	})
}

func TestLowBalanceRule(t *testing.T) {
	tests := []struct {
		name      string
		balance   float64
		wantTitle string
	}{
		{"negative balance", -50, "Overdraft Risk"},
		{"low balance", 50, "Low Balance Warning"},
		{"comfortable balance", 500, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Snapshot{
				Now:      midJuly(),
				Accounts: []core.Account{{Type: core.AccountChecking, Balance: tt.balance}},
			}
			recs := ruleLowBalance(s)
			if tt.wantTitle == "" {
				if len(recs) != 0 {
					t.Errorf("expected no recommendations, got %+v", recs)
				}
				return
			}
			if len(recs) != 1 || recs[0].Title != tt.wantTitle {
				t.Errorf("got %+v, want title %q", recs, tt.wantTitle)
			}
		})
	}
}

func TestBillShortfallRule(t *testing.T) {
	s := &Snapshot{
		Now:      midJuly(),
		Accounts: []core.Account{{Type: core.AccountChecking, Balance: 100}},
		Transactions: []core.Transaction{
			{Date: "2025-07-20", Amount: -500, Category: "Utilities", Description: "Electric"},
		},
	}
	recs := ruleBillShortfall(s)
	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(recs))
	}
	if math.Abs(recs[0].ImpactEstimate-(-400)) > 1e-9 {
		t.Errorf("ImpactEstimate = %v, want -400", recs[0].ImpactEstimate)
	}

	// Paid bills are not counted against the balance.
	s.Transactions[0].Paid = true
	if recs := ruleBillShortfall(s); len(recs) != 0 {
		t.Errorf("expected no recommendations for paid bill, got %d", len(recs))
	}
}

func TestUrgentBillsRule(t *testing.T) {
	s := &Snapshot{
		Now: midJuly(),
		Transactions: []core.Transaction{
			{Date: "2025-07-16", Amount: -80, Category: "Utilities", Description: "Water"},
			{Date: "2025-07-21", Amount: -200, Category: "Insurance", Description: "Auto"},
		},
	}
	recs := ruleUrgentBills(s)
	if len(recs) != 1 {
		t.Fatalf("expected 1 urgent bill, got %d", len(recs))
	}
	if recs[0].Title != "Urgent Bill Due: Utilities" {
		t.Errorf("Title = %q", recs[0].Title)
	}
	if recs[0].Priority != core.PriorityUrgent {
		t.Errorf("Priority = %s, want Urgent", recs[0].Priority)
	}
}

func TestAutopayRule(t *testing.T) {
	s := &Snapshot{
		Now: midJuly(),
		Transactions: []core.Transaction{
			{Date: "2025-07-20", Amount: -60, Category: "Utilities", Description: "Internet", Recurrence: "monthly"},
			{Date: "2025-07-22", Amount: -15, Category: "Entertainment", Description: "Streaming", Recurrence: "monthly", AutoPay: true},
		},
	}
	recs := ruleAutopay(s)
	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(recs))
	}
	if recs[0].Title != "Optimize Bill Payments with Autopay" {
		t.Errorf("Title = %q", recs[0].Title)
	}
}

func TestBudgetOverrunRule(t *testing.T) {
	// $40/day halfway through July projects to $1240 against $1000 income.
	s := &Snapshot{
		Now: midJuly(),
		Transactions: []core.Transaction{
			{Date: "2025-07-01", Amount: 1000, Paid: true},
			{Date: "2025-07-10", Amount: -600, Category: "Shopping", Paid: true},
		},
	}
	recs := ruleBudgetOverrun(s)
	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(recs))
	}
	if math.Abs(recs[0].ImpactEstimate-240) > 1e-9 {
		t.Errorf("ImpactEstimate = %v, want 240", recs[0].ImpactEstimate)
	}
}

func TestDebtPayoffRule(t *testing.T) {
	s := &Snapshot{
		Now: midJuly(),
		Accounts: []core.Account{
			{Type: core.AccountCreditCard, Balance: -2000},
			{Type: core.AccountLoan, Balance: -8000},
			{Type: core.AccountChecking, Balance: 500},
		},
	}
	recs := ruleDebtPayoff(s)
	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(recs))
	}
	if recs[0].ImpactEstimate != 10000 {
		t.Errorf("ImpactEstimate = %v, want 10000", recs[0].ImpactEstimate)
	}
}

func TestTopCategoriesRule(t *testing.T) {
	s := &Snapshot{
		Now: midJuly(),
		Transactions: []core.Transaction{
			{Date: "2025-07-02", Amount: -500, Category: "Groceries", Paid: true},
			{Date: "2025-07-03", Amount: -700, Category: "Dining Out", Paid: true},
			{Date: "2025-07-04", Amount: -100, Category: "Entertainment", Paid: true},
			{Date: "2025-07-05", Amount: -300, Category: "Utilities", Paid: true},
			{Date: "2025-07-06", Amount: -200, Category: "Transportation", Paid: true},
			{Date: "2025-07-07", Amount: -50, Category: "Pet Care", Paid: true},
			{Date: "2025-07-08", Amount: -40, Category: "", Paid: true},
		},
	}
	recs := ruleTopCategories(s)
	if len(recs) != 5 {
		t.Fatalf("expected top 5 categories, got %d", len(recs))
	}
	if recs[0].Title != "Top Spending Category: Dining Out" {
		t.Errorf("recs[0].Title = %q, want Dining Out first", recs[0].Title)
	}
	if recs[0].ImpactEstimate != 700 {
		t.Errorf("recs[0].ImpactEstimate = %v, want 700", recs[0].ImpactEstimate)
	}
	// The two smallest categories (Pet Care, uncategorized) fall off.
	for _, r := range recs {
		if r.Title == "Top Spending Category: Pet Care" {
			t.Error("Pet Care should not make the top 5")
		}
	}
}

func TestTopCategoriesUnknownCategoryGetsGenericTips(t *testing.T) {
	s := &Snapshot{
		Now: midJuly(),
		Transactions: []core.Transaction{
			{Date: "2025-07-02", Amount: -500, Category: "Falconry", Paid: true},
		},
	}
	recs := ruleTopCategories(s)
	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(recs))
	}
	want := categoryTips["Other"]
	if len(recs[0].Actions) != len(want) || recs[0].Actions[0] != want[0] {
		t.Errorf("Actions = %v, want generic tips %v", recs[0].Actions, want)
	}
}

func TestOverdueBillsRule(t *testing.T) {
	s := &Snapshot{
		Now: midJuly(),
		Transactions: []core.Transaction{
			{Date: "2025-07-10", Amount: -120, Category: "Utilities", Description: "Gas"},
			{Date: "2025-07-12", Amount: -90, Category: "Phone", Description: "Mobile", Paid: true},
			{Date: "2025-07-20", Amount: -60, Category: "Internet", Description: "Fiber"},
		},
	}
	recs := ruleOverdueBills(s)
	if len(recs) != 1 {
		t.Fatalf("expected 1 overdue bill, got %d", len(recs))
	}
	if recs[0].Title != "Overdue Bill: Utilities" {
		t.Errorf("Title = %q", recs[0].Title)
	}
	if recs[0].Priority != core.PriorityCritical {
		t.Errorf("Priority = %s, want Critical", recs[0].Priority)
	}
	if recs[0].ImpactEstimate != 120 {
		t.Errorf("ImpactEstimate = %v, want 120", recs[0].ImpactEstimate)
	}
}

func TestCompletenessRule(t *testing.T) {
	t.Run("empty snapshot lists every gap", func(t *testing.T) {
		recs := ruleCompleteness(&Snapshot{Now: midJuly()})
		if len(recs) != 1 {
			t.Fatalf("expected 1 recommendation, got %d", len(recs))
		}
		if len(recs[0].Actions) != 5 {
			t.Errorf("Actions = %v, want 5 setup steps", recs[0].Actions)
		}
	})

	t.Run("complete profile stays quiet", func(t *testing.T) {
		s := &Snapshot{
			Now: midJuly(),
			Accounts: []core.Account{
				{Type: core.AccountChecking, Balance: 1000},
				{Type: core.AccountSavings, Balance: 2000},
			},
			Transactions: []core.Transaction{
				{Date: "2025-07-01", Amount: 4000, Paid: true},
				{Date: "2025-07-05", Amount: -100, Category: "Groceries", Paid: true},
			},
			Goals: []core.Goal{{Name: "Vacation", TargetAmount: 1000, StartDate: "2025-01-01"}},
		}
		if recs := ruleCompleteness(s); len(recs) != 0 {
			t.Errorf("expected no recommendations, got %+v", recs)
		}
	})
}

func TestDiversificationRule(t *testing.T) {
	s := &Snapshot{
		Now: midJuly(),
		Accounts: []core.Account{
			{Type: core.AccountChecking, Balance: 1000},
			{Type: core.AccountSavings, Balance: 2000},
			{Type: "Roth Retirement", Balance: 10000},
		},
	}
	recs := ruleDiversification(s)
	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(recs))
	}
	if recs[0].Title != "Add an Investment Account" {
		t.Errorf("Title = %q", recs[0].Title)
	}
}
