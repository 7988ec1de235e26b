package insights

import (
	"fmt"
	"math"
	"strings"

	"homebudget/internal/core"
)

// Rule is one independent, side-effect-free recommendation heuristic. The
// battery below is evaluated in a fixed order and the results concatenated;
// consumers regroup by priority, so order only affects display grouping.
type Rule struct {
	Name     string
	Evaluate func(*Snapshot) []core.Recommendation
}

// ruleBattery is the full ordered battery. Each rule reads only the
// snapshot and returns zero or more recommendations.
var ruleBattery = []Rule{
	{"completeness", ruleCompleteness},
	{"account-diversification", ruleDiversification},
	{"low-balance", ruleLowBalance},
	{"bill-shortfall", ruleBillShortfall},
	{"urgent-bills", ruleUrgentBills},
	{"autopay", ruleAutopay},
	{"budget-overrun", ruleBudgetOverrun},
	{"spending-ratio", ruleSpendingRatio},
	{"emergency-fund", ruleEmergencyFund},
	{"debt-payoff", ruleDebtPayoff},
	{"savings-surplus", ruleSavingsSurplus},
	{"top-categories", ruleTopCategories},
	{"overdue-bills", ruleOverdueBills},
	{"behavioral", ruleBehavioral},
}

// Recommendations evaluates the full battery against a snapshot.
func Recommendations(s *Snapshot) []core.Recommendation {
	var recs []core.Recommendation
	for _, rule := range ruleBattery {
		recs = append(recs, rule.Evaluate(s)...)
	}
	return recs
}

func (s *Snapshot) monthIncome() float64 {
	from, to := s.MonthWindow()
	return TotalIncome(s.Transactions, from, to)
}

func (s *Snapshot) monthExpenses() float64 {
	from, to := s.MonthWindow()
	return TotalExpenses(s.Transactions, from, to)
}

func ruleCompleteness(s *Snapshot) []core.Recommendation {
	var missing []string
	if len(s.Accounts) == 0 {
		missing = append(missing, "Add at least one account (Checking, Savings, Credit Card, or Loan)")
	}
	var hasIncome, hasExpense bool
	for _, t := range s.Transactions {
		if t.Amount > 0 {
			hasIncome = true
		}
		if t.Amount < 0 {
			hasExpense = true
		}
	}
	if !hasIncome {
		missing = append(missing, "Add at least one income source")
	}
	if !hasExpense {
		missing = append(missing, "Add at least one bill or expense")
	}
	hasSavings := false
	for _, a := range s.Accounts {
		if a.Type == core.AccountSavings {
			hasSavings = true
			break
		}
	}
	if !hasSavings {
		missing = append(missing, "Add a savings account")
	}
	if len(s.Goals) == 0 {
		missing = append(missing, "Set up at least one financial goal")
	}
	if len(missing) == 0 {
		return nil
	}
	return []core.Recommendation{{
		Title:    "Complete Your Profile",
		Message:  "Some important information is missing. Complete your profile for the best recommendations.",
		Priority: core.PriorityCritical,
		Impact:   core.ImpactHigh,
		Timeline: "Immediate",
		Actions:  missing,
	}}
}

func ruleDiversification(s *Snapshot) []core.Recommendation {
	var hasChecking, hasSavings, hasRetirement, hasInvestment bool
	for _, a := range s.Accounts {
		lower := strings.ToLower(a.Type)
		switch {
		case a.Type == core.AccountChecking:
			hasChecking = true
		case a.Type == core.AccountSavings:
			hasSavings = true
		}
		if strings.Contains(lower, "retirement") {
			hasRetirement = true
		}
		if strings.Contains(lower, "investment") {
			hasInvestment = true
		}
	}

	var recs []core.Recommendation
	if !hasChecking {
		recs = append(recs, core.Recommendation{
			Title:    "Add a Checking Account",
			Message:  "A checking account is essential for managing daily transactions and bill payments. Consider adding one for better money management.",
			Priority: core.PriorityHigh,
			Impact:   core.ImpactHigh,
			Timeline: "Immediate",
			Actions:  []string{"Open a checking account at your preferred bank."},
		})
	}
	if !hasSavings {
		recs = append(recs, core.Recommendation{
			Title:    "Add a Savings Account",
			Message:  "A savings account helps you set aside money for emergencies and future goals. Consider opening a high-yield savings account.",
			Priority: core.PriorityHigh,
			Impact:   core.ImpactHigh,
			Timeline: "Immediate",
			Actions:  []string{"Open a high-yield savings account.", "Set up automatic transfers from checking."},
		})
	}
	if !hasRetirement {
		recs = append(recs, core.Recommendation{
			Title:    "Add a Retirement Account",
			Message:  "Retirement accounts (like 401k or IRA) are important for long-term financial security. Consider adding one to start saving for retirement.",
			Priority: core.PriorityMedium,
			Impact:   core.ImpactHigh,
			Timeline: "This Year",
			Actions:  []string{"Open a retirement account (401k, IRA, etc.).", "Contribute regularly for long-term growth."},
		})
	}
	if !hasInvestment {
		recs = append(recs, core.Recommendation{
			Title:    "Add an Investment Account",
			Message:  "Investment accounts can help grow your wealth over time. Consider opening a brokerage or investment account to diversify your assets.",
			Priority: core.PriorityMedium,
			Impact:   core.ImpactMedium,
			Timeline: "This Year",
			Actions:  []string{"Open a brokerage or investment account.", "Research low-cost index funds or ETFs."},
		})
	}
	return recs
}

func ruleLowBalance(s *Snapshot) []core.Recommendation {
	available := spendableBalance(s.Accounts)
	switch {
	case available < 0:
		return []core.Recommendation{{
			Title:          "Overdraft Risk",
			Message:        "Your available balance is negative. Immediate action is required to avoid overdraft fees.",
			Priority:       core.PriorityCritical,
			Impact:         core.ImpactHigh,
			Timeline:       "Immediate",
			ImpactEstimate: available,
			Actions:        []string{"Transfer funds to checking.", "Reduce spending immediately.", "Contact your bank if needed."},
		}}
	case available < 100:
		return []core.Recommendation{{
			Title:          "Low Balance Warning",
			Message:        "Your available balance is very low. Monitor your spending to avoid overdraft.",
			Priority:       core.PriorityHigh,
			Impact:         core.ImpactMedium,
			Timeline:       "This Week",
			ImpactEstimate: available,
			Actions:        []string{"Delay non-essential purchases.", "Review upcoming bills."},
		}}
	}
	return nil
}

// upcomingBills returns unpaid expense transactions due strictly after
// today and within the next seven days, oldest first.
func (s *Snapshot) upcomingBills() []core.Transaction {
	today := s.Today()
	limit := core.FormatDay(s.Now.AddDate(0, 0, 7))
	var bills []core.Transaction
	for _, t := range s.Transactions {
		if t.Amount < 0 && !t.Paid && t.Date > today && t.Date <= limit {
			bills = append(bills, t)
		}
	}
	return bills
}

func ruleBillShortfall(s *Snapshot) []core.Recommendation {
	available := spendableBalance(s.Accounts)
	var due float64
	for _, b := range s.upcomingBills() {
		due += math.Abs(b.Amount)
	}
	if due <= 0 || available >= due {
		return nil
	}
	return []core.Recommendation{{
		Title: "Insufficient Funds for Bills",
		Message: fmt.Sprintf("You have $%s in bills due in the next 7 days, but your available balance is only $%s.",
			formatMoney(due), formatMoney(available)),
		Priority:       core.PriorityCritical,
		Impact:         core.ImpactHigh,
		Timeline:       "Next 7 Days",
		ImpactEstimate: available - due,
		Actions:        []string{"Deposit funds ASAP.", "Contact billers to request extensions.", "Prioritize essential bills."},
	}}
}

func ruleUrgentBills(s *Snapshot) []core.Recommendation {
	var recs []core.Recommendation
	for _, b := range s.upcomingBills() {
		due, err := core.ParseDay(b.Date)
		if err != nil {
			continue
		}
		daysAway := int(math.Ceil(due.Sub(s.Now).Hours() / 24))
		if daysAway > 2 {
			continue
		}
		recs = append(recs, core.Recommendation{
			Title: "Urgent Bill Due: " + b.CategoryOrDefault(),
			Message: fmt.Sprintf("A bill for $%s (%s) is due on %s.",
				formatMoney(math.Abs(b.Amount)), b.Description, b.Date),
			Priority:       core.PriorityUrgent,
			Impact:         core.ImpactHigh,
			Timeline:       "Within 2 Days",
			ImpactEstimate: b.Amount,
			Actions:        []string{"Pay this bill immediately.", "Set up auto-pay if possible."},
		})
	}
	return recs
}

func ruleAutopay(s *Snapshot) []core.Recommendation {
	var bills []core.Transaction
	for _, t := range s.Transactions {
		if t.Amount < 0 && t.Recurrence != "" && !t.AutoPay && !t.Paid {
			bills = append(bills, t)
		}
	}
	if len(bills) == 0 {
		return nil
	}
	parts := make([]string, len(bills))
	for i, b := range bills {
		parts[i] = fmt.Sprintf("%s: %s ($%s)", b.CategoryOrDefault(), b.Description, formatMoney(math.Abs(b.Amount)))
	}
	return []core.Recommendation{{
		Title: "Optimize Bill Payments with Autopay",
		Message: fmt.Sprintf("You have %d recurring bill(s) not set to autopay: %s. Setting up autopay for these can help avoid late fees and missed payments.",
			len(bills), strings.Join(parts, ", ")),
		Priority: core.PriorityHigh,
		Impact:   core.ImpactMedium,
		Timeline: "This Month",
		Actions: []string{
			"Review these bills and enable autopay for those you trust.",
			"Set reminders to monitor your account for successful payments.",
		},
	}}
}

func ruleBudgetOverrun(s *Snapshot) []core.Recommendation {
	income := s.monthIncome()
	expenses := s.monthExpenses()
	daysElapsed := s.Now.Day()
	if daysElapsed == 0 || income <= 0 {
		return nil
	}
	avgDaily := expenses / float64(daysElapsed)
	projected := avgDaily * float64(core.DaysInMonth(s.Now))
	if projected <= income {
		return nil
	}
	return []core.Recommendation{{
		Title: "Budget Overrun Projected",
		Message: fmt.Sprintf("At your current spending rate ($%s/day), you are projected to exceed your income by $%s this month.",
			formatMoney(avgDaily), formatMoney(projected-income)),
		Priority:       core.PriorityHigh,
		Impact:         core.ImpactHigh,
		Timeline:       "This Month",
		ImpactEstimate: projected - income,
		Actions:        []string{"Reduce discretionary spending.", "Track your daily expenses.", "Adjust your budget."},
	}}
}

// ruleSpendingRatio emits exactly one band recommendation per call: the
// bands partition the whole ratio range, first match wins.
func ruleSpendingRatio(s *Snapshot) []core.Recommendation {
	income := s.monthIncome()
	expenses := s.monthExpenses()
	ratio := 1.0
	if income > 0 {
		ratio = expenses / income
	}

	var rec core.Recommendation
	switch {
	case income == 0:
		rec = core.Recommendation{
			Title:    "No Income Detected",
			Message:  "No income has been recorded for this month. Add your income sources to get accurate recommendations.",
			Priority: core.PriorityCritical,
			Impact:   core.ImpactHigh,
			Timeline: "Immediate",
			Actions:  []string{"Add your income sources in the Income section."},
		}
	case income < expenses:
		rec = core.Recommendation{
			Title:          "Spending Exceeds Income",
			Message:        "Your expenses are higher than your income this month. Consider reducing discretionary spending.",
			Priority:       core.PriorityCritical,
			Impact:         core.ImpactHigh,
			Timeline:       "Immediate",
			ImpactEstimate: expenses - income,
			Actions:        []string{"Review your largest expense categories.", "Set a budget for next month."},
		}
	case ratio > 0.95:
		rec = core.Recommendation{
			Title:          "Severe Budget Risk",
			Message:        "You are spending more than 95% of your income. Immediate action is required to avoid overdraft.",
			Priority:       core.PriorityUrgent,
			Impact:         core.ImpactHigh,
			Timeline:       "Immediate",
			ImpactEstimate: income - expenses,
			Actions:        []string{"Freeze discretionary spending.", "Review all upcoming bills."},
		}
	case ratio > 0.85:
		rec = core.Recommendation{
			Title:          "High Spending Rate",
			Message:        "You are spending more than 85% of your income. Try to save at least 15% if possible.",
			Priority:       core.PriorityHigh,
			Impact:         core.ImpactMedium,
			Timeline:       "This Month",
			ImpactEstimate: income * 0.15,
			Actions:        []string{"Identify areas to cut back.", "Automate savings transfers."},
		}
	case ratio > 0.70:
		rec = core.Recommendation{
			Title:          "Moderate Spending",
			Message:        "You are spending more than 70% of your income. Consider increasing your savings rate if possible.",
			Priority:       core.PriorityMedium,
			Impact:         core.ImpactMedium,
			Timeline:       "This Month",
			ImpactEstimate: income * 0.3,
			Actions:        []string{"Review your savings goals.", "Look for small expenses to reduce."},
		}
	case ratio > 0.50:
		rec = core.Recommendation{
			Title:          "Healthy Spending",
			Message:        "Your spending is within a healthy range for your income. Keep up the good work and consider increasing savings.",
			Priority:       core.PriorityLow,
			Impact:         core.ImpactLow,
			Timeline:       "Ongoing",
			ImpactEstimate: income * 0.5,
			Actions:        []string{"Continue monitoring your finances.", "Increase savings if possible."},
		}
	default:
		rec = core.Recommendation{
			Title:    "Excellent Financial Health",
			Message:  "Your spending is well below your income. Great job! Consider investing or increasing your savings goals.",
			Priority: core.PriorityPositive,
			Impact:   core.ImpactLow,
			Timeline: "Ongoing",
			Actions:  []string{"Continue your current habits.", "Review investment opportunities."},
		}
	}
	return []core.Recommendation{rec}
}

// emergencyFundTarget is three months of average expenses over the
// trailing six months. Zero when there is no expense history.
func (s *Snapshot) emergencyFundTarget() (target, avgMonthly float64) {
	start := s.HistoryStart()
	var sum float64
	var count int
	for _, t := range s.Transactions {
		if t.Amount < 0 && t.Date >= start {
			sum += math.Abs(t.Amount)
			count++
		}
	}
	if count == 0 {
		return 0, 0
	}
	avgMonthly = sum / 6
	return avgMonthly * 3, avgMonthly
}

func ruleEmergencyFund(s *Snapshot) []core.Recommendation {
	target, avgMonthly := s.emergencyFundTarget()
	savings := savingsBalance(s.Accounts)
	if avgMonthly <= 0 || savings >= target {
		return nil
	}
	return []core.Recommendation{{
		Title: "Emergency Fund Below Target",
		Message: fmt.Sprintf("Your emergency fund is below the recommended 3 months of expenses ($%s). Try to build your savings for better security.",
			formatMoney(target)),
		Priority:       core.PriorityHigh,
		Impact:         core.ImpactHigh,
		Timeline:       "Ongoing",
		ImpactEstimate: target - savings,
		Actions: []string{
			"Set up automatic transfers to savings.",
			"Reduce discretionary spending.",
			"Review your budget for savings opportunities.",
		},
	}}
}

func ruleDebtPayoff(s *Snapshot) []core.Recommendation {
	var totalDebt float64
	var count int
	for _, a := range s.Accounts {
		if (a.Type == core.AccountCreditCard || a.Type == core.AccountLoan) && a.Balance < 0 {
			totalDebt += math.Abs(a.Balance)
			count++
		}
	}
	if count == 0 {
		return nil
	}
	return []core.Recommendation{{
		Title: "Debt Payoff Opportunity",
		Message: fmt.Sprintf("You have $%s in outstanding debt. Consider making extra payments to reduce interest costs.",
			formatMoney(totalDebt)),
		Priority:       core.PriorityMedium,
		Impact:         core.ImpactMedium,
		Timeline:       "Ongoing",
		ImpactEstimate: totalDebt,
		Actions: []string{
			"Make extra payments on high-interest debt.",
			"Review your debt payoff plan.",
			"Avoid new debt if possible.",
		},
	}}
}

func ruleSavingsSurplus(s *Snapshot) []core.Recommendation {
	target, _ := s.emergencyFundTarget()
	savings := savingsBalance(s.Accounts)
	if savings <= target || s.monthIncome() <= 0 {
		return nil
	}
	return []core.Recommendation{{
		Title:          "Savings Opportunity",
		Message:        "You have savings above your emergency fund target. Consider moving excess funds to a high-yield account or investments.",
		Priority:       core.PriorityPositive,
		Impact:         core.ImpactLow,
		Timeline:       "Ongoing",
		ImpactEstimate: savings - target,
		Actions:        []string{"Research high-yield savings accounts.", "Consider investing for long-term growth."},
	}}
}

// categoryTips maps spending categories to reduction strategies. Unknown
// categories fall back to the Other tips.
var categoryTips = map[string][]string{
	"Groceries": {
		"Try meal planning and shopping with a list.",
		"Buy in bulk for non-perishables.",
		"Use store brands and coupons.",
	},
	"Dining Out": {
		"Limit restaurant visits to once a week.",
		"Look for happy hour specials or discounts.",
		"Try cooking new recipes at home.",
	},
	"Entertainment": {
		"Review and cancel unused subscriptions.",
		"Look for free or low-cost local events.",
		"Bundle streaming services or share with family.",
	},
	"Transportation": {
		"Carpool or use public transit when possible.",
		"Plan trips to reduce fuel usage.",
		"Keep up with vehicle maintenance for efficiency.",
	},
	"Utilities": {
		"Turn off lights and unplug devices when not in use.",
		"Adjust thermostat for energy savings.",
		"Compare providers for better rates.",
	},
	"Shopping": {
		"Delay non-essential purchases by 24 hours.",
		"Track sales and use price comparison tools.",
		"Set a monthly shopping budget.",
	},
	"Other": {
		"Review these expenses for one-time or recurring charges.",
		"See if any can be reduced or eliminated.",
	},
}

func ruleTopCategories(s *Snapshot) []core.Recommendation {
	from, to := s.MonthWindow()
	totals := map[string]float64{}
	var order []string
	for _, t := range s.Transactions {
		if t.Amount >= 0 || t.Date < from || t.Date > to {
			continue
		}
		name := t.Category
		if strings.TrimSpace(name) == "" {
			name = "Other"
		}
		if _, seen := totals[name]; !seen {
			order = append(order, name)
		}
		totals[name] += math.Abs(t.Amount)
	}

	// Largest spend first; ties keep first-seen order.
	top := append([]string(nil), order...)
	for i := 1; i < len(top); i++ {
		for j := i; j > 0 && totals[top[j]] > totals[top[j-1]]; j-- {
			top[j], top[j-1] = top[j-1], top[j]
		}
	}
	if len(top) > 5 {
		top = top[:5]
	}

	var recs []core.Recommendation
	for _, name := range top {
		tips, ok := categoryTips[name]
		if !ok {
			tips = categoryTips["Other"]
		}
		recs = append(recs, core.Recommendation{
			Title: "Top Spending Category: " + name,
			Message: fmt.Sprintf("You have spent $%s on %s this month. Here are some ways to reduce spending in this category:",
				formatMoney(totals[name]), name),
			Priority:       core.PriorityMedium,
			Impact:         core.ImpactMedium,
			Timeline:       "This Month",
			ImpactEstimate: totals[name],
			Actions:        tips,
		})
	}
	return recs
}

func ruleOverdueBills(s *Snapshot) []core.Recommendation {
	today := s.Today()
	var recs []core.Recommendation
	for _, t := range s.Transactions {
		if t.Amount >= 0 || t.Paid || t.Date >= today {
			continue
		}
		recs = append(recs, core.Recommendation{
			Title: "Overdue Bill: " + t.CategoryOrDefault(),
			Message: fmt.Sprintf("A bill for $%s (%s) was due on %s and is still unpaid.",
				formatMoney(math.Abs(t.Amount)), t.Description, t.Date),
			Priority:       core.PriorityCritical,
			Impact:         core.ImpactHigh,
			Timeline:       "Immediate",
			ImpactEstimate: math.Abs(t.Amount),
			Actions:        []string{"Pay this bill as soon as possible.", "Contact the biller if you need an extension."},
		})
	}
	return recs
}
