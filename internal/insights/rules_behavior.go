package insights

import (
	"fmt"
	"math"
	"strings"

	"homebudget/internal/core"
)

// behaviorStats accumulates the trailing-six-month expense slices the
// behavioral heuristics compare.
type behaviorStats struct {
	weekendTotal, weekdayTotal     float64
	weekendCount, weekdayCount     int
	paydayTotal, nonPaydayTotal    float64
	paydayCount, nonPaydayCount    int
	decemberTotal, otherMonthTotal float64
	decemberCount, otherMonthCount int
	groceryTotal                   float64
	groceryCount                   int
}

func collectBehaviorStats(s *Snapshot) behaviorStats {
	start := s.HistoryStart()

	// Distinct dates with any income in the window count as paydays.
	paydaySet := map[string]bool{}
	for _, t := range s.Transactions {
		if t.Amount > 0 && t.Date >= start {
			paydaySet[t.Date] = true
		}
	}
	paydays := make([]string, 0, len(paydaySet))
	for d := range paydaySet {
		paydays = append(paydays, d)
	}

	var st behaviorStats
	for _, t := range s.Transactions {
		if t.Amount >= 0 || t.Date < start {
			continue
		}
		d, err := core.ParseDay(t.Date)
		if err != nil {
			continue
		}
		amt := math.Abs(t.Amount)

		if wd := d.Weekday(); wd == 0 || wd == 6 {
			st.weekendTotal += amt
			st.weekendCount++
		} else {
			st.weekdayTotal += amt
			st.weekdayCount++
		}

		nearPayday := false
		for _, pd := range paydays {
			p, perr := core.ParseDay(pd)
			if perr != nil {
				continue
			}
			if math.Abs(p.Sub(d).Hours()/24) <= 2 {
				nearPayday = true
				break
			}
		}
		if nearPayday {
			st.paydayTotal += amt
			st.paydayCount++
		} else {
			st.nonPaydayTotal += amt
			st.nonPaydayCount++
		}

		if d.Month() == 12 {
			st.decemberTotal += amt
			st.decemberCount++
		} else {
			st.otherMonthTotal += amt
			st.otherMonthCount++
		}

		if strings.Contains(strings.ToLower(t.Category), "grocery") {
			st.groceryTotal += amt
			st.groceryCount++
		}
	}
	return st
}

// ruleBehavioral emits habit-level insights: weekend vs weekday averages,
// post-payday spikes, December seasonality, and grocery transaction size.
// Each comparison needs enough samples on both sides before it fires.
func ruleBehavioral(s *Snapshot) []core.Recommendation {
	st := collectBehaviorStats(s)
	var recs []core.Recommendation

	if st.weekendCount > 10 && st.weekdayCount > 10 {
		avgWeekend := st.weekendTotal / float64(st.weekendCount)
		avgWeekday := st.weekdayTotal / float64(st.weekdayCount)
		if avgWeekend > avgWeekday*1.3 {
			recs = append(recs, core.Recommendation{
				Title: "Weekend Spending Habit",
				Message: fmt.Sprintf("You typically spend %d%% more on weekends than weekdays. Consider planning ahead to avoid overspending on weekends.",
					int(math.Round((avgWeekend/avgWeekday-1)*100))),
				Priority:       core.PriorityMedium,
				Impact:         core.ImpactMedium,
				Timeline:       "Recurring",
				ImpactEstimate: math.Round(avgWeekend - avgWeekday),
				Actions:        []string{"Set a weekend budget.", "Plan low-cost weekend activities."},
			})
		}
	}

	if st.paydayCount > 5 && st.nonPaydayCount > 10 {
		avgPayday := st.paydayTotal / float64(st.paydayCount)
		avgNonPayday := st.nonPaydayTotal / float64(st.nonPaydayCount)
		if avgPayday > avgNonPayday*1.3 {
			recs = append(recs, core.Recommendation{
				Title: "Spending Spike After Payday",
				Message: fmt.Sprintf("Spending increases by %d%% in the days right after payday. Try to pace your spending throughout the month.",
					int(math.Round((avgPayday/avgNonPayday-1)*100))),
				Priority:       core.PriorityMedium,
				Impact:         core.ImpactMedium,
				Timeline:       "After Payday",
				ImpactEstimate: math.Round(avgPayday - avgNonPayday),
				Actions:        []string{"Delay large purchases until later in the month.", "Review your post-payday expenses."},
			})
		}
	}

	if st.decemberCount > 5 && st.otherMonthCount > 10 {
		avgDec := st.decemberTotal / float64(st.decemberCount)
		avgOther := st.otherMonthTotal / float64(st.otherMonthCount)
		if avgDec > avgOther*1.3 {
			recs = append(recs, core.Recommendation{
				Title: "Seasonal Spending: December",
				Message: fmt.Sprintf("Your average spending in December is %d%% higher than other months. Plan ahead for holiday expenses.",
					int(math.Round((avgDec/avgOther-1)*100))),
				Priority:       core.PriorityMedium,
				Impact:         core.ImpactMedium,
				Timeline:       "December",
				ImpactEstimate: math.Round(avgDec - avgOther),
				Actions:        []string{"Start a holiday fund early.", "Track December expenses closely."},
			})
		}
	}

	if st.groceryCount > 10 {
		avgGrocery := st.groceryTotal / float64(st.groceryCount)
		if avgGrocery > 150 {
			recs = append(recs, core.Recommendation{
				Title: "Family Grocery Spending",
				Message: fmt.Sprintf("Your average grocery transaction is $%.2f. Consider meal planning or bulk buying to save.",
					avgGrocery),
				Priority:       core.PriorityLow,
				Impact:         core.ImpactLow,
				Timeline:       "Ongoing",
				ImpactEstimate: math.Round(avgGrocery),
				Actions:        []string{"Try meal planning.", "Look for grocery deals and coupons."},
			})
		}
	}

	return recs
}
