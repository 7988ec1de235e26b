package insights

import (
	"fmt"
	"math"
	"sort"
	"time"

	"homebudget/internal/core"
)

// alertThreshold is the minimum absolute variance before a pattern alert
// fires.
const alertThreshold = 0.30

// categoryBuckets holds spending magnitudes keyed by week-of-month and by
// calendar month for one category.
type categoryBuckets struct {
	weeks  map[string]float64 // YYYY-MM-W{1..5}
	months map[string]float64 // YYYY-MM
}

// PatternAlerts compares the current week and month of each category
// against the historical average over the trailing window of n months.
// The current period is excluded from its own baseline. Alerts fire when
// the variance magnitude reaches the threshold, in either direction.
func PatternAlerts(txs []core.Transaction, now time.Time, months int) []core.PatternAlert {
	if months <= 0 {
		months = 6
	}
	start := core.FormatDay(core.MonthStart(now, months-1))

	byCategory := map[string]*categoryBuckets{}
	for _, t := range txs {
		if t.Amount >= 0 || t.Date < start {
			continue
		}
		d, err := core.ParseDay(t.Date)
		if err != nil {
			continue
		}
		cat := t.CategoryOrDefault()
		b := byCategory[cat]
		if b == nil {
			b = &categoryBuckets{weeks: map[string]float64{}, months: map[string]float64{}}
			byCategory[cat] = b
		}
		amt := math.Abs(t.Amount)
		b.weeks[weekKey(d)] += amt
		b.months[core.MonthKey(d)] += amt
	}

	thisWeek := weekKey(now)
	thisMonth := core.MonthKey(now)

	categories := make([]string, 0, len(byCategory))
	for cat := range byCategory {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	var alerts []core.PatternAlert
	for _, cat := range categories {
		b := byCategory[cat]
		if a, ok := compare(cat, "week", b.weeks, thisWeek); ok {
			alerts = append(alerts, a)
		}
		if a, ok := compare(cat, "month", b.months, thisMonth); ok {
			alerts = append(alerts, a)
		}
	}
	return alerts
}

func weekKey(t time.Time) string {
	return fmt.Sprintf("%s-W%d", core.MonthKey(t), core.WeekOfMonth(t))
}

// compare evaluates one category/period pair: current spend against the
// average of every other bucket in the window.
func compare(cat, period string, buckets map[string]float64, currentKey string) (core.PatternAlert, bool) {
	var sum float64
	var n int
	for k, v := range buckets {
		if k == currentKey {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return core.PatternAlert{}, false
	}
	avg := sum / float64(n)
	if avg <= 0 {
		return core.PatternAlert{}, false
	}
	current := buckets[currentKey]
	pct := (current - avg) / avg
	if math.Abs(pct) < alertThreshold {
		return core.PatternAlert{}, false
	}

	priority := core.PriorityMedium
	switch {
	case pct > 0.7:
		priority = core.PriorityCritical
	case pct > 0.5:
		priority = core.PriorityUrgent
	case pct > 0.3:
		priority = core.PriorityHigh
	case pct < -0.3:
		priority = core.PriorityPositive
	}

	severity := "Medium"
	if math.Abs(pct) > 0.5 {
		severity = "High"
	}

	var message, recommendation string
	if pct > 0 {
		message = fmt.Sprintf("Spending in %s is %d%% higher than usual this %s.", cat, roundPct(pct), period)
		if period == "week" {
			recommendation = fmt.Sprintf("Consider reviewing your %s spending for possible savings.", cat)
		} else {
			recommendation = fmt.Sprintf("Review your %s expenses for possible savings opportunities.", cat)
		}
	} else {
		message = fmt.Sprintf("Spending in %s is %d%% lower than usual this %s. Great job!", cat, -roundPct(pct), period)
		if period == "week" {
			recommendation = fmt.Sprintf("Keep up the good work controlling your %s spending.", cat)
		} else {
			recommendation = fmt.Sprintf("Excellent! Keep your %s spending in check.", cat)
		}
	}

	return core.PatternAlert{
		Category:       cat,
		Period:         period,
		Current:        current,
		Average:        avg,
		Variance:       pct,
		Severity:       severity,
		Priority:       priority,
		Positive:       pct < 0,
		Message:        message,
		Recommendation: recommendation,
	}, true
}

func roundPct(pct float64) int {
	return int(math.Round(pct * 100))
}
