package insights

import (
	"math"
	"time"

	"homebudget/internal/core"
)

// GoalProjection estimates when a goal completes at its historical
// contribution rate. MonthsToComplete and ProjectedDate are nil when no
// rate can be established (brand-new goal or no progress yet).
type GoalProjection struct {
	GoalID           int64   `json:"goalId"`
	MonthlyRate      float64 `json:"monthlyRate"`
	MonthsToComplete *int    `json:"monthsToComplete"`
	ProjectedDate    *string `json:"projectedDate"`
	Remaining        float64 `json:"remaining"`
}

// ProjectGoal derives the monthly contribution rate from total progress
// divided by whole calendar months elapsed since the goal started. A goal
// started this month has no elapsed months and therefore no projection.
func ProjectGoal(g core.Goal, now time.Time) (GoalProjection, error) {
	start, err := core.ParseDay(g.StartDate)
	if err != nil {
		return GoalProjection{}, err
	}

	proj := GoalProjection{GoalID: g.ID}

	monthsElapsed := core.MonthsBetween(start, now)
	if monthsElapsed > 0 {
		proj.MonthlyRate = g.CurrentAmount / float64(monthsElapsed)
	}

	remaining := g.TargetAmount - g.CurrentAmount
	if remaining < 0 {
		remaining = 0
	}
	proj.Remaining = remaining

	if proj.MonthlyRate > 0 {
		months := int(math.Ceil(remaining / proj.MonthlyRate))
		date := core.FormatDay(now.AddDate(0, months, 0))
		proj.MonthsToComplete = &months
		proj.ProjectedDate = &date
	}
	return proj, nil
}
