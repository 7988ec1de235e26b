package insights

import (
	"math"
	"sort"
	"strings"

	"homebudget/internal/core"
)

// Stability classification bounds on the coefficient of variation, and the
// tolerance band for the trend comparison. Kept as named constants so the
// cutoffs are documented in one place.
const (
	stabilityStableMax   = 0.15
	stabilityModerateMax = 0.35
	trendTolerance       = 0.05
)

const (
	StabilityStable   = "Stable"
	StabilityModerate = "Moderate"
	StabilityVolatile = "Volatile"

	TrendIncreasing = "Increasing"
	TrendDecreasing = "Decreasing"
	TrendFlat       = "Flat"
)

// ForecastTiers are the next-period income estimates derived from the
// monthly mean and spread.
type ForecastTiers struct {
	Conservative float64 `json:"conservative"`
	Expected     float64 `json:"expected"`
	Optimistic   float64 `json:"optimistic"`
}

// IncomeStats are the descriptive statistics for one income stream's
// monthly totals.
type IncomeStats struct {
	Name           string        `json:"name"`
	Frequency      string        `json:"frequency,omitempty"`
	Months         int           `json:"months"`
	Mean           float64       `json:"mean"`
	Median         float64       `json:"median"`
	Min            float64       `json:"min"`
	Max            float64       `json:"max"`
	StdDev         float64       `json:"stdDev"`
	CoV            float64       `json:"cov"`
	Stability      string        `json:"stability"`
	Trend          string        `json:"trend"`
	Forecast       ForecastTiers `json:"forecast"`
	Recommendation string        `json:"recommendation"`
}

// IncomeAnalysis is the full variable-income report: one entry per income
// source with matching history, plus the combined view over all income.
type IncomeAnalysis struct {
	Sources   []IncomeStats `json:"sources"`
	Aggregate *IncomeStats  `json:"aggregate"`
}

var stabilityAdvice = map[string]string{
	StabilityStable:   "Income is steady. Budget against the expected amount.",
	StabilityModerate: "Income varies month to month. Budget against the conservative estimate and save the difference in good months.",
	StabilityVolatile: "Income is highly variable. Build a larger buffer and base essential spending on the conservative estimate only.",
}

// AnalyzeVariableIncome builds monthly income series from the trailing
// window and computes per-source and aggregate statistics. A transaction
// belongs to a source when its description or category contains the source
// name, case-insensitively; unmatched income still counts toward the
// aggregate.
func AnalyzeVariableIncome(s *Snapshot) IncomeAnalysis {
	start := s.HistoryStart()

	var incomeTxs []core.Transaction
	for _, t := range s.Transactions {
		if t.Amount > 0 && t.Date >= start {
			incomeTxs = append(incomeTxs, t)
		}
	}

	analysis := IncomeAnalysis{}
	for _, src := range s.Sources {
		var matched []core.Transaction
		needle := strings.ToLower(src.Name)
		for _, t := range incomeTxs {
			if strings.Contains(strings.ToLower(t.Description), needle) ||
				strings.Contains(strings.ToLower(t.Category), needle) {
				matched = append(matched, t)
			}
		}
		if len(matched) == 0 {
			continue
		}
		stats := describeIncome(monthlySeries(matched))
		stats.Name = src.Name
		stats.Frequency = src.Frequency
		analysis.Sources = append(analysis.Sources, stats)
	}

	if len(incomeTxs) > 0 {
		agg := describeIncome(monthlySeries(incomeTxs))
		agg.Name = "All Income"
		analysis.Aggregate = &agg
	}
	return analysis
}

// monthlySeries totals transactions by calendar month and returns the
// totals oldest first. Months with no matching transactions are skipped,
// not zero-filled; a missing paycheck month would otherwise drag every
// statistic toward zero.
func monthlySeries(txs []core.Transaction) []float64 {
	totals := map[string]float64{}
	for _, t := range txs {
		totals[t.Date[:7]] += t.Amount
	}
	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	series := make([]float64, len(keys))
	for i, k := range keys {
		series[i] = totals[k]
	}
	return series
}

func describeIncome(series []float64) IncomeStats {
	stats := IncomeStats{Months: len(series)}
	if len(series) == 0 {
		stats.Stability = StabilityStable
		stats.Trend = TrendFlat
		stats.Recommendation = stabilityAdvice[StabilityStable]
		return stats
	}

	stats.Min = series[0]
	stats.Max = series[0]
	var sum float64
	for _, v := range series {
		sum += v
		stats.Min = math.Min(stats.Min, v)
		stats.Max = math.Max(stats.Max, v)
	}
	stats.Mean = sum / float64(len(series))
	stats.Median = median(series)
	stats.StdDev = sampleStdDev(series, stats.Mean)
	if stats.Mean != 0 {
		stats.CoV = stats.StdDev / stats.Mean
	}

	switch {
	case stats.CoV < stabilityStableMax:
		stats.Stability = StabilityStable
	case stats.CoV < stabilityModerateMax:
		stats.Stability = StabilityModerate
	default:
		stats.Stability = StabilityVolatile
	}

	stats.Trend = trendOf(series)
	stats.Forecast = ForecastTiers{
		Conservative: math.Max(0, stats.Mean-stats.StdDev),
		Expected:     stats.Mean,
		Optimistic:   stats.Mean + stats.StdDev,
	}
	stats.Recommendation = stabilityAdvice[stats.Stability]
	return stats
}

// trendOf compares the most recent three periods against the three before
// them. Fewer than six periods is not enough signal to call a direction.
func trendOf(series []float64) string {
	if len(series) < 6 {
		return TrendFlat
	}
	recent := avg(series[len(series)-3:])
	prior := avg(series[len(series)-6 : len(series)-3])
	if prior == 0 {
		return TrendFlat
	}
	change := (recent - prior) / prior
	switch {
	case change > trendTolerance:
		return TrendIncreasing
	case change < -trendTolerance:
		return TrendDecreasing
	default:
		return TrendFlat
	}
}

func avg(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func median(vals []float64) float64 {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// sampleStdDev returns the sample standard deviation (n-1 denominator), or
// zero for a single observation.
func sampleStdDev(vals []float64, mean float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	var ss float64
	for _, v := range vals {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(vals)-1))
}
