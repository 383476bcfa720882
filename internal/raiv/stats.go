package raiv

import (
	"math"
	"sort"

	"github.com/sells-group/trade-cli/internal/model"
)

// Summarize groups RAIV records by year and computes descriptive statistics
// per group. Results are sorted by year. Values are unrounded; rounding to
// 4 decimals happens at export time.
func Summarize(records []model.RAIVRecord) []model.YearSummary {
	byYear := make(map[int][]model.RAIVRecord)
	for _, r := range records {
		byYear[r.Year] = append(byYear[r.Year], r)
	}

	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)

	summaries := make([]model.YearSummary, 0, len(years))
	for _, year := range years {
		group := byYear[year]

		raivs := make([]float64, len(group))
		imports := make([]float64, len(group))
		timeliness := make([]float64, len(group))
		risks := make([]float64, len(group))
		for i, r := range group {
			raivs[i] = r.RAIV
			imports[i] = r.ImportValue
			timeliness[i] = r.TimelinessScore
			risks[i] = r.RiskPremium
		}

		lo, hi := minMax(raivs)
		summaries = append(summaries, model.YearSummary{
			Year:              year,
			Count:             len(group),
			RAIVMean:          mean(raivs),
			RAIVMedian:        median(raivs),
			RAIVStd:           popStdDev(raivs),
			RAIVMin:           lo,
			RAIVMax:           hi,
			ImportValueMean:   mean(imports),
			ImportValueMedian: median(imports),
			TimelinessMean:    mean(timeliness),
			TimelinessMedian:  median(timeliness),
			RiskMean:          mean(risks),
			RiskMedian:        median(risks),
		})
	}

	return summaries
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// median averages the two middle values for even-sized input.
func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// popStdDev is the population standard deviation (divide by N, not N-1).
func popStdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var sumSq float64
	for _, x := range xs {
		d := x - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)))
}

func minMax(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	return lo, hi
}
