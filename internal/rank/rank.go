// Package rank computes user-weighted composite scores over a RAIV table and
// produces ranked country recommendations. Ranking is a pure function of
// (table, filter, weights); nothing is cached between calls.
package rank

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/trade-cli/internal/model"
)

// maxTimeliness is the LPI scale ceiling used to normalize timeliness scores.
const maxTimeliness = 5.0

// ErrZeroWeights is returned when all three weights are zero; scoring cannot
// proceed without dividing by zero.
var ErrZeroWeights = eris.New("rank: weights sum to zero")

// Weights holds the user-supplied factor weights. Any non-negative reals are
// accepted; Normalize rescales them to sum to 1.
type Weights struct {
	RAIV       float64 `json:"raiv"`
	Timeliness float64 `json:"timeliness"`
	Risk       float64 `json:"risk"`
}

// Normalize rescales the weights to sum to 1. Returns ErrZeroWeights when the
// sum is zero and an error for negative weights.
func (w Weights) Normalize() (Weights, error) {
	if w.RAIV < 0 || w.Timeliness < 0 || w.Risk < 0 {
		return Weights{}, eris.Errorf("rank: negative weight (raiv=%v timeliness=%v risk=%v)",
			w.RAIV, w.Timeliness, w.Risk)
	}
	sum := w.RAIV + w.Timeliness + w.Risk
	if sum == 0 {
		return Weights{}, ErrZeroWeights
	}
	return Weights{
		RAIV:       w.RAIV / sum,
		Timeliness: w.Timeliness / sum,
		Risk:       w.Risk / sum,
	}, nil
}

// Filter restricts the input rows before aggregation. Empty slices mean "all".
type Filter struct {
	Years   []int    `json:"years,omitempty"`
	HSCodes []string `json:"hs_codes,omitempty"`
}

func (f Filter) matches(r model.RAIVRecord) bool {
	if len(f.Years) > 0 && !containsInt(f.Years, r.Year) {
		return false
	}
	if len(f.HSCodes) > 0 && !containsString(f.HSCodes, r.HSCode) {
		return false
	}
	return true
}

// Options tunes scoring behavior.
type Options struct {
	// RawValues disables min-max normalization: RAIV enters the weighted sum
	// unscaled and risk contributes as weight × (1 − rawRisk). The default
	// convention divides RAIV and risk by their maxima over the filtered set
	// and timeliness by the LPI ceiling of 5.
	RawValues bool `json:"raw_values,omitempty"`

	// Top bounds the number of returned rows; 0 means all.
	Top int `json:"top,omitempty"`
}

// Rank filters the table, aggregates per country (RAIV summed, timeliness and
// risk averaged), scores each country with the normalized weights, and
// returns rows sorted descending by composite score. Ties keep ascending
// country-name order.
func Rank(rows []model.RAIVRecord, weights Weights, filter Filter, opts Options) ([]model.RankedCountry, error) {
	normalized, err := weights.Normalize()
	if err != nil {
		return nil, err
	}

	aggregated := aggregate(rows, filter)
	if len(aggregated) == 0 {
		return nil, nil
	}

	maxRAIV, maxRisk := 0.0, 0.0
	if !opts.RawValues {
		for _, c := range aggregated {
			if c.RAIV > maxRAIV {
				maxRAIV = c.RAIV
			}
			if c.RiskScore > maxRisk {
				maxRisk = c.RiskScore
			}
		}
	}
	// An all-zero column would divide by zero; fall back to the raw value.
	if maxRAIV == 0 {
		maxRAIV = 1
	}
	if maxRisk == 0 {
		maxRisk = 1
	}

	for i := range aggregated {
		c := &aggregated[i]
		if opts.RawValues {
			c.CompositeScore = normalized.RAIV*c.RAIV +
				normalized.Timeliness*(c.TimelinessScore/maxTimeliness) +
				normalized.Risk*(1-c.RiskScore)
		} else {
			c.CompositeScore = normalized.RAIV*(c.RAIV/maxRAIV) +
				normalized.Timeliness*(c.TimelinessScore/maxTimeliness) +
				normalized.Risk*(1-c.RiskScore/maxRisk)
		}
	}

	// Stable sort over name-ordered input keeps ties in ascending name order.
	sort.SliceStable(aggregated, func(i, j int) bool {
		return aggregated[i].CompositeScore > aggregated[j].CompositeScore
	})

	if opts.Top > 0 && len(aggregated) > opts.Top {
		aggregated = aggregated[:opts.Top]
	}
	return aggregated, nil
}

// aggregate filters rows and folds them into one row per country: RAIV summed,
// timeliness and risk averaged. Output is sorted by country name.
func aggregate(rows []model.RAIVRecord, filter Filter) []model.RankedCountry {
	type acc struct {
		raiv       float64
		timeliness float64
		risk       float64
		n          int
	}
	byCountry := make(map[string]*acc)
	for _, r := range rows {
		if !filter.matches(r) {
			continue
		}
		a := byCountry[r.Country]
		if a == nil {
			a = &acc{}
			byCountry[r.Country] = a
		}
		a.raiv += r.RAIV
		a.timeliness += r.TimelinessScore
		a.risk += r.RiskPremium
		a.n++
	}

	out := make([]model.RankedCountry, 0, len(byCountry))
	for name, a := range byCountry {
		out = append(out, model.RankedCountry{
			Country:         name,
			RAIV:            a.raiv,
			TimelinessScore: a.timeliness / float64(a.n),
			RiskScore:       a.risk / float64(a.n),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Country < out[j].Country })
	return out
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func containsString(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
