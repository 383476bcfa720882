// Package raiv computes the Risk-Adjusted Import Value per country and year
// by joining the import, LPI, and risk premium tables.
package raiv

import (
	"context"
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/trade-cli/internal/country"
	"github.com/sells-group/trade-cli/internal/model"
)

// BaseYear anchors the risk-discounting exponent: t = Year - BaseYear.
const BaseYear = 2022

// Years lists the years covered by the import tables, in calculation order.
var Years = []int{2022, 2023, 2024}

// Source provides the three input tables. The import table is pre-aggregated
// by raw partner name with the world-total row already excluded; LPI and risk
// rows arrive null-filtered.
type Source interface {
	ImportsByYear(ctx context.Context, year int) ([]model.ImportRecord, error)
	LPI(ctx context.Context) ([]model.LPIRecord, error)
	RiskPremiums(ctx context.Context) ([]model.RiskRecord, error)
}

// T returns the discount exponent for a year.
func T(year int) (int, error) {
	t := year - BaseYear
	if t < 0 || t >= len(Years) {
		return 0, eris.Errorf("raiv: invalid year %d (must be %d-%d)", year, Years[0], Years[len(Years)-1])
	}
	return t, nil
}

// Compute applies RAIV = importValue × timeliness / (1 + riskPremium)^t.
// A non-finite result (riskPremium = -1 divides by zero) is an error rather
// than a silently clamped value.
func Compute(importValue, timeliness, riskPremium float64, t int) (float64, error) {
	raiv := importValue * timeliness / math.Pow(1+riskPremium, float64(t))
	if math.IsNaN(raiv) || math.IsInf(raiv, 0) {
		return 0, eris.Errorf("raiv: non-finite result (import=%v timeliness=%v risk=%v t=%d)",
			importValue, timeliness, riskPremium, t)
	}
	return raiv, nil
}

// MergeImports canonicalizes country names and re-aggregates. The source
// groups by raw partner name, so two raw spellings that normalize to the same
// canonical country must be summed here. Output is sorted by country name.
func MergeImports(rows []model.ImportRecord) []model.ImportRecord {
	sums := make(map[string]float64, len(rows))
	for _, r := range rows {
		sums[country.Canonical(r.Country)] += r.ImportValue
	}

	merged := make([]model.ImportRecord, 0, len(sums))
	for name, value := range sums {
		merged = append(merged, model.ImportRecord{Country: name, ImportValue: value})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Country < merged[j].Country })
	return merged
}

// Engine runs the per-year join and formula over a Source.
type Engine struct {
	source Source
	log    *zap.Logger
}

// NewEngine creates an Engine reading from the given source.
func NewEngine(source Source) *Engine {
	return &Engine{source: source, log: zap.L().Named("raiv")}
}

// CalculateYear computes RAIV records for one year. An empty source table
// yields zero records (logged as a warning, not an error). Records whose
// formula result is non-finite are skipped individually.
func (e *Engine) CalculateYear(ctx context.Context, year int) ([]model.RAIVRecord, error) {
	t, err := T(year)
	if err != nil {
		return nil, err
	}

	imports := e.fetchImports(ctx, year)
	lpi := e.fetchLPI(ctx)
	risk := e.fetchRisk(ctx)

	if len(imports) == 0 || len(lpi) == 0 || len(risk) == 0 {
		e.log.Warn("missing data for year",
			zap.Int("year", year),
			zap.Int("imports", len(imports)),
			zap.Int("lpi", len(lpi)),
			zap.Int("risk", len(risk)),
		)
		return nil, nil
	}

	timeliness := make(map[string]float64, len(lpi))
	for _, r := range lpi {
		name := country.Canonical(r.Country)
		if _, ok := timeliness[name]; !ok {
			timeliness[name] = r.TimelinessScore
		}
	}
	premiums := make(map[string]float64, len(risk))
	for _, r := range risk {
		name := country.Canonical(r.Country)
		if _, ok := premiums[name]; !ok {
			premiums[name] = r.RiskPremium
		}
	}

	var records []model.RAIVRecord
	for _, imp := range MergeImports(imports) {
		score, hasLPI := timeliness[imp.Country]
		premium, hasRisk := premiums[imp.Country]
		if !hasLPI || !hasRisk {
			// Strict inner join: all three sources must match.
			continue
		}

		raiv, err := Compute(imp.ImportValue, score, premium, t)
		if err != nil {
			e.log.Warn("skipping record", zap.String("country", imp.Country), zap.Int("year", year), zap.Error(err))
			continue
		}

		records = append(records, model.RAIVRecord{
			Country:         imp.Country,
			Year:            year,
			ImportValue:     imp.ImportValue,
			TimelinessScore: score,
			RiskPremium:     premium,
			T:               t,
			RAIV:            raiv,
		})
	}

	e.log.Info("calculated RAIV", zap.Int("year", year), zap.Int("countries", len(records)))
	return records, nil
}

// CalculateAll computes RAIV for every covered year and concatenates the
// results sorted by (Country, Year). A failure in one year does not abort the
// others.
func (e *Engine) CalculateAll(ctx context.Context) []model.RAIVRecord {
	var all []model.RAIVRecord
	for _, year := range Years {
		records, err := e.CalculateYear(ctx, year)
		if err != nil {
			e.log.Error("year calculation failed", zap.Int("year", year), zap.Error(err))
			continue
		}
		all = append(all, records...)
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Country != all[j].Country {
			return all[i].Country < all[j].Country
		}
		return all[i].Year < all[j].Year
	})

	e.log.Info("calculation complete", zap.Int("total", len(all)))
	return all
}

// fetch helpers treat an unreachable source as an empty table so the rest of
// the pipeline can proceed (other years still run).

func (e *Engine) fetchImports(ctx context.Context, year int) []model.ImportRecord {
	rows, err := e.source.ImportsByYear(ctx, year)
	if err != nil {
		e.log.Error("fetch imports failed", zap.Int("year", year), zap.Error(err))
		return nil
	}
	return rows
}

func (e *Engine) fetchLPI(ctx context.Context) []model.LPIRecord {
	rows, err := e.source.LPI(ctx)
	if err != nil {
		e.log.Error("fetch LPI failed", zap.Error(err))
		return nil
	}
	return rows
}

func (e *Engine) fetchRisk(ctx context.Context) []model.RiskRecord {
	rows, err := e.source.RiskPremiums(ctx)
	if err != nil {
		e.log.Error("fetch risk premiums failed", zap.Error(err))
		return nil
	}
	return rows
}
