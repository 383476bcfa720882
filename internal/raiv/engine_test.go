package raiv

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/trade-cli/internal/model"
)

// fakeSource serves fixed tables, keyed by year for imports.
type fakeSource struct {
	imports map[int][]model.ImportRecord
	lpi     []model.LPIRecord
	risk    []model.RiskRecord

	importsErr error
	lpiErr     error
	riskErr    error
}

func (f *fakeSource) ImportsByYear(_ context.Context, year int) ([]model.ImportRecord, error) {
	if f.importsErr != nil {
		return nil, f.importsErr
	}
	return f.imports[year], nil
}

func (f *fakeSource) LPI(_ context.Context) ([]model.LPIRecord, error) {
	if f.lpiErr != nil {
		return nil, f.lpiErr
	}
	return f.lpi, nil
}

func (f *fakeSource) RiskPremiums(_ context.Context) ([]model.RiskRecord, error) {
	if f.riskErr != nil {
		return nil, f.riskErr
	}
	return f.risk, nil
}

func TestT(t *testing.T) {
	for year, want := range map[int]int{2022: 0, 2023: 1, 2024: 2} {
		got, err := T(year)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := T(2021)
	require.Error(t, err)
	_, err = T(2025)
	require.Error(t, err)
}

func TestCompute(t *testing.T) {
	t.Run("base year has no discounting", func(t *testing.T) {
		got, err := Compute(100, 4.0, 0.05, 0)
		require.NoError(t, err)
		assert.InDelta(t, 400.0, got, 1e-9)
	})

	t.Run("discounts compound by t", func(t *testing.T) {
		got, err := Compute(100, 4.0, 0.05, 2)
		require.NoError(t, err)
		assert.InDelta(t, 400.0/(1.05*1.05), got, 1e-9)
	})

	t.Run("risk premium of -1 is an error", func(t *testing.T) {
		_, err := Compute(100, 4.0, -1, 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "non-finite")
	})

	t.Run("t=0 keeps risk=-1 finite", func(t *testing.T) {
		// (1 + -1)^0 == 1, so the base year still computes.
		got, err := Compute(100, 4.0, -1, 0)
		require.NoError(t, err)
		assert.InDelta(t, 400.0, got, 1e-9)
	})
}

func TestMergeImports(t *testing.T) {
	rows := []model.ImportRecord{
		{Country: "France+Monac", ImportValue: 50},
		{Country: "France", ImportValue: 25},
		{Country: "USA", ImportValue: 100},
	}

	merged := MergeImports(rows)
	require.Len(t, merged, 2)
	assert.Equal(t, model.ImportRecord{Country: "France", ImportValue: 75}, merged[0])
	assert.Equal(t, model.ImportRecord{Country: "USA", ImportValue: 100}, merged[1])
}

func TestCalculateYear_EndToEnd(t *testing.T) {
	// USA has no LPI/risk entry and drops out; France+Monac normalizes to
	// France and joins.
	src := &fakeSource{
		imports: map[int][]model.ImportRecord{
			2022: {
				{Country: "USA", ImportValue: 100},
				{Country: "France+Monac", ImportValue: 50},
			},
		},
		lpi:  []model.LPIRecord{{Country: "France", TimelinessScore: 4.0}},
		risk: []model.RiskRecord{{Country: "France", RiskPremium: 0.05}},
	}

	records, err := NewEngine(src).CalculateYear(context.Background(), 2022)
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "France", r.Country)
	assert.Equal(t, 2022, r.Year)
	assert.InDelta(t, 50.0, r.ImportValue, 1e-9)
	assert.InDelta(t, 4.0, r.TimelinessScore, 1e-9)
	assert.InDelta(t, 0.05, r.RiskPremium, 1e-9)
	assert.Equal(t, 0, r.T)
	assert.InDelta(t, 200.0, r.RAIV, 1e-9)
}

func TestCalculateYear_InnerJoinIsStrict(t *testing.T) {
	src := &fakeSource{
		imports: map[int][]model.ImportRecord{
			2023: {{Country: "Germany", ImportValue: 80}},
		},
		lpi:  []model.LPIRecord{{Country: "Germany", TimelinessScore: 4.1}},
		risk: []model.RiskRecord{{Country: "France", RiskPremium: 0.05}},
	}

	records, err := NewEngine(src).CalculateYear(context.Background(), 2023)
	require.NoError(t, err)
	assert.Empty(t, records, "country present in only two sources must not produce a record")
}

func TestCalculateYear_EmptySourceYieldsNoRecords(t *testing.T) {
	src := &fakeSource{
		imports: map[int][]model.ImportRecord{},
		lpi:     []model.LPIRecord{{Country: "France", TimelinessScore: 4.0}},
		risk:    []model.RiskRecord{{Country: "France", RiskPremium: 0.05}},
	}

	records, err := NewEngine(src).CalculateYear(context.Background(), 2022)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCalculateYear_InvalidYear(t *testing.T) {
	_, err := NewEngine(&fakeSource{}).CalculateYear(context.Background(), 1999)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid year")
}

func TestCalculateYear_SkipsNonFiniteRecords(t *testing.T) {
	src := &fakeSource{
		imports: map[int][]model.ImportRecord{
			2023: {
				{Country: "France", ImportValue: 50},
				{Country: "Atlantis", ImportValue: 10},
			},
		},
		lpi: []model.LPIRecord{
			{Country: "France", TimelinessScore: 4.0},
			{Country: "Atlantis", TimelinessScore: 3.0},
		},
		risk: []model.RiskRecord{
			{Country: "France", RiskPremium: 0.05},
			{Country: "Atlantis", RiskPremium: -1},
		},
	}

	records, err := NewEngine(src).CalculateYear(context.Background(), 2023)
	require.NoError(t, err)
	require.Len(t, records, 1, "divide-by-zero record is skipped, not fatal")
	assert.Equal(t, "France", records[0].Country)
}

func TestCalculateAll_SourceErrorDoesNotAbort(t *testing.T) {
	src := &fakeSource{importsErr: eris.New("database unreachable")}

	records := NewEngine(src).CalculateAll(context.Background())
	assert.Empty(t, records)
}

func TestCalculateAll_SortedByCountryThenYear(t *testing.T) {
	src := &fakeSource{
		imports: map[int][]model.ImportRecord{
			2022: {{Country: "Vietnam", ImportValue: 10}, {Country: "France", ImportValue: 20}},
			2023: {{Country: "France", ImportValue: 30}},
			2024: {{Country: "Vietnam", ImportValue: 40}},
		},
		lpi: []model.LPIRecord{
			{Country: "France", TimelinessScore: 4.0},
			{Country: "Viet Nam", TimelinessScore: 3.3},
		},
		risk: []model.RiskRecord{
			{Country: "France", RiskPremium: 0.05},
			{Country: "Vietnam", RiskPremium: 0.08},
		},
	}

	records := NewEngine(src).CalculateAll(context.Background())
	require.Len(t, records, 4)

	assert.Equal(t, []string{"France", "France", "Vietnam", "Vietnam"}, countries(records))
	assert.Equal(t, 2022, records[0].Year)
	assert.Equal(t, 2023, records[1].Year)
	assert.Equal(t, 2022, records[2].Year)
	assert.Equal(t, 2024, records[3].Year)

	// LPI is a fixed snapshot reused across years.
	assert.InDelta(t, 4.0, records[1].TimelinessScore, 1e-9)
	assert.Equal(t, 1, records[1].T)
}

func countries(records []model.RAIVRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Country
	}
	return out
}
