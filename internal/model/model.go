// Package model defines the core domain records shared across the pipeline.
package model

import "time"

// ImportRecord is one partner country's summed import value for a single year.
// Values are in thousands of US dollars, as reported by the source.
type ImportRecord struct {
	Country     string  `json:"country"`
	ImportValue float64 `json:"import_value"`
}

// LPIRecord is a country's Logistics Performance Index timeliness score.
// The LPI is a fixed 2023 snapshot reused for all years.
type LPIRecord struct {
	Country         string  `json:"country"`
	TimelinessScore float64 `json:"timeliness_score"`
}

// RiskRecord is a country's risk premium. One fixed value per country.
type RiskRecord struct {
	Country     string  `json:"country"`
	RiskPremium float64 `json:"risk_premium"`
}

// RAIVRecord is the joined, scored output row for one country and year.
type RAIVRecord struct {
	Country         string  `json:"country"`
	Year            int     `json:"year"`
	ImportValue     float64 `json:"import_value"`
	TimelinessScore float64 `json:"timeliness_score"`
	RiskPremium     float64 `json:"risk_premium"`
	T               int     `json:"t_value"`
	RAIV            float64 `json:"raiv"`

	// HSCode is present only on explorer inputs that carry per-commodity rows.
	HSCode string `json:"hs_code,omitempty"`
}

// YearSummary holds per-year descriptive statistics over the RAIV output.
// Standard deviation is the population form (divide by N).
type YearSummary struct {
	Year  int `json:"year"`
	Count int `json:"count"`

	RAIVMean   float64 `json:"raiv_mean"`
	RAIVMedian float64 `json:"raiv_median"`
	RAIVStd    float64 `json:"raiv_std"`
	RAIVMin    float64 `json:"raiv_min"`
	RAIVMax    float64 `json:"raiv_max"`

	ImportValueMean   float64 `json:"import_value_mean"`
	ImportValueMedian float64 `json:"import_value_median"`
	TimelinessMean    float64 `json:"timeliness_mean"`
	TimelinessMedian  float64 `json:"timeliness_median"`
	RiskMean          float64 `json:"risk_mean"`
	RiskMedian        float64 `json:"risk_median"`
}

// RankedCountry is one row of the composite-score ranking. RAIV is summed
// across the filtered rows for the country; timeliness and risk are averaged.
type RankedCountry struct {
	Country         string  `json:"country"`
	RAIV            float64 `json:"raiv"`
	TimelinessScore float64 `json:"timeliness_score"`
	RiskScore       float64 `json:"risk_score"`
	CompositeScore  float64 `json:"composite_score"`
}

// CalcRunStatus tracks the lifecycle of a batch calculation run.
type CalcRunStatus string

const (
	CalcRunRunning  CalcRunStatus = "running"
	CalcRunComplete CalcRunStatus = "complete"
	CalcRunFailed   CalcRunStatus = "failed"
)

// CalcRun is one recorded execution of the RAIV batch pipeline.
type CalcRun struct {
	ID          string        `json:"id"`
	Status      CalcRunStatus `json:"status"`
	RowsWritten int64         `json:"rows_written"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  *time.Time    `json:"finished_at,omitempty"`
}
