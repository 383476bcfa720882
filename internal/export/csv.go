// Package export writes and reads the delimited-text interfaces between the
// batch calculator and the recommendation explorer.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/trade-cli/internal/fetcher"
	"github.com/sells-group/trade-cli/internal/model"
	"github.com/sells-group/trade-cli/internal/raiv"
)

// resultColumns is the batch output contract, in order.
var resultColumns = []string{"Country", "Year", "ImportValue", "TimelinessScore", "RiskPremium", "t_value", "RAIV"}

// WriteResults writes RAIV records as CSV. Floats are written at full
// precision so the file round-trips exactly.
func WriteResults(w io.Writer, records []model.RAIVRecord) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(resultColumns); err != nil {
		return eris.Wrap(err, "export: write results header")
	}
	for _, r := range records {
		row := []string{
			r.Country,
			strconv.Itoa(r.Year),
			formatFloat(r.ImportValue),
			formatFloat(r.TimelinessScore),
			formatFloat(r.RiskPremium),
			strconv.Itoa(r.T),
			formatFloat(r.RAIV),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "export: write results row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush results")
}

// ReadRAIVTable loads a RAIV table for the explorer. The country column may
// be named Country or PartnerName and the risk column RiskPremium or
// RiskScore; an HS Code / HS_Code column is optional, as are ImportValue and
// t_value (supersets of the batch output are accepted).
func ReadRAIVTable(r io.Reader) ([]model.RAIVRecord, error) {
	table, err := fetcher.ReadCSV(r, fetcher.CSVOptions{TrimSpace: true})
	if err != nil {
		return nil, eris.Wrap(err, "export: read RAIV table")
	}

	countryCol, err := table.ColumnAny("Country", "PartnerName")
	if err != nil {
		return nil, err
	}
	yearCol, err := table.Column("Year")
	if err != nil {
		return nil, err
	}
	raivCol, err := table.Column("RAIV")
	if err != nil {
		return nil, err
	}
	timelinessCol, err := table.Column("TimelinessScore")
	if err != nil {
		return nil, err
	}
	riskCol, err := table.ColumnAny("RiskPremium", "RiskScore")
	if err != nil {
		return nil, err
	}

	importCol, hasImport := optionalColumn(table, "ImportValue")
	tCol, hasT := optionalColumn(table, "t_value")
	hsCol, hasHS := -1, false
	if i, err := table.ColumnAny("HS Code", "HS_Code"); err == nil {
		hsCol, hasHS = i, true
	}

	records := make([]model.RAIVRecord, 0, len(table.Rows))
	for i, row := range table.Rows {
		rec := model.RAIVRecord{Country: row[countryCol]}

		rec.Year, err = strconv.Atoi(row[yearCol])
		if err != nil {
			return nil, eris.Wrapf(err, "export: row %d: parse Year", i+1)
		}
		if rec.RAIV, err = parseFloat(row[raivCol]); err != nil {
			return nil, eris.Wrapf(err, "export: row %d: parse RAIV", i+1)
		}
		if rec.TimelinessScore, err = parseFloat(row[timelinessCol]); err != nil {
			return nil, eris.Wrapf(err, "export: row %d: parse TimelinessScore", i+1)
		}
		if rec.RiskPremium, err = parseFloat(row[riskCol]); err != nil {
			return nil, eris.Wrapf(err, "export: row %d: parse risk", i+1)
		}
		if hasImport {
			if rec.ImportValue, err = parseFloat(row[importCol]); err != nil {
				return nil, eris.Wrapf(err, "export: row %d: parse ImportValue", i+1)
			}
		}
		if hasT {
			if rec.T, err = strconv.Atoi(row[tCol]); err != nil {
				return nil, eris.Wrapf(err, "export: row %d: parse t_value", i+1)
			}
		}
		if hasHS {
			rec.HSCode = row[hsCol]
		}

		records = append(records, rec)
	}
	return records, nil
}

// summaryColumns follows the flattened <factor>_<stat> naming of the batch
// summary output.
var summaryColumns = []string{
	"Year",
	"RAIV_count", "RAIV_mean", "RAIV_median", "RAIV_std", "RAIV_min", "RAIV_max",
	"ImportValue_mean", "ImportValue_median",
	"TimelinessScore_mean", "TimelinessScore_median",
	"RiskPremium_mean", "RiskPremium_median",
}

// WriteSummary writes per-year summary statistics as CSV, rounded to
// 4 decimal places.
func WriteSummary(w io.Writer, summaries []model.YearSummary) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(summaryColumns); err != nil {
		return eris.Wrap(err, "export: write summary header")
	}
	for _, s := range summaries {
		row := []string{
			strconv.Itoa(s.Year),
			strconv.Itoa(s.Count),
			formatRounded(s.RAIVMean),
			formatRounded(s.RAIVMedian),
			formatRounded(s.RAIVStd),
			formatRounded(s.RAIVMin),
			formatRounded(s.RAIVMax),
			formatRounded(s.ImportValueMean),
			formatRounded(s.ImportValueMedian),
			formatRounded(s.TimelinessMean),
			formatRounded(s.TimelinessMedian),
			formatRounded(s.RiskMean),
			formatRounded(s.RiskMedian),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "export: write summary row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush summary")
}

// rankedColumns is the explorer download contract, in order.
var rankedColumns = []string{"PartnerName", "RAIV", "TimelinessScore", "RiskScore", "CompositeScore"}

// WriteRanked writes a ranked recommendation table as CSV at full precision.
func WriteRanked(w io.Writer, ranked []model.RankedCountry) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(rankedColumns); err != nil {
		return eris.Wrap(err, "export: write ranked header")
	}
	for _, r := range ranked {
		row := []string{
			r.Country,
			formatFloat(r.RAIV),
			formatFloat(r.TimelinessScore),
			formatFloat(r.RiskScore),
			formatFloat(r.CompositeScore),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "export: write ranked row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush ranked")
}

// ReadRanked loads a ranked table previously written by WriteRanked.
func ReadRanked(r io.Reader) ([]model.RankedCountry, error) {
	table, err := fetcher.ReadCSV(r, fetcher.CSVOptions{})
	if err != nil {
		return nil, eris.Wrap(err, "export: read ranked table")
	}
	if err := table.RequireColumns(rankedColumns...); err != nil {
		return nil, err
	}

	cols := make([]int, len(rankedColumns))
	for i, name := range rankedColumns {
		cols[i], _ = table.Column(name)
	}

	ranked := make([]model.RankedCountry, 0, len(table.Rows))
	for i, row := range table.Rows {
		var rec model.RankedCountry
		rec.Country = row[cols[0]]
		if rec.RAIV, err = parseFloat(row[cols[1]]); err != nil {
			return nil, eris.Wrapf(err, "export: row %d: parse RAIV", i+1)
		}
		if rec.TimelinessScore, err = parseFloat(row[cols[2]]); err != nil {
			return nil, eris.Wrapf(err, "export: row %d: parse TimelinessScore", i+1)
		}
		if rec.RiskScore, err = parseFloat(row[cols[3]]); err != nil {
			return nil, eris.Wrapf(err, "export: row %d: parse RiskScore", i+1)
		}
		if rec.CompositeScore, err = parseFloat(row[cols[4]]); err != nil {
			return nil, eris.Wrapf(err, "export: row %d: parse CompositeScore", i+1)
		}
		ranked = append(ranked, rec)
	}
	return ranked, nil
}

// RankedFilename names a ranked export after the active year filter: the
// specific year when exactly one is selected, otherwise the year count. An
// empty filter selects every covered year and counts as such.
func RankedFilename(years []int) string {
	if len(years) == 1 {
		return fmt.Sprintf("top_recommendations_%d.csv", years[0])
	}
	n := len(years)
	if n == 0 {
		n = len(raiv.Years)
	}
	return fmt.Sprintf("top_recommendations_%dyears.csv", n)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatRounded(v float64) string {
	return strconv.FormatFloat(math.Round(v*10000)/10000, 'f', -1, 64)
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

func optionalColumn(t *fetcher.Table, name string) (int, bool) {
	i, err := t.Column(name)
	return i, err == nil
}
