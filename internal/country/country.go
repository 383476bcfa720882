// Package country canonicalizes country names across the three source
// datasets. Each source uses its own spelling and abbreviation conventions;
// the join on country name only works after every source has been run
// through the same mapping.
package country

// canonicalNames maps raw source spellings to the canonical name used for
// joins. Hand-curated from observed mismatches between the UN import tables,
// the World Bank LPI sheet, and the risk premium lookup. Names not listed
// pass through unchanged.
var canonicalNames = map[string]string{
	"France+Monac": "France",
	"Switz.Leicht": "Switzerland",
	"Korea Rep.":   "South Korea",
	"Norway,Sb,JM": "Norway",
	"Ireland":      "Republic of Ireland",
	"Luxemberg":    "Luxembourg",
	"Czech Rep":    "Czech Republic",
	"Viet Nam":     "Vietnam",
	"TFYR Macedna": "North Macedonia",
	"Bosnia Herzg": "Bosnia and Herzegovina",
	"Antigua,Barb": "Antigua and Barbuda",
	"Solomon Is":   "Solomon Islands",
	"Bahamas":      "Bahamas, The",
	"Papua N.Guin": "Papua New Guinea",
	"Dem.Rp.Congo": "Democratic Republic of the Congo",
	"Dominican Rp": "Dominican Republic",
	"GuineaBissau": "Guinea-Bissau",
	"Russian Fed":  "Russia",
	"Rep.Moldova":  "Moldova",
	"Trinidad Tbg": "Trinidad and Tobago",
	"Lao P.Dem.R":  "Laos",
	"Gambia":       "The Gambia",
	"Iran-Islam.R": "Iran",
	"Kyrgyzstan":   "Kyrgyz Republic",
	"Venezuela":    "Venezuela, RB",
	"Yemen":        "Yemen, Rep.",
}

// Canonical returns the canonical name for a raw country label, or the label
// itself when no mapping exists. Lookup is exact and case-sensitive.
func Canonical(raw string) string {
	if canonical, ok := canonicalNames[raw]; ok {
		return canonical
	}
	return raw
}
