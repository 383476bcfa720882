// Package fetcher parses the tabular source files (CSV, XLSX) that feed the
// trade store.
package fetcher

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Table is a fully parsed tabular file: one header row plus data rows.
// Source files are at most a few hundred rows, so everything is held in
// memory.
type Table struct {
	Header []string
	Rows   [][]string
}

// Column returns the index of the named header column. The lookup trims
// surrounding whitespace but is otherwise exact.
func (t *Table) Column(name string) (int, error) {
	for i, h := range t.Header {
		if strings.TrimSpace(h) == name {
			return i, nil
		}
	}
	return 0, eris.Errorf("fetcher: column %q not found (header: %s)", name, strings.Join(t.Header, ", "))
}

// ColumnAny returns the index of the first header column matching any of the
// given names. Used for sources that spell the same column differently.
func (t *Table) ColumnAny(names ...string) (int, error) {
	for _, name := range names {
		if i, err := t.Column(name); err == nil {
			return i, nil
		}
	}
	return 0, eris.Errorf("fetcher: none of columns %q found (header: %s)",
		strings.Join(names, "/"), strings.Join(t.Header, ", "))
}

// RequireColumns validates that every named column is present, failing fast
// with a descriptive error before any row is ingested.
func (t *Table) RequireColumns(names ...string) error {
	var missing []string
	for _, name := range names {
		if _, err := t.Column(name); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return eris.Errorf("fetcher: missing required columns: %s (header: %s)",
			strings.Join(missing, ", "), strings.Join(t.Header, ", "))
	}
	return nil
}
