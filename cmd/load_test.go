package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseImportSpecs(t *testing.T) {
	specs, err := parseImportSpecs([]string{
		"2022=data/imports_2022.csv",
		" 2023 = data/imports_2023.csv ",
	})
	require.NoError(t, err)
	assert.Equal(t, map[int]string{
		2022: "data/imports_2022.csv",
		2023: "data/imports_2023.csv",
	}, specs)
}

func TestParseImportSpecs_Empty(t *testing.T) {
	specs, err := parseImportSpecs(nil)
	require.NoError(t, err)
	assert.Empty(t, specs)
}

func TestParseImportSpecs_Invalid(t *testing.T) {
	tests := []struct {
		name string
		spec string
	}{
		{"missing separator", "2022"},
		{"empty path", "2022="},
		{"bad year", "twenty22=path.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseImportSpecs([]string{tt.spec})
			require.Error(t, err)
		})
	}
}

func TestParseImportSpecs_DuplicateYear(t *testing.T) {
	_, err := parseImportSpecs([]string{"2022=a.csv", "2022=b.csv"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate year")
}
