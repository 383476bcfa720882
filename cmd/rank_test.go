package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/trade-cli/internal/config"
	"github.com/sells-group/trade-cli/internal/rank"
)

// setTestConfig installs a known configuration for the duration of a test.
func setTestConfig(t *testing.T) {
	t.Helper()
	prev := cfg
	cfg = &config.Config{
		Store: config.StoreConfig{Driver: "sqlite"},
		Calc: config.CalcConfig{
			ResultsCSV: "raiv_results.csv",
			SummaryCSV: "raiv_summary_statistics.csv",
		},
		Rank: config.RankConfig{
			Input:            "raiv_results.csv",
			Top:              10,
			RAIVWeight:       0.1,
			TimelinessWeight: 0.45,
			RiskWeight:       0.45,
		},
		Server: config.ServerConfig{Port: 8080},
		Log:    config.LogConfig{Level: "info", Format: "json"},
	}
	t.Cleanup(func() { cfg = prev })
}

func TestRankWeights_Defaults(t *testing.T) {
	setTestConfig(t)

	cmd := rankCmd
	require.NoError(t, cmd.Flags().Set("raiv-weight", "-1"))
	require.NoError(t, cmd.Flags().Set("timeliness-weight", "-1"))
	require.NoError(t, cmd.Flags().Set("risk-weight", "-1"))

	w := rankWeights(cmd)
	assert.Equal(t, rank.Weights{RAIV: 0.1, Timeliness: 0.45, Risk: 0.45}, w)
}

func TestRankWeights_ExplicitZeroKept(t *testing.T) {
	setTestConfig(t)

	cmd := rankCmd
	require.NoError(t, cmd.Flags().Set("raiv-weight", "1"))
	require.NoError(t, cmd.Flags().Set("timeliness-weight", "0"))
	require.NoError(t, cmd.Flags().Set("risk-weight", "0"))
	t.Cleanup(func() {
		_ = cmd.Flags().Set("raiv-weight", "-1")
		_ = cmd.Flags().Set("timeliness-weight", "-1")
		_ = cmd.Flags().Set("risk-weight", "-1")
	})

	w := rankWeights(cmd)
	assert.Equal(t, rank.Weights{RAIV: 1, Timeliness: 0, Risk: 0}, w)
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim(""))
	assert.Equal(t, []string{"0901", "1801"}, splitAndTrim(" 0901 ,1801, "))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 30))
	assert.Equal(t, "aaaaaaa...", truncate("aaaaaaaaaaaaaaa", 10))
}
