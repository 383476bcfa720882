// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Calc   CalcConfig   `yaml:"calc" mapstructure:"calc"`
	Rank   RankConfig   `yaml:"rank" mapstructure:"rank"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string     `yaml:"driver" mapstructure:"driver"`
	Path        string     `yaml:"path" mapstructure:"path"`
	DatabaseURL string     `yaml:"database_url" mapstructure:"database_url"`
	Pool        PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// PoolConfig holds optional connection pool tuning for the postgres backend.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// CalcConfig configures the batch RAIV calculation outputs.
type CalcConfig struct {
	ResultsCSV string `yaml:"results_csv" mapstructure:"results_csv"`
	SummaryCSV string `yaml:"summary_csv" mapstructure:"summary_csv"`
}

// RankConfig configures the recommendation ranking defaults.
type RankConfig struct {
	Input            string  `yaml:"input" mapstructure:"input"`
	Top              int     `yaml:"top" mapstructure:"top"`
	RAIVWeight       float64 `yaml:"raiv_weight" mapstructure:"raiv_weight"`
	TimelinessWeight float64 `yaml:"timeliness_weight" mapstructure:"timeliness_weight"`
	RiskWeight       float64 `yaml:"risk_weight" mapstructure:"risk_weight"`
}

// ServerConfig configures the ranking API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TRADE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "trade_analysis.db")
	v.SetDefault("calc.results_csv", "raiv_results.csv")
	v.SetDefault("calc.summary_csv", "raiv_summary_statistics.csv")
	v.SetDefault("rank.input", "raiv_results.csv")
	v.SetDefault("rank.top", 10)
	v.SetDefault("rank.raiv_weight", 0.1)
	v.SetDefault("rank.timeliness_weight", 0.45)
	v.SetDefault("rank.risk_weight", 0.45)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
