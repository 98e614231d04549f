// Package config loads runtime configuration for psengine sessions from
// a config file, PSENGINE_* environment variables, and CLI flags.
package config

import "github.com/spf13/viper"

// SearchConfig tunes the invariant-point search and exploration sweeps.
type SearchConfig struct {
	Extend      float64 `mapstructure:"extend"`
	Steps       int     `mapstructure:"steps"`
	Budget      int     `mapstructure:"budget"`
	BracketTol  float64 `mapstructure:"bracket_tol"`
	MaxVariance int     `mapstructure:"max_variance"`
}

// Config holds all runtime configuration for a psengine session.
// Values are populated from .psengine.yaml, PSENGINE_* env vars, and CLI flags.
type Config struct {
	ProjectFile   string       `mapstructure:"project_file"`
	StorePath     string       `mapstructure:"store_path"`
	EnginePath    string       `mapstructure:"engine_path"`
	WorkDir       string       `mapstructure:"work_dir"`
	MergeTol      float64      `mapstructure:"merge_tol"`
	AutoAssign    bool         `mapstructure:"auto_assign"`
	ConnectDist   float64      `mapstructure:"connect_dist"`
	MaxExtension  float64      `mapstructure:"max_extension"`
	TelemetryPath string       `mapstructure:"telemetry_path"`
	Verbose       bool         `mapstructure:"verbose"`
	Search        SearchConfig `mapstructure:"search"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	viper.SetDefault("project_file", "section.toml")
	viper.SetDefault("store_path", "psengine.db")
	viper.SetDefault("engine_path", "")
	viper.SetDefault("work_dir", ".")
	viper.SetDefault("merge_tol", 0.001)
	viper.SetDefault("auto_assign", false)
	viper.SetDefault("connect_dist", 0.0)
	viper.SetDefault("max_extension", 0.0)
	viper.SetDefault("telemetry_path", "")
	viper.SetDefault("verbose", false)
	viper.SetDefault("search.extend", 0.05)
	viper.SetDefault("search.steps", 50)
	viper.SetDefault("search.budget", 40)
	viper.SetDefault("search.bracket_tol", 0.1)
	viper.SetDefault("search.max_variance", 4)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
