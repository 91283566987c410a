// Package config loads the YAML configuration of ceramigo.
//
// Config file locations (priority order):
//  1. $CERAMIGO_CONFIG
//  2. ./ceramigo.yaml
//
// Defaults are used when neither exists. Command-line flags override
// values from the file.
package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/ceramigo/composition"
	"github.com/YuminosukeSato/ceramigo/pkg/errors"
	"github.com/YuminosukeSato/ceramigo/pkg/log"
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()
	if path == "" {
		return DefaultConfig(), "", nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path. Keys missing from the
// file keep their default values.
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, errors.Wrap(err, "read config")
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, path, errors.Wrap(err, "parse config")
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return errors.Wrap(err, "create config dir")
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	return os.WriteFile(path, data, 0o644)
}

// DefaultConfig returns the settings of the original training scripts:
// a 200-tree forest with seed 42, 5 shuffled folds and a 0.05 threshold.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Log:     LogConfig{Level: "info", Format: log.FormatConsole},
		Data: DataConfig{
			Train:       "updated_with_coefficients.csv",
			Test:        "test_data.csv",
			SQLiteTable: "materials",
		},
		Model: ModelConfig{
			Kind: ModelRandomForest,
			Path: "ceramigo_model.gob",
			Ridge: RidgeConfig{
				Alpha:        1.0,
				FitIntercept: true,
			},
			Forest: ForestConfig{
				NEstimators:     200,
				MinSamplesSplit: 2,
				MinSamplesLeaf:  1,
				RandomState:     42,
				Bootstrap:       true,
			},
		},
		CV: CVConfig{
			Folds:   5,
			Shuffle: true,
			Seed:    42,
		},
		Reconstruct: ReconstructConfig{Threshold: composition.DefaultThreshold},
		Plot: PlotConfig{
			Elements: []string{"C", "O", "N", "B"},
			Output:   "actual_vs_predicted.png",
		},
	}
}

// applyDefaults fills in values that a file explicitly left empty
func (c *Config) applyDefaults() {
	def := DefaultConfig()

	if c.Version == 0 {
		c.Version = def.Version
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
	if c.Data.SQLiteTable == "" {
		c.Data.SQLiteTable = def.Data.SQLiteTable
	}
	if c.Model.Kind == "" {
		c.Model.Kind = def.Model.Kind
	}
	c.Model.Kind = strings.ToLower(c.Model.Kind)
	if c.Model.Path == "" {
		c.Model.Path = def.Model.Path
	}
	if c.Model.Forest.NEstimators == 0 {
		c.Model.Forest.NEstimators = def.Model.Forest.NEstimators
	}
	if c.Model.Forest.MinSamplesSplit == 0 {
		c.Model.Forest.MinSamplesSplit = def.Model.Forest.MinSamplesSplit
	}
	if c.Model.Forest.MinSamplesLeaf == 0 {
		c.Model.Forest.MinSamplesLeaf = def.Model.Forest.MinSamplesLeaf
	}
	if c.CV.Folds == 0 {
		c.CV.Folds = def.CV.Folds
	}
	if c.Plot.Output == "" {
		c.Plot.Output = def.Plot.Output
	}
}

// Validate rejects values no run could use
func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != log.FormatConsole && c.Log.Format != log.FormatJSON {
		return errors.NewValidationError("log.format", "must be console or json", c.Log.Format)
	}
	if c.Model.Kind != ModelRidge && c.Model.Kind != ModelRandomForest {
		return errors.NewValidationError("model.kind", "must be ridge or random_forest", c.Model.Kind)
	}
	if c.Model.Ridge.Alpha < 0 {
		return errors.NewValidationError("model.ridge.alpha", "must be non-negative", c.Model.Ridge.Alpha)
	}
	f := c.Model.Forest
	if f.NEstimators < 1 {
		return errors.NewValidationError("model.forest.n_estimators", "must be at least 1", f.NEstimators)
	}
	if f.MaxDepth < 0 || f.MaxFeatures < 0 || f.NJobs < 0 {
		return errors.NewValidationError("model.forest", "max_depth, max_features and n_jobs must be non-negative", f)
	}
	if f.MinSamplesSplit < 2 {
		return errors.NewValidationError("model.forest.min_samples_split", "must be at least 2", f.MinSamplesSplit)
	}
	if f.MinSamplesLeaf < 1 {
		return errors.NewValidationError("model.forest.min_samples_leaf", "must be at least 1", f.MinSamplesLeaf)
	}
	if c.CV.Folds < 2 {
		return errors.NewValidationError("cv.folds", "must be at least 2", c.CV.Folds)
	}
	if c.CV.Parallel < 0 {
		return errors.NewValidationError("cv.parallel", "must be non-negative", c.CV.Parallel)
	}
	if c.Reconstruct.Threshold < 0 {
		return errors.NewValidationError("reconstruct.threshold", "must be non-negative", c.Reconstruct.Threshold)
	}
	return nil
}

// IsSQLite reports whether path names a SQLite database rather than a CSV
// file.
func IsSQLite(path string) bool {
	p := strings.ToLower(path)
	return strings.HasSuffix(p, ".db") || strings.HasSuffix(p, ".sqlite") || strings.HasSuffix(p, ".sqlite3")
}
