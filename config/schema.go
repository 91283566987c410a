package config

// Model kinds.
const (
	ModelRidge        = "ridge"
	ModelRandomForest = "random_forest"
)

// Config is the root configuration structure
type Config struct {
	Version     int               `yaml:"version"`
	Log         LogConfig         `yaml:"log"`
	Data        DataConfig        `yaml:"data"`
	Model       ModelConfig       `yaml:"model"`
	CV          CVConfig          `yaml:"cv"`
	Reconstruct ReconstructConfig `yaml:"reconstruct"`
	Plot        PlotConfig        `yaml:"plot"`
}

// LogConfig selects the log level and output format
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
}

// DataConfig locates the input tables. A path ending in .db, .sqlite or
// .sqlite3 is read from SQLiteTable instead of as CSV.
type DataConfig struct {
	Train       string `yaml:"train"`
	Test        string `yaml:"test"`
	SQLiteTable string `yaml:"sqlite_table"`
}

// ModelConfig selects the regressor family and where the artifact lives
type ModelConfig struct {
	Kind   string       `yaml:"kind"` // ridge, random_forest
	Path   string       `yaml:"path"`
	Ridge  RidgeConfig  `yaml:"ridge"`
	Forest ForestConfig `yaml:"forest"`
}

// RidgeConfig holds ridge hyperparameters
type RidgeConfig struct {
	Alpha        float64 `yaml:"alpha"`
	FitIntercept bool    `yaml:"fit_intercept"`
	Standardize  bool    `yaml:"standardize"`
}

// ForestConfig holds random forest hyperparameters. Zero MaxDepth and
// MaxFeatures mean unlimited and all features.
type ForestConfig struct {
	NEstimators     int    `yaml:"n_estimators"`
	MaxDepth        int    `yaml:"max_depth"`
	MinSamplesSplit int    `yaml:"min_samples_split"`
	MinSamplesLeaf  int    `yaml:"min_samples_leaf"`
	MaxFeatures     int    `yaml:"max_features"`
	RandomState     uint64 `yaml:"random_state"`
	Bootstrap       bool   `yaml:"bootstrap"`
	NJobs           int    `yaml:"n_jobs"` // 0 = NumCPU
}

// CVConfig controls k-fold cross-validation
type CVConfig struct {
	Folds    int    `yaml:"folds"`
	Shuffle  bool   `yaml:"shuffle"`
	Seed     uint64 `yaml:"seed"`
	Parallel int    `yaml:"parallel"` // folds run at once, 0 = NumCPU
}

// ReconstructConfig controls formula reconstruction
type ReconstructConfig struct {
	Threshold float64 `yaml:"threshold"`
}

// PlotConfig controls the actual-vs-predicted plot
type PlotConfig struct {
	Elements []string `yaml:"elements"`
	Output   string   `yaml:"output"`
}
