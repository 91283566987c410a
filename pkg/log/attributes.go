// Package log defines standard attribute keys for pipeline operations.
//
// Using these keys keeps records from the dataset builder, the trainer, the
// predictor and the evaluator consistent, so a run can be followed end to end
// by filtering on a handful of fields. Keys follow a hierarchical naming
// convention (e.g. "model.name", "data.samples").

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of regressor.
	// Examples: "Ridge", "RandomForestRegressor"
	ModelNameKey = "model.name"

	// ModelIDKey identifies a persisted model artifact (UUID).
	ModelIDKey = "model.id"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "build", "evaluate", "reconstruct"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component is performing the operation.
	ComponentKey = "ml.component"

	// RunIDKey ties together the records of one pipeline run (UUID).
	RunIDKey = "run.id"

	// PhaseKey indicates the phase of the pipeline.
	// Examples: "training", "validation", "inference"
	PhaseKey = "ml.phase"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	FeaturesKey = "data.features"

	// TargetsKey indicates the number of target columns (elements).
	TargetsKey = "data.targets"

	// DroppedRowsKey counts rows excluded because of unparseable property values.
	DroppedRowsKey = "data.dropped_rows"

	// EmptyFormulasKey counts rows whose formula yielded no element.
	EmptyFormulasKey = "data.empty_formulas"

	// SourceKey names the table source (file path, sqlite table).
	SourceKey = "data.source"
)

// Composition Context
const (
	// ElementKey is an element symbol such as "Si".
	ElementKey = "composition.element"

	// VocabularySizeKey is the number of elements in the vocabulary.
	VocabularySizeKey = "composition.vocabulary_size"

	// VocabularyFingerprintKey is the short fingerprint of the vocabulary.
	VocabularyFingerprintKey = "composition.vocabulary_fingerprint"

	// FormulaKey is a formula string, parsed or reconstructed.
	FormulaKey = "composition.formula"

	// ThresholdKey is the inclusion threshold used during reconstruction.
	ThresholdKey = "composition.threshold"
)

// Cross-validation and Metrics
const (
	// FoldKey is the zero-based fold index.
	FoldKey = "cv.fold"

	// FoldsKey is the number of folds.
	FoldsKey = "cv.folds"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "cv.random_seed"

	// R2ScoreKey records the R² coefficient of determination.
	R2ScoreKey = "metrics.r2_score"

	// MAEKey records the mean absolute error.
	MAEKey = "metrics.mae"

	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// PredsKey indicates the number of predictions made.
	PredsKey = "preds.count"
)

// Error Context
const (
	// ErrorKey carries the error value of a record.
	ErrorKey = "error"

	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information for debugging.
	StacktraceKey = "error.stacktrace"
)

// Standard attribute values.
const (
	OperationFit         = "fit"
	OperationPredict     = "predict"
	OperationBuild       = "build"
	OperationEvaluate    = "evaluate"
	OperationReconstruct = "reconstruct"

	PhaseTraining   = "training"
	PhaseValidation = "validation"
	PhaseInference  = "inference"
)
