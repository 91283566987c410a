// Package pipeline wires the dataset builder, trainer, predictor, evaluator
// and plot adapter into the runs exposed by the command line.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ceramigo/composition"
	"github.com/YuminosukeSato/ceramigo/config"
	"github.com/YuminosukeSato/ceramigo/core/model"
	"github.com/YuminosukeSato/ceramigo/dataset"
	"github.com/YuminosukeSato/ceramigo/ensemble"
	"github.com/YuminosukeSato/ceramigo/evaluate"
	"github.com/YuminosukeSato/ceramigo/linear"
	"github.com/YuminosukeSato/ceramigo/pkg/errors"
	"github.com/YuminosukeSato/ceramigo/pkg/log"
	"github.com/YuminosukeSato/ceramigo/predict"
	"github.com/YuminosukeSato/ceramigo/training"
	"github.com/YuminosukeSato/ceramigo/viz"
)

// Runner executes pipeline runs for one configuration.
type Runner struct {
	cfg    *config.Config
	logger log.Logger
	runID  string
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the base logger. Component loggers derive from it.
func WithLogger(l log.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// NewRunner creates a Runner with a fresh run id.
func NewRunner(cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{cfg: cfg, runID: uuid.NewString()}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.GetLoggerWithName("pipeline")
	}
	r.logger = r.logger.With(log.RunIDKey, r.runID)
	return r
}

// RunID identifies the run in every record the Runner logs.
func (r *Runner) RunID() string { return r.runID }

// NewFactory returns a constructor for the regressor family selected in cfg.
func NewFactory(cfg config.ModelConfig) (model.Factory, error) {
	switch cfg.Kind {
	case config.ModelRidge:
		rc := cfg.Ridge
		return func() model.Regressor {
			return linear.NewRidge(
				linear.WithAlpha(rc.Alpha),
				linear.WithFitIntercept(rc.FitIntercept),
				linear.WithStandardize(rc.Standardize),
			)
		}, nil
	case config.ModelRandomForest:
		fc := cfg.Forest
		return func() model.Regressor {
			return ensemble.NewRandomForestRegressor(
				ensemble.WithNEstimators(fc.NEstimators),
				ensemble.WithRandomState(fc.RandomState),
				ensemble.WithBootstrap(fc.Bootstrap),
				ensemble.WithNJobs(fc.NJobs),
				ensemble.WithTreeOptions(
					ensemble.WithMaxDepth(fc.MaxDepth),
					ensemble.WithMinSamplesSplit(fc.MinSamplesSplit),
					ensemble.WithMinSamplesLeaf(fc.MinSamplesLeaf),
					ensemble.WithMaxFeatures(fc.MaxFeatures),
				),
			)
		}, nil
	default:
		return nil, errors.NewValidationError("model.kind", "must be ridge or random_forest", cfg.Kind)
	}
}

// LoadTable reads a CSV file, or the configured table of a SQLite database
// when path has a SQLite extension.
func LoadTable(ctx context.Context, path, sqliteTable string) (*dataset.Table, error) {
	if !config.IsSQLite(path) {
		return dataset.ReadCSVFile(path)
	}
	src, err := dataset.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return src.ReadTable(ctx, sqliteTable)
}

// TrainOutput is the result of Runner.Train.
type TrainOutput struct {
	Dataset *dataset.Dataset
	Result  *training.Result
	Model   *predict.Model
	// Path is where the artifact was saved; empty when saving was skipped.
	Path string
}

// Train builds the training set, cross-validates the configured regressor,
// fits the final model and saves the artifact to cfg.Model.Path.
func (r *Runner) Train(ctx context.Context) (*TrainOutput, error) {
	start := time.Now()

	table, err := LoadTable(ctx, r.cfg.Data.Train, r.cfg.Data.SQLiteTable)
	if err != nil {
		return nil, errors.Wrap(err, "load training table")
	}
	ds, err := dataset.NewBuilder(dataset.WithLogger(r.component("dataset"))).Build(table)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	factory, err := NewFactory(r.cfg.Model)
	if err != nil {
		return nil, err
	}
	trainer := training.NewTrainer(factory,
		training.WithShuffle(r.cfg.CV.Shuffle),
		training.WithSeed(r.cfg.CV.Seed),
		training.WithParallelFolds(r.cfg.CV.Parallel),
		training.WithLogger(r.component("training")),
	)
	res, err := trainer.Train(ds.X(), ds.Y(), r.cfg.CV.Folds)
	if err != nil {
		return nil, err
	}

	m, err := predict.NewModel(res.Final, ds.Vocabulary(), dataset.FeatureColumns, res.Summary())
	if err != nil {
		return nil, err
	}
	out := &TrainOutput{Dataset: ds, Result: res, Model: m}
	if r.cfg.Model.Path != "" {
		if err := m.Save(r.cfg.Model.Path); err != nil {
			return nil, err
		}
		out.Path = r.cfg.Model.Path
	}

	r.logger.Info("model trained",
		log.OperationKey, log.OperationFit,
		log.ModelIDKey, m.ID,
		log.ModelNameKey, m.Regressor.Name(),
		log.SamplesKey, ds.Len(),
		log.VocabularySizeKey, ds.Vocabulary().Len(),
		log.VocabularyFingerprintKey, ds.Vocabulary().ShortFingerprint(),
		log.R2ScoreKey, res.MeanR2,
		log.MAEKey, res.MeanMAE,
		log.SourceKey, r.cfg.Model.Path,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return out, nil
}

// EvaluateOutput is the result of Runner.Evaluate.
type EvaluateOutput struct {
	Dataset     *dataset.Dataset
	Predictions mat.Matrix
	Report      *evaluate.Report
	// PlotPath is empty when no plot was written.
	PlotPath string
}

// Evaluate scores m on the test table. The table is projected onto the
// model's vocabulary, so a formula with an unknown element fails the run.
// When cfg.Plot.Output is set the selected elements are plotted.
func (r *Runner) Evaluate(ctx context.Context, m *predict.Model) (*EvaluateOutput, error) {
	table, err := LoadTable(ctx, r.cfg.Data.Test, r.cfg.Data.SQLiteTable)
	if err != nil {
		return nil, errors.Wrap(err, "load test table")
	}
	ds, err := dataset.NewBuilder(
		dataset.WithVocabulary(m.Vocabulary),
		dataset.WithLogger(r.component("dataset")),
	).Build(table)
	if err != nil {
		return nil, err
	}

	p, err := r.newPredictor(m)
	if err != nil {
		return nil, err
	}
	pred, err := p.PredictMatrix(ds.X())
	if err != nil {
		return nil, err
	}
	rep, err := evaluate.Evaluate(ds.Y(), pred, m.Vocabulary)
	if err != nil {
		return nil, err
	}
	rep.LogTo(r.component("evaluate"))

	out := &EvaluateOutput{Dataset: ds, Predictions: pred, Report: rep}
	if r.cfg.Plot.Output != "" {
		symbols := r.plotSymbols(m.Vocabulary)
		if err := viz.ActualVsPredicted(r.cfg.Plot.Output, ds.Y(), pred, m.Vocabulary, symbols...); err != nil {
			return nil, err
		}
		out.PlotPath = r.cfg.Plot.Output
	}
	return out, nil
}

// Prediction pairs an input record with its reconstructed formula.
type Prediction struct {
	Record  dataset.PropertyRecord
	Formula string
	Vector  composition.Vector
}

// Predict reconstructs a formula for each record.
func (r *Runner) Predict(m *predict.Model, records ...dataset.PropertyRecord) ([]Prediction, error) {
	p, err := r.newPredictor(m)
	if err != nil {
		return nil, err
	}
	out := make([]Prediction, len(records))
	for i, rec := range records {
		formula, v, err := p.PredictFormula(rec)
		if err != nil {
			return nil, errors.Wrapf(err, "record %d", i)
		}
		out[i] = Prediction{Record: rec, Formula: formula, Vector: v}
	}
	return out, nil
}

func (r *Runner) newPredictor(m *predict.Model) (*predict.Predictor, error) {
	return predict.NewPredictor(m,
		predict.WithThreshold(r.cfg.Reconstruct.Threshold),
		predict.WithLogger(r.component("predict")),
	)
}

// plotSymbols keeps the configured elements the vocabulary knows.
func (r *Runner) plotSymbols(vocab *composition.Vocabulary) []string {
	var symbols []string
	for _, s := range r.cfg.Plot.Elements {
		if _, ok := vocab.Index(s); !ok {
			r.logger.Warn("plot element not in vocabulary", log.ElementKey, s)
			continue
		}
		symbols = append(symbols, s)
	}
	if len(symbols) == 0 {
		return vocab.Symbols
	}
	return symbols
}

func (r *Runner) component(name string) log.Logger {
	return r.logger.With(log.ComponentKey, name)
}
