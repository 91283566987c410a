package predict

import (
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ceramigo/composition"
	"github.com/YuminosukeSato/ceramigo/dataset"
	"github.com/YuminosukeSato/ceramigo/pkg/errors"
	"github.com/YuminosukeSato/ceramigo/pkg/log"
)

// Predictor runs inference with a validated Model.
type Predictor struct {
	model         *Model
	reconstructor composition.Reconstructor
	logger        log.Logger
}

// Option configures a Predictor.
type Option func(*Predictor)

// WithThreshold sets the inclusion threshold used by PredictFormula.
func WithThreshold(threshold float64) Option {
	return func(p *Predictor) { p.reconstructor.Threshold = threshold }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(p *Predictor) { p.logger = l }
}

// NewPredictor validates m and returns a Predictor for it.
//
//	m, err := predict.Load("model.gob")
//	p, err := predict.NewPredictor(m)
//	formula, _, err := p.PredictFormula(dataset.PropertyRecord{BulkModulus: 150, ShearModulus: 80, Tm: 1800})
func NewPredictor(m *Model, opts ...Option) (*Predictor, error) {
	if m == nil {
		return nil, errors.NewValueError("NewPredictor", "model is nil")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	p := &Predictor{model: m, reconstructor: composition.NewReconstructor()}
	for _, opt := range opts {
		opt(p)
	}
	if p.reconstructor.Threshold < 0 {
		return nil, errors.NewValidationError("threshold", "must be non-negative", p.reconstructor.Threshold)
	}
	if p.logger == nil {
		p.logger = log.GetLoggerWithName("predict")
	}
	p.logger = p.logger.With(
		log.ModelIDKey, m.ID,
		log.ModelNameKey, m.Regressor.Name(),
		log.VocabularyFingerprintKey, m.Vocabulary.ShortFingerprint(),
	)
	return p, nil
}

// Model returns the artifact used for inference.
func (p *Predictor) Model() *Model { return p.model }

// Vocabulary returns the output vocabulary.
func (p *Predictor) Vocabulary() *composition.Vocabulary { return p.model.Vocabulary }

// Threshold returns the inclusion threshold of PredictFormula.
func (p *Predictor) Threshold() float64 { return p.reconstructor.Threshold }

// PredictMatrix predicts an n×|V| matrix of counts for n rows of features.
// X must have one column per feature.
func (p *Predictor) PredictMatrix(X mat.Matrix) (mat.Matrix, error) {
	const op = "Predictor.PredictMatrix"

	n, f := X.Dims()
	if f != len(p.model.Features) {
		got := make([]string, f)
		for i := range got {
			got[i] = "column " + strconv.Itoa(i)
		}
		return nil, errors.NewSchemaError(op, "feature count does not match", p.model.Features, got)
	}
	if n == 0 {
		return nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}

	pred, err := p.model.Regressor.Predict(X)
	if err != nil {
		return nil, err
	}
	r, c := pred.Dims()
	if err := errors.CheckMatrix(op, pred, r, c); err != nil {
		p.logger.Error("prediction is not finite", err)
		return nil, err
	}

	p.logger.Debug("predicted",
		log.OperationKey, log.OperationPredict,
		log.PhaseKey, log.PhaseInference,
		log.PredsKey, n,
	)
	return pred, nil
}

// Predict returns one composition vector per record, in record order.
func (p *Predictor) Predict(records ...dataset.PropertyRecord) ([]composition.Vector, error) {
	if len(records) == 0 {
		return nil, errors.NewModelError("Predictor.Predict", "empty data", errors.ErrEmptyData)
	}
	X := mat.NewDense(len(records), len(p.model.Features), nil)
	for i, rec := range records {
		if err := rec.Validate(); err != nil {
			return nil, errors.Wrapf(err, "record %d", i)
		}
		X.SetRow(i, rec.Features())
	}

	pred, err := p.PredictMatrix(X)
	if err != nil {
		return nil, err
	}
	out := make([]composition.Vector, len(records))
	for i := range records {
		v, err := composition.NewVector(p.model.Vocabulary, mat.Row(nil, i, pred))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// PredictNamed predicts from properties keyed by feature name. The key set
// must equal the model's feature set.
func (p *Predictor) PredictNamed(props map[string]float64) (composition.Vector, error) {
	rec, err := dataset.RecordFromMap(props)
	if err != nil {
		return composition.Vector{}, err
	}
	vs, err := p.Predict(rec)
	if err != nil {
		return composition.Vector{}, err
	}
	return vs[0], nil
}

// PredictFormula predicts the counts of rec and reconstructs a formula.
func (p *Predictor) PredictFormula(rec dataset.PropertyRecord) (string, composition.Vector, error) {
	vs, err := p.Predict(rec)
	if err != nil {
		return "", composition.Vector{}, err
	}
	formula := p.reconstructor.Formula(vs[0])

	p.logger.Info("formula reconstructed",
		log.OperationKey, log.OperationReconstruct,
		log.FormulaKey, formula,
		log.ThresholdKey, p.reconstructor.Threshold,
	)
	return formula, vs[0], nil
}
