package predict

import (
	"bytes"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ceramigo/composition"
	"github.com/YuminosukeSato/ceramigo/dataset"
	"github.com/YuminosukeSato/ceramigo/linear"
	"github.com/YuminosukeSato/ceramigo/pkg/errors"
	"github.com/YuminosukeSato/ceramigo/pkg/log"
	"github.com/YuminosukeSato/ceramigo/training"
)

var exampleRecord = dataset.PropertyRecord{BulkModulus: 150, ShearModulus: 80, Tm: 1800}

// fittedModel returns a ridge model over [B C N O] that predicts
// [2.03, 0.02, 0, 2.97] for exampleRecord.
func fittedModel(t *testing.T) *Model {
	t.Helper()

	props := [][]float64{
		{150, 80, 1800},
		{120, 60, 1500},
		{200, 95, 2100},
		{90, 40, 1700},
		{170, 70, 2500},
		{130, 100, 1900},
		{210, 50, 1600},
	}
	X := mat.NewDense(len(props), 3, nil)
	Y := mat.NewDense(len(props), 4, nil)
	for i, p := range props {
		X.SetRow(i, p)
		Y.SetRow(i, []float64{
			2.03 + 0.01*(p[0]-150),
			0.02,
			0,
			2.97 + 0.001*(p[2]-1800),
		})
	}

	reg := linear.NewRidge(linear.WithAlpha(1e-10))
	require.NoError(t, reg.Fit(X, Y))

	vocab, err := composition.NewVocabulary([]string{"B", "C", "N", "O"})
	require.NoError(t, err)

	m, err := NewModel(reg, vocab, dataset.FeatureColumns, training.Summary{ModelName: reg.Name(), Folds: 5})
	require.NoError(t, err)
	return m
}

func newTestPredictor(t *testing.T, m *Model, opts ...Option) (*Predictor, *log.TestLogger) {
	t.Helper()
	logger, _ := log.NewTestLogger(log.LevelDebug)
	p, err := NewPredictor(m, append(opts, WithLogger(logger))...)
	require.NoError(t, err)
	return p, logger
}

func TestPredictFormula(t *testing.T) {
	p, logger := newTestPredictor(t, fittedModel(t))

	formula, v, err := p.PredictFormula(exampleRecord)
	require.NoError(t, err)
	assert.Equal(t, "B2O3", formula)
	assert.InDeltaSlice(t, []float64{2.03, 0.02, 0, 2.97}, v.Values(), 1e-6)
	assert.True(t, logger.ContainsField(log.FormulaKey, "B2O3"))
}

func TestPredictBatchKeepsOrder(t *testing.T) {
	p, _ := newTestPredictor(t, fittedModel(t))

	second := dataset.PropertyRecord{BulkModulus: 200, ShearModulus: 80, Tm: 1800}
	vs, err := p.Predict(exampleRecord, second)
	require.NoError(t, err)
	require.Len(t, vs, 2)

	b0, _ := vs[0].Value("B")
	b1, _ := vs[1].Value("B")
	assert.InDelta(t, 2.03, b0, 1e-6)
	assert.InDelta(t, 2.53, b1, 1e-6)
}

func TestPredictNamed(t *testing.T) {
	p, _ := newTestPredictor(t, fittedModel(t))

	v, err := p.PredictNamed(map[string]float64{
		"Bulk Modulus":  150,
		"Shear Modulus": 80,
		"Tm":            1800,
	})
	require.NoError(t, err)
	o, ok := v.Value("O")
	require.True(t, ok)
	assert.InDelta(t, 2.97, o, 1e-6)

	_, err = p.PredictNamed(map[string]float64{
		"Bulk Modulus": 150,
		"Density":      3.2,
		"Tm":           1800,
	})
	var schemaErr *errors.SchemaError
	assert.True(t, errors.As(err, &schemaErr))
}

func TestPredictInputErrors(t *testing.T) {
	p, _ := newTestPredictor(t, fittedModel(t))

	_, err := p.PredictMatrix(mat.NewDense(2, 2, nil))
	var schemaErr *errors.SchemaError
	assert.True(t, errors.As(err, &schemaErr))

	_, err = p.Predict(dataset.PropertyRecord{BulkModulus: math.NaN(), ShearModulus: 1, Tm: 1})
	var validationErr *errors.ValidationError
	assert.True(t, errors.As(err, &validationErr))

	_, err = p.Predict()
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}

func TestThresholdOption(t *testing.T) {
	p, _ := newTestPredictor(t, fittedModel(t), WithThreshold(0.01))

	formula, _, err := p.PredictFormula(exampleRecord)
	require.NoError(t, err)
	// C passes the lower threshold but rounds to zero.
	assert.Equal(t, "B2O3", formula)
	assert.Equal(t, 0.01, p.Threshold())

	_, err = NewPredictor(fittedModel(t), WithThreshold(-1))
	assert.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	m := fittedModel(t)
	path := filepath.Join(t.TempDir(), "model.gob")
	require.NoError(t, m.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, m.ID, loaded.ID)
	assert.True(t, m.Vocabulary.Equal(loaded.Vocabulary))
	assert.Equal(t, m.Features, loaded.Features)
	assert.Equal(t, 5, loaded.CV.Folds)
	assert.True(t, m.CreatedAt.Equal(loaded.CreatedAt))

	p1, _ := newTestPredictor(t, m)
	p2, _ := newTestPredictor(t, loaded)
	f1, v1, err := p1.PredictFormula(exampleRecord)
	require.NoError(t, err)
	f2, v2, err := p2.PredictFormula(exampleRecord)
	require.NoError(t, err)
	assert.Equal(t, f1, f2)
	assert.Equal(t, v1.Values(), v2.Values())
}

func TestWriteToReadModel(t *testing.T) {
	m := fittedModel(t)

	var buf bytes.Buffer
	n, err := m.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	loaded, err := ReadModel(&buf)
	require.NoError(t, err)
	assert.Equal(t, m.ID, loaded.ID)
}

func TestLoadRejectsAlteredVocabulary(t *testing.T) {
	m := fittedModel(t)

	altered := *m
	vocab := *m.Vocabulary
	vocab.Symbols = []string{"B", "C", "N", "Si"}
	altered.Vocabulary = &vocab

	var buf bytes.Buffer
	_, err := altered.WriteTo(&buf)
	require.NoError(t, err)

	_, err = ReadModel(&buf)
	var schemaErr *errors.SchemaError
	assert.True(t, errors.As(err, &schemaErr))
}

func TestNewModelValidation(t *testing.T) {
	m := fittedModel(t)

	t.Run("output width", func(t *testing.T) {
		vocab, err := composition.NewVocabulary([]string{"B", "N", "O"})
		require.NoError(t, err)
		_, err = NewModel(m.Regressor, vocab, dataset.FeatureColumns, training.Summary{})
		var schemaErr *errors.SchemaError
		assert.True(t, errors.As(err, &schemaErr))
	})

	t.Run("features", func(t *testing.T) {
		_, err := NewModel(m.Regressor, m.Vocabulary, []string{"Tm", "Bulk Modulus", "Shear Modulus"}, training.Summary{})
		var schemaErr *errors.SchemaError
		assert.True(t, errors.As(err, &schemaErr))
	})

	t.Run("not fitted", func(t *testing.T) {
		_, err := NewModel(linear.NewRidge(), m.Vocabulary, dataset.FeatureColumns, training.Summary{})
		var notFitted *errors.NotFittedError
		assert.True(t, errors.As(err, &notFitted))
	})

	t.Run("empty vocabulary", func(t *testing.T) {
		_, err := NewModel(m.Regressor, &composition.Vocabulary{}, dataset.FeatureColumns, training.Summary{})
		var schemaErr *errors.SchemaError
		assert.True(t, errors.As(err, &schemaErr))
	})
}

// nanRegressor predicts NaN for every cell.
type nanRegressor struct{ outputs int }

func (n *nanRegressor) Fit(_, _ mat.Matrix) error { return nil }
func (n *nanRegressor) IsFitted() bool            { return true }
func (n *nanRegressor) Name() string              { return "nan" }
func (n *nanRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, _ := X.Dims()
	out := mat.NewDense(r, n.outputs, nil)
	out.Apply(func(_, _ int, _ float64) float64 { return math.NaN() }, out)
	return out, nil
}

func TestPredictNonFinite(t *testing.T) {
	vocab, err := composition.NewVocabulary([]string{"B", "O"})
	require.NoError(t, err)
	m, err := NewModel(&nanRegressor{outputs: 2}, vocab, dataset.FeatureColumns, training.Summary{})
	require.NoError(t, err)

	p, logger := newTestPredictor(t, m)
	_, _, err = p.PredictFormula(exampleRecord)
	var instability *errors.NumericalInstabilityError
	assert.True(t, errors.As(err, &instability))
	assert.True(t, logger.ContainsMessage("prediction is not finite"))
}
