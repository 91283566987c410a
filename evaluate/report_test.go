package evaluate

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ceramigo/composition"
	"github.com/YuminosukeSato/ceramigo/pkg/errors"
	"github.com/YuminosukeSato/ceramigo/pkg/log"
)

func vocabBCNO(t *testing.T) *composition.Vocabulary {
	t.Helper()
	v, err := composition.NewVocabulary([]string{"B", "C", "N", "O"})
	require.NoError(t, err)
	return v
}

// captureWarnings routes errors.Warn to a slice for the duration of the test.
func captureWarnings(t *testing.T) *[]error {
	t.Helper()
	var got []error
	errors.SetZerologWarnFunc(nil)
	errors.SetWarningHandler(func(w error) { got = append(got, w) })
	t.Cleanup(func() { errors.SetWarningHandler(func(error) {}) })
	return &got
}

func TestEvaluatePerElement(t *testing.T) {
	warnings := captureWarnings(t)

	// C is constant in the ground truth.
	yTrue := mat.NewDense(4, 4, []float64{
		2, 0, 0, 3,
		1, 0, 1, 0,
		0, 0, 1, 1,
		4, 0, 0, 2,
	})
	yPred := mat.NewDense(4, 4, []float64{
		2, 0.1, 0, 3,
		1, 0.1, 1, 0,
		0, 0.1, 1, 1,
		4, 0.1, 0, 2,
	})

	rep, err := Evaluate(yTrue, yPred, vocabBCNO(t))
	require.NoError(t, err)
	require.Len(t, rep.Elements, 4)
	assert.Equal(t, 4, rep.Samples)

	b, ok := rep.Element("B")
	require.True(t, ok)
	assert.InDelta(t, 1.0, b.R2, 1e-12)
	assert.InDelta(t, 0.0, b.MAE, 1e-12)

	c, ok := rep.Element("C")
	require.True(t, ok)
	assert.True(t, math.IsNaN(c.R2))
	assert.True(t, c.Degenerate)
	assert.InDelta(t, 0.1, c.MAE, 1e-12)

	assert.Equal(t, []string{"C"}, rep.Degenerate())
	assert.InDelta(t, 1.0, rep.MeanR2, 1e-12)
	assert.InDelta(t, 0.025, rep.MeanMAE, 1e-12)

	require.Len(t, *warnings, 1)
	var w *errors.DegenerateMetricWarning
	require.True(t, errors.As((*warnings)[0], &w))
	assert.Equal(t, "C", w.Column)
}

func TestEvaluateAllDegenerate(t *testing.T) {
	captureWarnings(t)

	y := mat.NewDense(3, 4, []float64{
		1, 0, 0, 2,
		1, 0, 0, 2,
		1, 0, 0, 2,
	})
	rep, err := Evaluate(y, y, vocabBCNO(t))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(rep.MeanR2))
	assert.Equal(t, 0.0, rep.MeanMAE)
	assert.Len(t, rep.Degenerate(), 4)
}

func TestEvaluateErrors(t *testing.T) {
	vocab := vocabBCNO(t)

	_, err := Evaluate(mat.NewDense(3, 4, nil), mat.NewDense(2, 4, nil), vocab)
	var sizeErr *errors.DataSizeError
	assert.True(t, errors.As(err, &sizeErr))

	_, err = Evaluate(mat.NewDense(3, 4, nil), mat.NewDense(3, 3, nil), vocab)
	assert.True(t, errors.As(err, &sizeErr))

	_, err = Evaluate(mat.NewDense(3, 3, nil), mat.NewDense(3, 3, nil), vocab)
	var schemaErr *errors.SchemaError
	assert.True(t, errors.As(err, &schemaErr))
}

func TestSelectAndWriteText(t *testing.T) {
	rep := &Report{Elements: []ElementScore{
		{Symbol: "B", R2: 0.934, MAE: 0.1204},
		{Symbol: "Si", R2: -0.5, MAE: 1.25},
		{Symbol: "O", R2: math.NaN(), MAE: 0, Degenerate: true},
	}}

	sel := rep.Select("O", "B", "Hf")
	require.Len(t, sel, 2)
	assert.Equal(t, "O", sel[0].Symbol)
	assert.Equal(t, "B", sel[1].Symbol)

	var buf bytes.Buffer
	require.NoError(t, rep.WriteText(&buf))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, []string{
		" B: R² =  0.93, MAE =  0.120",
		"Si: R² = -0.50, MAE =  1.250",
		" O: R² =   NaN, MAE =  0.000",
	}, lines)
}

func TestLogTo(t *testing.T) {
	rep := &Report{Elements: []ElementScore{{Symbol: "B", R2: 0.5, MAE: 0.25}}}
	logger, _ := log.NewTestLogger(log.LevelInfo)

	rep.LogTo(logger)
	assert.True(t, logger.ContainsField(log.ElementKey, "B"))
	assert.True(t, logger.ContainsField(log.MAEKey, 0.25))
}
