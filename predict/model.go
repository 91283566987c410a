// Package predict holds the trained model artifact and turns measured
// properties into element counts and formula strings.
package predict

import (
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ceramigo/composition"
	"github.com/YuminosukeSato/ceramigo/core/model"
	"github.com/YuminosukeSato/ceramigo/dataset"
	"github.com/YuminosukeSato/ceramigo/pkg/errors"
	"github.com/YuminosukeSato/ceramigo/training"

	// gob needs the concrete regressor types registered before decoding.
	_ "github.com/YuminosukeSato/ceramigo/ensemble"
	_ "github.com/YuminosukeSato/ceramigo/linear"
)

// Model is a fitted regressor bundled with the vocabulary that defines its
// output columns and the feature names of its input. It is saved and loaded
// as a unit. Fields are exported for gob; a Model is never modified after
// NewModel.
type Model struct {
	ID        string
	CreatedAt time.Time

	Regressor  model.Regressor
	Vocabulary *composition.Vocabulary
	Features   []string

	CV training.Summary
}

// NewModel bundles a fitted regressor with its vocabulary and feature names.
func NewModel(reg model.Regressor, vocab *composition.Vocabulary, features []string, cv training.Summary) (*Model, error) {
	m := &Model{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now().UTC(),
		Regressor:  reg,
		Vocabulary: vocab,
		Features:   slices.Clone(features),
		CV:         cv,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks that the artifact is usable for inference: the
// vocabulary is intact, the features are the fixed property columns and the
// regressor produces one output per vocabulary element.
func (m *Model) Validate() error {
	const op = "Model.Validate"

	if err := m.Vocabulary.Verify(); err != nil {
		return err
	}
	if !slices.Equal(m.Features, dataset.FeatureColumns) {
		return errors.NewSchemaError(op, "feature names do not match", dataset.FeatureColumns, m.Features)
	}
	if m.Regressor == nil {
		return errors.NewSchemaError(op, "artifact has no regressor", nil, nil)
	}
	if !m.Regressor.IsFitted() {
		return errors.NewNotFittedError(m.Regressor.Name(), "Predict")
	}

	probe, err := m.Regressor.Predict(mat.NewDense(1, len(m.Features), nil))
	if err != nil {
		return errors.Wrap(err, op)
	}
	if _, k := probe.Dims(); k != m.Vocabulary.Len() {
		return errors.NewSchemaError(op, "regressor output width differs from vocabulary",
			m.Vocabulary.Symbols, []string{"outputs=" + strconv.Itoa(k)})
	}
	return nil
}

// Save writes the artifact to path.
func (m *Model) Save(path string) error {
	return model.SaveModel(m, path)
}

// WriteTo encodes the artifact to w.
func (m *Model) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	err := model.SaveModelToWriter(m, cw)
	return cw.n, err
}

// Load reads and validates an artifact written by Save.
func Load(path string) (*Model, error) {
	var m Model
	if err := model.LoadModel(&m, path); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// ReadModel decodes and validates an artifact written by WriteTo.
func ReadModel(r io.Reader) (*Model, error) {
	var m Model
	if err := model.LoadModelFromReader(&m, r); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
