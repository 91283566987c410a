package model

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ceramigo/pkg/errors"
)

func TestStateManager(t *testing.T) {
	s := NewStateManager()
	assert.False(t, s.IsFitted())

	err := s.RequireFitted("Ridge", "Predict")
	var notFitted *errors.NotFittedError
	require.True(t, errors.As(err, &notFitted))

	s.SetFitted(3, 5, 40)
	require.NoError(t, s.RequireFitted("Ridge", "Predict"))
	f, o := s.Dimensions()
	assert.Equal(t, 3, f)
	assert.Equal(t, 5, o)

	assert.NoError(t, s.CheckInput("Predict", mat.NewDense(2, 3, nil)))
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(s.CheckInput("Predict", mat.NewDense(2, 4, nil)), &dimErr))

	s.Reset()
	assert.False(t, s.IsFitted())
}

type persisted struct {
	State   *StateManager
	Weights []float64
	Labels  []string
}

func TestSaveLoadRoundTrip(t *testing.T) {
	in := persisted{State: NewStateManager(), Weights: []float64{0.5, -1.25}, Labels: []string{"Si", "C"}}
	in.State.SetFitted(3, 2, 10)

	path := filepath.Join(t.TempDir(), "model.gob")
	require.NoError(t, SaveModel(&in, path))

	var out persisted
	require.NoError(t, LoadModel(&out, path))
	assert.Equal(t, in.Weights, out.Weights)
	assert.Equal(t, in.Labels, out.Labels)
	assert.True(t, out.State.IsFitted())
	assert.Equal(t, 2, out.State.NOutputs)
}

func TestLoadModelErrors(t *testing.T) {
	var out persisted
	assert.Error(t, LoadModel(&out, filepath.Join(t.TempDir(), "missing.gob")))
	assert.Error(t, LoadModelFromReader(&out, bytes.NewBufferString("not gob")))
}
