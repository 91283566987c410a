package composition

import (
	"slices"

	"github.com/YuminosukeSato/ceramigo/pkg/errors"
)

// Vector holds one continuous count per vocabulary element, in vocabulary
// order.
type Vector struct {
	vocab  *Vocabulary
	values []float64
}

// NewVector binds values to vocab. The lengths must agree.
func NewVector(vocab *Vocabulary, values []float64) (Vector, error) {
	if len(values) != vocab.Len() {
		return Vector{}, errors.NewDataSizeError("NewVector", "vector length", vocab.Len(), len(values))
	}
	return Vector{vocab: vocab, values: slices.Clone(values)}, nil
}

// Vocabulary returns the vocabulary indexing v.
func (v Vector) Vocabulary() *Vocabulary { return v.vocab }

// Len returns the number of entries.
func (v Vector) Len() int { return len(v.values) }

// At returns the i-th entry.
func (v Vector) At(i int) float64 { return v.values[i] }

// Values returns a copy of the entries.
func (v Vector) Values() []float64 { return slices.Clone(v.values) }

// Value returns the entry for symbol.
func (v Vector) Value(symbol string) (float64, bool) {
	i, ok := v.vocab.Index(symbol)
	if !ok {
		return 0, false
	}
	return v.values[i], true
}

// Composition returns the non-zero entries as a sparse Composition.
func (v Vector) Composition() Composition {
	c := Composition{}
	for i, x := range v.values {
		if x != 0 {
			c[v.vocab.Symbols[i]] = x
		}
	}
	return c
}
