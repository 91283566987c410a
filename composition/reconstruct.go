package composition

import (
	"math"
	"strconv"
	"strings"
)

// DefaultThreshold is the minimum predicted count for an element to appear
// in a reconstructed formula. The comparison is strict.
const DefaultThreshold = 0.05

// ElementCount is one term of a reconstructed formula. Count is a whole
// number kept as float64 so that counts beyond the int range survive.
type ElementCount struct {
	Symbol string
	Count  float64
}

// Reconstructor turns a continuous prediction into a formula string.
type Reconstructor struct {
	Threshold float64
}

// NewReconstructor returns a Reconstructor with the default threshold.
func NewReconstructor() Reconstructor {
	return Reconstructor{Threshold: DefaultThreshold}
}

// Counts keeps entries greater than the threshold, rounds them half to even
// and drops those that round to zero. Order follows the vocabulary.
func (r Reconstructor) Counts(v Vector) []ElementCount {
	var counts []ElementCount
	for i, x := range v.values {
		if !(x > r.Threshold) {
			continue
		}
		n := math.RoundToEven(x)
		if n < 1 {
			continue
		}
		counts = append(counts, ElementCount{Symbol: v.vocab.Symbols[i], Count: n})
	}
	return counts
}

// Formula reconstructs the formula string of v.
//
//	vocab [B C N O], values [2.03 0.02 0 2.97] -> "B2O3"
func (r Reconstructor) Formula(v Vector) string {
	return FormatCounts(r.Counts(v))
}

// FormatCounts writes the symbol alone for a count of one and the symbol
// followed by the count otherwise. No reduction or reordering is applied.
func FormatCounts(counts []ElementCount) string {
	var b strings.Builder
	for _, c := range counts {
		b.WriteString(c.Symbol)
		if c.Count != 1 {
			b.WriteString(strconv.FormatFloat(c.Count, 'f', 0, 64))
		}
	}
	return b.String()
}
