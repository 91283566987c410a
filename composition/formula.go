// Package composition converts between chemical formula strings and
// per-element count vectors over a fixed element vocabulary.
package composition

import (
	"math"
	"regexp"
	"sort"
	"strconv"

	"github.com/YuminosukeSato/ceramigo/pkg/errors"
)

// element symbol followed by an optional decimal count
var formulaPattern = regexp.MustCompile(`([A-Z][a-z]*)(\d*\.?\d*)`)

// Composition maps element symbols to stoichiometric counts.
type Composition map[string]float64

// Symbols returns the element symbols in lexicographic order.
func (c Composition) Symbols() []string {
	symbols := make([]string, 0, len(c))
	for s := range c {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}

// ParseFormula extracts element counts from s. A missing count means 1, as
// does a bare "." count. When a symbol repeats, the last occurrence wins.
// Text that contains no element token yields an empty Composition.
//
//	ParseFormula("B2O3")    // {B: 2, O: 3}
//	ParseFormula("Ti0.5Zr") // {Ti: 0.5, Zr: 1}
func ParseFormula(s string) Composition {
	c, _ := parse(s)
	return c
}

// ParseFormulaStrict behaves like ParseFormula but also reports a ParseError
// when no element was found or a count does not fit a float64. The returned
// Composition is the same one ParseFormula would return.
func ParseFormulaStrict(s string) (Composition, error) {
	return parse(s)
}

func parse(s string) (Composition, error) {
	c := Composition{}
	var firstErr error

	for _, m := range formulaPattern.FindAllStringSubmatch(s, -1) {
		symbol, raw := m[1], m[2]
		count := 1.0
		if raw != "" && raw != "." {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil || math.IsInf(v, 0) {
				if firstErr == nil {
					firstErr = errors.NewParseError(s, "count "+strconv.Quote(raw)+" for "+symbol+" is not a finite number")
				}
				continue
			}
			count = v
		}
		c[symbol] = count
	}

	if len(c) == 0 && firstErr == nil {
		firstErr = errors.NewParseError(s, "no element symbol found")
	}
	return c, firstErr
}
