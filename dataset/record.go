// Package dataset turns property tables into aligned feature and target
// matrices.
package dataset

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/ceramigo/pkg/errors"
)

// Column names of the input table.
const (
	ColFormula      = "Formula"
	ColBulkModulus  = "Bulk Modulus"
	ColShearModulus = "Shear Modulus"
	ColTm           = "Tm"
)

// FeatureColumns is the fixed feature order of X.
var FeatureColumns = []string{ColBulkModulus, ColShearModulus, ColTm}

// RequiredColumns lists the columns a training table must have.
func RequiredColumns() []string {
	return []string{ColFormula, ColBulkModulus, ColShearModulus, ColTm}
}

// PropertyRecord holds the three measured properties of one material.
type PropertyRecord struct {
	BulkModulus  float64
	ShearModulus float64
	Tm           float64
}

// Features returns the record in FeatureColumns order.
func (p PropertyRecord) Features() []float64 {
	return []float64{p.BulkModulus, p.ShearModulus, p.Tm}
}

// Validate rejects NaN and infinite properties.
func (p PropertyRecord) Validate() error {
	for i, v := range p.Features() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.NewValidationError(FeatureColumns[i], "must be a finite number", v)
		}
	}
	return nil
}

// RecordFromMap builds a record from named properties. The key set must be
// exactly FeatureColumns.
func RecordFromMap(m map[string]float64) (PropertyRecord, error) {
	got := make([]string, 0, len(m))
	for k := range m {
		got = append(got, k)
	}
	sort.Strings(got)

	if len(m) != len(FeatureColumns) {
		return PropertyRecord{}, errors.NewSchemaError("RecordFromMap", "feature names do not match", FeatureColumns, got)
	}
	for _, c := range FeatureColumns {
		if _, ok := m[c]; !ok {
			return PropertyRecord{}, errors.NewSchemaError("RecordFromMap", "feature names do not match", FeatureColumns, got)
		}
	}

	rec := PropertyRecord{
		BulkModulus:  m[ColBulkModulus],
		ShearModulus: m[ColShearModulus],
		Tm:           m[ColTm],
	}
	return rec, rec.Validate()
}
