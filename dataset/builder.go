package dataset

import (
	"math"
	"slices"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ceramigo/composition"
	"github.com/YuminosukeSato/ceramigo/pkg/errors"
	"github.com/YuminosukeSato/ceramigo/pkg/log"
)

// Diagnostics reports the soft failures met while building. Row numbers are
// zero-based indices into Table.Rows.
type Diagnostics struct {
	TotalRows     int
	KeptRows      []int
	DroppedRows   []int
	EmptyFormulas []int
}

// Dataset holds row-aligned features and targets. Matrices returned by the
// accessors are shared and must not be modified.
type Dataset struct {
	x, y       *mat.Dense
	vocab      *composition.Vocabulary
	formulas   []string
	sourceRows []int
	diag       Diagnostics
}

// X returns the n×3 feature matrix in FeatureColumns order.
func (d *Dataset) X() mat.Matrix { return d.x }

// Y returns the n×|V| target matrix in vocabulary order.
func (d *Dataset) Y() mat.Matrix { return d.y }

// Len returns the number of kept rows.
func (d *Dataset) Len() int {
	r, _ := d.x.Dims()
	return r
}

// Vocabulary returns the element vocabulary of Y.
func (d *Dataset) Vocabulary() *composition.Vocabulary { return d.vocab }

// Formula returns the original formula string of kept row i.
func (d *Dataset) Formula(i int) string { return d.formulas[i] }

// SourceRow returns the table row that kept row i came from.
func (d *Dataset) SourceRow(i int) int { return d.sourceRows[i] }

// Record returns the properties of kept row i.
func (d *Dataset) Record(i int) PropertyRecord {
	return PropertyRecord{BulkModulus: d.x.At(i, 0), ShearModulus: d.x.At(i, 1), Tm: d.x.At(i, 2)}
}

// Diagnostics returns the build diagnostics.
func (d *Dataset) Diagnostics() Diagnostics {
	diag := d.diag
	diag.KeptRows = slices.Clone(d.diag.KeptRows)
	diag.DroppedRows = slices.Clone(d.diag.DroppedRows)
	diag.EmptyFormulas = slices.Clone(d.diag.EmptyFormulas)
	return diag
}

// Builder converts tables into datasets.
type Builder struct {
	vocab  *composition.Vocabulary
	logger log.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithVocabulary fixes the target vocabulary, as needed when building an
// evaluation set for an already trained model.
func WithVocabulary(v *composition.Vocabulary) Option {
	return func(b *Builder) { b.vocab = v }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// NewBuilder creates a Builder. Without WithVocabulary the vocabulary is the
// sorted union of the elements of the kept rows.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = log.GetLoggerWithName("dataset")
	}
	return b
}

// Build parses every row of t. Rows with a missing or non-finite property
// are dropped. Rows whose formula has no element are kept with a zero target.
func (b *Builder) Build(t *Table) (*Dataset, error) {
	const op = "Builder.Build"

	formulaCol, ok := t.ColumnIndex(ColFormula)
	if !ok {
		return nil, errors.NewSchemaError(op, "missing required columns", RequiredColumns(), t.Header)
	}
	X, diag, err := b.features(op, t)
	if err != nil {
		return nil, err
	}

	comps := make([]composition.Composition, len(diag.KeptRows))
	formulas := make([]string, len(diag.KeptRows))
	for i, row := range diag.KeptRows {
		formulas[i] = t.Cell(row, formulaCol)
		c, perr := composition.ParseFormulaStrict(formulas[i])
		if len(c) == 0 {
			diag.EmptyFormulas = append(diag.EmptyFormulas, row)
		} else if perr != nil {
			b.logger.Debug("formula partially parsed", log.FormulaKey, formulas[i], log.ErrorKey, perr)
		}
		comps[i] = c
	}

	vocab := b.vocab
	if vocab == nil {
		if vocab, err = composition.DiscoverVocabulary(comps); err != nil {
			return nil, errors.Wrap(err, op)
		}
	}

	Y := mat.NewDense(len(comps), vocab.Len(), nil)
	for i, c := range comps {
		vec, err := vocab.Dense(c)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: row %d formula %q", op, diag.KeptRows[i], formulas[i])
		}
		Y.SetRow(i, vec.Values())
	}

	ds := &Dataset{
		x:          X,
		y:          Y,
		vocab:      vocab,
		formulas:   formulas,
		sourceRows: diag.KeptRows,
		diag:       diag,
	}

	if len(diag.EmptyFormulas) > 0 {
		b.logger.Warn("formulas without elements kept with zero target",
			log.SourceKey, t.Source,
			log.EmptyFormulasKey, len(diag.EmptyFormulas),
		)
	}
	b.logger.Info("dataset built",
		log.OperationKey, log.OperationBuild,
		log.SourceKey, t.Source,
		log.SamplesKey, ds.Len(),
		log.FeaturesKey, len(FeatureColumns),
		log.TargetsKey, vocab.Len(),
		log.VocabularyFingerprintKey, vocab.ShortFingerprint(),
	)
	return ds, nil
}

// BuildFeatures builds only X, for unlabeled tables at inference time. The
// Formula column is not required.
func (b *Builder) BuildFeatures(t *Table) (*mat.Dense, Diagnostics, error) {
	X, diag, err := b.features("Builder.BuildFeatures", t)
	return X, diag, err
}

func (b *Builder) features(op string, t *Table) (*mat.Dense, Diagnostics, error) {
	cols := make([]int, len(FeatureColumns))
	for i, name := range FeatureColumns {
		idx, ok := t.ColumnIndex(name)
		if !ok {
			return nil, Diagnostics{}, errors.NewSchemaError(op, "missing required columns", RequiredColumns(), t.Header)
		}
		cols[i] = idx
	}

	diag := Diagnostics{TotalRows: t.Len()}
	data := make([]float64, 0, t.Len()*len(cols))
	row := make([]float64, len(cols))
	for r := range t.Rows {
		if !parseRow(t, r, cols, row) {
			diag.DroppedRows = append(diag.DroppedRows, r)
			continue
		}
		diag.KeptRows = append(diag.KeptRows, r)
		data = append(data, row...)
	}

	if len(diag.DroppedRows) > 0 {
		b.logger.Warn("rows with missing or invalid properties dropped",
			log.SourceKey, t.Source,
			log.DroppedRowsKey, len(diag.DroppedRows),
		)
	}
	if len(diag.KeptRows) == 0 {
		return nil, diag, errors.NewModelError(op, "no usable rows", errors.ErrEmptyData)
	}
	return mat.NewDense(len(diag.KeptRows), len(cols), data), diag, nil
}

func parseRow(t *Table, r int, cols []int, dst []float64) bool {
	for i, c := range cols {
		v, err := strconv.ParseFloat(t.Cell(r, c), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
		dst[i] = v
	}
	return true
}
