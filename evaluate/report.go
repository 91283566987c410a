// Package evaluate scores predicted element counts against ground truth,
// one row per vocabulary element.
package evaluate

import (
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ceramigo/composition"
	"github.com/YuminosukeSato/ceramigo/metrics"
	"github.com/YuminosukeSato/ceramigo/pkg/errors"
	"github.com/YuminosukeSato/ceramigo/pkg/log"
)

// ElementScore is the evaluation of one target column.
type ElementScore struct {
	Symbol string
	// R2 is NaN when the ground truth of the column is constant.
	R2         float64
	MAE        float64
	Degenerate bool
}

// Report holds per-element scores in vocabulary order.
type Report struct {
	Elements []ElementScore

	// MeanR2 averages R2 over non-degenerate columns; NaN if there are none.
	MeanR2 float64
	// MeanMAE averages MAE over all columns.
	MeanMAE float64

	Samples int
}

// Evaluate scores yPred against yTrue column by column. Both matrices must
// have one column per vocabulary element. A constant ground-truth column is
// reported with R2 = NaN and a DegenerateMetricWarning; it is not an error.
func Evaluate(yTrue, yPred mat.Matrix, vocab *composition.Vocabulary) (*Report, error) {
	const op = "Evaluate"

	rt, ct := yTrue.Dims()
	rp, cp := yPred.Dims()
	if rt != rp {
		return nil, errors.NewDataSizeError(op, "prediction rows", rt, rp)
	}
	if ct != cp {
		return nil, errors.NewDataSizeError(op, "prediction columns", ct, cp)
	}
	if vocab == nil || ct != vocab.Len() {
		var symbols []string
		if vocab != nil {
			symbols = vocab.Symbols
		}
		return nil, errors.NewSchemaError(op, fmt.Sprintf("%d target columns for vocabulary", ct), symbols, nil)
	}
	if rt == 0 {
		return nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}

	r2s, err := metrics.R2ScoreMatrix(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	maes, err := metrics.MAEMatrix(yTrue, yPred)
	if err != nil {
		return nil, err
	}

	rep := &Report{Elements: make([]ElementScore, ct), Samples: rt}
	for j, sym := range vocab.Symbols {
		es := ElementScore{Symbol: sym, R2: r2s[j], MAE: maes[j]}
		if math.IsNaN(es.R2) {
			es.Degenerate = true
			errors.Warn(errors.NewDegenerateMetricWarning("r2", sym, "constant ground truth"))
		}
		rep.Elements[j] = es
	}
	rep.MeanR2 = metrics.MeanIgnoringNaN(r2s)
	rep.MeanMAE = floats.Sum(maes) / float64(len(maes))

	log.GetLoggerWithName("evaluate").Info("evaluation completed",
		log.OperationKey, log.OperationEvaluate,
		log.SamplesKey, rt,
		log.TargetsKey, ct,
		log.R2ScoreKey, rep.MeanR2,
		log.MAEKey, rep.MeanMAE,
	)
	return rep, nil
}

// Element returns the score of symbol.
func (r *Report) Element(symbol string) (ElementScore, bool) {
	for _, e := range r.Elements {
		if e.Symbol == symbol {
			return e, true
		}
	}
	return ElementScore{}, false
}

// Select returns the scores of the given symbols in argument order. Symbols
// missing from the report are skipped.
func (r *Report) Select(symbols ...string) []ElementScore {
	out := make([]ElementScore, 0, len(symbols))
	for _, s := range symbols {
		if e, ok := r.Element(s); ok {
			out = append(out, e)
		}
	}
	return out
}

// Degenerate lists the symbols whose R² is undefined.
func (r *Report) Degenerate() []string {
	var out []string
	for _, e := range r.Elements {
		if e.Degenerate {
			out = append(out, e.Symbol)
		}
	}
	return out
}

// WriteText writes one line per element.
//
//	 B: R² =  0.93, MAE =  0.120
func (r *Report) WriteText(w io.Writer) error {
	return WriteScores(w, r.Elements)
}

// WriteScores writes scores in the same format as Report.WriteText.
func WriteScores(w io.Writer, scores []ElementScore) error {
	for _, e := range scores {
		if _, err := fmt.Fprintf(w, "%2s: R² = %5.2f, MAE = %6.3f\n", e.Symbol, e.R2, e.MAE); err != nil {
			return errors.Wrap(err, "write report")
		}
	}
	return nil
}

// LogTo emits one structured record per element.
func (r *Report) LogTo(logger log.Logger) {
	for _, e := range r.Elements {
		logger.Info("element score",
			log.ElementKey, e.Symbol,
			log.R2ScoreKey, e.R2,
			log.MAEKey, e.MAE,
		)
	}
}
