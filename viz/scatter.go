// Package viz draws actual-vs-predicted scatter plots of element counts.
// It only reads the matrices produced by the pipeline.
package viz

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/ceramigo/composition"
	"github.com/YuminosukeSato/ceramigo/metrics"
	"github.com/YuminosukeSato/ceramigo/pkg/errors"
)

// Default canvas size.
const (
	DefaultWidth  = 8 * vg.Inch
	DefaultHeight = 6 * vg.Inch
)

// NewActualVsPredicted builds a scatter of true against predicted counts
// for the given symbols (all vocabulary elements when none are given), with
// a y = x reference line and the R² and MAE of each element in the legend.
func NewActualVsPredicted(yTrue, yPred mat.Matrix, vocab *composition.Vocabulary, symbols ...string) (*plot.Plot, error) {
	const op = "viz.ActualVsPredicted"

	rt, ct := yTrue.Dims()
	rp, cp := yPred.Dims()
	if rt != rp || ct != cp {
		return nil, errors.NewDataSizeError(op, "prediction cells", rt*ct, rp*cp)
	}
	if ct != vocab.Len() {
		return nil, errors.NewSchemaError(op, "target columns do not match vocabulary", vocab.Symbols, nil)
	}
	if len(symbols) == 0 {
		symbols = vocab.Symbols
	}

	cols := make([]int, len(symbols))
	var unknown []string
	for i, s := range symbols {
		j, ok := vocab.Index(s)
		if !ok {
			unknown = append(unknown, s)
		}
		cols[i] = j
	}
	if len(unknown) > 0 {
		return nil, errors.NewSchemaError(op, "elements outside the vocabulary", vocab.Symbols, unknown)
	}

	r2s, err := metrics.R2ScoreMatrix(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	maes, err := metrics.MAEMatrix(yTrue, yPred)
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = "Actual vs predicted element counts"
	p.X.Label.Text = "actual"
	p.Y.Label.Text = "predicted"
	p.Legend.Top = true
	p.Legend.Left = true
	p.Add(plotter.NewGrid())

	lo, hi := math.Inf(1), math.Inf(-1)
	for i, j := range cols {
		xys := make(plotter.XYs, rt)
		for r := 0; r < rt; r++ {
			xys[r] = plotter.XY{X: yTrue.At(r, j), Y: yPred.At(r, j)}
			lo = math.Min(lo, math.Min(xys[r].X, xys[r].Y))
			hi = math.Max(hi, math.Max(xys[r].X, xys[r].Y))
		}

		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: scatter for %s", op, symbols[i])
		}
		sc.GlyphStyle.Color = plotutil.Color(i)
		sc.GlyphStyle.Shape = plotutil.Shape(i)
		sc.GlyphStyle.Radius = vg.Points(2.5)
		p.Add(sc)
		p.Legend.Add(legendLabel(symbols[i], r2s[j], maes[j]), sc)
	}

	if rt > 0 {
		if lo == hi {
			lo, hi = lo-1, hi+1
		}
		ref, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
		if err != nil {
			return nil, errors.Wrapf(err, "%s: reference line", op)
		}
		ref.Color = color.Gray{Y: 80}
		ref.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		p.Add(ref)
		p.Legend.Add("y = x", ref)
	}
	return p, nil
}

// ActualVsPredicted writes the plot to path. The format follows the file
// extension and must be .png or .svg.
func ActualVsPredicted(path string, yTrue, yPred mat.Matrix, vocab *composition.Vocabulary, symbols ...string) error {
	format, err := formatOf(path)
	if err != nil {
		return err
	}
	p, err := NewActualVsPredicted(yTrue, yPred, vocab, symbols...)
	if err != nil {
		return err
	}
	if err := p.Save(DefaultWidth, DefaultHeight, path); err != nil {
		return errors.Wrapf(err, "save %s plot to %s", format, path)
	}
	return nil
}

// WriteActualVsPredicted renders the plot to w in format ("png" or "svg").
func WriteActualVsPredicted(w io.Writer, format string, yTrue, yPred mat.Matrix, vocab *composition.Vocabulary, symbols ...string) error {
	if format != "png" && format != "svg" {
		return errors.NewValidationError("format", "must be png or svg", format)
	}
	p, err := NewActualVsPredicted(yTrue, yPred, vocab, symbols...)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(DefaultWidth, DefaultHeight, format)
	if err != nil {
		return errors.Wrap(err, "render plot")
	}
	if _, err := wt.WriteTo(w); err != nil {
		return errors.Wrap(err, "write plot")
	}
	return nil
}

func formatOf(path string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext != "png" && ext != "svg" {
		return "", errors.NewValidationError("plot.output", "extension must be .png or .svg", path)
	}
	return ext, nil
}

func legendLabel(symbol string, r2, mae float64) string {
	return fmt.Sprintf("%s (R² = %.2f, MAE = %.3f)", symbol, r2, mae)
}
