package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/YuminosukeSato/ceramigo/composition"
	"github.com/YuminosukeSato/ceramigo/config"
	"github.com/YuminosukeSato/ceramigo/dataset"
	"github.com/YuminosukeSato/ceramigo/evaluate"
	"github.com/YuminosukeSato/ceramigo/pipeline"
	"github.com/YuminosukeSato/ceramigo/pkg/errors"
	"github.com/YuminosukeSato/ceramigo/pkg/log"
	"github.com/YuminosukeSato/ceramigo/predict"
	"github.com/YuminosukeSato/ceramigo/training"
)

var errUsage = errors.New("usage")

// commonFlags are shared by every command that reads the config file.
type commonFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "config file (default $CERAMIGO_CONFIG or ./ceramigo.yaml)")
	fs.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&c.logFormat, "log-format", "", "log format: console, json")
}

// load reads the config, applies the log flags and installs the logger.
func (c *commonFlags) load(stderr io.Writer) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if c.configPath != "" {
		cfg, _, err = config.LoadFromPath(c.configPath)
	} else {
		cfg, _, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if c.logFormat != "" {
		cfg.Log.Format = c.logFormat
	}
	if _, err := log.Setup(cfg.Log.Level, cfg.Log.Format, stderr); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(fs.Output(), "unexpected arguments: %v\n", fs.Args())
		return errUsage
	}
	return nil
}

func cmdTrain(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("train", stderr)
	var common commonFlags
	common.register(fs)
	data := fs.String("data", "", "training table (CSV or SQLite)")
	kind := fs.String("kind", "", "model kind: random_forest or ridge")
	out := fs.String("out", "", "model artifact path")
	folds := fs.Int("folds", 0, "number of cross-validation folds")
	seed := fs.Uint64("seed", 0, "cross-validation shuffle seed")
	if err := parse(fs, args); err != nil {
		return err
	}

	cfg, err := common.load(stderr)
	if err != nil {
		return err
	}
	overrideString(&cfg.Data.Train, *data)
	overrideString(&cfg.Model.Kind, *kind)
	overrideString(&cfg.Model.Path, *out)
	if *folds != 0 {
		cfg.CV.Folds = *folds
	}
	if isSet(fs, "seed") {
		cfg.CV.Seed = *seed
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	res, err := pipeline.NewRunner(cfg).Train(ctx)
	if err != nil {
		return err
	}
	printTraining(stdout, res.Result)
	fmt.Fprintf(stdout, "vocabulary: %d elements (%s)\n",
		res.Dataset.Vocabulary().Len(), res.Dataset.Vocabulary().ShortFingerprint())
	if d := res.Dataset.Diagnostics(); len(d.DroppedRows) > 0 || len(d.EmptyFormulas) > 0 {
		fmt.Fprintf(stdout, "rows: %d kept, %d dropped, %d with empty formula\n",
			len(d.KeptRows), len(d.DroppedRows), len(d.EmptyFormulas))
	}
	fmt.Fprintf(stdout, "model %s saved to %s\n", res.Model.ID, res.Path)
	return nil
}

func cmdEvaluate(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("evaluate", stderr)
	var common commonFlags
	common.register(fs)
	modelPath := fs.String("model", "", "model artifact path")
	data := fs.String("data", "", "test table (CSV or SQLite)")
	plotOut := fs.String("plot", "", "write actual-vs-predicted plot to this .png or .svg file")
	elements := fs.String("elements", "", "comma-separated elements to highlight")
	if err := parse(fs, args); err != nil {
		return err
	}

	cfg, err := common.load(stderr)
	if err != nil {
		return err
	}
	overrideString(&cfg.Model.Path, *modelPath)
	overrideString(&cfg.Data.Test, *data)
	overrideString(&cfg.Plot.Output, *plotOut)
	if *elements != "" {
		cfg.Plot.Elements = splitList(*elements)
	}

	m, err := predict.Load(cfg.Model.Path)
	if err != nil {
		return err
	}
	res, err := pipeline.NewRunner(cfg).Evaluate(ctx, m)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "%d test rows, model %s (%s)\n", res.Report.Samples, m.ID, m.Regressor.Name())
	if err := res.Report.WriteText(stdout); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "mean R² = %.3f, mean MAE = %.3f\n", res.Report.MeanR2, res.Report.MeanMAE)
	if sel := res.Report.Select(cfg.Plot.Elements...); len(sel) > 0 {
		fmt.Fprintln(stdout, "important elements:")
		if err := evaluate.WriteScores(stdout, sel); err != nil {
			return err
		}
	}
	if res.PlotPath != "" {
		fmt.Fprintf(stdout, "plot written to %s\n", res.PlotPath)
	}
	return nil
}

func cmdPlot(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("plot", stderr)
	var common commonFlags
	common.register(fs)
	modelPath := fs.String("model", "", "model artifact path")
	data := fs.String("data", "", "test table (CSV or SQLite)")
	out := fs.String("out", "", "output .png or .svg file")
	elements := fs.String("elements", "", "comma-separated elements to plot")
	if err := parse(fs, args); err != nil {
		return err
	}

	cfg, err := common.load(stderr)
	if err != nil {
		return err
	}
	overrideString(&cfg.Model.Path, *modelPath)
	overrideString(&cfg.Data.Test, *data)
	overrideString(&cfg.Plot.Output, *out)
	if *elements != "" {
		cfg.Plot.Elements = splitList(*elements)
	}

	m, err := predict.Load(cfg.Model.Path)
	if err != nil {
		return err
	}
	res, err := pipeline.NewRunner(cfg).Evaluate(ctx, m)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "plot written to %s\n", res.PlotPath)
	return nil
}

func cmdPredict(_ context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("predict", stderr)
	var common commonFlags
	common.register(fs)
	modelPath := fs.String("model", "", "model artifact path")
	bulk := fs.Float64("bulk", 150, "bulk modulus")
	shear := fs.Float64("shear", 80, "shear modulus")
	tm := fs.Float64("tm", 1800, "melting temperature")
	threshold := fs.Float64("threshold", composition.DefaultThreshold, "inclusion threshold (default from config)")
	if err := parse(fs, args); err != nil {
		return err
	}

	cfg, err := common.load(stderr)
	if err != nil {
		return err
	}
	overrideString(&cfg.Model.Path, *modelPath)
	if isSet(fs, "threshold") {
		cfg.Reconstruct.Threshold = *threshold
	}

	m, err := predict.Load(cfg.Model.Path)
	if err != nil {
		return err
	}
	rec := dataset.PropertyRecord{BulkModulus: *bulk, ShearModulus: *shear, Tm: *tm}
	preds, err := pipeline.NewRunner(cfg).Predict(m, rec)
	if err != nil {
		return err
	}

	p := preds[0]
	fmt.Fprintf(stdout, "Bulk Modulus = %g, Shear Modulus = %g, Tm = %g\n", rec.BulkModulus, rec.ShearModulus, rec.Tm)
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	for i, sym := range p.Vector.Vocabulary().Symbols {
		if v := p.Vector.At(i); v > cfg.Reconstruct.Threshold {
			fmt.Fprintf(tw, "  %s\t%.3f\n", sym, v)
		}
	}
	if err := tw.Flush(); err != nil {
		return errors.Wrap(err, "write prediction")
	}
	fmt.Fprintf(stdout, "predicted formula: %s\n", p.Formula)
	return nil
}

func cmdImport(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("import", stderr)
	csvPath := fs.String("csv", "", "source CSV file")
	dbPath := fs.String("db", "", "target SQLite database")
	table := fs.String("table", dataset.DefaultSQLiteTable, "target table")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *csvPath == "" || *dbPath == "" {
		fmt.Fprintln(stderr, "import: -csv and -db are required")
		return errUsage
	}

	t, err := dataset.ReadCSVFile(*csvPath)
	if err != nil {
		return err
	}
	src, err := dataset.OpenSQLite(*dbPath)
	if err != nil {
		return err
	}
	defer src.Close()
	if err := src.WriteTable(ctx, *table, t); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "imported %d rows into %s:%s\n", t.Len(), *dbPath, *table)
	return nil
}

func printTraining(w io.Writer, res *training.Result) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "fold\ttrain\ttest\tR²\tMAE")
	for _, f := range res.Folds {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%.3f\t%.3f\n", f.Fold+1, f.TrainSize, f.TestSize, f.R2, f.MAE)
	}
	tw.Flush()
	fmt.Fprintf(w, "cross-validation: R² = %.3f ± %.3f, MAE = %.3f ± %.3f\n",
		res.MeanR2, res.StdR2, res.MeanMAE, res.StdMAE)
	fmt.Fprintf(w, "full dataset (training rows): R² = %.3f, MAE = %.3f\n", res.FullR2, res.FullMAE)
}

func overrideString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func isSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
