package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/ceramigo/config"
	"github.com/YuminosukeSato/ceramigo/dataset"
	"github.com/YuminosukeSato/ceramigo/pkg/errors"
	"github.com/YuminosukeSato/ceramigo/pkg/log"
	"github.com/YuminosukeSato/ceramigo/predict"
)

var materials = []struct {
	formula           string
	bulk, shear, melt float64
}{
	{"B2O3", 30, 15, 723},
	{"SiC", 220, 190, 3003},
	{"BN", 60, 45, 3246},
	{"B4C", 235, 200, 2743},
	{"Si3N4", 250, 120, 2173},
	{"ZrB2", 240, 225, 3519},
	{"TiC", 242, 182, 3433},
	{"Al2O3", 252, 163, 2345},
}

// trainingCSV lists every material twice with slightly shifted properties.
func trainingCSV() string {
	var b strings.Builder
	b.WriteString("Formula,Bulk Modulus,Shear Modulus,Tm\n")
	for _, shift := range []float64{0, 1} {
		for _, m := range materials {
			fmt.Fprintf(&b, "%s,%g,%g,%g\n", m.formula, m.bulk+shift, m.shear+shift, m.melt+shift)
		}
	}
	return b.String()
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	train := filepath.Join(dir, "train.csv")
	require.NoError(t, os.WriteFile(train, []byte(trainingCSV()), 0o644))
	test := filepath.Join(dir, "test.csv")
	require.NoError(t, os.WriteFile(test, []byte(`Formula,Bulk Modulus,Shear Modulus,Tm
SiC,221,189,3000
B2O3,31,14,725
BN,61,44,3240
Al2O3,250,160,2350
`), 0o644))

	cfg := config.DefaultConfig()
	cfg.Data.Train = train
	cfg.Data.Test = test
	cfg.Model.Path = filepath.Join(dir, "model.gob")
	cfg.Model.Forest.NEstimators = 5
	cfg.Model.Forest.Bootstrap = false
	cfg.Model.Forest.NJobs = 2
	cfg.CV.Folds = 4
	cfg.CV.Parallel = 2
	cfg.Plot.Output = filepath.Join(dir, "plot.png")
	cfg.Plot.Elements = []string{"C", "O", "Hf"}
	return cfg
}

func newTestRunner(cfg *config.Config) (*Runner, *log.TestLogger) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	return NewRunner(cfg, WithLogger(logger)), logger
}

func TestTrainEvaluatePredict(t *testing.T) {
	cfg := testConfig(t)
	runner, logger := newTestRunner(cfg)
	ctx := context.Background()

	trained, err := runner.Train(ctx)
	require.NoError(t, err)
	assert.Equal(t, 16, trained.Dataset.Len())
	assert.Equal(t, []string{"Al", "B", "C", "N", "O", "Si", "Ti", "Zr"}, trained.Dataset.Vocabulary().Symbols)
	assert.Len(t, trained.Result.Folds, 4)
	assert.Equal(t, cfg.Model.Path, trained.Path)
	assert.Equal(t, "RandomForestRegressor", trained.Model.CV.ModelName)
	assert.True(t, logger.ContainsField(log.RunIDKey, runner.RunID()))

	m, err := predict.Load(cfg.Model.Path)
	require.NoError(t, err)
	assert.Equal(t, trained.Model.ID, m.ID)

	evaluated, err := runner.Evaluate(ctx, m)
	require.NoError(t, err)
	assert.Len(t, evaluated.Report.Elements, 8)
	assert.Equal(t, cfg.Plot.Output, evaluated.PlotPath)
	_, err = os.Stat(cfg.Plot.Output)
	assert.NoError(t, err)
	assert.True(t, logger.ContainsMessage("plot element not in vocabulary"))

	preds, err := runner.Predict(m,
		dataset.PropertyRecord{BulkModulus: 220, ShearModulus: 190, Tm: 3003},
		dataset.PropertyRecord{BulkModulus: 30, ShearModulus: 15, Tm: 723},
	)
	require.NoError(t, err)
	require.Len(t, preds, 2)
	// Reconstruction follows vocabulary order.
	assert.Equal(t, "CSi", preds[0].Formula)
	assert.Equal(t, "B2O3", preds[1].Formula)
}

func TestTrainRidge(t *testing.T) {
	cfg := testConfig(t)
	cfg.Model.Kind = config.ModelRidge
	cfg.Model.Ridge.Standardize = true
	cfg.Model.Path = ""
	runner, _ := newTestRunner(cfg)

	trained, err := runner.Train(context.Background())
	require.NoError(t, err)
	assert.Empty(t, trained.Path)
	assert.Equal(t, "Ridge", trained.Model.Regressor.Name())
	assert.False(t, trained.Result.FullMAE < 0)
}

func TestTrainFromSQLite(t *testing.T) {
	cfg := testConfig(t)

	table, err := dataset.ReadCSVFile(cfg.Data.Train)
	require.NoError(t, err)
	dbPath := filepath.Join(t.TempDir(), "materials.db")
	src, err := dataset.OpenSQLite(dbPath)
	require.NoError(t, err)
	require.NoError(t, src.WriteTable(context.Background(), cfg.Data.SQLiteTable, table))
	require.NoError(t, src.Close())

	cfg.Data.Train = dbPath
	runner, _ := newTestRunner(cfg)
	trained, err := runner.Train(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 16, trained.Dataset.Len())
}

func TestEvaluateRejectsUnknownElement(t *testing.T) {
	cfg := testConfig(t)
	runner, _ := newTestRunner(cfg)

	trained, err := runner.Train(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(cfg.Data.Test, []byte(`Formula,Bulk Modulus,Shear Modulus,Tm
HfC,240,190,4160
`), 0o644))

	_, err = runner.Evaluate(context.Background(), trained.Model)
	var schemaErr *errors.SchemaError
	assert.True(t, errors.As(err, &schemaErr))
}

func TestNewFactory(t *testing.T) {
	cfg := config.DefaultConfig().Model

	f, err := NewFactory(cfg)
	require.NoError(t, err)
	assert.Equal(t, "RandomForestRegressor", f().Name())

	cfg.Kind = config.ModelRidge
	f, err = NewFactory(cfg)
	require.NoError(t, err)
	assert.Equal(t, "Ridge", f().Name())

	cfg.Kind = "svm"
	_, err = NewFactory(cfg)
	var verr *errors.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestLoadTableMissingFile(t *testing.T) {
	_, err := LoadTable(context.Background(), filepath.Join(t.TempDir(), "none.csv"), "materials")
	assert.Error(t, err)
}
