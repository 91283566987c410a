package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const trainCSV = `Formula,Bulk Modulus,Shear Modulus,Tm
B2O3,30,15,723
SiC,220,190,3003
BN,60,45,3246
B4C,235,200,2743
Si3N4,250,120,2173
ZrB2,240,225,3519
TiC,242,182,3433
Al2O3,252,163,2345
B2O3,31,16,724
SiC,221,191,3004
`

const testCSV = `Formula,Bulk Modulus,Shear Modulus,Tm
SiC,219,189,3001
B2O3,29,14,720
BN,62,46,3250
`

func setup(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "train.csv"), []byte(trainCSV), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.csv"), []byte(testCSV), 0o644))

	cfgPath := filepath.Join(dir, "ceramigo.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
log:
  level: error
  format: json
data:
  train: `+filepath.Join(dir, "train.csv")+`
  test: `+filepath.Join(dir, "test.csv")+`
model:
  kind: random_forest
  path: `+filepath.Join(dir, "model.gob")+`
  forest:
    n_estimators: 4
cv:
  folds: 3
`), 0o644))
	return dir, cfgPath
}

func runCmd(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestTrainEvaluatePredictCommands(t *testing.T) {
	dir, cfgPath := setup(t)

	code, out, errOut := runCmd(t, "train", "-config", cfgPath, "-kind", "ridge")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "cross-validation: R² =")
	assert.Contains(t, out, "full dataset (training rows)")
	assert.Contains(t, out, "vocabulary: 8 elements")
	assert.FileExists(t, filepath.Join(dir, "model.gob"))

	plotPath := filepath.Join(dir, "important.svg")
	code, out, errOut = runCmd(t, "evaluate", "-config", cfgPath, "-plot", plotPath, "-elements", "C,O")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "3 test rows")
	assert.Contains(t, out, "Si: R² =")
	assert.Contains(t, out, "important elements:")
	assert.FileExists(t, plotPath)

	code, out, errOut = runCmd(t, "predict", "-config", cfgPath)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Bulk Modulus = 150, Shear Modulus = 80, Tm = 1800")
	assert.Contains(t, out, "predicted formula:")

	pngPath := filepath.Join(dir, "plot.png")
	code, out, errOut = runCmd(t, "plot", "-config", cfgPath, "-out", pngPath)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, pngPath)
	assert.FileExists(t, pngPath)
}

func TestEvaluateUsesConfiguredPlot(t *testing.T) {
	dir, cfgPath := setup(t)
	plotPath := filepath.Join(dir, "configured.png")
	f, err := os.OpenFile(cfgPath, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("plot:\n  output: " + plotPath + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	code, _, errOut := runCmd(t, "train", "-config", cfgPath, "-kind", "ridge")
	require.Equal(t, 0, code, errOut)

	code, _, errOut = runCmd(t, "evaluate", "-config", cfgPath)
	require.Equal(t, 0, code, errOut)
	assert.FileExists(t, plotPath)
}

func TestPredictThreshold(t *testing.T) {
	_, cfgPath := setup(t)
	code, _, errOut := runCmd(t, "train", "-config", cfgPath, "-kind", "ridge")
	require.Equal(t, 0, code, errOut)

	code, out, errOut := runCmd(t, "predict", "-config", cfgPath, "-threshold", "0.2")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "predicted formula:")

	code, _, errOut = runCmd(t, "predict", "-config", cfgPath, "-threshold", "-0.5")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "threshold")
}

func TestImportAndTrainFromSQLite(t *testing.T) {
	dir, cfgPath := setup(t)
	db := filepath.Join(dir, "materials.db")

	code, out, errOut := runCmd(t, "import", "-csv", filepath.Join(dir, "train.csv"), "-db", db)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "imported 10 rows")

	code, out, errOut = runCmd(t, "train", "-config", cfgPath, "-data", db, "-folds", "2")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "model ")
}

func TestUsageErrors(t *testing.T) {
	code, _, _ := runCmd(t)
	assert.Equal(t, 2, code)

	code, _, errOut := runCmd(t, "fit")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, `unknown command "fit"`)

	code, _, _ = runCmd(t, "import", "-csv", "x.csv")
	assert.Equal(t, 2, code)

	code, out, _ := runCmd(t, "help")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "usage: ceramigo")
}

func TestCommandErrors(t *testing.T) {
	dir, cfgPath := setup(t)

	code, _, errOut := runCmd(t, "predict", "-config", cfgPath, "-model", filepath.Join(dir, "missing.gob"))
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "ceramigo:")

	code, _, errOut = runCmd(t, "train", "-config", cfgPath, "-kind", "svm")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "model.kind")
}
