// Command ceramigo trains composition models from bulk properties, scores
// them on held-out tables and predicts formulas.
//
// Usage:
//
//	ceramigo train    [-config file] [-data train.csv] [-kind random_forest|ridge] [-out model.gob]
//	ceramigo evaluate [-config file] [-model model.gob] [-data test.csv] [-plot out.png]
//	ceramigo predict  [-model model.gob] [-bulk 150] [-shear 80] [-tm 1800]
//	ceramigo plot     [-model model.gob] [-data test.csv] [-out out.png] [-elements C,O,N,B]
//	ceramigo import   -csv data.csv -db materials.db [-table materials]
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}

	var err error
	switch args[0] {
	case "train":
		err = cmdTrain(ctx, args[1:], stdout, stderr)
	case "evaluate":
		err = cmdEvaluate(ctx, args[1:], stdout, stderr)
	case "predict":
		err = cmdPredict(ctx, args[1:], stdout, stderr)
	case "plot":
		err = cmdPlot(ctx, args[1:], stdout, stderr)
	case "import":
		err = cmdImport(ctx, args[1:], stdout, stderr)
	case "help", "-h", "-help", "--help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "ceramigo: unknown command %q\n", args[0])
		usage(stderr)
		return 2
	}

	if err != nil {
		if err == errUsage {
			return 2
		}
		fmt.Fprintf(stderr, "ceramigo: %v\n", err)
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprint(w, `usage: ceramigo <command> [flags]

commands:
  train     cross-validate and fit a model, save the artifact
  evaluate  score a saved model on a test table
  predict   predict a formula from bulk modulus, shear modulus and Tm
  plot      write an actual-vs-predicted plot for selected elements
  import    copy a CSV table into a SQLite database
`)
}
