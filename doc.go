// Package ceramigo predicts the elemental composition of ceramic and
// refractory materials from three measured bulk properties: bulk modulus,
// shear modulus and melting temperature.
//
// A multi-output regressor maps the properties to one continuous count per
// element of a fixed vocabulary. The counts are then rounded back into a
// formula string.
//
// # Pipeline
//
//   - composition: parse formulas, the element vocabulary, formula reconstruction
//   - dataset: CSV and SQLite tables, aligned X/Y matrices
//   - training: k-fold cross-validation and the final fit
//   - linear, ensemble: multi-output ridge and random forest regressors
//   - predict: the persisted model artifact and inference
//   - evaluate: per-element R² and MAE
//   - viz: actual-vs-predicted scatter plots
//   - pipeline, config, cmd/ceramigo: runs, YAML configuration and the CLI
//
// # Quick Start
//
//	table, err := dataset.ReadCSVFile("updated_with_coefficients.csv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ds, err := dataset.NewBuilder().Build(table)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	trainer := training.NewTrainer(func() model.Regressor {
//	    return ensemble.NewRandomForestRegressor()
//	})
//	res, err := trainer.Train(ds.X(), ds.Y(), 5)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	m, err := predict.NewModel(res.Final, ds.Vocabulary(), dataset.FeatureColumns, res.Summary())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	p, err := predict.NewPredictor(m)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	formula, _, err := p.PredictFormula(dataset.PropertyRecord{BulkModulus: 150, ShearModulus: 80, Tm: 1800})
//
// # Vocabulary
//
// The vocabulary is frozen when the training set is built and saved with the
// model. Inference never re-derives it, and building an evaluation set that
// contains an unknown element fails with a SchemaError.
package ceramigo
