package linear

// Option configures a Ridge regressor.
type Option func(*Ridge)

// WithAlpha sets the L2 regularization strength. Must be >= 0.
func WithAlpha(alpha float64) Option {
	return func(r *Ridge) {
		r.Alpha = alpha
	}
}

// WithFitIntercept sets whether to fit an (unpenalized) intercept.
func WithFitIntercept(fit bool) Option {
	return func(r *Ridge) {
		r.FitIntercept = fit
	}
}

// WithStandardize standardizes features with a StandardScaler before the
// solve. The scaler is fitted inside Fit and persisted with the model.
func WithStandardize(standardize bool) Option {
	return func(r *Ridge) {
		r.Standardize = standardize
	}
}
