package linear

// LogisticOption configures LogisticRegression
type LogisticOption func(*LogisticRegression)

// WithC sets the inverse regularization strength
func WithC(c float64) LogisticOption {
	return func(lr *LogisticRegression) {
		lr.C = c
	}
}

// WithFitIntercept sets whether to fit the intercept
func WithFitIntercept(fit bool) LogisticOption {
	return func(lr *LogisticRegression) {
		lr.FitIntercept = fit
	}
}

// WithMaxIter sets the maximum number of gradient steps
func WithMaxIter(maxIter int) LogisticOption {
	return func(lr *LogisticRegression) {
		lr.MaxIter = maxIter
	}
}

// WithTol sets the gradient tolerance for stopping
func WithTol(tol float64) LogisticOption {
	return func(lr *LogisticRegression) {
		lr.Tol = tol
	}
}

// WithRandomState sets the seed of the weight initialization
func WithRandomState(seed uint64) LogisticOption {
	return func(lr *LogisticRegression) {
		lr.Seed = seed
	}
}
