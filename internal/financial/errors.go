package financial

import "errors"

// Sentinel errors for portfolio analysis.
var (
	ErrEmptyPopulation = errors.New("no customers to analyze")
	ErrInvalidFraction = errors.New("pareto fraction must be in (0, 1]")
	ErrZeroRevenue     = errors.New("population has no revenue")
)
