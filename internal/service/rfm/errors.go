package rfm

import "errors"

// Sentinel errors for the rfm service layer.
var (
	ErrEmptyPopulation = errors.New("no customers to score")
)
