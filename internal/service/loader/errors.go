package loader

import "errors"

// Sentinel errors for the loader service layer.
var (
	// ErrIntegrity means a row referenced a key that neither the batch nor
	// the store holds. The load is rolled back.
	ErrIntegrity = errors.New("referential integrity violation")

	// ErrLoadInProgress means another process holds the load lock.
	ErrLoadInProgress = errors.New("another load is in progress")
)
