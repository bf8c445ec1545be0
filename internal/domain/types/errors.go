package types

import "errors"

// Error taxonomy of the dispatch core. Every precondition failure maps onto
// one of these sentinels so callers handle a single set.
var (
	// ErrOrderNotFound - referenced order does not exist.
	ErrOrderNotFound = errors.New("order not found")

	// ErrDriverNotFound - referenced driver does not exist.
	ErrDriverNotFound = errors.New("driver not found")

	// ErrPassengerNotFound - referenced passenger does not exist.
	ErrPassengerNotFound = errors.New("passenger not found")

	// ErrInvalidState - the requested transition is not legal from the
	// current order or driver state. Losers of the accept race see this too.
	ErrInvalidState = errors.New("transition not allowed from current state")

	// ErrConflict - uniqueness violation, e.g. an order number collision.
	// The engine retries these internally and never surfaces them unless
	// retries are exhausted.
	ErrConflict = errors.New("conflict")

	// ErrInternal - storage or directory failure the engine cannot interpret.
	ErrInternal = errors.New("internal error")
)
