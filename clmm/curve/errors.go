package curve

import "errors"

// Error taxonomy for the quote/position/assembly pipeline. Callers branch with
// errors.Is; message text is never inspected.
var (
	// ErrInvalidRequest marks malformed or out-of-range caller input. Not retryable.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrPriceOutOfRange marks a price or tick outside the program's valid range.
	ErrPriceOutOfRange = errors.New("price out of range")

	// ErrAmountOverflow marks an amount that cannot be represented in 64 bits or
	// that the pool cannot serve.
	ErrAmountOverflow = errors.New("amount overflow")

	// ErrEmptyTrade marks a swap with zero input, zero output, or zero liquidity.
	ErrEmptyTrade = errors.New("empty trade")

	// ErrPositionAlreadyExists marks an open request for an (owner, pool, range)
	// that already has a position. Retryable after re-querying state.
	ErrPositionAlreadyExists = errors.New("position already exists")

	// ErrPositionNotFound marks an increase/decrease request for a position that
	// does not exist on chain. Retryable after re-querying state.
	ErrPositionNotFound = errors.New("position not found")

	// ErrChainRead marks a failed read from the chain-state accessor.
	ErrChainRead = errors.New("chain read failure")

	// ErrSubmission marks a failed transaction submission or confirmation.
	ErrSubmission = errors.New("submission failure")

	// ErrInstructionBuild marks an internal invariant violation while assembling
	// an instruction. Never expected in normal operation.
	ErrInstructionBuild = errors.New("instruction build failure")
)
