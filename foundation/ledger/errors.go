package ledger

import (
	"errors"
	"fmt"
)

// Sentinel errors for mining attempts that end without a block. Lease
// contention and reentrancy are successful no-ops by design and are never
// surfaced to submitters.
var (
	ErrNotInitialized   = errors.New("ledger has not been initialized")
	ErrShuttingDown     = errors.New("ledger is shutting down")
	ErrNoTransactions   = errors.New("no transactions pending")
	ErrMiningInProgress = errors.New("mining already in progress in this process")
	ErrLeaseHeld        = errors.New("mining lease held by another process")
	ErrMiningTimeout    = errors.New("mining timed out, batch requeued")
)

// OversizeError indicates a payload or batch exceeding a configured byte
// ceiling. Oversize content is rejected or requeued, never silently dropped.
type OversizeError struct {
	Resource string
	Size     int
	Limit    int
}

// Error implements the error interface.
func (oe *OversizeError) Error() string {
	return fmt.Sprintf("%s size %d exceeds the %d byte ceiling", oe.Resource, oe.Size, oe.Limit)
}

// IsOversizeError checks for an oversize error in the chain.
func IsOversizeError(err error) bool {
	var oe *OversizeError
	return errors.As(err, &oe)
}
