package coordinator

import "errors"

// Domain errors for the coordinator package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, coordinator.ErrNotReady) {
//	    // schedule a setup retry
//	}
var (
	// ErrNotReady is returned by FirstRefresh when the device could not be
	// reached but is expected to recover. Setup should be retried later
	// rather than failed permanently.
	ErrNotReady = errors.New("coordinator: not ready")

	// ErrShutDown is returned when refreshing a coordinator that has
	// already been shut down.
	ErrShutDown = errors.New("coordinator: shut down")
)
