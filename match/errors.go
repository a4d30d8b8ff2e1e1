package match

import "errors"

var (
	// ErrInvalidParam is returned when a submission fails validation
	// (non-positive price, zero quantity, or empty instrument).
	ErrInvalidParam = errors.New("match: invalid order parameters")

	// ErrNotFound names the unknown instrument or order id case. No
	// function currently returns it: Cancel and the queries report that
	// case through a false or zero-value result.
	ErrNotFound = errors.New("match: not found")

	// ErrShutdown is returned by Submit once the engine has been marked
	// draining via Shutdown; Cancel returns false in that state.
	ErrShutdown = errors.New("match: engine is shutting down")

	// ErrInternal indicates an invariant breach (e.g. the order-id index
	// names an instrument with no book). The engine logs the breach with
	// this error attached; Cancel then returns false rather than act on
	// inconsistent state.
	ErrInternal = errors.New("match: internal invariant breach")
)
