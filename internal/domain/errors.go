package domain

import "errors"

// Domain error taxonomy. Services wrap these with fmt.Errorf("op: ...: %w")
// detail; the HTTP layer maps them to status codes with errors.Is.
var (
	// Eligibility failures: preconditions not met, nothing mutated.
	ErrEmptySelection    = errors.New("order selection is empty")
	ErrOrderNotEligible  = errors.New("order is not awaiting route")
	ErrDriverUnavailable = errors.New("driver is unavailable for a new run")

	// Data failures.
	ErrGeocodingMissing = errors.New("order has no valid coordinates")
	ErrOrderNotFound    = errors.New("order not found")
	ErrDriverNotFound   = errors.New("driver not found")
	ErrRunNotFound      = errors.New("run not found")
	ErrStopNotFound     = errors.New("stop not found")

	// Detected races: caller should refetch and may retry.
	ErrConcurrentDispatchConflict = errors.New("concurrent dispatch conflict")
	ErrStopAlreadyCompleted       = errors.New("stop already completed")
	ErrStopOutOfOrder             = errors.New("stop completed out of sequence")

	// Authorization: requesting driver does not own the run.
	ErrDriverMismatch = errors.New("stop belongs to another driver's run")

	// State failures.
	ErrRunNotInProgress = errors.New("run is not in progress")
)
