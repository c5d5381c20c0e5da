package ports

import (
	"context"

	"run-dispatch-service/internal/domain"
)

// Port: short-lived cache of a driver's run feed. Driver clients poll their
// run list aggressively; the cache absorbs that read load. Implementations
// must treat a miss and an unavailable backend the same way (cache aside).
type RunCache interface {
	// Return the cached feed for a driver, or (nil, nil) on miss.
	GetDriverRuns(ctx context.Context, driverID int64) ([]*domain.Run, error)
	// Store a driver's feed with the implementation's TTL.
	PutDriverRuns(ctx context.Context, driverID int64, runs []*domain.Run) error
	// Drop a driver's feed after a state change (dispatch, stop completion).
	InvalidateDriver(ctx context.Context, driverID int64) error
}
