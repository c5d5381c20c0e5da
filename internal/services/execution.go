package services

import (
	"context"
	"fmt"

	"run-dispatch-service/internal/domain"
	"run-dispatch-service/internal/platform/obs"
	"run-dispatch-service/internal/ports"
)

// Executor drives runs from creation to completion: it accepts complete-stop
// commands and derives the run's FINALIZADA state once every stop is done.
type Executor struct {
	Runs  ports.RunRepository
	Cache ports.RunCache
	// When true, a stop may only be completed when every lower-sequence
	// stop is already done. Off by default: drivers routinely complete
	// adjacent deliveries out of order.
	StrictSequential bool
}

// CompleteStop marks one stop of a run as delivered.
//
// The stop transitions PENDENTE -> CONCLUIDA exactly once with its
// completion timestamp, its order becomes CONCLUIDO, and the run becomes
// FINALIZADA when that was the last pending stop, all in one transaction.
// Retrying a completed stop fails softly with domain.ErrStopAlreadyCompleted
// and changes nothing, so network-level retries are safe. A driver cannot
// complete another driver's stop (domain.ErrDriverMismatch).
func (e *Executor) CompleteStop(ctx context.Context, runID, stopID, driverID int64) (_ *ports.Completion, err error) {
	defer obs.Time(ctx, "execution.CompleteStop")(&err)

	if runID <= 0 || stopID <= 0 || driverID <= 0 {
		return nil, fmt.Errorf("complete stop: run %d stop %d driver %d: %w", runID, stopID, driverID, domain.ErrStopNotFound)
	}

	c, err := e.Runs.CompleteStop(ctx, runID, stopID, driverID, e.StrictSequential)
	if err != nil {
		return nil, fmt.Errorf("complete stop: run %d stop %d: %w", runID, stopID, err)
	}

	if e.Cache != nil {
		_ = e.Cache.InvalidateDriver(ctx, driverID)
	}

	return c, nil
}
