package ports

import (
	"context"
	"time"

	"run-dispatch-service/internal/domain"
)

// Filter for run listings. Zero values mean "no constraint".
type RunFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Status    domain.RunStatus
	DriverID  int64
}

// NewStop describes one leg of a run to be created: the optimizer-assigned
// sequence plus the order snapshot frozen at dispatch time.
type NewStop struct {
	Sequence int
	OrderID  int64
	Order    domain.OrderSnapshot
}

// Completion is the outcome of a complete-stop transaction.
type Completion struct {
	Stop      *domain.Stop
	RunStatus domain.RunStatus
}

// Port: boundary for Run/Stop persistence. The two mutating operations are
// transactional: they either apply every described state change or none.
type RunRepository interface {
	// Atomically create a run with its stops and flip every referenced
	// order AGUARDANDO_ROTA -> EM_ROTA. Preconditions are re-validated
	// inside the transaction; a lost race fails with
	// domain.ErrConcurrentDispatchConflict (overlapping order selection)
	// or domain.ErrDriverUnavailable (driver gained an active run).
	CreateRun(ctx context.Context, driverID int64, stops []NewStop) (*domain.Run, error)

	// Return one run with its stops and driver, or domain.ErrRunNotFound.
	GetRun(ctx context.Context, id int64) (*domain.Run, error)

	// Return runs matching the filter, newest first, stops embedded.
	ListRuns(ctx context.Context, f RunFilter) ([]*domain.Run, error)

	// Report whether the driver currently holds an EM_ANDAMENTO run.
	HasActiveRun(ctx context.Context, driverID int64) (bool, error)

	// Atomically complete one stop: stop -> CONCLUIDA with completion
	// timestamp, its order -> CONCLUIDO, and the run -> FINALIZADA when
	// that was the last pending stop. The run row is locked for the whole
	// check so two concurrent completions cannot both finish the run.
	// Fails with domain.ErrRunNotFound, domain.ErrStopNotFound,
	// domain.ErrRunNotInProgress, domain.ErrDriverMismatch,
	// domain.ErrStopAlreadyCompleted, or domain.ErrStopOutOfOrder
	// (strict sequential policy only).
	CompleteStop(ctx context.Context, runID, stopID, driverID int64, strictSequential bool) (*Completion, error)
}
