package domain

import "time"

// Run (corrida) status wire/database strings.
type RunStatus string

const (
	RunInProgress RunStatus = "EM_ANDAMENTO"
	RunFinished   RunStatus = "FINALIZADA"
	RunCancelled  RunStatus = "CANCELADA"
)

// Stop (parada) status wire/database strings.
type StopStatus string

const (
	StopPending   StopStatus = "PENDENTE"
	StopCompleted StopStatus = "CONCLUIDA"
)

// OrderSnapshot is the delivery-relevant view of an Order copied into its
// Stop at dispatch time. Later edits to the Order do not retroactively
// change historical stop records.
type OrderSnapshot struct {
	OrderID      int64
	CRMOrderID   string
	Address      string
	Coordinates  Coordinates
	CustomerName string
	Deadline     time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Stop is one delivery leg of a Run. Sequence numbers are assigned 1..N at
// run creation and never reordered. Status transitions PENDENTE -> CONCLUIDA
// exactly once; CompletedAt is set at transition time and immutable after.
type Stop struct {
	ID          int64
	Sequence    int
	Status      StopStatus
	CompletedAt *time.Time
	RunID       int64
	OrderID     int64
	Order       OrderSnapshot
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Run is one dispatched delivery trip: an ordered sequence of Stops assigned
// to a single driver. The Run owns its Stops (created together, same
// lifetime); the Driver is referenced, not owned.
type Run struct {
	ID        int64
	Status    RunStatus
	DriverID  int64
	Driver    *Driver
	Stops     []Stop
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AllStopsCompleted reports whether every stop of the run has been delivered.
// A run with no stops is never considered complete; the dispatcher rejects
// empty selections before one can exist.
func (r *Run) AllStopsCompleted() bool {
	if len(r.Stops) == 0 {
		return false
	}
	for i := range r.Stops {
		if r.Stops[i].Status != StopCompleted {
			return false
		}
	}
	return true
}

// NextPendingSequence returns the lowest sequence number still pending,
// or 0 when every stop is completed. Used by the strict-sequential
// execution policy.
func (r *Run) NextPendingSequence() int {
	next := 0
	for i := range r.Stops {
		s := &r.Stops[i]
		if s.Status != StopPending {
			continue
		}
		if next == 0 || s.Sequence < next {
			next = s.Sequence
		}
	}
	return next
}

// RoutePlan is the output of the route optimizer: the visiting order over
// the input orders plus aggregate metrics. It is immutable planning data and
// is not persisted; the stops created from it carry the sequence.
type RoutePlan struct {
	// Order ids in optimized visiting order.
	Sequence []int64
	// Outbound legs plus the conceptual return leg to the origin.
	TotalDistanceMeters int
	TotalDuration       time.Duration
}
