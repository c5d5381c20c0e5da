package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"run-dispatch-service/internal/domain"
	"run-dispatch-service/internal/ports"
)

// MemoryStore implements the Order/Driver/Run repository ports in memory
// under a single mutex, with the same transactional semantics as the
// Postgres adapter (all-or-nothing mutations, serialized run-finish check).
// It backs service and handler tests that exercise race-sensitive paths
// without a database.
type MemoryStore struct {
	mu      sync.Mutex
	orders  map[int64]*domain.Order
	drivers map[int64]*domain.Driver
	runs    map[int64]*domain.Run
	nextRun int64
	nextStp int64
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:  make(map[int64]*domain.Order),
		drivers: make(map[int64]*domain.Driver),
		runs:    make(map[int64]*domain.Run),
		nextRun: 1,
		nextStp: 1,
		now:     time.Now,
	}
}

// AddOrder and AddDriver seed test fixtures.
func (m *MemoryStore) AddOrder(o *domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	if cp.Status == "" {
		cp.Status = domain.OrderAwaitingRoute
	}
	m.orders[cp.ID] = &cp
}

func (m *MemoryStore) AddDriver(d *domain.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	if cp.Status == "" {
		cp.Status = domain.DriverActive
	}
	m.drivers[cp.ID] = &cp
}

func (m *MemoryStore) ListOrders(ctx context.Context, f ports.OrderFilter) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*domain.Order, 0, len(m.orders))
	for _, o := range m.orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.StartDate != nil && o.CreatedAt.Before(*f.StartDate) {
			continue
		}
		if f.EndDate != nil && o.CreatedAt.After(*f.EndDate) {
			continue
		}
		cp := *o
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *MemoryStore) GetOrders(ctx context.Context, ids []int64) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*domain.Order, 0, len(ids))
	for _, id := range ids {
		o, ok := m.orders[id]
		if !ok {
			return nil, fmt.Errorf("get orders: order %d: %w", id, domain.ErrOrderNotFound)
		}
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemoryStore) ListDrivers(ctx context.Context) ([]*domain.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*domain.Driver, 0, len(m.drivers))
	for _, d := range m.drivers {
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) GetDriver(ctx context.Context, id int64) (*domain.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.drivers[id]
	if !ok {
		return nil, fmt.Errorf("get driver %d: %w", id, domain.ErrDriverNotFound)
	}
	cp := *d
	return &cp, nil
}

func (m *MemoryStore) CreateRun(ctx context.Context, driverID int64, stops []ports.NewStop) (*domain.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(stops) == 0 {
		return nil, fmt.Errorf("create run: %w", domain.ErrEmptySelection)
	}

	for _, r := range m.runs {
		if r.DriverID == driverID && r.Status == domain.RunInProgress {
			return nil, fmt.Errorf("create run: driver %d: %w", driverID, domain.ErrDriverUnavailable)
		}
	}

	// Re-validate every order before mutating anything, mirroring the
	// conditional UPDATE in the Postgres adapter.
	for _, s := range stops {
		o, ok := m.orders[s.OrderID]
		if !ok || o.Status != domain.OrderAwaitingRoute {
			return nil, fmt.Errorf("create run: order %d: %w", s.OrderID, domain.ErrConcurrentDispatchConflict)
		}
	}

	now := m.now()
	run := &domain.Run{
		ID:        m.nextRun,
		Status:    domain.RunInProgress,
		DriverID:  driverID,
		Stops:     make([]domain.Stop, 0, len(stops)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.nextRun++

	for _, s := range stops {
		m.orders[s.OrderID].Status = domain.OrderInRoute
		m.orders[s.OrderID].UpdatedAt = now

		run.Stops = append(run.Stops, domain.Stop{
			ID:        m.nextStp,
			Sequence:  s.Sequence,
			Status:    domain.StopPending,
			RunID:     run.ID,
			OrderID:   s.OrderID,
			Order:     s.Order,
			CreatedAt: now,
			UpdatedAt: now,
		})
		m.nextStp++
	}

	m.runs[run.ID] = run
	cp := cloneRun(run)
	return cp, nil
}

func (m *MemoryStore) HasActiveRun(ctx context.Context, driverID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.runs {
		if r.DriverID == driverID && r.Status == domain.RunInProgress {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) GetRun(ctx context.Context, id int64) (*domain.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("get run %d: %w", id, domain.ErrRunNotFound)
	}
	cp := cloneRun(r)
	cp.Driver = m.driverRef(r.DriverID)
	return cp, nil
}

func (m *MemoryStore) ListRuns(ctx context.Context, f ports.RunFilter) ([]*domain.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*domain.Run, 0, len(m.runs))
	for _, r := range m.runs {
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.DriverID != 0 && r.DriverID != f.DriverID {
			continue
		}
		if f.StartDate != nil && r.CreatedAt.Before(*f.StartDate) {
			continue
		}
		if f.EndDate != nil && r.CreatedAt.After(*f.EndDate) {
			continue
		}
		cp := cloneRun(r)
		cp.Driver = m.driverRef(r.DriverID)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *MemoryStore) CompleteStop(ctx context.Context, runID, stopID, driverID int64, strictSequential bool) (*ports.Completion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[runID]
	if !ok {
		return nil, fmt.Errorf("complete stop: run %d: %w", runID, domain.ErrRunNotFound)
	}
	if run.DriverID != driverID {
		return nil, fmt.Errorf("complete stop: run %d: %w", runID, domain.ErrDriverMismatch)
	}

	var stop *domain.Stop
	for i := range run.Stops {
		if run.Stops[i].ID == stopID {
			stop = &run.Stops[i]
			break
		}
	}
	if stop == nil {
		return nil, fmt.Errorf("complete stop: stop %d in run %d: %w", stopID, runID, domain.ErrStopNotFound)
	}
	// Checked before run status so a retry of the final completion, after
	// the run has already closed, still fails soft.
	if stop.Status == domain.StopCompleted {
		return nil, fmt.Errorf("complete stop: stop %d: %w", stopID, domain.ErrStopAlreadyCompleted)
	}
	if run.Status != domain.RunInProgress {
		return nil, fmt.Errorf("complete stop: run %d is %s: %w", runID, run.Status, domain.ErrRunNotInProgress)
	}
	if strictSequential {
		if next := run.NextPendingSequence(); stop.Sequence != next {
			return nil, fmt.Errorf("complete stop: stop %d out of sequence: %w", stopID, domain.ErrStopOutOfOrder)
		}
	}

	now := m.now()
	stop.Status = domain.StopCompleted
	stop.CompletedAt = &now
	stop.UpdatedAt = now

	if o, ok := m.orders[stop.OrderID]; ok {
		o.Status = domain.OrderCompleted
		o.UpdatedAt = now
	}

	if run.AllStopsCompleted() {
		run.Status = domain.RunFinished
		run.UpdatedAt = now
	}

	stopCp := *stop
	return &ports.Completion{Stop: &stopCp, RunStatus: run.Status}, nil
}

func (m *MemoryStore) driverRef(id int64) *domain.Driver {
	if d, ok := m.drivers[id]; ok {
		cp := *d
		return &cp
	}
	return nil
}

func cloneRun(r *domain.Run) *domain.Run {
	cp := *r
	cp.Stops = make([]domain.Stop, len(r.Stops))
	copy(cp.Stops, r.Stops)
	return &cp
}
