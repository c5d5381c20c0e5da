package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"run-dispatch-service/internal/adapters/repositories"
	"run-dispatch-service/internal/domain"
)

var testOrigin = domain.Coordinates{Lat: -23.2657, Lng: -51.0528}

func newTestStore(t *testing.T) *repositories.MemoryStore {
	t.Helper()
	store := repositories.NewMemoryStore()

	now := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)
	store.AddDriver(&domain.Driver{ID: 5, Name: "Carlos", Phone: "43 99999-0001", Status: domain.DriverActive})
	store.AddDriver(&domain.Driver{ID: 6, Name: "Ana", Phone: "43 99999-0002", Status: domain.DriverInactive})

	store.AddOrder(&domain.Order{
		ID: 10, CRMOrderID: "CRM-10", Address: "Rua A, 100",
		Coordinates: domain.Coordinates{Lat: -23.2700, Lng: -51.0500},
		CustomerName: "Marcos", Deadline: now.Add(30 * time.Minute),
		Status: domain.OrderAwaitingRoute, CreatedAt: now, UpdatedAt: now,
	})
	store.AddOrder(&domain.Order{
		ID: 11, CRMOrderID: "CRM-11", Address: "Rua B, 200",
		Coordinates: domain.Coordinates{Lat: -23.2650, Lng: -51.0550},
		CustomerName: "Paula", Deadline: now.Add(10 * time.Minute),
		Status: domain.OrderAwaitingRoute, CreatedAt: now, UpdatedAt: now,
	})
	store.AddOrder(&domain.Order{
		ID: 12, CRMOrderID: "CRM-12", Address: "Rua C, 300",
		Coordinates: domain.Coordinates{Lat: -23.2610, Lng: -51.0470},
		CustomerName: "Rita", Deadline: now.Add(45 * time.Minute),
		Status: domain.OrderAwaitingRoute, CreatedAt: now, UpdatedAt: now,
	})

	return store
}

func newTestDispatcher(store *repositories.MemoryStore) *Dispatcher {
	return &Dispatcher{
		Orders:  store,
		Drivers: store,
		Runs:    store,
		Origin:  testOrigin,
	}
}

func TestDispatchCreatesRunWithOrderedStops(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	d := newTestDispatcher(store)

	run, details, err := d.Dispatch(ctx, []int64{10, 11}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if run.Status != domain.RunInProgress {
		t.Fatalf("run status = %s, want EM_ANDAMENTO", run.Status)
	}
	if run.DriverID != 5 {
		t.Fatalf("run driver = %d, want 5", run.DriverID)
	}
	if len(run.Stops) != 2 {
		t.Fatalf("expected 2 stops, got %d", len(run.Stops))
	}
	for i, s := range run.Stops {
		if s.Sequence != i+1 {
			t.Fatalf("stop %d has ordem %d, want %d", i, s.Sequence, i+1)
		}
		if s.Status != domain.StopPending {
			t.Fatalf("stop %d status = %s, want PENDENTE", i, s.Status)
		}
	}

	// Order 11 is closer to the pizzeria, so it is visited first.
	if run.Stops[0].OrderID != 11 || run.Stops[1].OrderID != 10 {
		t.Fatalf("stop order = [%d %d], want [11 10]", run.Stops[0].OrderID, run.Stops[1].OrderID)
	}
	if len(details.OptimizedSequence) != 2 || details.OptimizedSequence[0] != 11 {
		t.Fatalf("optimized sequence = %v, want [11 10]", details.OptimizedSequence)
	}
	if details.TotalDistanceMeters <= 0 {
		t.Fatalf("expected positive route distance, got %d", details.TotalDistanceMeters)
	}

	// Both orders flipped to EM_ROTA.
	orders, err := store.GetOrders(ctx, []int64{10, 11})
	if err != nil {
		t.Fatalf("re-read orders: %v", err)
	}
	for _, o := range orders {
		if o.Status != domain.OrderInRoute {
			t.Fatalf("order %d status = %s, want EM_ROTA", o.ID, o.Status)
		}
	}

	// Stop snapshots carry the frozen order fields.
	if run.Stops[0].Order.CustomerName != "Paula" || run.Stops[0].Order.Address != "Rua B, 200" {
		t.Fatalf("stop snapshot = %+v, want order 11 fields", run.Stops[0].Order)
	}
}

func TestDispatchBusyDriver(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	d := newTestDispatcher(store)

	if _, _, err := d.Dispatch(ctx, []int64{10}, 5); err != nil {
		t.Fatalf("first dispatch: %v", err)
	}

	_, _, err := d.Dispatch(ctx, []int64{11}, 5)
	if !errors.Is(err, domain.ErrDriverUnavailable) {
		t.Fatalf("expected ErrDriverUnavailable, got %v", err)
	}

	// The rejected order must be untouched.
	orders, err := store.GetOrders(ctx, []int64{11})
	if err != nil {
		t.Fatalf("re-read order: %v", err)
	}
	if orders[0].Status != domain.OrderAwaitingRoute {
		t.Fatalf("order 11 status = %s, want AGUARDANDO_ROTA", orders[0].Status)
	}
}

func TestDispatchInactiveDriver(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	d := newTestDispatcher(store)

	_, _, err := d.Dispatch(ctx, []int64{10}, 6)
	if !errors.Is(err, domain.ErrDriverUnavailable) {
		t.Fatalf("expected ErrDriverUnavailable, got %v", err)
	}
}

func TestDispatchIneligibleOrderIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	d := newTestDispatcher(store)

	// Put order 10 on a run with another driver first.
	store.AddDriver(&domain.Driver{ID: 7, Name: "Bia", Status: domain.DriverActive})
	if _, _, err := d.Dispatch(ctx, []int64{10}, 7); err != nil {
		t.Fatalf("setup dispatch: %v", err)
	}

	_, _, err := d.Dispatch(ctx, []int64{10, 11, 12}, 5)
	if !errors.Is(err, domain.ErrOrderNotEligible) {
		t.Fatalf("expected ErrOrderNotEligible, got %v", err)
	}

	// None of the valid orders in the same request may be partially processed.
	orders, err := store.GetOrders(ctx, []int64{11, 12})
	if err != nil {
		t.Fatalf("re-read orders: %v", err)
	}
	for _, o := range orders {
		if o.Status != domain.OrderAwaitingRoute {
			t.Fatalf("order %d status = %s, want AGUARDANDO_ROTA", o.ID, o.Status)
		}
	}
	if busy, _ := store.HasActiveRun(ctx, 5); busy {
		t.Fatal("driver 5 must not have gained a run")
	}
}

func TestDispatchEmptySelection(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(newTestStore(t))

	_, _, err := d.Dispatch(ctx, nil, 5)
	if !errors.Is(err, domain.ErrEmptySelection) {
		t.Fatalf("expected ErrEmptySelection, got %v", err)
	}
}

func TestDispatchDuplicateOrderIDs(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(newTestStore(t))

	_, _, err := d.Dispatch(ctx, []int64{10, 10}, 5)
	if !errors.Is(err, domain.ErrOrderNotEligible) {
		t.Fatalf("expected ErrOrderNotEligible, got %v", err)
	}
}

func TestDispatchMissingCoordinates(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	d := newTestDispatcher(store)

	now := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)
	store.AddOrder(&domain.Order{
		ID: 13, CRMOrderID: "CRM-13", Address: "Rua D, 400",
		CustomerName: "Igor", Deadline: now.Add(20 * time.Minute),
		Status: domain.OrderAwaitingRoute, CreatedAt: now, UpdatedAt: now,
	})

	_, _, err := d.Dispatch(ctx, []int64{10, 13}, 5)
	if !errors.Is(err, domain.ErrGeocodingMissing) {
		t.Fatalf("expected ErrGeocodingMissing, got %v", err)
	}

	// Nothing mutated: the whole selection is rejected.
	orders, err := store.GetOrders(ctx, []int64{10, 13})
	if err != nil {
		t.Fatalf("re-read orders: %v", err)
	}
	for _, o := range orders {
		if o.Status != domain.OrderAwaitingRoute {
			t.Fatalf("order %d status = %s, want AGUARDANDO_ROTA", o.ID, o.Status)
		}
	}
}

func TestDispatchUnknownOrder(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher(newTestStore(t))

	_, _, err := d.Dispatch(ctx, []int64{999}, 5)
	if !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}
