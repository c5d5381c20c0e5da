package services

import (
	"context"
	"fmt"
	"time"

	"run-dispatch-service/internal/domain"
	"run-dispatch-service/internal/platform/obs"
	"run-dispatch-service/internal/ports"
)

// RouteDetails is the ephemeral route summary returned from a dispatch. It
// is response metadata for the admin UI, not part of the persisted run.
type RouteDetails struct {
	TotalDistanceMeters int
	TotalDuration       time.Duration
	OptimizedSequence   []int64
}

// Dispatcher orchestrates run creation: eligibility checks, route
// optimization, and the atomic persist that flips orders to EM_ROTA.
type Dispatcher struct {
	Orders  ports.OrderRepository
	Drivers ports.DriverRepository
	Runs    ports.RunRepository
	Cache   ports.RunCache
	// Pizzeria location; every route starts here.
	Origin domain.Coordinates
}

// Dispatch creates a run for the given orders and driver.
//
// Preconditions are checked before any mutation: the selection is non-empty,
// every order exists and is AGUARDANDO_ROTA, and the driver is ATIVO with no
// EM_ANDAMENTO run. The persist itself re-validates both order and driver
// state inside a single transaction, so two overlapping dispatches cannot
// both succeed; the loser fails with domain.ErrConcurrentDispatchConflict
// (or domain.ErrDriverUnavailable) and no state change.
func (d *Dispatcher) Dispatch(ctx context.Context, orderIDs []int64, driverID int64) (_ *domain.Run, _ *RouteDetails, err error) {
	defer obs.Time(ctx, "dispatch.Dispatch")(&err)

	if len(orderIDs) == 0 {
		return nil, nil, fmt.Errorf("dispatch: %w", domain.ErrEmptySelection)
	}
	if containsDuplicate(orderIDs) {
		return nil, nil, fmt.Errorf("dispatch: duplicate order id in selection: %w", domain.ErrOrderNotEligible)
	}

	driver, err := d.Drivers.GetDriver(ctx, driverID)
	if err != nil {
		return nil, nil, fmt.Errorf("dispatch: get driver %d: %w", driverID, err)
	}
	if !driver.Available() {
		return nil, nil, fmt.Errorf("dispatch: driver %d is %s: %w", driverID, driver.Status, domain.ErrDriverUnavailable)
	}

	busy, err := d.Runs.HasActiveRun(ctx, driverID)
	if err != nil {
		return nil, nil, fmt.Errorf("dispatch: check active run for driver %d: %w", driverID, err)
	}
	if busy {
		return nil, nil, fmt.Errorf("dispatch: driver %d already has a run in progress: %w", driverID, domain.ErrDriverUnavailable)
	}

	orders, err := d.Orders.GetOrders(ctx, orderIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("dispatch: get orders: %w", err)
	}
	for _, o := range orders {
		if !o.Eligible() {
			return nil, nil, fmt.Errorf("dispatch: order %d is %s: %w", o.ID, o.Status, domain.ErrOrderNotEligible)
		}
	}

	plan, err := OptimizeRoute(d.Origin, orders)
	if err != nil {
		return nil, nil, fmt.Errorf("dispatch: %w", err)
	}

	byID := make(map[int64]*domain.Order, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
	}

	// Stops in optimized visiting order, sequence numbers 1..N.
	stops := make([]ports.NewStop, 0, len(plan.Sequence))
	for i, orderID := range plan.Sequence {
		o := byID[orderID]
		stops = append(stops, ports.NewStop{
			Sequence: i + 1,
			OrderID:  o.ID,
			Order:    snapshotOrder(o),
		})
	}

	run, err := d.Runs.CreateRun(ctx, driverID, stops)
	if err != nil {
		return nil, nil, fmt.Errorf("dispatch: create run for driver %d: %w", driverID, err)
	}
	run.Driver = driver

	if d.Cache != nil {
		// Best effort: a stale feed heals on TTL expiry.
		_ = d.Cache.InvalidateDriver(ctx, driverID)
	}

	return run, &RouteDetails{
		TotalDistanceMeters: plan.TotalDistanceMeters,
		TotalDuration:       plan.TotalDuration,
		OptimizedSequence:   plan.Sequence,
	}, nil
}

// snapshotOrder freezes the delivery-relevant order fields into the stop so
// later order edits do not rewrite historical runs.
func snapshotOrder(o *domain.Order) domain.OrderSnapshot {
	return domain.OrderSnapshot{
		OrderID:      o.ID,
		CRMOrderID:   o.CRMOrderID,
		Address:      o.Address,
		Coordinates:  o.Coordinates,
		CustomerName: o.CustomerName,
		Deadline:     o.Deadline,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}

func containsDuplicate(ids []int64) bool {
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return true
		}
		seen[id] = struct{}{}
	}
	return false
}
