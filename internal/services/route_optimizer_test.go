package services

import (
	"errors"
	"testing"
	"time"

	"run-dispatch-service/internal/domain"
)

func TestOptimizeRouteOrdersByProximity(t *testing.T) {
	// Pizzeria in Londrina; B is clearly closer than A.
	origin := domain.Coordinates{Lat: -23.2657, Lng: -51.0528}
	now := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)

	orders := []*domain.Order{
		{ID: 1, Coordinates: domain.Coordinates{Lat: -23.2700, Lng: -51.0500}, Deadline: now.Add(30 * time.Minute)},
		{ID: 2, Coordinates: domain.Coordinates{Lat: -23.2650, Lng: -51.0550}, Deadline: now.Add(10 * time.Minute)},
	}

	plan, err := OptimizeRoute(origin, orders)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(plan.Sequence) != 2 {
		t.Fatalf("expected 2 stops, got %d", len(plan.Sequence))
	}
	if plan.Sequence[0] != 2 || plan.Sequence[1] != 1 {
		t.Fatalf("expected sequence [2 1], got %v", plan.Sequence)
	}
	if plan.TotalDistanceMeters <= 0 {
		t.Fatalf("expected positive total distance, got %d", plan.TotalDistanceMeters)
	}
	if plan.TotalDuration <= 0 {
		t.Fatalf("expected positive total duration, got %v", plan.TotalDuration)
	}
}

func TestOptimizeRouteDeadlineTieBreak(t *testing.T) {
	// Two destinations exactly mirrored east/west of the origin, so their
	// haversine distances are equal. The earlier deadline must win.
	origin := domain.Coordinates{Lat: 10, Lng: 10}
	now := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)

	orders := []*domain.Order{
		{ID: 1, Coordinates: domain.Coordinates{Lat: 10, Lng: 10.01}, Deadline: now.Add(30 * time.Minute)},
		{ID: 2, Coordinates: domain.Coordinates{Lat: 10, Lng: 9.99}, Deadline: now.Add(10 * time.Minute)},
	}

	plan, err := OptimizeRoute(origin, orders)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Sequence[0] != 2 {
		t.Fatalf("expected earlier deadline (order 2) first, got %v", plan.Sequence)
	}
}

func TestOptimizeRouteIDTieBreak(t *testing.T) {
	// Equal distance and equal deadline: the lower id goes first.
	origin := domain.Coordinates{Lat: 10, Lng: 10}
	deadline := time.Date(2026, 3, 1, 19, 30, 0, 0, time.UTC)

	orders := []*domain.Order{
		{ID: 7, Coordinates: domain.Coordinates{Lat: 10, Lng: 10.01}, Deadline: deadline},
		{ID: 3, Coordinates: domain.Coordinates{Lat: 10, Lng: 9.99}, Deadline: deadline},
	}

	plan, err := OptimizeRoute(origin, orders)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Sequence[0] != 3 {
		t.Fatalf("expected lower id (order 3) first, got %v", plan.Sequence)
	}
}

func TestOptimizeRouteDeterminism(t *testing.T) {
	origin := domain.Coordinates{Lat: -23.2657, Lng: -51.0528}
	now := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)

	orders := []*domain.Order{
		{ID: 1, Coordinates: domain.Coordinates{Lat: -23.2700, Lng: -51.0500}, Deadline: now.Add(40 * time.Minute)},
		{ID: 2, Coordinates: domain.Coordinates{Lat: -23.2650, Lng: -51.0550}, Deadline: now.Add(10 * time.Minute)},
		{ID: 3, Coordinates: domain.Coordinates{Lat: -23.2610, Lng: -51.0470}, Deadline: now.Add(25 * time.Minute)},
		{ID: 4, Coordinates: domain.Coordinates{Lat: -23.2730, Lng: -51.0610}, Deadline: now.Add(25 * time.Minute)},
		{ID: 5, Coordinates: domain.Coordinates{Lat: -23.2590, Lng: -51.0580}, Deadline: now.Add(55 * time.Minute)},
	}

	first, err := OptimizeRoute(origin, orders)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 10; i++ {
		plan, err := OptimizeRoute(origin, orders)
		if err != nil {
			t.Fatalf("run %d: unexpected error: %v", i, err)
		}
		for j := range first.Sequence {
			if plan.Sequence[j] != first.Sequence[j] {
				t.Fatalf("run %d: sequence %v differs from first %v", i, plan.Sequence, first.Sequence)
			}
		}
		if plan.TotalDistanceMeters != first.TotalDistanceMeters {
			t.Fatalf("run %d: distance %d differs from first %d", i, plan.TotalDistanceMeters, first.TotalDistanceMeters)
		}
	}
}

func TestOptimizeRouteEmptySelection(t *testing.T) {
	origin := domain.Coordinates{Lat: 10, Lng: 10}

	_, err := OptimizeRoute(origin, nil)
	if !errors.Is(err, domain.ErrEmptySelection) {
		t.Fatalf("expected ErrEmptySelection, got %v", err)
	}
}

func TestOptimizeRouteMissingCoordinates(t *testing.T) {
	origin := domain.Coordinates{Lat: 10, Lng: 10}
	deadline := time.Date(2026, 3, 1, 19, 30, 0, 0, time.UTC)

	orders := []*domain.Order{
		{ID: 1, Coordinates: domain.Coordinates{Lat: 10, Lng: 10.01}, Deadline: deadline},
		{ID: 2, Coordinates: domain.Coordinates{}, Deadline: deadline},
	}

	_, err := OptimizeRoute(origin, orders)
	if !errors.Is(err, domain.ErrGeocodingMissing) {
		t.Fatalf("expected ErrGeocodingMissing, got %v", err)
	}
}

func TestTwoOptImproveUntanglesBadTour(t *testing.T) {
	// Four destinations east of the origin along one parallel. The optimal
	// closed tour walks out to the farthest point and straight back, so its
	// length is twice the origin->farthest distance.
	origin := domain.Coordinates{Lat: 10, Lng: 10}
	orders := []*domain.Order{
		{ID: 1, Coordinates: domain.Coordinates{Lat: 10, Lng: 10.01}},
		{ID: 2, Coordinates: domain.Coordinates{Lat: 10, Lng: 10.02}},
		{ID: 3, Coordinates: domain.Coordinates{Lat: 10, Lng: 10.03}},
		{ID: 4, Coordinates: domain.Coordinates{Lat: 10, Lng: 10.04}},
	}

	// Deliberately tangled starting order.
	tour := []int{2, 0, 3, 1}
	tour = twoOptImprove(origin, orders, tour)

	got := tourDistanceMeters(origin, orders, tour)
	want := 2 * origin.DistanceMeters(orders[3].Coordinates)
	if got > want+distanceEpsilonMeters {
		t.Fatalf("tour length %.1fm after 2-opt, optimal is %.1fm (tour %v)", got, want, tour)
	}
}
