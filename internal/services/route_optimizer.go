package services

import (
	"fmt"
	"math"
	"time"

	"run-dispatch-service/internal/domain"
)

// Average urban delivery speed used to estimate leg durations from
// haversine distances.
const avgSpeedMetersPerSecond = 25_000.0 / 3600.0

// Two haversine distances closer than this are treated as equal for
// tie-breaking purposes.
const distanceEpsilonMeters = 1.0

// OptimizeRoute computes a delivery sequence over the given orders starting
// from the pizzeria origin, using greedy nearest-neighbor construction
// followed by 2-opt improvement.
//
// The algorithm minimizes haversine travel distance. 2-opt removes all
// crossing legs from the greedy tour but does not guarantee global
// optimality; for the typical run size (under 15 stops) it lands on or very
// near the optimal tour. Determinism: when two unvisited orders are
// equidistant from the current point, the one with the earlier delivery
// deadline is visited first (soft prioritization of time-sensitive orders),
// and equal deadlines fall back to the lower order id. 2-opt only applies
// strictly improving swaps, so it never disturbs a tie-broken ordering.
//
// Totals include the conceptual return leg back to the origin, even though
// the resulting run only models the outbound stops.
//
// Pure computation: no side effects, no I/O.
func OptimizeRoute(origin domain.Coordinates, orders []*domain.Order) (*domain.RoutePlan, error) {
	if len(orders) == 0 {
		return nil, fmt.Errorf("optimize route: %w", domain.ErrEmptySelection)
	}
	if !origin.Valid() {
		return nil, fmt.Errorf("optimize route: origin: %w", domain.ErrGeocodingMissing)
	}

	// A destination lacking coordinates fails the whole call; the caller
	// decides whether to exclude it and retry.
	for _, o := range orders {
		if !o.Coordinates.Valid() {
			return nil, fmt.Errorf("optimize route: order %d: %w", o.ID, domain.ErrGeocodingMissing)
		}
	}

	tour := nearestNeighborTour(origin, orders)
	tour = twoOptImprove(origin, orders, tour)

	seq := make([]int64, len(tour))
	for i, idx := range tour {
		seq[i] = orders[idx].ID
	}

	total := tourDistanceMeters(origin, orders, tour)
	duration := time.Duration(total/avgSpeedMetersPerSecond) * time.Second

	return &domain.RoutePlan{
		Sequence:            seq,
		TotalDistanceMeters: int(math.Round(total)),
		TotalDuration:       duration,
	}, nil
}

// nearestNeighborTour builds the greedy seed tour: at each step visit the
// closest unvisited order, breaking distance ties by earlier deadline, then
// lower order id.
func nearestNeighborTour(origin domain.Coordinates, orders []*domain.Order) []int {
	remaining := make([]int, len(orders))
	for i := range orders {
		remaining[i] = i
	}

	tour := make([]int, 0, len(orders))
	current := origin

	for len(remaining) > 0 {
		best := -1
		bestDist := math.MaxFloat64

		for pos, idx := range remaining {
			d := current.DistanceMeters(orders[idx].Coordinates)
			if best == -1 || d < bestDist-distanceEpsilonMeters {
				best, bestDist = pos, d
				continue
			}
			if math.Abs(d-bestDist) <= distanceEpsilonMeters && preferOrder(orders[idx], orders[remaining[best]]) {
				best, bestDist = pos, d
			}
		}

		next := remaining[best]
		tour = append(tour, next)
		current = orders[next].Coordinates
		remaining = append(remaining[:best], remaining[best+1:]...)
	}

	return tour
}

// preferOrder reports whether a should be visited before b when both are
// equidistant from the current point.
func preferOrder(a, b *domain.Order) bool {
	if !a.Deadline.Equal(b.Deadline) {
		return a.Deadline.Before(b.Deadline)
	}
	return a.ID < b.ID
}

// twoOptImprove repeatedly reverses tour segments while doing so strictly
// shortens the closed tour (origin -> stops -> origin). Strict improvement
// keeps the pass deterministic and terminating.
func twoOptImprove(origin domain.Coordinates, orders []*domain.Order, tour []int) []int {
	if len(tour) < 3 {
		return tour
	}

	improved := true
	for improved {
		improved = false
		for i := 0; i < len(tour)-1; i++ {
			for j := i + 1; j < len(tour); j++ {
				delta := reversalDelta(origin, orders, tour, i, j)
				if delta < -distanceEpsilonMeters {
					reverse(tour, i, j)
					improved = true
				}
			}
		}
	}

	return tour
}

// reversalDelta is the change in closed-tour length from reversing
// tour[i..j]. Only the two boundary legs change.
func reversalDelta(origin domain.Coordinates, orders []*domain.Order, tour []int, i, j int) float64 {
	pointAt := func(k int) domain.Coordinates {
		if k < 0 || k >= len(tour) {
			return origin
		}
		return orders[tour[k]].Coordinates
	}

	before := pointAt(i-1).DistanceMeters(pointAt(i)) + pointAt(j).DistanceMeters(pointAt(j+1))
	after := pointAt(i-1).DistanceMeters(pointAt(j)) + pointAt(i).DistanceMeters(pointAt(j+1))
	return after - before
}

func reverse(tour []int, i, j int) {
	for i < j {
		tour[i], tour[j] = tour[j], tour[i]
		i++
		j--
	}
}

// tourDistanceMeters is the closed-tour length: origin through every stop in
// order, plus the return leg to origin.
func tourDistanceMeters(origin domain.Coordinates, orders []*domain.Order, tour []int) float64 {
	total := 0.0
	current := origin
	for _, idx := range tour {
		total += current.DistanceMeters(orders[idx].Coordinates)
		current = orders[idx].Coordinates
	}
	total += current.DistanceMeters(origin)
	return total
}
