package ports

import (
	"context"
	"time"

	"run-dispatch-service/internal/domain"
)

// Filter for order listings. Zero values mean "no constraint".
type OrderFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Status    domain.OrderStatus
}

// Port: boundary for retrieving Order entities.
type OrderRepository interface {
	// Return orders matching the filter, newest first.
	ListOrders(ctx context.Context, f OrderFilter) ([]*domain.Order, error)
	// Return the orders with the given ids. Any missing id fails with
	// domain.ErrOrderNotFound wrapped with the offending id.
	GetOrders(ctx context.Context, ids []int64) ([]*domain.Order, error)
}
