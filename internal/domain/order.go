package domain

import "time"

// Overall order status. Values are the wire/database strings consumed by the
// existing dashboard and must not be renamed.
type OrderStatus string

const (
	OrderAwaitingRoute OrderStatus = "AGUARDANDO_ROTA"
	OrderInRoute       OrderStatus = "EM_ROTA"
	OrderCompleted     OrderStatus = "CONCLUIDO"
)

// Order is a customer delivery request produced by order ingestion.
// It is never deleted, only transitioned:
// AGUARDANDO_ROTA -> EM_ROTA (dispatch) -> CONCLUIDO (stop completion).
type Order struct {
	ID           int64
	CRMOrderID   string
	Address      string
	Coordinates  Coordinates
	CustomerName string
	// Latest acceptable delivery time, used by the route optimizer as a
	// tie-breaker so time-sensitive orders are visited first.
	Deadline  time.Time
	Status    OrderStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Eligible reports whether the order can be placed on a new run.
func (o *Order) Eligible() bool {
	return o.Status == OrderAwaitingRoute
}
