package dto

import (
	"time"

	"run-dispatch-service/internal/domain"
)

// Wire shape of a corrida with its paradas embedded.
type RunResponse struct {
	ID        int64           `json:"id"`
	Status    string          `json:"status"`
	DriverID  int64           `json:"entregadorId"`
	Driver    *DriverResponse `json:"entregador,omitempty"`
	Stops     []StopResponse  `json:"paradas"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Wire shape of a parada. The embedded pedido is the snapshot frozen at
// dispatch time; its statusGeral is derived from the stop's own state, which
// matches the live order while the run is active.
type StopResponse struct {
	ID          int64         `json:"id"`
	Sequence    int           `json:"ordem"`
	Status      string        `json:"status"`
	CompletedAt *time.Time    `json:"horarioConclusao,omitempty"`
	RunID       int64         `json:"corridaId"`
	OrderID     int64         `json:"pedidoId"`
	Order       OrderResponse `json:"pedido"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

func NewRunResponse(r *domain.Run) RunResponse {
	res := RunResponse{
		ID:        r.ID,
		Status:    string(r.Status),
		DriverID:  r.DriverID,
		Stops:     make([]StopResponse, 0, len(r.Stops)),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Driver != nil {
		d := NewDriverResponse(r.Driver)
		res.Driver = &d
	}
	for i := range r.Stops {
		res.Stops = append(res.Stops, NewStopResponse(&r.Stops[i]))
	}
	return res
}

func NewStopResponse(s *domain.Stop) StopResponse {
	orderStatus := domain.OrderInRoute
	if s.Status == domain.StopCompleted {
		orderStatus = domain.OrderCompleted
	}

	return StopResponse{
		ID:          s.ID,
		Sequence:    s.Sequence,
		Status:      string(s.Status),
		CompletedAt: s.CompletedAt,
		RunID:       s.RunID,
		OrderID:     s.OrderID,
		Order: OrderResponse{
			ID:           s.OrderID,
			CRMOrderID:   s.Order.CRMOrderID,
			Address:      s.Order.Address,
			Latitude:     s.Order.Coordinates.Lat,
			Longitude:    s.Order.Coordinates.Lng,
			Deadline:     s.Order.Deadline,
			CustomerName: s.Order.CustomerName,
			Status:       string(orderStatus),
			CreatedAt:    s.Order.CreatedAt,
			UpdatedAt:    s.Order.UpdatedAt,
		},
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func NewRunListResponse(runs []*domain.Run) []RunResponse {
	out := make([]RunResponse, 0, len(runs))
	for _, r := range runs {
		out = append(out, NewRunResponse(r))
	}
	return out
}
