package dto

import (
	"time"

	"run-dispatch-service/internal/domain"
)

// Wire shape of a pedido. Field names are the existing dashboard's contract
// and must not change.
type OrderResponse struct {
	ID           int64     `json:"id"`
	CRMOrderID   string    `json:"crmPedidoId"`
	Address      string    `json:"enderecoCompleto"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Deadline     time.Time `json:"tempoMaximoEntrega"`
	CustomerName string    `json:"nomeCliente"`
	Status       string    `json:"statusGeral"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func NewOrderResponse(o *domain.Order) OrderResponse {
	return OrderResponse{
		ID:           o.ID,
		CRMOrderID:   o.CRMOrderID,
		Address:      o.Address,
		Latitude:     o.Coordinates.Lat,
		Longitude:    o.Coordinates.Lng,
		Deadline:     o.Deadline,
		CustomerName: o.CustomerName,
		Status:       string(o.Status),
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}
