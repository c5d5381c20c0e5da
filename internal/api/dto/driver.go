package dto

import "run-dispatch-service/internal/domain"

// Wire shape of an entregador.
type DriverResponse struct {
	ID     int64  `json:"id"`
	Name   string `json:"nome"`
	Phone  string `json:"telefone"`
	Status string `json:"status"`
}

func NewDriverResponse(d *domain.Driver) DriverResponse {
	return DriverResponse{
		ID:     d.ID,
		Name:   d.Name,
		Phone:  d.Phone,
		Status: string(d.Status),
	}
}
