package handlers

import (
	"log"
	"net/http"

	"run-dispatch-service/internal/api/dto"
	"run-dispatch-service/internal/domain"
	"run-dispatch-service/internal/ports"
)

// OrderHandler exposes the read-only orders feed for the admin dashboard.
type OrderHandler struct {
	Repo ports.OrderRepository
}

// List handles GET /orders?startDate&endDate&status.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var f ports.OrderFilter
	if v := q.Get("startDate"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid startDate")
			return
		}
		f.StartDate = &t
	}
	if v := q.Get("endDate"); v != "" {
		t, err := parseEndDate(v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid endDate")
			return
		}
		f.EndDate = &t
	}
	if v := q.Get("status"); v != "" {
		switch domain.OrderStatus(v) {
		case domain.OrderAwaitingRoute, domain.OrderInRoute, domain.OrderCompleted:
			f.Status = domain.OrderStatus(v)
		default:
			writeError(w, r, http.StatusBadRequest, "invalid status")
			return
		}
	}

	orders, err := h.Repo.ListOrders(r.Context(), f)
	if err != nil {
		log.Printf("list orders failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res := make([]dto.OrderResponse, 0, len(orders))
	for _, o := range orders {
		res = append(res, dto.NewOrderResponse(o))
	}

	writeJSON(w, r, http.StatusOK, res)
}
