package handlers

import (
	"log"
	"net/http"

	"run-dispatch-service/internal/api/dto"
	"run-dispatch-service/internal/ports"
)

// DriverHandler exposes the read-only driver roster. Roster management
// itself lives in a separate admin service.
type DriverHandler struct {
	Repo ports.DriverRepository
}

// List handles GET /delivery-drivers.
func (h *DriverHandler) List(w http.ResponseWriter, r *http.Request) {
	drivers, err := h.Repo.ListDrivers(r.Context())
	if err != nil {
		log.Printf("list drivers failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res := make([]dto.DriverResponse, 0, len(drivers))
	for _, d := range drivers {
		res = append(res, dto.NewDriverResponse(d))
	}

	writeJSON(w, r, http.StatusOK, res)
}
