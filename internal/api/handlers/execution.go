package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"run-dispatch-service/internal/api/dto"
	"run-dispatch-service/internal/services"
)

// ExecutionHandler exposes the driver-side run execution commands.
type ExecutionHandler struct {
	Executor *services.Executor
}

// CompleteStop handles POST /run-execution/complete-stop.
func (h *ExecutionHandler) CompleteStop(w http.ResponseWriter, r *http.Request) {
	var req dto.CompleteStopRequest

	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return
	}

	if req.RunID <= 0 || req.StopID <= 0 || req.DriverID <= 0 {
		writeError(w, r, http.StatusBadRequest, "runId, stopId and deliveryDriverId are required")
		return
	}

	c, err := h.Executor.CompleteStop(r.Context(), req.RunID, req.StopID, req.DriverID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	res := dto.CompleteStopResponse{
		Stop:      dto.NewStopResponse(c.Stop),
		RunStatus: string(c.RunStatus),
	}

	writeJSON(w, r, http.StatusOK, res)
}
