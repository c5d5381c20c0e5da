package handlers

import (
	"encoding/json"
	"io"
	"log"
	"math"
	"net/http"
	"strconv"

	"run-dispatch-service/internal/api/dto"
	"run-dispatch-service/internal/domain"
	"run-dispatch-service/internal/ports"
	"run-dispatch-service/internal/services"
)

// DispatchHandler exposes run creation and run listings.
type DispatchHandler struct {
	Dispatcher *services.Dispatcher
	Runs       ports.RunRepository
	Cache      ports.RunCache
}

// Create handles POST /run-dispatch.
func (h *DispatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.DispatchRequest

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

	if req.DriverID <= 0 {
		writeError(w, r, http.StatusBadRequest, "deliveryDriverId is required")
		return
	}
	if len(req.OrderIDs) == 0 {
		writeErrorCode(w, r, http.StatusUnprocessableEntity, "no orders selected", "EMPTY_SELECTION")
		return
	}

	run, details, err := h.Dispatcher.Dispatch(r.Context(), req.OrderIDs, req.DriverID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	res := dto.DispatchResponse{
		Run: dto.NewRunResponse(run),
		RouteDetails: dto.RouteDetailsResponse{
			TotalDistance:     details.TotalDistanceMeters,
			TotalDuration:     strconv.Itoa(int(math.Round(details.TotalDuration.Minutes()))),
			OptimizedSequence: details.OptimizedSequence,
		},
	}

	writeJSON(w, r, http.StatusCreated, res)
}

// List handles GET /run-dispatch?startDate&endDate&status.
func (h *DispatchHandler) List(w http.ResponseWriter, r *http.Request) {
	f, ok := parseRunFilter(w, r)
	if !ok {
		return
	}

	runs, err := h.Runs.ListRuns(r.Context(), f)
	if err != nil {
		log.Printf("list runs failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, dto.NewRunListResponse(runs))
}

// ListByDriver handles GET /run-dispatch/{driverID}?startDate&endDate&status.
// Unfiltered requests are served cache-aside from the run cache, since
// driver clients poll this endpoint continuously.
func (h *DispatchHandler) ListByDriver(w http.ResponseWriter, r *http.Request) {
	driverID, err := strconv.ParseInt(r.PathValue("driverID"), 10, 64)
	if err != nil || driverID <= 0 {
		writeError(w, r, http.StatusBadRequest, "invalid driver id")
		return
	}

	f, ok := parseRunFilter(w, r)
	if !ok {
		return
	}
	f.DriverID = driverID

	unfiltered := f.StartDate == nil && f.EndDate == nil && f.Status == ""

	if h.Cache != nil && unfiltered {
		if cached, err := h.Cache.GetDriverRuns(r.Context(), driverID); err == nil && cached != nil {
			writeJSON(w, r, http.StatusOK, dto.NewRunListResponse(cached))
			return
		}
	}

	runs, err := h.Runs.ListRuns(r.Context(), f)
	if err != nil {
		log.Printf("list driver runs failed: driver=%d err=%v", driverID, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	if h.Cache != nil && unfiltered {
		if err := h.Cache.PutDriverRuns(r.Context(), driverID, runs); err != nil {
			log.Printf("put driver runs cache failed: driver=%d err=%v", driverID, err)
		}
	}

	writeJSON(w, r, http.StatusOK, dto.NewRunListResponse(runs))
}

func parseRunFilter(w http.ResponseWriter, r *http.Request) (ports.RunFilter, bool) {
	q := r.URL.Query()

	var f ports.RunFilter
	if v := q.Get("startDate"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid startDate")
			return f, false
		}
		f.StartDate = &t
	}
	if v := q.Get("endDate"); v != "" {
		t, err := parseEndDate(v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid endDate")
			return f, false
		}
		f.EndDate = &t
	}
	if v := q.Get("status"); v != "" {
		switch domain.RunStatus(v) {
		case domain.RunInProgress, domain.RunFinished, domain.RunCancelled:
			f.Status = domain.RunStatus(v)
		default:
			writeError(w, r, http.StatusBadRequest, "invalid status")
			return f, false
		}
	}

	return f, true
}
