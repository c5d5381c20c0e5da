package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"run-dispatch-service/internal/domain"
)

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode failed: method=%s path=%s err=%v", r.Method, r.URL.Path, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorBody{Message: msg})
}

func writeErrorCode(w http.ResponseWriter, r *http.Request, status int, msg, code string) {
	writeJSON(w, r, status, errorBody{Message: msg, Code: code})
}

// writeDomainError maps the domain error taxonomy onto HTTP statuses and
// machine-readable codes, so clients can tell "retry silently" (409) from
// "show the user an error" (422).
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptySelection):
		writeErrorCode(w, r, http.StatusUnprocessableEntity, "no orders selected", "EMPTY_SELECTION")
	case errors.Is(err, domain.ErrOrderNotEligible):
		writeErrorCode(w, r, http.StatusUnprocessableEntity, "order is not awaiting route", "ORDER_NOT_ELIGIBLE")
	case errors.Is(err, domain.ErrDriverUnavailable):
		writeErrorCode(w, r, http.StatusUnprocessableEntity, "driver is unavailable for a new run", "DRIVER_UNAVAILABLE")
	case errors.Is(err, domain.ErrGeocodingMissing):
		writeErrorCode(w, r, http.StatusUnprocessableEntity, "order has no valid coordinates", "GEOCODING_MISSING")
	case errors.Is(err, domain.ErrConcurrentDispatchConflict):
		writeErrorCode(w, r, http.StatusConflict, "orders were claimed by a concurrent dispatch", "CONCURRENT_DISPATCH_CONFLICT")
	case errors.Is(err, domain.ErrStopAlreadyCompleted):
		writeErrorCode(w, r, http.StatusConflict, "stop is already completed", "STOP_ALREADY_COMPLETED")
	case errors.Is(err, domain.ErrStopOutOfOrder):
		writeErrorCode(w, r, http.StatusConflict, "stop must be completed in sequence", "STOP_OUT_OF_ORDER")
	case errors.Is(err, domain.ErrRunNotInProgress):
		writeErrorCode(w, r, http.StatusConflict, "run is not in progress", "RUN_NOT_IN_PROGRESS")
	case errors.Is(err, domain.ErrDriverMismatch):
		writeErrorCode(w, r, http.StatusForbidden, "stop belongs to another driver's run", "DRIVER_MISMATCH")
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrDriverNotFound),
		errors.Is(err, domain.ErrRunNotFound),
		errors.Is(err, domain.ErrStopNotFound):
		writeError(w, r, http.StatusNotFound, "resource not found")
	default:
		log.Printf("internal error: method=%s path=%s err=%v", r.Method, r.URL.Path, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

// parseDate accepts the date formats the dashboard sends as query filters.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// parseEndDate widens a date-only value to the last instant of that day, so
// endDate=2026-03-01 matches rows created at any time on March 1st. Full
// timestamps pass through unchanged.
func parseEndDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return t, err
	}
	return t.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
}
