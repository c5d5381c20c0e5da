package api

import (
	"net/http"

	"run-dispatch-service/internal/api/handlers"
	"run-dispatch-service/internal/ports"
	"run-dispatch-service/internal/services"
)

// Everything the router needs, supplied by the composition root.
type Deps struct {
	Dispatcher *services.Dispatcher
	Executor   *services.Executor
	Orders     ports.OrderRepository
	Drivers    ports.DriverRepository
	Runs       ports.RunRepository
	Cache      ports.RunCache
	// Shared bearer token; empty disables authentication (local runs, tests).
	APIToken string
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	dispatchHandler := &handlers.DispatchHandler{
		Dispatcher: d.Dispatcher,
		Runs:       d.Runs,
		Cache:      d.Cache,
	}
	executionHandler := &handlers.ExecutionHandler{Executor: d.Executor}
	orderHandler := &handlers.OrderHandler{Repo: d.Orders}
	driverHandler := &handlers.DriverHandler{Repo: d.Drivers}

	mux.HandleFunc("GET /health", handlers.Health)

	protected := http.NewServeMux()
	protected.HandleFunc("POST /run-dispatch", dispatchHandler.Create)
	protected.HandleFunc("GET /run-dispatch", dispatchHandler.List)
	protected.HandleFunc("GET /run-dispatch/{driverID}", dispatchHandler.ListByDriver)
	protected.HandleFunc("POST /run-execution/complete-stop", executionHandler.CompleteStop)
	protected.HandleFunc("GET /orders", orderHandler.List)
	protected.HandleFunc("GET /delivery-drivers", driverHandler.List)

	var inner http.Handler = protected
	if d.APIToken != "" {
		inner = authMiddleware(d.APIToken, protected)
	}
	mux.Handle("/", inner)

	return loggingMiddleware(mux)
}
