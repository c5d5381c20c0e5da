package ports

import (
	"context"

	"run-dispatch-service/internal/domain"
)

// Port: boundary for the driver roster (read-only here; roster CRUD lives in
// a separate admin service).
type DriverRepository interface {
	// Return every driver on the roster.
	ListDrivers(ctx context.Context) ([]*domain.Driver, error)
	// Return one driver, or domain.ErrDriverNotFound.
	GetDriver(ctx context.Context, id int64) (*domain.Driver, error)
}
