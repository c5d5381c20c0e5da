package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"run-dispatch-service/internal/domain"
)

// Postgres-backed implementation of the DriverRepository port.
type PostgresDriverRepository struct{ DB *sql.DB }

func NewPostgresDriverRepository(db *sql.DB) *PostgresDriverRepository {
	return &PostgresDriverRepository{DB: db}
}

// Return every driver on the roster.
func (r *PostgresDriverRepository) ListDrivers(ctx context.Context) ([]*domain.Driver, error) {
	if r.DB == nil {
		return nil, errors.New("driver repository: DB is nil")
	}

	query := `
	SELECT id, nome, telefone, status
	FROM entregadores
	ORDER BY nome, id;
	`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list drivers: query entregadores table: %w", err)
	}
	defer rows.Close()

	drivers := make([]*domain.Driver, 0, 16)
	for rows.Next() {
		var d domain.Driver
		if err := rows.Scan(&d.ID, &d.Name, &d.Phone, &d.Status); err != nil {
			return nil, fmt.Errorf("list drivers: scan row: %w", err)
		}
		drivers = append(drivers, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list drivers: row iteration: %w", err)
	}

	return drivers, nil
}

// Return one driver by id.
func (r *PostgresDriverRepository) GetDriver(ctx context.Context, id int64) (*domain.Driver, error) {
	if r.DB == nil {
		return nil, errors.New("driver repository: DB is nil")
	}

	query := `
	SELECT id, nome, telefone, status
	FROM entregadores
	WHERE id = $1;
	`
	var d domain.Driver
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&d.ID, &d.Name, &d.Phone, &d.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get driver %d: %w", id, domain.ErrDriverNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get driver %d: %w", id, err)
	}

	return &d, nil
}
