package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"run-dispatch-service/internal/domain"
	"run-dispatch-service/internal/ports"
)

// Postgres-backed implementation of the OrderRepository port.
type PostgresOrderRepository struct{ DB *sql.DB }

func NewPostgresOrderRepository(db *sql.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{DB: db}
}

const orderColumns = `
	id, crm_pedido_id, endereco_completo, latitude, longitude,
	nome_cliente, tempo_maximo_entrega, status_geral, created_at, updated_at
`

// Return orders matching the filter, newest first.
func (r *PostgresOrderRepository) ListOrders(ctx context.Context, f ports.OrderFilter) ([]*domain.Order, error) {
	if r.DB == nil {
		return nil, errors.New("order repository: DB is nil")
	}

	where := make([]string, 0, 3)
	args := make([]any, 0, 3)

	if f.StartDate != nil {
		args = append(args, *f.StartDate)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if f.EndDate != nil {
		args = append(args, *f.EndDate)
		where = append(where, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status_geral = $%d", len(args)))
	}

	query := "SELECT " + orderColumns + " FROM pedidos"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC;"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: query pedidos table: %w", err)
	}
	defer rows.Close()

	return scanOrders(rows)
}

// Return the orders with the given ids. Any missing id fails the call.
func (r *PostgresOrderRepository) GetOrders(ctx context.Context, ids []int64) ([]*domain.Order, error) {
	if r.DB == nil {
		return nil, errors.New("order repository: DB is nil")
	}
	if len(ids) == 0 {
		return []*domain.Order{}, nil
	}

	query := "SELECT " + orderColumns + " FROM pedidos WHERE id = ANY($1::bigint[]) ORDER BY id;"

	rows, err := r.DB.QueryContext(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get orders: query pedidos table: %w", err)
	}
	defer rows.Close()

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, fmt.Errorf("get orders: %w", err)
	}

	found := make(map[int64]struct{}, len(orders))
	for _, o := range orders {
		found[o.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return nil, fmt.Errorf("get orders: order %d: %w", id, domain.ErrOrderNotFound)
		}
	}

	return orders, nil
}

func scanOrders(rows *sql.Rows) ([]*domain.Order, error) {
	orders := make([]*domain.Order, 0, 32)
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(
			&o.ID, &o.CRMOrderID, &o.Address, &o.Coordinates.Lat, &o.Coordinates.Lng,
			&o.CustomerName, &o.Deadline, &o.Status, &o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan pedidos row: %w", err)
		}
		orders = append(orders, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pedidos row iteration: %w", err)
	}

	return orders, nil
}
