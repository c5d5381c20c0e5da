package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Initialize the Postgres schema.
//
// The two concurrency invariants live in the schema rather than in memory,
// since the service runs as multiple stateless handlers:
//   - uq_corridas_entregador_ativo: at most one EM_ANDAMENTO run per driver;
//   - paradas(corrida_id, ordem) unique: dense stop sequencing per run.
func InitSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createDriversQuery := `
	CREATE TABLE IF NOT EXISTS entregadores (
		id BIGSERIAL PRIMARY KEY,
		nome TEXT NOT NULL,
		telefone TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'ATIVO'
	);
	`

	createOrdersQuery := `
	CREATE TABLE IF NOT EXISTS pedidos (
		id BIGSERIAL PRIMARY KEY,
		crm_pedido_id TEXT NOT NULL,
		endereco_completo TEXT NOT NULL,
		latitude DOUBLE PRECISION NOT NULL DEFAULT 0,
		longitude DOUBLE PRECISION NOT NULL DEFAULT 0,
		nome_cliente TEXT NOT NULL,
		tempo_maximo_entrega TIMESTAMPTZ NOT NULL,
		status_geral TEXT NOT NULL DEFAULT 'AGUARDANDO_ROTA',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	createRunsQuery := `
	CREATE TABLE IF NOT EXISTS corridas (
		id BIGSERIAL PRIMARY KEY,
		status TEXT NOT NULL DEFAULT 'EM_ANDAMENTO',
		entregador_id BIGINT NOT NULL REFERENCES entregadores(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	createActiveRunIndexQuery := `
	CREATE UNIQUE INDEX IF NOT EXISTS uq_corridas_entregador_ativo
	ON corridas(entregador_id) WHERE status = 'EM_ANDAMENTO';
	`

	// Stop rows denormalize the pedido fields frozen at dispatch time, so
	// later order edits never rewrite historical runs.
	createStopsQuery := `
	CREATE TABLE IF NOT EXISTS paradas (
		id BIGSERIAL PRIMARY KEY,
		ordem INT NOT NULL CHECK (ordem > 0),
		status TEXT NOT NULL DEFAULT 'PENDENTE',
		horario_conclusao TIMESTAMPTZ,
		corrida_id BIGINT NOT NULL REFERENCES corridas(id),
		pedido_id BIGINT NOT NULL REFERENCES pedidos(id),
		crm_pedido_id TEXT NOT NULL,
		endereco_completo TEXT NOT NULL,
		latitude DOUBLE PRECISION NOT NULL DEFAULT 0,
		longitude DOUBLE PRECISION NOT NULL DEFAULT 0,
		nome_cliente TEXT NOT NULL,
		tempo_maximo_entrega TIMESTAMPTZ NOT NULL,
		pedido_created_at TIMESTAMPTZ NOT NULL,
		pedido_updated_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (corrida_id, ordem)
	);
	`

	createStopsIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_paradas_corrida
	ON paradas(corrida_id, ordem);
	`

	statements := []string{
		createDriversQuery,
		createOrdersQuery,
		createRunsQuery,
		createActiveRunIndexQuery,
		createStopsQuery,
		createStopsIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

type DriverSeed struct {
	ID     int64  `json:"id"`
	Name   string `json:"nome"`
	Phone  string `json:"telefone"`
	Status string `json:"status"`
}

type OrderSeed struct {
	ID           int64     `json:"id"`
	CRMOrderID   string    `json:"crm_pedido_id"`
	Address      string    `json:"endereco_completo"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	CustomerName string    `json:"nome_cliente"`
	Deadline     time.Time `json:"tempo_maximo_entrega"`
}

type SeedFile struct {
	Drivers []DriverSeed `json:"entregadores"`
	Orders  []OrderSeed  `json:"pedidos"`
}

// Populate the database with roster and order data from a JSON file.
func SeedFromJSON(db *sql.DB, jsonPath string) error {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed data: read %q: %w", jsonPath, err)
	}

	var data SeedFile
	if err := json.Unmarshal(bytes, &data); err != nil {
		return fmt.Errorf("seed data: parse json: %w", err)
	}

	for i, d := range data.Drivers {
		if d.ID <= 0 {
			return fmt.Errorf("seed data: invalid driver id at index %d: %d", i, d.ID)
		}
		if strings.TrimSpace(d.Name) == "" {
			return fmt.Errorf("seed data: driver at index %d: nome cannot be empty", i)
		}
	}
	for i, o := range data.Orders {
		if o.ID <= 0 {
			return fmt.Errorf("seed data: invalid order id at index %d: %d", i, o.ID)
		}
		if strings.TrimSpace(o.Address) == "" {
			return fmt.Errorf("seed data: order at index %d: endereco_completo cannot be empty", i)
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed data: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	driverStmt, err := tx.Prepare(`
	INSERT INTO entregadores (id, nome, telefone, status)
	VALUES ($1, $2, $3, COALESCE(NULLIF($4, ''), 'ATIVO'))
	ON CONFLICT (id) DO UPDATE
	SET nome = EXCLUDED.nome,
		telefone = EXCLUDED.telefone,
		status = EXCLUDED.status;
	`)
	if err != nil {
		return fmt.Errorf("seed data: prepare driver insert: %w", err)
	}
	defer driverStmt.Close()

	for _, d := range data.Drivers {
		if _, err := driverStmt.Exec(d.ID, d.Name, d.Phone, d.Status); err != nil {
			return fmt.Errorf("seed data: insert driver id=%d: %w", d.ID, err)
		}
	}

	orderStmt, err := tx.Prepare(`
	INSERT INTO pedidos (
		id, crm_pedido_id, endereco_completo, latitude, longitude,
		nome_cliente, tempo_maximo_entrega
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO UPDATE
	SET crm_pedido_id = EXCLUDED.crm_pedido_id,
		endereco_completo = EXCLUDED.endereco_completo,
		latitude = EXCLUDED.latitude,
		longitude = EXCLUDED.longitude,
		nome_cliente = EXCLUDED.nome_cliente,
		tempo_maximo_entrega = EXCLUDED.tempo_maximo_entrega,
		updated_at = now();
	`)
	if err != nil {
		return fmt.Errorf("seed data: prepare order insert: %w", err)
	}
	defer orderStmt.Close()

	for _, o := range data.Orders {
		if _, err := orderStmt.Exec(
			o.ID, o.CRMOrderID, o.Address, o.Latitude, o.Longitude,
			o.CustomerName, o.Deadline,
		); err != nil {
			return fmt.Errorf("seed data: insert order id=%d: %w", o.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed data: commit tx: %w", err)
	}

	return nil
}
