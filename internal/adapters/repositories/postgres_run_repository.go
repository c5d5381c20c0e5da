package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"run-dispatch-service/internal/domain"
	"run-dispatch-service/internal/platform/obs"
	"run-dispatch-service/internal/ports"
)

// Postgres-backed implementation of the RunRepository port.
//
// Both mutating operations run in a single transaction so a failure anywhere
// rolls back every state change. The driver single-active-run invariant is
// carried by the uq_corridas_entregador_ativo partial unique index rather
// than application locks; order eligibility is re-validated by a conditional
// UPDATE whose affected-row count detects lost races.
type PostgresRunRepository struct{ DB *sql.DB }

func NewPostgresRunRepository(db *sql.DB) *PostgresRunRepository {
	return &PostgresRunRepository{DB: db}
}

const uniqueViolation = "23505"

// Atomically create a run with its stops and flip the selected orders to
// EM_ROTA.
func (r *PostgresRunRepository) CreateRun(ctx context.Context, driverID int64, stops []ports.NewStop) (_ *domain.Run, err error) {
	defer obs.Time(ctx, "runs.CreateRun")(&err)

	if r.DB == nil {
		return nil, errors.New("run repository: DB is nil")
	}
	if len(stops) == 0 {
		return nil, fmt.Errorf("create run: %w", domain.ErrEmptySelection)
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create run: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Flip orders first. The status_geral predicate re-validates
	// eligibility under the transaction: if a concurrent dispatch claimed
	// any of these orders, fewer rows change and we roll back.
	orderIDs := make([]int64, 0, len(stops))
	for _, s := range stops {
		orderIDs = append(orderIDs, s.OrderID)
	}

	res, err := tx.ExecContext(ctx, `
	UPDATE pedidos
	SET status_geral = 'EM_ROTA', updated_at = now()
	WHERE id = ANY($1::bigint[]) AND status_geral = 'AGUARDANDO_ROTA';
	`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("create run: flip orders to EM_ROTA: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("create run: flipped rows: %w", err)
	}
	if affected != int64(len(orderIDs)) {
		return nil, fmt.Errorf(
			"create run: %d of %d orders still eligible: %w",
			affected, len(orderIDs), domain.ErrConcurrentDispatchConflict,
		)
	}

	run := &domain.Run{DriverID: driverID}
	err = tx.QueryRowContext(ctx, `
	INSERT INTO corridas (entregador_id)
	VALUES ($1)
	RETURNING id, status, created_at, updated_at;
	`, driverID).Scan(&run.ID, &run.Status, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		// The partial unique index fires when the driver gained an
		// EM_ANDAMENTO run between the precheck and this insert.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("create run: driver %d: %w", driverID, domain.ErrDriverUnavailable)
		}
		return nil, fmt.Errorf("create run: insert corrida: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO paradas (
		ordem, corrida_id, pedido_id,
		crm_pedido_id, endereco_completo, latitude, longitude,
		nome_cliente, tempo_maximo_entrega, pedido_created_at, pedido_updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	RETURNING id, status, created_at, updated_at;
	`)
	if err != nil {
		return nil, fmt.Errorf("create run: prepare parada insert: %w", err)
	}
	defer stmt.Close()

	run.Stops = make([]domain.Stop, 0, len(stops))
	for _, s := range stops {
		stop := domain.Stop{
			Sequence: s.Sequence,
			RunID:    run.ID,
			OrderID:  s.OrderID,
			Order:    s.Order,
		}
		err := stmt.QueryRowContext(ctx,
			s.Sequence, run.ID, s.OrderID,
			s.Order.CRMOrderID, s.Order.Address, s.Order.Coordinates.Lat, s.Order.Coordinates.Lng,
			s.Order.CustomerName, s.Order.Deadline, s.Order.CreatedAt, s.Order.UpdatedAt,
		).Scan(&stop.ID, &stop.Status, &stop.CreatedAt, &stop.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("create run: insert parada ordem=%d: %w", s.Sequence, err)
		}
		run.Stops = append(run.Stops, stop)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("create run: commit tx: %w", err)
	}

	return run, nil
}

// Report whether the driver currently holds an EM_ANDAMENTO run.
func (r *PostgresRunRepository) HasActiveRun(ctx context.Context, driverID int64) (bool, error) {
	if r.DB == nil {
		return false, errors.New("run repository: DB is nil")
	}

	var active bool
	err := r.DB.QueryRowContext(ctx, `
	SELECT EXISTS (
		SELECT 1 FROM corridas
		WHERE entregador_id = $1 AND status = 'EM_ANDAMENTO'
	);
	`, driverID).Scan(&active)
	if err != nil {
		return false, fmt.Errorf("has active run: driver %d: %w", driverID, err)
	}

	return active, nil
}

// Return one run with its stops and driver.
func (r *PostgresRunRepository) GetRun(ctx context.Context, id int64) (*domain.Run, error) {
	if r.DB == nil {
		return nil, errors.New("run repository: DB is nil")
	}

	runs, err := r.queryRuns(ctx, "WHERE c.id = $1", []any{id})
	if err != nil {
		return nil, fmt.Errorf("get run %d: %w", id, err)
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("get run %d: %w", id, domain.ErrRunNotFound)
	}

	return runs[0], nil
}

// Return runs matching the filter, newest first, stops embedded.
func (r *PostgresRunRepository) ListRuns(ctx context.Context, f ports.RunFilter) ([]*domain.Run, error) {
	if r.DB == nil {
		return nil, errors.New("run repository: DB is nil")
	}

	where := make([]string, 0, 4)
	args := make([]any, 0, 4)

	if f.StartDate != nil {
		args = append(args, *f.StartDate)
		where = append(where, fmt.Sprintf("c.created_at >= $%d", len(args)))
	}
	if f.EndDate != nil {
		args = append(args, *f.EndDate)
		where = append(where, fmt.Sprintf("c.created_at <= $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("c.status = $%d", len(args)))
	}
	if f.DriverID != 0 {
		args = append(args, f.DriverID)
		where = append(where, fmt.Sprintf("c.entregador_id = $%d", len(args)))
	}

	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ")
	}

	runs, err := r.queryRuns(ctx, clause, args)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	return runs, nil
}

func (r *PostgresRunRepository) queryRuns(ctx context.Context, whereClause string, args []any) ([]*domain.Run, error) {
	query := `
	SELECT c.id, c.status, c.entregador_id, c.created_at, c.updated_at,
		e.id, e.nome, e.telefone, e.status
	FROM corridas c
	JOIN entregadores e ON e.id = c.entregador_id
	` + whereClause + `
	ORDER BY c.created_at DESC, c.id DESC;`

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query corridas table: %w", err)
	}
	defer rows.Close()

	runs := make([]*domain.Run, 0, 16)
	byID := make(map[int64]*domain.Run, 16)
	for rows.Next() {
		run := &domain.Run{Driver: &domain.Driver{}, Stops: []domain.Stop{}}
		if err := rows.Scan(
			&run.ID, &run.Status, &run.DriverID, &run.CreatedAt, &run.UpdatedAt,
			&run.Driver.ID, &run.Driver.Name, &run.Driver.Phone, &run.Driver.Status,
		); err != nil {
			return nil, fmt.Errorf("scan corridas row: %w", err)
		}
		runs = append(runs, run)
		byID[run.ID] = run
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("corridas row iteration: %w", err)
	}

	if len(runs) == 0 {
		return runs, nil
	}

	runIDs := make([]int64, 0, len(runs))
	for _, run := range runs {
		runIDs = append(runIDs, run.ID)
	}

	stopRows, err := r.DB.QueryContext(ctx, `
	SELECT `+stopColumns+`
	FROM paradas
	WHERE corrida_id = ANY($1::bigint[])
	ORDER BY corrida_id, ordem;
	`, runIDs)
	if err != nil {
		return nil, fmt.Errorf("query paradas table: %w", err)
	}
	defer stopRows.Close()

	for stopRows.Next() {
		stop, err := scanStop(stopRows)
		if err != nil {
			return nil, err
		}
		run := byID[stop.RunID]
		run.Stops = append(run.Stops, *stop)
	}
	if err := stopRows.Err(); err != nil {
		return nil, fmt.Errorf("paradas row iteration: %w", err)
	}

	return runs, nil
}

const stopColumns = `
	id, ordem, status, horario_conclusao, corrida_id, pedido_id,
	crm_pedido_id, endereco_completo, latitude, longitude,
	nome_cliente, tempo_maximo_entrega, pedido_created_at, pedido_updated_at,
	created_at, updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStop(row rowScanner) (*domain.Stop, error) {
	var s domain.Stop
	var completedAt sql.NullTime
	if err := row.Scan(
		&s.ID, &s.Sequence, &s.Status, &completedAt, &s.RunID, &s.OrderID,
		&s.Order.CRMOrderID, &s.Order.Address, &s.Order.Coordinates.Lat, &s.Order.Coordinates.Lng,
		&s.Order.CustomerName, &s.Order.Deadline, &s.Order.CreatedAt, &s.Order.UpdatedAt,
		&s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("scan paradas row: %w", err)
	}
	if completedAt.Valid {
		t := completedAt.Time
		s.CompletedAt = &t
	}
	s.Order.OrderID = s.OrderID
	return &s, nil
}

// Atomically complete one stop. The run row is locked FOR UPDATE for the
// whole transaction, serializing the "mark complete + all-complete check +
// maybe finish run" sequence: two concurrent completions of the last stops
// cannot both (or neither) finish the run.
func (r *PostgresRunRepository) CompleteStop(ctx context.Context, runID, stopID, driverID int64, strictSequential bool) (_ *ports.Completion, err error) {
	defer obs.Time(ctx, "runs.CompleteStop")(&err)

	if r.DB == nil {
		return nil, errors.New("run repository: DB is nil")
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("complete stop: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var runStatus domain.RunStatus
	var runDriverID int64
	err = tx.QueryRowContext(ctx, `
	SELECT status, entregador_id FROM corridas WHERE id = $1 FOR UPDATE;
	`, runID).Scan(&runStatus, &runDriverID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("complete stop: run %d: %w", runID, domain.ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("complete stop: lock corrida %d: %w", runID, err)
	}

	if runDriverID != driverID {
		return nil, fmt.Errorf("complete stop: run %d belongs to driver %d: %w", runID, runDriverID, domain.ErrDriverMismatch)
	}

	row := tx.QueryRowContext(ctx, `
	SELECT `+stopColumns+`
	FROM paradas
	WHERE id = $1 AND corrida_id = $2;
	`, stopID, runID)

	stop, err := scanStop(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("complete stop: stop %d in run %d: %w", stopID, runID, domain.ErrStopNotFound)
		}
		return nil, fmt.Errorf("complete stop: %w", err)
	}

	// The already-completed check comes before the run-status check: a retry
	// of the completion that finished the run must still see the stop as
	// completed, not the run as closed.
	if stop.Status == domain.StopCompleted {
		return nil, fmt.Errorf("complete stop: stop %d: %w", stopID, domain.ErrStopAlreadyCompleted)
	}
	if runStatus != domain.RunInProgress {
		return nil, fmt.Errorf("complete stop: run %d is %s: %w", runID, runStatus, domain.ErrRunNotInProgress)
	}

	if strictSequential {
		var nextPending int
		err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MIN(ordem), 0) FROM paradas
		WHERE corrida_id = $1 AND status = 'PENDENTE';
		`, runID).Scan(&nextPending)
		if err != nil {
			return nil, fmt.Errorf("complete stop: next pending ordem: %w", err)
		}
		if stop.Sequence != nextPending {
			return nil, fmt.Errorf(
				"complete stop: stop %d has ordem %d, next pending is %d: %w",
				stopID, stop.Sequence, nextPending, domain.ErrStopOutOfOrder,
			)
		}
	}

	var completedAt sql.NullTime
	err = tx.QueryRowContext(ctx, `
	UPDATE paradas
	SET status = 'CONCLUIDA', horario_conclusao = now(), updated_at = now()
	WHERE id = $1 AND status = 'PENDENTE'
	RETURNING horario_conclusao, updated_at;
	`, stopID).Scan(&completedAt, &stop.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("complete stop: update parada %d: %w", stopID, err)
	}
	stop.Status = domain.StopCompleted
	if completedAt.Valid {
		t := completedAt.Time
		stop.CompletedAt = &t
	}

	if _, err := tx.ExecContext(ctx, `
	UPDATE pedidos
	SET status_geral = 'CONCLUIDO', updated_at = now()
	WHERE id = $1;
	`, stop.OrderID); err != nil {
		return nil, fmt.Errorf("complete stop: update pedido %d: %w", stop.OrderID, err)
	}

	var pending int
	if err := tx.QueryRowContext(ctx, `
	SELECT COUNT(*) FROM paradas
	WHERE corrida_id = $1 AND status = 'PENDENTE';
	`, runID).Scan(&pending); err != nil {
		return nil, fmt.Errorf("complete stop: count pending paradas: %w", err)
	}

	finalStatus := domain.RunInProgress
	if pending == 0 {
		if _, err := tx.ExecContext(ctx, `
		UPDATE corridas
		SET status = 'FINALIZADA', updated_at = now()
		WHERE id = $1;
		`, runID); err != nil {
			return nil, fmt.Errorf("complete stop: finish corrida %d: %w", runID, err)
		}
		finalStatus = domain.RunFinished
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("complete stop: commit tx: %w", err)
	}

	return &ports.Completion{Stop: stop, RunStatus: finalStatus}, nil
}
