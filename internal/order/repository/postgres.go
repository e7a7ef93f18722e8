package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"comanda/backend/internal/order/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an order repository backed by db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const orderColumns = `id, table_id, state, notes, created_by, cancelled_at, created_at, updated_at`

func (r *PostgresRepository) CreateOrder(ctx context.Context, o *domain.Order) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO orders (id, table_id, state, notes, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		o.ID, o.TableID, string(o.State), o.Notes, o.CreatedBy, o.CreatedAt, o.UpdatedAt)
	return err
}

func (r *PostgresRepository) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	var o domain.Order
	var state string
	err := row.Scan(&o.ID, &o.TableID, &state, &o.Notes, &o.CreatedBy, &o.CancelledAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	o.State = domain.State(state)
	return &o, nil
}

func (r *PostgresRepository) UpdateOrderState(ctx context.Context, id string, state domain.State) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE orders SET state = $2, updated_at = $3 WHERE id = $1 AND cancelled_at IS NULL`,
		id, string(state), time.Now().UTC())
	return err
}

func (r *PostgresRepository) CancelOrder(ctx context.Context, id string) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`UPDATE orders SET state = $2, cancelled_at = $3, updated_at = $3
		 WHERE id = $1 AND cancelled_at IS NULL`,
		id, string(domain.StateCancelled), now)
	return err
}

func (r *PostgresRepository) GetTable(ctx context.Context, id string) (*domain.Table, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, number, state, updated_at FROM tables WHERE id = $1`, id)
	var t domain.Table
	var state string
	err := row.Scan(&t.ID, &t.Number, &state, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	t.State = domain.TableState(state)
	return &t, nil
}

func (r *PostgresRepository) UpdateTableState(ctx context.Context, id string, state domain.TableState) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tables SET state = $2, updated_at = $3 WHERE id = $1`,
		id, string(state), time.Now().UTC())
	return err
}
