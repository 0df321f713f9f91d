package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/order-service/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (
		order_number, customer_name, customer_email, total_amount,
		status, notes, created_at, updated_at, version
	) VALUES ($1, $2, NULLIF($3, ''), $4, $5, NULLIF($6, ''), $7, $8, 0)
	RETURNING id`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	updateOrderSQL = `UPDATE orders
	SET customer_name = $2,
	    customer_email = NULLIF($3, ''),
	    total_amount = $4,
	    status = $5,
	    notes = NULLIF($6, ''),
	    updated_at = $7,
	    version = version + 1
	WHERE id = $1
	  AND version = $8
	RETURNING version, order_number, created_at`

	orderExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`

	uniqueViolation = "23505"
)

var _ order.Repository = (*OrderRepository)(nil)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// OrderRepository implements order.Repository backed by PostgreSQL.
// Outside WithinTx every call runs in its own implicit transaction.
type OrderRepository struct {
	orderStore
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{
		orderStore: orderStore{q: pool},
		pool:       pool,
	}
}

// Ping verifies that the database is reachable.
func (r *OrderRepository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return &order.StoreError{Op: "ping", Err: err}
	}
	return nil
}

// WithinTx runs fn inside a single database transaction. Errors returned by
// fn roll the transaction back and are passed through unchanged.
func (r *OrderRepository) WithinTx(ctx context.Context, mode order.TxMode, fn func(ctx context.Context, s order.Store) error) (rerr error) {
	opts := pgx.TxOptions{AccessMode: pgx.ReadWrite}
	if mode == order.ReadOnly {
		opts.AccessMode = pgx.ReadOnly
	}

	tx, err := r.pool.BeginTx(ctx, opts)
	if err != nil {
		return &order.StoreError{Op: "begin", Err: err}
	}
	defer func() {
		if rerr != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if err := fn(ctx, orderStore{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return &order.StoreError{Op: "commit", Err: err}
	}
	return nil
}

// orderStore implements order.Store on top of a querier.
type orderStore struct {
	q querier
}

func (s orderStore) Insert(ctx context.Context, o *order.Order) error {
	err := s.q.QueryRow(ctx, insertOrderSQL,
		o.Number, o.CustomerName, o.CustomerEmail, o.TotalAmount,
		string(o.Status), o.Notes, o.CreatedAt, o.UpdatedAt,
	).Scan(&o.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Wrapf(order.ErrDuplicateNumber, "order number %s", o.Number)
		}
		return &order.StoreError{Op: "insert", Err: err}
	}
	o.Version = 0
	return nil
}

func (s orderStore) Get(ctx context.Context, id int64) (*order.Order, error) {
	o, err := scanOrder(s.q.QueryRow(ctx, getOrderSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, &order.StoreError{Op: "get", Err: err}
	}
	return o, nil
}

func (s orderStore) Fetch(ctx context.Context, f order.Filter, w order.Window) (*order.Slice, error) {
	q, err := selectQuery(f, w)
	if err != nil {
		return nil, errors.Wrap(err, "build query")
	}

	rows, err := s.q.Query(ctx, q.String(), q.args...)
	if err != nil {
		return nil, &order.StoreError{Op: "fetch", Err: err}
	}
	defer rows.Close()

	orders := make([]order.Order, 0, w.Limit+1)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, &order.StoreError{Op: "scan", Err: err}
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, &order.StoreError{Op: "fetch", Err: err}
	}

	sl := &order.Slice{Orders: orders}
	if len(orders) > w.Limit {
		sl.Orders = orders[:w.Limit]
		sl.HasMore = true
	}
	return sl, nil
}

func (s orderStore) Count(ctx context.Context, f order.Filter) (int64, error) {
	q, err := countQuery(f)
	if err != nil {
		return 0, errors.Wrap(err, "build query")
	}

	var n int64
	if err := s.q.QueryRow(ctx, q.String(), q.args...).Scan(&n); err != nil {
		return 0, &order.StoreError{Op: "count", Err: err}
	}
	return n, nil
}

func (s orderStore) Update(ctx context.Context, o *order.Order) error {
	var version int64
	err := s.q.QueryRow(ctx, updateOrderSQL,
		o.ID, o.CustomerName, o.CustomerEmail, o.TotalAmount,
		string(o.Status), o.Notes, o.UpdatedAt, o.Version,
	).Scan(&version, &o.Number, &o.CreatedAt)
	if err == nil {
		o.Version = version
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return &order.StoreError{Op: "update", Err: err}
	}

	var exists bool
	if err := s.q.QueryRow(ctx, orderExistsSQL, o.ID).Scan(&exists); err != nil {
		return &order.StoreError{Op: "update", Err: err}
	}
	if !exists {
		return order.ErrNotFound
	}
	return errors.Wrapf(order.ErrConcurrentModification, "order %d at version %d", o.ID, o.Version)
}

func (s orderStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.q.Exec(ctx, deleteOrderSQL, id)
	if err != nil {
		return &order.StoreError{Op: "delete", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var (
		o      order.Order
		status string
	)
	if err := row.Scan(
		&o.ID, &o.Number, &o.CustomerName, &o.CustomerEmail,
		&o.TotalAmount, &status, &o.Notes, &o.CreatedAt, &o.UpdatedAt, &o.Version,
	); err != nil {
		return nil, err
	}
	o.Status = order.Status(status)
	return &o, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
