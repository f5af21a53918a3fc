package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createRegisterSession = `
INSERT INTO register_sessions (restaurant_id)
VALUES ($1)
RETURNING id, restaurant_id, status, last_order_number, opened_at, closed_at, closed_by, total_sales, total_orders
`

// CreateRegisterSession opens a new session. A partial unique index on
// (restaurant_id) WHERE status = 'OPEN' rejects a second open session with a
// 23505 error, which callers map to the already-open failure.
func (q *Queries) CreateRegisterSession(ctx context.Context, restaurantID uuid.UUID) (RegisterSession, error) {
	row := q.db.QueryRow(ctx, createRegisterSession, restaurantID)
	return scanRegisterSession(row)
}

const getOpenSession = `
SELECT id, restaurant_id, status, last_order_number, opened_at, closed_at, closed_by, total_sales, total_orders
FROM register_sessions
WHERE restaurant_id = $1 AND status = 'OPEN'
`

func (q *Queries) GetOpenSession(ctx context.Context, restaurantID uuid.UUID) (RegisterSession, error) {
	row := q.db.QueryRow(ctx, getOpenSession, restaurantID)
	return scanRegisterSession(row)
}

const getRegisterSession = `
SELECT id, restaurant_id, status, last_order_number, opened_at, closed_at, closed_by, total_sales, total_orders
FROM register_sessions
WHERE id = $1
`

func (q *Queries) GetRegisterSession(ctx context.Context, id uuid.UUID) (RegisterSession, error) {
	row := q.db.QueryRow(ctx, getRegisterSession, id)
	return scanRegisterSession(row)
}

const incrementOrderNumber = `
UPDATE register_sessions
SET last_order_number = last_order_number + 1
WHERE id = $1 AND status = 'OPEN'
RETURNING last_order_number
`

// IncrementOrderNumber bumps the session counter and returns the new value in
// one statement, so concurrent orders can never observe the same number.
// pgx.ErrNoRows means the session is unknown or no longer OPEN.
func (q *Queries) IncrementOrderNumber(ctx context.Context, sessionID uuid.UUID) (int32, error) {
	row := q.db.QueryRow(ctx, incrementOrderNumber, sessionID)
	var n int32
	err := row.Scan(&n)
	return n, err
}

const closeRegisterSession = `
UPDATE register_sessions
SET status = 'CLOSED', closed_at = now(), closed_by = $2, total_sales = $3, total_orders = $4
WHERE id = $1 AND status = 'OPEN'
RETURNING id, restaurant_id, status, last_order_number, opened_at, closed_at, closed_by, total_sales, total_orders
`

type CloseRegisterSessionParams struct {
	ID          uuid.UUID
	ClosedBy    pgtype.Text
	TotalSales  pgtype.Numeric
	TotalOrders int32
}

func (q *Queries) CloseRegisterSession(ctx context.Context, arg CloseRegisterSessionParams) (RegisterSession, error) {
	row := q.db.QueryRow(ctx, closeRegisterSession, arg.ID, arg.ClosedBy, arg.TotalSales, arg.TotalOrders)
	return scanRegisterSession(row)
}

const countOrdersBySession = `
SELECT count(*) FROM orders WHERE register_session_id = $1
`

func (q *Queries) CountOrdersBySession(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	row := q.db.QueryRow(ctx, countOrdersBySession, sessionID)
	var n int64
	err := row.Scan(&n)
	return n, err
}

func scanRegisterSession(row rowScanner) (RegisterSession, error) {
	var s RegisterSession
	err := row.Scan(
		&s.ID,
		&s.RestaurantID,
		&s.Status,
		&s.LastOrderNumber,
		&s.OpenedAt,
		&s.ClosedAt,
		&s.ClosedBy,
		&s.TotalSales,
		&s.TotalOrders,
	)
	return s, err
}
