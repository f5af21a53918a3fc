package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createOrder = `
INSERT INTO orders (restaurant_id, register_session_id, order_number, total_amount, payment_method, customer_email)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, restaurant_id, register_session_id, order_number, total_amount, status, payment_method, customer_email, created_at
`

type CreateOrderParams struct {
	RestaurantID      uuid.UUID
	RegisterSessionID uuid.UUID
	OrderNumber       int32
	TotalAmount       pgtype.Numeric
	PaymentMethod     NullPaymentMethod
	CustomerEmail     pgtype.Text
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.RestaurantID,
		arg.RegisterSessionID,
		arg.OrderNumber,
		arg.TotalAmount,
		arg.PaymentMethod,
		arg.CustomerEmail,
	)
	return scanOrder(row)
}

const createOrderItem = `
INSERT INTO order_items (order_id, product_id, menu_item_id, quantity, unit_price, subtotal, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, order_id, product_id, menu_item_id, quantity, unit_price, subtotal, notes
`

type CreateOrderItemParams struct {
	OrderID    uuid.UUID
	ProductID  uuid.UUID
	MenuItemID pgtype.UUID
	Quantity   int32
	UnitPrice  pgtype.Numeric
	Subtotal   pgtype.Numeric
	Notes      pgtype.Text
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.ProductID,
		arg.MenuItemID,
		arg.Quantity,
		arg.UnitPrice,
		arg.Subtotal,
		arg.Notes,
	)
	var oi OrderItem
	err := row.Scan(
		&oi.ID,
		&oi.OrderID,
		&oi.ProductID,
		&oi.MenuItemID,
		&oi.Quantity,
		&oi.UnitPrice,
		&oi.Subtotal,
		&oi.Notes,
	)
	return oi, err
}

const getOrder = `
SELECT id, restaurant_id, register_session_id, order_number, total_amount, status, payment_method, customer_email, created_at
FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, getOrder, id)
	return scanOrder(row)
}

const listOrdersByRestaurant = `
SELECT id, restaurant_id, register_session_id, order_number, total_amount, status, payment_method, customer_email, created_at
FROM orders
WHERE restaurant_id = $1 AND ($2::order_status IS NULL OR status = $2)
ORDER BY created_at DESC
`

type ListOrdersByRestaurantParams struct {
	RestaurantID uuid.UUID
	Status       NullOrderStatus
}

func (q *Queries) ListOrdersByRestaurant(ctx context.Context, arg ListOrdersByRestaurantParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByRestaurant, arg.RestaurantID, arg.Status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

const listOrdersBySession = `
SELECT id, restaurant_id, register_session_id, order_number, total_amount, status, payment_method, customer_email, created_at
FROM orders
WHERE register_session_id = $1
ORDER BY order_number
`

func (q *Queries) ListOrdersBySession(ctx context.Context, sessionID uuid.UUID) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersBySession, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

const listOrderItemsByOrder = `
SELECT oi.id, oi.order_id, oi.product_id, oi.menu_item_id, oi.quantity, oi.unit_price, oi.subtotal, oi.notes,
       p.name
FROM order_items oi
JOIN products p ON p.id = oi.product_id
WHERE oi.order_id = $1
`

type ListOrderItemsByOrderRow struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   uuid.UUID
	MenuItemID  pgtype.UUID
	Quantity    int32
	UnitPrice   pgtype.Numeric
	Subtotal    pgtype.Numeric
	Notes       pgtype.Text
	ProductName string
}

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]ListOrderItemsByOrderRow, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListOrderItemsByOrderRow
	for rows.Next() {
		var r ListOrderItemsByOrderRow
		if err := rows.Scan(
			&r.ID,
			&r.OrderID,
			&r.ProductID,
			&r.MenuItemID,
			&r.Quantity,
			&r.UnitPrice,
			&r.Subtotal,
			&r.Notes,
			&r.ProductName,
		); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const updateOrderStatus = `
UPDATE orders
SET status = $2
WHERE id = $1 AND status = $3
RETURNING id, restaurant_id, register_session_id, order_number, total_amount, status, payment_method, customer_email, created_at
`

type UpdateOrderStatusParams struct {
	ID         uuid.UUID
	Status     OrderStatus
	PrevStatus OrderStatus
}

// UpdateOrderStatus is a compare-and-swap: the row is only updated when it is
// still in PrevStatus. pgx.ErrNoRows means the status changed underneath the
// caller.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status, arg.PrevStatus)
	return scanOrder(row)
}

// --- scan helpers ---

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID,
		&o.RestaurantID,
		&o.RegisterSessionID,
		&o.OrderNumber,
		&o.TotalAmount,
		&o.Status,
		&o.PaymentMethod,
		&o.CustomerEmail,
		&o.CreatedAt,
	)
	return o, err
}

func collectOrders(rows interface {
	rowScanner
	Next() bool
	Err() error
}) ([]Order, error) {
	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
