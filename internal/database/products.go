package database

import (
	"context"

	"github.com/google/uuid"
)

const getProductForOrder = `
SELECT id, restaurant_id, name, description, price, stock, image_url, active, created_at, updated_at
FROM products
WHERE id = $1 AND restaurant_id = $2
`

type GetProductForOrderParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

// GetProductForOrder loads a product scoped to its owning restaurant.
// Returns pgx.ErrNoRows when the product does not exist or belongs to
// another restaurant.
func (q *Queries) GetProductForOrder(ctx context.Context, arg GetProductForOrderParams) (Product, error) {
	row := q.db.QueryRow(ctx, getProductForOrder, arg.ID, arg.RestaurantID)
	var p Product
	err := row.Scan(
		&p.ID,
		&p.RestaurantID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Stock,
		&p.ImageUrl,
		&p.Active,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

const decrementProductStock = `
UPDATE products
SET stock = stock - $2, updated_at = now()
WHERE id = $1 AND stock >= $2
RETURNING stock
`

type DecrementProductStockParams struct {
	ID       uuid.UUID
	Quantity int32
}

// DecrementProductStock applies a conditional decrement. The WHERE guard makes
// the check-and-decrement a single atomic statement: pgx.ErrNoRows means the
// stock was insufficient and nothing changed.
func (q *Queries) DecrementProductStock(ctx context.Context, arg DecrementProductStockParams) (int32, error) {
	row := q.db.QueryRow(ctx, decrementProductStock, arg.ID, arg.Quantity)
	var stock int32
	err := row.Scan(&stock)
	return stock, err
}

const listProductsByRestaurant = `
SELECT id, restaurant_id, name, description, price, stock, image_url, active, created_at, updated_at
FROM products
WHERE restaurant_id = $1 AND active
ORDER BY name
`

func (q *Queries) ListProductsByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProductsByRestaurant, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(
			&p.ID,
			&p.RestaurantID,
			&p.Name,
			&p.Description,
			&p.Price,
			&p.Stock,
			&p.ImageUrl,
			&p.Active,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}
