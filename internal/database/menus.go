package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getMenuItem = `
SELECT id, menu_id, product_id, price, stock, section_name, display_order
FROM menu_items
WHERE id = $1
`

func (q *Queries) GetMenuItem(ctx context.Context, id uuid.UUID) (MenuItem, error) {
	row := q.db.QueryRow(ctx, getMenuItem, id)
	var mi MenuItem
	err := row.Scan(
		&mi.ID,
		&mi.MenuID,
		&mi.ProductID,
		&mi.Price,
		&mi.Stock,
		&mi.SectionName,
		&mi.DisplayOrder,
	)
	return mi, err
}

const decrementMenuItemStock = `
UPDATE menu_items
SET stock = stock - $2
WHERE id = $1 AND stock IS NOT NULL AND stock >= $2
RETURNING stock
`

type DecrementMenuItemStockParams struct {
	ID       uuid.UUID
	Quantity int32
}

// DecrementMenuItemStock decrements the independent menu-item counter.
// Rows with a NULL counter never match; pgx.ErrNoRows means the counter
// was insufficient (or NULL) and nothing changed.
func (q *Queries) DecrementMenuItemStock(ctx context.Context, arg DecrementMenuItemStockParams) (int32, error) {
	row := q.db.QueryRow(ctx, decrementMenuItemStock, arg.ID, arg.Quantity)
	var stock int32
	err := row.Scan(&stock)
	return stock, err
}

const getMenu = `
SELECT id, restaurant_id, name, active, days_of_week, start_time, end_time, created_at
FROM menus
WHERE id = $1
`

func (q *Queries) GetMenu(ctx context.Context, id uuid.UUID) (Menu, error) {
	row := q.db.QueryRow(ctx, getMenu, id)
	var m Menu
	err := row.Scan(
		&m.ID,
		&m.RestaurantID,
		&m.Name,
		&m.Active,
		&m.DaysOfWeek,
		&m.StartTime,
		&m.EndTime,
		&m.CreatedAt,
	)
	return m, err
}

const listMenusByRestaurant = `
SELECT id, restaurant_id, name, active, days_of_week, start_time, end_time, created_at
FROM menus
WHERE restaurant_id = $1
ORDER BY name
`

func (q *Queries) ListMenusByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]Menu, error) {
	rows, err := q.db.Query(ctx, listMenusByRestaurant, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Menu
	for rows.Next() {
		var m Menu
		if err := rows.Scan(
			&m.ID,
			&m.RestaurantID,
			&m.Name,
			&m.Active,
			&m.DaysOfWeek,
			&m.StartTime,
			&m.EndTime,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const listMenuItemsWithProduct = `
SELECT mi.id, mi.menu_id, mi.product_id, mi.price, mi.stock, mi.section_name, mi.display_order,
       p.name, p.description, p.price, p.stock, p.image_url
FROM menu_items mi
JOIN products p ON p.id = mi.product_id
WHERE mi.menu_id = $1 AND p.active
ORDER BY mi.section_name, mi.display_order
`

type ListMenuItemsWithProductRow struct {
	ID                 uuid.UUID
	MenuID             uuid.UUID
	ProductID          uuid.UUID
	Price              pgtype.Numeric
	Stock              pgtype.Int4
	SectionName        pgtype.Text
	DisplayOrder       int32
	ProductName        string
	ProductDescription pgtype.Text
	ProductPrice       pgtype.Numeric
	ProductStock       int32
	ProductImageUrl    pgtype.Text
}

func (q *Queries) ListMenuItemsWithProduct(ctx context.Context, menuID uuid.UUID) ([]ListMenuItemsWithProductRow, error) {
	rows, err := q.db.Query(ctx, listMenuItemsWithProduct, menuID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListMenuItemsWithProductRow
	for rows.Next() {
		var r ListMenuItemsWithProductRow
		if err := rows.Scan(
			&r.ID,
			&r.MenuID,
			&r.ProductID,
			&r.Price,
			&r.Stock,
			&r.SectionName,
			&r.DisplayOrder,
			&r.ProductName,
			&r.ProductDescription,
			&r.ProductPrice,
			&r.ProductStock,
			&r.ProductImageUrl,
		); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
