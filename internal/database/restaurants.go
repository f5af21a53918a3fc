package database

import (
	"context"

	"github.com/google/uuid"
)

const getRestaurant = `
SELECT id, name, slug, email, active, created_at, updated_at
FROM restaurants
WHERE id = $1
`

func (q *Queries) GetRestaurant(ctx context.Context, id uuid.UUID) (Restaurant, error) {
	row := q.db.QueryRow(ctx, getRestaurant, id)
	return scanRestaurant(row)
}

const getRestaurantBySlug = `
SELECT id, name, slug, email, active, created_at, updated_at
FROM restaurants
WHERE slug = $1 AND active
`

func (q *Queries) GetRestaurantBySlug(ctx context.Context, slug string) (Restaurant, error) {
	row := q.db.QueryRow(ctx, getRestaurantBySlug, slug)
	return scanRestaurant(row)
}

func scanRestaurant(row rowScanner) (Restaurant, error) {
	var r Restaurant
	err := row.Scan(
		&r.ID,
		&r.Name,
		&r.Slug,
		&r.Email,
		&r.Active,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	return r, err
}
