package database

import (
	"context"

	"github.com/google/uuid"
)

const getUserByEmail = `
SELECT id, restaurant_id, email, password_hash, full_name, role, is_active, created_at
FROM users
WHERE email = $1 AND is_active
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRow(ctx, getUserByEmail, email)
	var u User
	err := row.Scan(
		&u.ID,
		&u.RestaurantID,
		&u.Email,
		&u.PasswordHash,
		&u.FullName,
		&u.Role,
		&u.IsActive,
		&u.CreatedAt,
	)
	return u, err
}

const getUserByID = `
SELECT id, restaurant_id, email, password_hash, full_name, role, is_active, created_at
FROM users
WHERE id = $1 AND is_active
`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := q.db.QueryRow(ctx, getUserByID, id)
	var u User
	err := row.Scan(
		&u.ID,
		&u.RestaurantID,
		&u.Email,
		&u.PasswordHash,
		&u.FullName,
		&u.Role,
		&u.IsActive,
		&u.CreatedAt,
	)
	return u, err
}
