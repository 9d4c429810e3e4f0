package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanUser(row pgx.Row) (*User, error) {
	var u User

	err := row.Scan(
		&u.Email,
		&u.Role,
		&u.Profile,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if u.Profile == nil {
		u.Profile = map[string]any{}
	}
	return &u, nil
}

func (r *PgRepository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT email, role, profile, created_at, updated_at
		FROM users
		ORDER BY email
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *u)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) GetUser(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT email, role, profile, created_at, updated_at
		FROM users
		WHERE email = $1
	`, email)
	return scanUser(row)
}

func (r *PgRepository) UpsertUser(ctx context.Context, email string, profile map[string]any) (bool, error) {
	if profile == nil {
		profile = map[string]any{}
	}

	var created bool
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, profile, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (email) DO UPDATE
		SET profile = users.profile || EXCLUDED.profile,
		    updated_at = now()
		RETURNING (xmax = 0)
	`, email, profile).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upsert user: %w", err)
	}
	return created, nil
}

func (r *PgRepository) SetRole(ctx context.Context, email, role string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET role = $2,
		    updated_at = now()
		WHERE email = $1
	`, email, role)
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PgRepository) DeleteUser(ctx context.Context, email string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
