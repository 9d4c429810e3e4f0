package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanTreatment(row pgx.Row) (*Treatment, error) {
	var t Treatment

	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Price,
		&t.Slots,
		&t.Image,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTreatmentNotFound
		}
		return nil, err
	}

	if t.Slots == nil {
		t.Slots = []string{}
	}
	return &t, nil
}

func (r *PgRepository) ListTreatments(ctx context.Context) ([]Treatment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, price, slots, image, created_at, updated_at
		FROM treatments
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []Treatment{}
	for rows.Next() {
		t, err := scanTreatment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) GetTreatmentByName(ctx context.Context, name string) (*Treatment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, price, slots, image, created_at, updated_at
		FROM treatments
		WHERE name = $1
	`, name)
	return scanTreatment(row)
}

func (r *PgRepository) UpsertTreatment(ctx context.Context, t Treatment) (*Treatment, bool, error) {
	var (
		saved   Treatment
		created bool
	)

	// xmax is zero only for a freshly inserted tuple
	err := r.pool.QueryRow(ctx, `
		INSERT INTO treatments (id, name, price, slots, image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		ON CONFLICT (name) DO UPDATE
		SET price = EXCLUDED.price,
		    slots = EXCLUDED.slots,
		    image = EXCLUDED.image,
		    updated_at = now()
		RETURNING id, name, price, slots, image, created_at, updated_at, (xmax = 0)
	`, uuid.New(), t.Name, t.Price, t.Slots, t.Image).Scan(
		&saved.ID,
		&saved.Name,
		&saved.Price,
		&saved.Slots,
		&saved.Image,
		&saved.CreatedAt,
		&saved.UpdatedAt,
		&created,
	)
	if err != nil {
		return nil, false, fmt.Errorf("upsert treatment: %w", err)
	}

	return &saved, created, nil
}

func (r *PgRepository) DeleteTreatment(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM treatments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete treatment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTreatmentNotFound
	}
	return nil
}
