package booking

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

const bookingColumns = `id, treatment, booking_date, slot, patient, patient_name, phone, price, paid, transaction_id, created_at, updated_at`

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	var txID *string

	err := row.Scan(
		&b.ID,
		&b.Treatment,
		&b.Date,
		&b.Slot,
		&b.Patient,
		&b.PatientName,
		&b.Phone,
		&b.Price,
		&b.Paid,
		&txID,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	b.TransactionID = txID
	return &b, nil
}

func collectBookings(rows pgx.Rows) ([]Booking, error) {
	defer rows.Close()

	result := []Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
	`, id)
	return scanBooking(row)
}

func (r *PgRepository) FindByDedupKey(ctx context.Context, treatment, date, patient string) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE treatment = $1 AND booking_date = $2 AND patient = $3
	`, treatment, date, patient)
	return scanBooking(row)
}

func (r *PgRepository) ListBookingsByPatient(ctx context.Context, patient string) ([]Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE patient = $1
		ORDER BY booking_date, created_at
	`, patient)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (r *PgRepository) ListBookingsByDate(ctx context.Context, date string) ([]Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE booking_date = $1
	`, date)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (r *PgRepository) InsertBooking(ctx context.Context, b Booking) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO bookings (id, treatment, booking_date, slot, patient, patient_name, phone, price, paid, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false, now(), now())
		ON CONFLICT ON CONSTRAINT bookings_dedup_key DO NOTHING
		RETURNING `+bookingColumns+`
	`, b.ID, b.Treatment, b.Date, b.Slot, b.Patient, b.PatientName, b.Phone, b.Price)

	created, err := scanBooking(row)
	if errors.Is(err, ErrBookingNotFound) {
		return nil, ErrBookingExists
	}
	return created, err
}

func (r *PgRepository) MarkPaid(ctx context.Context, id uuid.UUID, p Payment) (*Booking, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE bookings
		SET paid = true,
		    transaction_id = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+bookingColumns+`
	`, id, p.TransactionID)

	updated, err := scanBooking(row)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO payments (id, booking_id, transaction_id, treatment, booking_date, slot, patient, patient_name, price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
	`, p.ID, id, p.TransactionID, p.Treatment, p.Date, p.Slot, p.Patient, p.PatientName, p.Price)
	if err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}
