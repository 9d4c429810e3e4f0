package booking

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrBookingExists   = errors.New("booking already exists for treatment, date and patient")
)

// Repository contains all storage interactions needed by the booking lifecycle.
type Repository interface {
	GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	FindByDedupKey(ctx context.Context, treatment, date, patient string) (*Booking, error)
	ListBookingsByPatient(ctx context.Context, patient string) ([]Booking, error)
	ListBookingsByDate(ctx context.Context, date string) ([]Booking, error)

	// InsertBooking returns ErrBookingExists when the dedup key is taken.
	InsertBooking(ctx context.Context, b Booking) (*Booking, error)

	// MarkPaid sets paid and transaction id and appends p as one unit.
	MarkPaid(ctx context.Context, id uuid.UUID, p Payment) (*Booking, error)
}
