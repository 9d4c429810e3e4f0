// Package availability derives the open slots per treatment for a day. Nothing
// is cached or stored: every call subtracts that day's bookings from the
// catalog's canonical slot lists.
package availability

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hackgods/treatment-booking/internal/booking"
	"github.com/hackgods/treatment-booking/internal/catalog"
)

type TreatmentLister interface {
	ListAll(ctx context.Context) ([]catalog.Treatment, error)
}

type BookingLister interface {
	ListByDate(ctx context.Context, date string) ([]booking.Booking, error)
}

// Option is one treatment with the slots still open on the queried date.
type Option struct {
	ID    uuid.UUID
	Name  string
	Price float64
	Image string
	Slots []string
}

type Engine struct {
	treatments TreatmentLister
	bookings   BookingLister
}

func NewEngine(treatments TreatmentLister, bookings BookingLister) *Engine {
	return &Engine{treatments: treatments, bookings: bookings}
}

// ListAvailable returns booking.ErrInvalidDate for an absent or unparseable date.
func (e *Engine) ListAvailable(ctx context.Context, rawDate string) ([]Option, error) {
	date, err := booking.ParseDate(rawDate)
	if err != nil {
		return nil, err
	}

	treatments, err := e.treatments.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	booked, err := e.bookings.ListByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}

	return Remaining(treatments, booked), nil
}

// Remaining computes slots minus booked slots per treatment, keeping the
// catalog order.
func Remaining(treatments []catalog.Treatment, booked []booking.Booking) []Option {
	taken := make(map[string]map[string]struct{})
	for _, b := range booked {
		slots, ok := taken[b.Treatment]
		if !ok {
			slots = make(map[string]struct{})
			taken[b.Treatment] = slots
		}
		slots[b.Slot] = struct{}{}
	}

	options := make([]Option, 0, len(treatments))
	for _, t := range treatments {
		open := make([]string, 0, len(t.Slots))
		for _, s := range t.Slots {
			if _, ok := taken[t.Name][s]; !ok {
				open = append(open, s)
			}
		}
		options = append(options, Option{
			ID:    t.ID,
			Name:  t.Name,
			Price: t.Price,
			Image: t.Image,
			Slots: open,
		})
	}
	return options
}
