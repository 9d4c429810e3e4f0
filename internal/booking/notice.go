package booking

import "context"

type NoticeKind string

const (
	NoticeBookingCreated  NoticeKind = "booking.created"
	NoticePaymentReceived NoticeKind = "booking.paid"
)

// Notice is a one-way message to the patient notification pipeline.
type Notice struct {
	Kind          NoticeKind
	Booking       Booking
	TransactionID string
}

// Notifier accepts notices without blocking the caller. Delivery failures
// are the implementation's concern and never reach the booking flow.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Notice) {}
