package notify

import (
	"encoding/json"
	"fmt"

	"github.com/hackgods/treatment-booking/internal/booking"
)

// Routing keys on the notification exchange.
const (
	RKBookingCreated = string(booking.NoticeBookingCreated)
	RKBookingPaid    = string(booking.NoticePaymentReceived)
)

// BookingEvent is the wire payload for both routing keys.
type BookingEvent struct {
	BookingID     string  `json:"booking_id"`
	Treatment     string  `json:"treatment"`
	Date          string  `json:"date"`
	Slot          string  `json:"slot"`
	Patient       string  `json:"patient"`
	PatientName   string  `json:"patient_name"`
	Price         float64 `json:"price"`
	TransactionID string  `json:"transaction_id,omitempty"`
}

func EventFromNotice(n booking.Notice) BookingEvent {
	b := n.Booking
	return BookingEvent{
		BookingID:     b.ID.String(),
		Treatment:     b.Treatment,
		Date:          b.Date,
		Slot:          b.Slot,
		Patient:       b.Patient,
		PatientName:   b.PatientName,
		Price:         b.Price,
		TransactionID: n.TransactionID,
	}
}

func decode[T any](b []byte) (T, error) {
	var t T
	if err := json.Unmarshal(b, &t); err != nil {
		var zero T
		return zero, fmt.Errorf("decode payload failed: %w", err)
	}
	return t, nil
}
