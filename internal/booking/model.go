package booking

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Booking is a patient's claim on one treatment/date/slot. After creation the
// only mutation is the unpaid -> paid transition.
type Booking struct {
	ID            uuid.UUID
	Treatment     string
	Date          string // normalized YYYY-MM-DD
	Slot          string
	Patient       string // email
	PatientName   string
	Phone         string
	Price         float64
	Paid          bool
	TransactionID *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Payment is append-only, one row per paid transition.
type Payment struct {
	ID            uuid.UUID
	BookingID     uuid.UUID
	TransactionID string
	Treatment     string
	Date          string
	Slot          string
	Patient       string
	PatientName   string
	Price         float64
	CreatedAt     time.Time
}

type CreateInput struct {
	Treatment   string
	Date        string
	Slot        string
	Patient     string
	PatientName string
	Phone       string
}

type PaymentDetails struct {
	TransactionID string
	Price         *float64 // falls back to the booking price
}

// CreateResult carries either the new booking (Created) or the one that
// already holds the dedup key.
type CreateResult struct {
	Created bool
	Booking *Booking
}

// DedupKey identifies the (treatment, date, patient) triple a patient may
// hold at most one booking for. Parts are length prefixed before hashing so
// no two distinct triples share a key.
func DedupKey(treatment, date, patient string) string {
	h := sha256.New()
	for _, part := range []string{treatment, date, patient} {
		fmt.Fprintf(h, "%d:%s", len(part), part)
	}
	return hex.EncodeToString(h.Sum(nil))
}
