package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Treatment is a bookable service. Slots is the canonical, ordered list of
// time labels for one day; it is never decremented by bookings.
type Treatment struct {
	ID        uuid.UUID
	Name      string
	Price     float64
	Slots     []string
	Image     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TreatmentName is the public projection of a Treatment.
type TreatmentName struct {
	ID   uuid.UUID
	Name string
}

// HasSlot reports whether label is one of the treatment's canonical slots.
func (t *Treatment) HasSlot(label string) bool {
	for _, s := range t.Slots {
		if s == label {
			return true
		}
	}
	return false
}
