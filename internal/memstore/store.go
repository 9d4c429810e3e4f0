// Package memstore is the in-process storage driver (STORE_DRIVER=memory).
// It satisfies the catalog, booking and user repositories and is also what
// the service and router tests run against. State is lost on restart.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/treatment-booking/internal/booking"
	"github.com/hackgods/treatment-booking/internal/catalog"
	"github.com/hackgods/treatment-booking/internal/user"
)

type Store struct {
	mu         sync.RWMutex
	treatments map[string]catalog.Treatment // by name
	bookings   map[uuid.UUID]booking.Booking
	payments   []booking.Payment
	users      map[string]user.User
	now        func() time.Time
}

func New() *Store {
	return &Store{
		treatments: make(map[string]catalog.Treatment),
		bookings:   make(map[uuid.UUID]booking.Booking),
		users:      make(map[string]user.User),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

var (
	_ catalog.Repository = (*Store)(nil)
	_ booking.Repository = (*Store)(nil)
	_ user.Repository    = (*Store)(nil)
)

// Catalog

func cloneTreatment(t catalog.Treatment) catalog.Treatment {
	t.Slots = append([]string{}, t.Slots...)
	return t
}

func (s *Store) ListTreatments(_ context.Context) ([]catalog.Treatment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]catalog.Treatment, 0, len(s.treatments))
	for _, t := range s.treatments {
		result = append(result, cloneTreatment(t))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Store) GetTreatmentByName(_ context.Context, name string) (*catalog.Treatment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.treatments[name]
	if !ok {
		return nil, catalog.ErrTreatmentNotFound
	}
	t = cloneTreatment(t)
	return &t, nil
}

func (s *Store) UpsertTreatment(_ context.Context, t catalog.Treatment) (*catalog.Treatment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	existing, ok := s.treatments[t.Name]
	if ok {
		existing.Price = t.Price
		existing.Slots = append([]string{}, t.Slots...)
		existing.Image = t.Image
		existing.UpdatedAt = now
	} else {
		existing = cloneTreatment(t)
		existing.ID = uuid.New()
		existing.CreatedAt = now
		existing.UpdatedAt = now
	}
	s.treatments[t.Name] = existing

	saved := cloneTreatment(existing)
	return &saved, !ok, nil
}

func (s *Store) DeleteTreatment(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, t := range s.treatments {
		if t.ID == id {
			delete(s.treatments, name)
			return nil
		}
	}
	return catalog.ErrTreatmentNotFound
}

// Bookings

func (s *Store) GetBookingByID(_ context.Context, id uuid.UUID) (*booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, booking.ErrBookingNotFound
	}
	return &b, nil
}

func (s *Store) FindByDedupKey(_ context.Context, treatment, date, patient string) (*booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if b, ok := s.findByKeyLocked(treatment, date, patient); ok {
		return &b, nil
	}
	return nil, booking.ErrBookingNotFound
}

func (s *Store) findByKeyLocked(treatment, date, patient string) (booking.Booking, bool) {
	for _, b := range s.bookings {
		if b.Treatment == treatment && b.Date == date && b.Patient == patient {
			return b, true
		}
	}
	return booking.Booking{}, false
}

func (s *Store) filterBookings(keep func(booking.Booking) bool) []booking.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []booking.Booking{}
	for _, b := range s.bookings {
		if keep(b) {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date < result[j].Date
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func (s *Store) ListBookingsByPatient(_ context.Context, patient string) ([]booking.Booking, error) {
	return s.filterBookings(func(b booking.Booking) bool { return b.Patient == patient }), nil
}

func (s *Store) ListBookingsByDate(_ context.Context, date string) ([]booking.Booking, error) {
	return s.filterBookings(func(b booking.Booking) bool { return b.Date == date }), nil
}

func (s *Store) InsertBooking(_ context.Context, b booking.Booking) (*booking.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.findByKeyLocked(b.Treatment, b.Date, b.Patient); ok {
		return nil, booking.ErrBookingExists
	}

	now := s.now()
	b.Paid = false
	b.TransactionID = nil
	b.CreatedAt = now
	b.UpdatedAt = now
	s.bookings[b.ID] = b
	return &b, nil
}

func (s *Store) MarkPaid(_ context.Context, id uuid.UUID, p booking.Payment) (*booking.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, booking.ErrBookingNotFound
	}

	now := s.now()
	txID := p.TransactionID
	b.Paid = true
	b.TransactionID = &txID
	b.UpdatedAt = now
	s.bookings[id] = b

	p.BookingID = id
	p.CreatedAt = now
	s.payments = append(s.payments, p)

	return &b, nil
}

// Payments returns the payment rows recorded for a booking, oldest first.
func (s *Store) Payments(bookingID uuid.UUID) []booking.Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []booking.Payment
	for _, p := range s.payments {
		if p.BookingID == bookingID {
			result = append(result, p)
		}
	}
	return result
}

// Users

func cloneUser(u user.User) user.User {
	profile := make(map[string]any, len(u.Profile))
	for k, v := range u.Profile {
		profile[k] = v
	}
	u.Profile = profile
	return u
}

func (s *Store) ListUsers(_ context.Context) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		result = append(result, cloneUser(u))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Email < result[j].Email })
	return result, nil
}

func (s *Store) GetUser(_ context.Context, email string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[email]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	u = cloneUser(u)
	return &u, nil
}

func (s *Store) UpsertUser(_ context.Context, email string, profile map[string]any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	u, ok := s.users[email]
	if !ok {
		u = user.User{Email: email, Profile: map[string]any{}, CreatedAt: now}
	}
	u = cloneUser(u)
	for k, v := range profile {
		u.Profile[k] = v
	}
	u.UpdatedAt = now
	s.users[email] = u
	return !ok, nil
}

func (s *Store) SetRole(_ context.Context, email, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[email]
	if !ok {
		return user.ErrUserNotFound
	}
	u.Role = role
	u.UpdatedAt = s.now()
	s.users[email] = u
	return nil
}

func (s *Store) DeleteUser(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[email]; !ok {
		return user.ErrUserNotFound
	}
	delete(s.users, email)
	return nil
}
