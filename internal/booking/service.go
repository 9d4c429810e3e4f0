package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hackgods/treatment-booking/internal/catalog"
	redisclient "github.com/hackgods/treatment-booking/internal/redis"
)

var (
	ErrInvalidBooking = errors.New("treatment, date, slot and patient are required")
	ErrInvalidSlot    = errors.New("slot is not offered by this treatment")
	ErrInvalidPayment = errors.New("transactionId is required")
	ErrNotOwner       = errors.New("bookings can only be listed by their patient")
)

const (
	lockRetryAttempts = 8
	lockRetryBase     = 10 * time.Millisecond
	lockRetryMax      = 200 * time.Millisecond
)

// TreatmentLookup resolves the catalog entry a booking refers to.
type TreatmentLookup interface {
	GetByName(ctx context.Context, name string) (*catalog.Treatment, error)
}

type Service struct {
	repo       Repository
	treatments TreatmentLookup
	locker     redisclient.Locker
	notifier   Notifier
	log        logrus.FieldLogger
}

func NewService(repo Repository, treatments TreatmentLookup, locker redisclient.Locker, notifier Notifier, log logrus.FieldLogger) *Service {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Service{
		repo:       repo,
		treatments: treatments,
		locker:     locker,
		notifier:   notifier,
		log:        log,
	}
}

// CreateBooking persists a new unpaid booking unless the patient already holds
// one for the same treatment and date, in which case that booking is returned
// with Created=false. Two different patients may still pick the same slot.
func (s *Service) CreateBooking(ctx context.Context, in CreateInput) (*CreateResult, error) {
	in.Treatment = strings.TrimSpace(in.Treatment)
	in.Slot = strings.TrimSpace(in.Slot)
	in.Patient = strings.TrimSpace(in.Patient)
	if in.Treatment == "" || in.Slot == "" || in.Patient == "" || strings.TrimSpace(in.Date) == "" {
		return nil, ErrInvalidBooking
	}

	date, err := ParseDate(in.Date)
	if err != nil {
		return nil, err
	}

	treatment, err := s.treatments.GetByName(ctx, in.Treatment)
	if err != nil {
		return nil, err
	}
	if !treatment.HasSlot(in.Slot) {
		return nil, ErrInvalidSlot
	}

	var result *CreateResult

	key := DedupKey(in.Treatment, date, in.Patient)
	err = s.withDedupLock(ctx, key, func(lockCtx context.Context) error {
		existing, err := s.repo.FindByDedupKey(lockCtx, in.Treatment, date, in.Patient)
		if err == nil {
			result = &CreateResult{Created: false, Booking: existing}
			return nil
		}
		if !errors.Is(err, ErrBookingNotFound) {
			return fmt.Errorf("check existing booking: %w", err)
		}

		created, err := s.repo.InsertBooking(lockCtx, Booking{
			ID:          uuid.New(),
			Treatment:   in.Treatment,
			Date:        date,
			Slot:        in.Slot,
			Patient:     in.Patient,
			PatientName: strings.TrimSpace(in.PatientName),
			Phone:       strings.TrimSpace(in.Phone),
			Price:       treatment.Price,
		})
		if errors.Is(err, ErrBookingExists) {
			// lost a race that bypassed the lock; the unique key still holds
			existing, err := s.repo.FindByDedupKey(lockCtx, in.Treatment, date, in.Patient)
			if err != nil {
				return fmt.Errorf("load existing booking: %w", err)
			}
			result = &CreateResult{Created: false, Booking: existing}
			return nil
		}
		if err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}

		result = &CreateResult{Created: true, Booking: created}
		return nil
	})
	if err != nil {
		return nil, err
	}

	entry := s.log.WithFields(logrus.Fields{
		"booking_id": result.Booking.ID,
		"treatment":  result.Booking.Treatment,
		"date":       result.Booking.Date,
	})
	if result.Created {
		entry.Info("booking created")
		s.notifier.Notify(ctx, Notice{Kind: NoticeBookingCreated, Booking: *result.Booking})
	} else {
		entry.Info("duplicate booking request")
	}

	return result, nil
}

// GetBooking looks a booking up by id. Callers must be authenticated but
// ownership is not checked.
func (s *Service) GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	b, err := s.repo.GetBookingByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// ListBookingsForPatient is self-service only: patient must equal the
// authenticated email exactly.
func (s *Service) ListBookingsForPatient(ctx context.Context, patient, principalEmail string) ([]Booking, error) {
	if patient == "" || patient != principalEmail {
		return nil, ErrNotOwner
	}

	bookings, err := s.repo.ListBookingsByPatient(ctx, patient)
	if err != nil {
		return nil, fmt.Errorf("list bookings by patient: %w", err)
	}
	return bookings, nil
}

// ListByDate returns every booking on a normalized date.
func (s *Service) ListByDate(ctx context.Context, date string) ([]Booking, error) {
	bookings, err := s.repo.ListBookingsByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list bookings by date: %w", err)
	}
	return bookings, nil
}

// ConfirmPayment marks the booking paid and appends a Payment record. It is
// not guarded on the current state: confirming twice re-applies the flag and
// records a second payment.
func (s *Service) ConfirmPayment(ctx context.Context, id uuid.UUID, details PaymentDetails) (*Booking, error) {
	details.TransactionID = strings.TrimSpace(details.TransactionID)
	if details.TransactionID == "" {
		return nil, ErrInvalidPayment
	}

	b, err := s.repo.GetBookingByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load booking: %w", err)
	}

	price := b.Price
	if details.Price != nil {
		price = *details.Price
	}

	updated, err := s.repo.MarkPaid(ctx, id, Payment{
		ID:            uuid.New(),
		BookingID:     b.ID,
		TransactionID: details.TransactionID,
		Treatment:     b.Treatment,
		Date:          b.Date,
		Slot:          b.Slot,
		Patient:       b.Patient,
		PatientName:   b.PatientName,
		Price:         price,
	})
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("confirm payment: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"booking_id":     updated.ID,
		"transaction_id": details.TransactionID,
		"repeat":         b.Paid,
	}).Info("payment confirmed")

	s.notifier.Notify(ctx, Notice{
		Kind:          NoticePaymentReceived,
		Booking:       *updated,
		TransactionID: details.TransactionID,
	})

	return updated, nil
}

// withDedupLock runs fn under the key lock. A held lock is retried with
// backoff; once the attempts run out fn runs unlocked and the unique key on
// (treatment, date, patient) decides, so contention never surfaces as an error.
func (s *Service) withDedupLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	backoff := lockRetryBase
	for attempt := 0; attempt < lockRetryAttempts; attempt++ {
		err := s.locker.WithKeyLock(ctx, key, fn)
		if !errors.Is(err, redisclient.ErrLockNotAcquired) {
			return err
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for booking lock: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, lockRetryMax)
	}

	s.log.WithField("key", key).Warn("booking lock still held, relying on unique key")
	return fn(ctx)
}
