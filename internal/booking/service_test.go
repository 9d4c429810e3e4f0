package booking_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/treatment-booking/internal/booking"
	"github.com/hackgods/treatment-booking/internal/catalog"
	"github.com/hackgods/treatment-booking/internal/memstore"
	redisclient "github.com/hackgods/treatment-booking/internal/redis"
)

type recordingNotifier struct {
	mu      sync.Mutex
	notices []booking.Notice
}

func (r *recordingNotifier) Notify(_ context.Context, n booking.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recordingNotifier) kinds() []booking.NoticeKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []booking.NoticeKind
	for _, n := range r.notices {
		out = append(out, n.Kind)
	}
	return out
}

type fixture struct {
	store    *memstore.Store
	notifier *recordingNotifier
	svc      *booking.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log, _ := test.NewNullLogger()

	store := memstore.New()
	_, _, err := store.UpsertTreatment(context.Background(), catalog.Treatment{
		Name:  "Cleaning",
		Price: 80,
		Slots: []string{"9am", "10am"},
	})
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	svc := booking.NewService(store, catalog.NewService(store, log), redisclient.NewLocalLocker(), notifier, log)
	return &fixture{store: store, notifier: notifier, svc: svc}
}

func cleaningInput() booking.CreateInput {
	return booking.CreateInput{
		Treatment:   "Cleaning",
		Date:        "2024-01-01",
		Slot:        "9am",
		Patient:     "a@x.com",
		PatientName: "Ann",
	}
}

func TestCreateBooking_Dedup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.CreateBooking(ctx, cleaningInput())
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.False(t, first.Booking.Paid)
	assert.Equal(t, 80.0, first.Booking.Price)

	again := cleaningInput()
	again.Slot = "10am"
	second, err := f.svc.CreateBooking(ctx, again)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Booking.ID, second.Booking.ID)
	assert.Equal(t, "9am", second.Booking.Slot, "existing booking is returned unchanged")

	all, err := f.store.ListBookingsByPatient(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	assert.Equal(t, []booking.NoticeKind{booking.NoticeBookingCreated}, f.notifier.kinds())
}

func TestCreateBooking_DateFormsShareKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateBooking(ctx, cleaningInput())
	require.NoError(t, err)

	in := cleaningInput()
	in.Date = "Jan 1, 2024"
	res, err := f.svc.CreateBooking(ctx, in)
	require.NoError(t, err)
	assert.False(t, res.Created)
}

func TestCreateBooking_SameSlotDifferentPatients(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateBooking(ctx, cleaningInput())
	require.NoError(t, err)

	other := cleaningInput()
	other.Patient = "b@x.com"
	res, err := f.svc.CreateBooking(ctx, other)
	require.NoError(t, err)
	assert.True(t, res.Created)
}

func TestCreateBooking_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := cleaningInput()
	in.Patient = ""
	_, err := f.svc.CreateBooking(ctx, in)
	assert.ErrorIs(t, err, booking.ErrInvalidBooking)

	in = cleaningInput()
	in.Date = "tomorrow"
	_, err = f.svc.CreateBooking(ctx, in)
	assert.ErrorIs(t, err, booking.ErrInvalidDate)

	in = cleaningInput()
	in.Treatment = "Surgery"
	_, err = f.svc.CreateBooking(ctx, in)
	assert.ErrorIs(t, err, catalog.ErrTreatmentNotFound)

	in = cleaningInput()
	in.Slot = "midnight"
	_, err = f.svc.CreateBooking(ctx, in)
	assert.ErrorIs(t, err, booking.ErrInvalidSlot)

	assert.Empty(t, f.notifier.kinds())
}

func TestCreateBooking_ConcurrentDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const callers = 20
	results := make([]*booking.CreateResult, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.CreateBooking(ctx, cleaningInput())
		}(i)
	}
	wg.Wait()

	created := 0
	for i := range results {
		require.NoError(t, errs[i])
		if results[i].Created {
			created++
		}
	}
	assert.Equal(t, 1, created)

	all, err := f.store.ListBookingsByPatient(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

// slowStore holds the dedup lookup open so concurrent callers contend for
// the lock.
type slowStore struct {
	*memstore.Store
	delay time.Duration
}

func (s *slowStore) FindByDedupKey(ctx context.Context, treatment, date, patient string) (*booking.Booking, error) {
	time.Sleep(s.delay)
	return s.Store.FindByDedupKey(ctx, treatment, date, patient)
}

func TestCreateBooking_HeldLockYieldsDuplicate(t *testing.T) {
	log, _ := test.NewNullLogger()
	ctx := context.Background()

	store := memstore.New()
	_, _, err := store.UpsertTreatment(ctx, catalog.Treatment{Name: "Cleaning", Price: 80, Slots: []string{"9am"}})
	require.NoError(t, err)

	slow := &slowStore{Store: store, delay: 50 * time.Millisecond}
	svc := booking.NewService(slow, catalog.NewService(store, log), redisclient.NewLocalLocker(), nil, log)

	var (
		wg      sync.WaitGroup
		results [2]*booking.CreateResult
		errs    [2]error
	)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.CreateBooking(ctx, cleaningInput())
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.NotEqual(t, results[0].Created, results[1].Created)
	assert.Equal(t, results[0].Booking.ID, results[1].Booking.ID)
}

// contendedLocker reports every key as held.
type contendedLocker struct{}

func (contendedLocker) WithKeyLock(context.Context, string, func(context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

func TestCreateBooking_LockNeverFreeFallsBackToUniqueKey(t *testing.T) {
	log, _ := test.NewNullLogger()
	ctx := context.Background()

	store := memstore.New()
	_, _, err := store.UpsertTreatment(ctx, catalog.Treatment{Name: "Cleaning", Price: 80, Slots: []string{"9am"}})
	require.NoError(t, err)
	svc := booking.NewService(store, catalog.NewService(store, log), contendedLocker{}, nil, log)

	first, err := svc.CreateBooking(ctx, cleaningInput())
	require.NoError(t, err)
	assert.True(t, first.Created)

	second, err := svc.CreateBooking(ctx, cleaningInput())
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Booking.ID, second.Booking.ID)
}

func TestCreateBooking_LockWaitHonoursContext(t *testing.T) {
	log, _ := test.NewNullLogger()

	store := memstore.New()
	_, _, err := store.UpsertTreatment(context.Background(), catalog.Treatment{Name: "Cleaning", Price: 80, Slots: []string{"9am"}})
	require.NoError(t, err)
	svc := booking.NewService(store, catalog.NewService(store, log), contendedLocker{}, nil, log)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = svc.CreateBooking(ctx, cleaningInput())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.CreateBooking(ctx, cleaningInput())
	require.NoError(t, err)

	got, err := f.svc.GetBooking(ctx, res.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Booking.ID, got.ID)

	_, err = f.svc.GetBooking(ctx, uuid.New())
	assert.ErrorIs(t, err, booking.ErrBookingNotFound)
}

func TestListBookingsForPatient_Ownership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateBooking(ctx, cleaningInput())
	require.NoError(t, err)

	got, err := f.svc.ListBookingsForPatient(ctx, "a@x.com", "a@x.com")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = f.svc.ListBookingsForPatient(ctx, "a@x.com", "b@x.com")
	assert.ErrorIs(t, err, booking.ErrNotOwner)

	// no data for the requested patient still fails the same way
	_, err = f.svc.ListBookingsForPatient(ctx, "ghost@x.com", "b@x.com")
	assert.ErrorIs(t, err, booking.ErrNotOwner)

	_, err = f.svc.ListBookingsForPatient(ctx, "", "")
	assert.ErrorIs(t, err, booking.ErrNotOwner)
}

func TestConfirmPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.CreateBooking(ctx, cleaningInput())
	require.NoError(t, err)

	updated, err := f.svc.ConfirmPayment(ctx, res.Booking.ID, booking.PaymentDetails{TransactionID: "pi_1"})
	require.NoError(t, err)
	assert.True(t, updated.Paid)
	require.NotNil(t, updated.TransactionID)
	assert.Equal(t, "pi_1", *updated.TransactionID)

	payments := f.store.Payments(res.Booking.ID)
	require.Len(t, payments, 1)
	assert.Equal(t, "pi_1", payments[0].TransactionID)
	assert.Equal(t, "Cleaning", payments[0].Treatment)
	assert.Equal(t, "2024-01-01", payments[0].Date)
	assert.Equal(t, "9am", payments[0].Slot)
	assert.Equal(t, "a@x.com", payments[0].Patient)
	assert.Equal(t, "Ann", payments[0].PatientName)
	assert.Equal(t, 80.0, payments[0].Price)

	assert.Equal(t, []booking.NoticeKind{booking.NoticeBookingCreated, booking.NoticePaymentReceived}, f.notifier.kinds())
}

func TestConfirmPayment_ReappliesOnRepeat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.CreateBooking(ctx, cleaningInput())
	require.NoError(t, err)

	_, err = f.svc.ConfirmPayment(ctx, res.Booking.ID, booking.PaymentDetails{TransactionID: "pi_1"})
	require.NoError(t, err)

	price := 40.0
	updated, err := f.svc.ConfirmPayment(ctx, res.Booking.ID, booking.PaymentDetails{TransactionID: "pi_2", Price: &price})
	require.NoError(t, err)
	assert.Equal(t, "pi_2", *updated.TransactionID)

	payments := f.store.Payments(res.Booking.ID)
	require.Len(t, payments, 2)
	assert.Equal(t, 40.0, payments[1].Price)
}

func TestConfirmPayment_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ConfirmPayment(ctx, uuid.New(), booking.PaymentDetails{TransactionID: "pi_1"})
	assert.ErrorIs(t, err, booking.ErrBookingNotFound)

	res, err := f.svc.CreateBooking(ctx, cleaningInput())
	require.NoError(t, err)

	_, err = f.svc.ConfirmPayment(ctx, res.Booking.ID, booking.PaymentDetails{TransactionID: "  "})
	assert.ErrorIs(t, err, booking.ErrInvalidPayment)
	assert.Empty(t, f.store.Payments(res.Booking.ID))
}

func TestNilNotifierIsAllowed(t *testing.T) {
	store := memstore.New()
	_, _, err := store.UpsertTreatment(context.Background(), catalog.Treatment{Name: "Cleaning", Slots: []string{"9am"}})
	require.NoError(t, err)

	svc := booking.NewService(store, catalog.NewService(store, logrus.New()), redisclient.NewLocalLocker(), nil, logrus.New())
	res, err := svc.CreateBooking(context.Background(), cleaningInput())
	require.NoError(t, err)
	assert.True(t, res.Created)
}
