package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/treatment-booking/internal/access"
	"github.com/hackgods/treatment-booking/internal/api"
	"github.com/hackgods/treatment-booking/internal/auth"
	"github.com/hackgods/treatment-booking/internal/availability"
	"github.com/hackgods/treatment-booking/internal/booking"
	"github.com/hackgods/treatment-booking/internal/catalog"
	"github.com/hackgods/treatment-booking/internal/memstore"
	"github.com/hackgods/treatment-booking/internal/metrics"
	"github.com/hackgods/treatment-booking/internal/payment"
	redisclient "github.com/hackgods/treatment-booking/internal/redis"
	"github.com/hackgods/treatment-booking/internal/user"
)

type harness struct {
	t       *testing.T
	store   *memstore.Store
	signer  *auth.Signer
	handler http.Handler
}

type harnessOption func(*api.RouterConfig)

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	log, _ := test.NewNullLogger()

	store := memstore.New()
	signer := auth.NewSigner("test-secret", time.Hour)

	catalogSvc := catalog.NewService(store, log)
	bookingSvc := booking.NewService(store, catalogSvc, redisclient.NewLocalLocker(), nil, log)
	userSvc := user.NewService(store, signer, log)

	_, _, err := catalogSvc.Upsert(context.Background(), catalog.Treatment{
		Name:  "Teeth Cleaning",
		Price: 120,
		Slots: []string{"08.00 AM - 08.30 AM", "09.00 AM - 09.30 AM"},
	})
	require.NoError(t, err)

	cfg := api.RouterConfig{
		Catalog:      catalogSvc,
		Availability: availability.NewEngine(catalogSvc, bookingSvc),
		Bookings:     bookingSvc,
		Users:        userSvc,
		Payments:     payment.Unconfigured{},
		Gate:         access.NewGate(signer, userSvc),
		Metrics:      metrics.New(),
		Health:       api.NewHealthHandler("test", "dev"),
		Logger:       log,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &harness{t: t, store: store, signer: signer, handler: api.NewRouter(cfg)}
}

func (h *harness) token(email string) string {
	h.t.Helper()
	tok, err := h.signer.Issue(email)
	require.NoError(h.t, err)
	return tok
}

func (h *harness) makeAdmin(email string) {
	h.t.Helper()
	_, err := h.store.UpsertUser(context.Background(), email, map[string]any{})
	require.NoError(h.t, err)
	require.NoError(h.t, h.store.SetRole(context.Background(), email, user.RoleAdmin))
}

func (h *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func bookingRequest(patient string) api.CreateBookingRequest {
	return api.CreateBookingRequest{
		Treatment:   "Teeth Cleaning",
		Date:        "Oct 20, 2026",
		Slot:        "08.00 AM - 08.30 AM",
		Patient:     patient,
		PatientName: "Ana",
		Phone:       "555-0100",
	}
}

func TestCreateBookingAndDuplicate(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/booking", "", bookingRequest("ana@example.com"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[api.CreateBookingResponse](t, rec)
	assert.True(t, first.Success)
	assert.Equal(t, "2026-10-20", first.Booking.Date)
	assert.Equal(t, 120.0, first.Booking.Price)
	assert.False(t, first.Booking.Paid)

	rec = h.do(http.MethodPost, "/booking", "", bookingRequest("ana@example.com"))
	require.Equal(t, http.StatusOK, rec.Code)
	dup := decode[api.CreateBookingResponse](t, rec)
	assert.False(t, dup.Success)
	assert.Equal(t, "Booking already exists!", dup.Message)
	assert.Equal(t, first.Booking.ID, dup.Booking.ID)
}

func TestCreateBookingValidation(t *testing.T) {
	h := newHarness(t)

	req := bookingRequest("ana@example.com")
	req.Slot = "11.00 PM - 11.30 PM"
	rec := h.do(http.MethodPost, "/booking", "", req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_slot", decode[api.ErrorResponse](t, rec).Error)

	req = bookingRequest("ana@example.com")
	req.Treatment = "Root Canal"
	rec = h.do(http.MethodPost, "/booking", "", req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = bookingRequest("ana@example.com")
	req.Date = "not a date"
	rec = h.do(http.MethodPost, "/booking", "", req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_date", decode[api.ErrorResponse](t, rec).Error)
}

func TestAvailableExcludesBookedSlots(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/booking", "", bookingRequest("ana@example.com"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = h.do(http.MethodGet, "/available?date=2026-10-20", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	opts := decode[[]api.AvailabilityResponse](t, rec)
	require.Len(t, opts, 1)
	assert.Equal(t, []string{"09.00 AM - 09.30 AM"}, opts[0].Slots)

	rec = h.do(http.MethodGet, "/available?date=2026-10-21", "", nil)
	opts = decode[[]api.AvailabilityResponse](t, rec)
	assert.Len(t, opts[0].Slots, 2)

	rec = h.do(http.MethodGet, "/available", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListBookingsIsSelfOnly(t *testing.T) {
	h := newHarness(t)
	h.do(http.MethodPost, "/booking", "", bookingRequest("ana@example.com"))

	rec := h.do(http.MethodGet, "/booking?patient=ana@example.com", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodGet, "/booking?patient=ana@example.com", "garbage", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(http.MethodGet, "/booking?patient=ana@example.com", h.token("bob@example.com"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(http.MethodGet, "/booking?patient=ana@example.com", h.token("ana@example.com"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]api.BookingResponse](t, rec), 1)
}

func TestConfirmPaymentIsUnguarded(t *testing.T) {
	h := newHarness(t)
	created := decode[api.CreateBookingResponse](t, h.do(http.MethodPost, "/booking", "", bookingRequest("ana@example.com")))
	path := "/booking/" + created.Booking.ID.String()
	tok := h.token("ana@example.com")

	rec := h.do(http.MethodPatch, path, tok, api.ConfirmPaymentRequest{TransactionID: "pi_1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	paid := decode[api.BookingResponse](t, rec)
	assert.True(t, paid.Paid)
	require.NotNil(t, paid.TransactionID)
	assert.Equal(t, "pi_1", *paid.TransactionID)

	rec = h.do(http.MethodPatch, path, tok, api.ConfirmPaymentRequest{TransactionID: "pi_2"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, h.store.Payments(created.Booking.ID), 2)

	rec = h.do(http.MethodGet, path, tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pi_2", *decode[api.BookingResponse](t, rec).TransactionID)

	rec = h.do(http.MethodPatch, path, tok, api.ConfirmPaymentRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodGet, "/booking/not-a-uuid", tok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminRoutes(t *testing.T) {
	h := newHarness(t)
	h.makeAdmin("admin@example.com")
	admin := h.token("admin@example.com")
	patient := h.token("ana@example.com")

	body := api.UpsertTreatmentRequest{Name: "Whitening", Price: 300, Slots: []string{"10.00 AM - 10.30 AM"}}

	rec := h.do(http.MethodPut, "/appoinment", patient, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(http.MethodPut, "/appoinment", admin, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[api.UpsertTreatmentResponse](t, rec)
	assert.True(t, created.Created)

	rec = h.do(http.MethodGet, "/allappoinment", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]api.TreatmentResponse](t, rec), 2)

	rec = h.do(http.MethodGet, "/appoinment", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]api.TreatmentNameResponse](t, rec), 2)

	rec = h.do(http.MethodDelete, "/appoinment/"+created.Treatment.ID.String(), admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = h.do(http.MethodDelete, "/appoinment/"+created.Treatment.ID.String(), admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUserLifecycle(t *testing.T) {
	h := newHarness(t)
	h.makeAdmin("admin@example.com")
	admin := h.token("admin@example.com")

	rec := h.do(http.MethodPut, "/user/ana@example.com", "", map[string]any{"name": "Ana", "role": "admin"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	up := decode[api.UpsertUserResponse](t, rec)
	assert.True(t, up.Result.Created)
	claims, err := h.signer.Verify(up.Token)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", claims.Email)

	rec = h.do(http.MethodGet, "/admin/ana@example.com", "", nil)
	assert.False(t, decode[api.AdminResponse](t, rec).Admin)

	rec = h.do(http.MethodGet, "/users", up.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]api.UserResponse](t, rec), 2)

	rec = h.do(http.MethodPut, "/user/admin/ana@example.com", up.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(http.MethodPut, "/user/admin/ana@example.com", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = h.do(http.MethodGet, "/admin/ana@example.com", "", nil)
	assert.True(t, decode[api.AdminResponse](t, rec).Admin)

	rec = h.do(http.MethodPut, "/user/admin/ghost@example.com", admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodDelete, "/user/ana@example.com", admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = h.do(http.MethodDelete, "/user/ana@example.com", admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPaymentIntentWithoutProcessor(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/create-payment-intent", h.token("ana@example.com"), api.PaymentIntentRequest{Price: 120})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = h.do(http.MethodPost, "/create-payment-intent", "", api.PaymentIntentRequest{Price: 120})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimitedRoutes(t *testing.T) {
	log, _ := test.NewNullLogger()
	h := newHarness(t, func(cfg *api.RouterConfig) {
		cfg.Limiter = api.NewRateLimiter(0, 1, log)
	})

	rec := h.do(http.MethodPost, "/booking", "", bookingRequest("ana@example.com"))
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = h.do(http.MethodPost, "/booking", "", bookingRequest("ana@example.com"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// reads are not throttled
	rec = h.do(http.MethodGet, "/appoinment", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadiness(t *testing.T) {
	down := func(context.Context) error { return errors.New("down") }
	up := func(context.Context) error { return nil }

	h := newHarness(t, func(cfg *api.RouterConfig) {
		cfg.Health = api.NewHealthHandler("test", "dev",
			api.Dependency{Name: "postgres", Ping: up, Critical: true},
			api.Dependency{Name: "redis", Ping: down},
		)
	})
	rec := h.do(http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ready := decode[api.ReadinessResponse](t, rec)
	assert.Equal(t, "degraded", ready.Status)
	assert.Equal(t, "down", ready.Dependencies["redis"])

	h = newHarness(t, func(cfg *api.RouterConfig) {
		cfg.Health = api.NewHealthHandler("test", "dev",
			api.Dependency{Name: "postgres", Ping: down, Critical: true},
		)
	})
	rec = h.do(http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCORSPreflightAndRequestID(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodOptions, "/booking", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = h.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "treatment_booking_http_requests_total")
}
