package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/hackgods/treatment-booking/internal/access"
	"github.com/hackgods/treatment-booking/internal/availability"
	"github.com/hackgods/treatment-booking/internal/booking"
	"github.com/hackgods/treatment-booking/internal/catalog"
	"github.com/hackgods/treatment-booking/internal/metrics"
	"github.com/hackgods/treatment-booking/internal/payment"
	"github.com/hackgods/treatment-booking/internal/user"
)

type RouterConfig struct {
	Catalog      *catalog.Service
	Availability *availability.Engine
	Bookings     *booking.Service
	Users        *user.Service
	Payments     payment.IntentCreator
	Gate         *access.Gate
	Metrics      *metrics.Metrics
	Health       *HealthHandler
	Limiter      *RateLimiter
	Logger       logrus.FieldLogger

	CORSOrigin     string
	RequestTimeout time.Duration
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(cfg.Metrics.Middleware)
	r.Use(CORSMiddleware(cfg.CORSOrigin))

	r.Get("/health/live", cfg.Health.Liveness)
	r.Get("/health/ready", cfg.Health.Readiness)
	r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())

	r.Group(func(r chi.Router) {
		if cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
		}

		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "treatment booking server is running"})
		})

		// Public
		r.Get("/appoinment", listTreatmentNamesHandler(cfg.Catalog))
		r.Get("/available", availableHandler(cfg.Availability))
		r.Get("/admin/{email}", isAdminHandler(cfg.Users))

		r.Group(func(r chi.Router) {
			if cfg.Limiter != nil {
				r.Use(cfg.Limiter.Handler)
			}
			r.Post("/booking", createBookingHandler(cfg.Bookings, cfg.Metrics))
			r.Put("/user/{email}", upsertUserHandler(cfg.Users))
		})

		// Any verified token
		r.Group(func(r chi.Router) {
			r.Use(RequireGuard(cfg.Gate, access.Authenticated))
			r.Get("/booking", listPatientBookingsHandler(cfg.Bookings))
			r.Get("/booking/{id}", getBookingHandler(cfg.Bookings))
			r.Patch("/booking/{id}", confirmPaymentHandler(cfg.Bookings, cfg.Metrics))
			r.Post("/create-payment-intent", createPaymentIntentHandler(cfg.Payments))
			r.Get("/users", listUsersHandler(cfg.Users))
		})

		// Admin only
		r.Group(func(r chi.Router) {
			r.Use(RequireGuard(cfg.Gate, access.AdminOnly))
			r.Get("/allappoinment", listTreatmentsHandler(cfg.Catalog))
			r.Put("/appoinment", upsertTreatmentHandler(cfg.Catalog))
			r.Delete("/appoinment/{id}", deleteTreatmentHandler(cfg.Catalog))
			r.Put("/user/admin/{email}", promoteUserHandler(cfg.Users))
			r.Delete("/user/{email}", deleteUserHandler(cfg.Users))
		})
	})

	return r
}
