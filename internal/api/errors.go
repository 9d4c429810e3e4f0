package api

import (
	"errors"
	"net/http"

	"github.com/hackgods/treatment-booking/internal/access"
	"github.com/hackgods/treatment-booking/internal/booking"
	"github.com/hackgods/treatment-booking/internal/catalog"
	"github.com/hackgods/treatment-booking/internal/payment"
	"github.com/hackgods/treatment-booking/internal/user"
)

func handleAccessError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, access.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	case errors.Is(err, access.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", "Forbidden Access")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrTreatmentNotFound):
		writeError(w, http.StatusNotFound, "treatment_not_found", err.Error())
	case errors.Is(err, catalog.ErrInvalidTreatment):
		writeError(w, http.StatusBadRequest, "invalid_treatment", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrInvalidBooking):
		writeError(w, http.StatusBadRequest, "invalid_booking", err.Error())
	case errors.Is(err, booking.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD or like Jan 2, 2006")
	case errors.Is(err, booking.ErrInvalidSlot):
		writeError(w, http.StatusBadRequest, "invalid_slot", err.Error())
	case errors.Is(err, booking.ErrInvalidPayment):
		writeError(w, http.StatusBadRequest, "invalid_payment", err.Error())
	case errors.Is(err, catalog.ErrTreatmentNotFound):
		writeError(w, http.StatusNotFound, "treatment_not_found", err.Error())
	case errors.Is(err, booking.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, "booking_not_found", err.Error())
	case errors.Is(err, booking.ErrNotOwner):
		writeError(w, http.StatusForbidden, "forbidden", "Forbidden Access")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleUserError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, user.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user_not_found", err.Error())
	case errors.Is(err, user.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, "invalid_email", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handlePaymentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, payment.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "invalid_amount", err.Error())
	case errors.Is(err, payment.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "payments_unavailable", err.Error())
	default:
		writeError(w, http.StatusBadGateway, "payment_processor_error", err.Error())
	}
}
