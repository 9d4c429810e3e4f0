package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/hackgods/treatment-booking/internal/booking"
	"github.com/hackgods/treatment-booking/internal/metrics"
	"github.com/hackgods/treatment-booking/internal/payment"
)

const duplicateBookingMessage = "Booking already exists!"

func createBookingHandler(svc *booking.Service, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateBookingRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		res, err := svc.CreateBooking(r.Context(), booking.CreateInput{
			Treatment:   req.Treatment,
			Date:        req.Date,
			Slot:        req.Slot,
			Patient:     req.Patient,
			PatientName: req.PatientName,
			Phone:       req.Phone,
		})
		if err != nil {
			handleBookingError(w, err)
			return
		}

		if !res.Created {
			m.RecordBooking("duplicate")
			writeJSON(w, http.StatusOK, CreateBookingResponse{
				Success: false,
				Booking: toBookingResponse(*res.Booking),
				Message: duplicateBookingMessage,
			})
			return
		}

		m.RecordBooking("created")
		writeJSON(w, http.StatusCreated, CreateBookingResponse{
			Success: true,
			Booking: toBookingResponse(*res.Booking),
		})
	}
}

func listPatientBookingsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := principalFrom(r.Context())

		bookings, err := svc.ListBookingsForPatient(r.Context(), r.URL.Query().Get("patient"), p.Email)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		resp := make([]BookingResponse, 0, len(bookings))
		for _, b := range bookings {
			resp = append(resp, toBookingResponse(b))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func getBookingHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(pathParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_id", "booking id must be a UUID")
			return
		}

		b, err := svc.GetBooking(r.Context(), id)
		if err != nil {
			handleBookingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toBookingResponse(*b))
	}
}

func confirmPaymentHandler(svc *booking.Service, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(pathParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_id", "booking id must be a UUID")
			return
		}

		var req ConfirmPaymentRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		b, err := svc.ConfirmPayment(r.Context(), id, booking.PaymentDetails{
			TransactionID: req.TransactionID,
			Price:         req.Price,
		})
		if err != nil {
			handleBookingError(w, err)
			return
		}

		m.RecordPayment()
		writeJSON(w, http.StatusOK, toBookingResponse(*b))
	}
}

func createPaymentIntentHandler(intents payment.IntentCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PaymentIntentRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		secret, err := intents.CreateIntent(r.Context(), req.Price)
		if err != nil {
			handlePaymentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, PaymentIntentResponse{ClientSecret: secret})
	}
}
