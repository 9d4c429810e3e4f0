package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/treatment-booking/internal/availability"
	"github.com/hackgods/treatment-booking/internal/booking"
	"github.com/hackgods/treatment-booking/internal/catalog"
	"github.com/hackgods/treatment-booking/internal/user"
)

type UpsertTreatmentRequest struct {
	Name  string   `json:"name"`
	Price float64  `json:"price"`
	Slots []string `json:"slots"`
	Image string   `json:"image"`
}

type CreateBookingRequest struct {
	Treatment   string `json:"treatment"`
	Date        string `json:"date"`
	Slot        string `json:"slot"`
	Patient     string `json:"patient"`
	PatientName string `json:"patientName"`
	Phone       string `json:"phone"`
}

type ConfirmPaymentRequest struct {
	TransactionID string   `json:"transactionId"`
	Price         *float64 `json:"price,omitempty"`
}

type PaymentIntentRequest struct {
	Price float64 `json:"price"`
}

type TreatmentNameResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type TreatmentResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Price float64   `json:"price"`
	Slots []string  `json:"slots"`
	Image string    `json:"image"`
}

type UpsertTreatmentResponse struct {
	Created   bool              `json:"created"`
	Treatment TreatmentResponse `json:"treatment"`
}

type AvailabilityResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Price float64   `json:"price"`
	Image string    `json:"image"`
	Slots []string  `json:"slots"`
}

type BookingResponse struct {
	ID            uuid.UUID `json:"id"`
	Treatment     string    `json:"treatment"`
	Date          string    `json:"date"`
	Slot          string    `json:"slot"`
	Patient       string    `json:"patient"`
	PatientName   string    `json:"patientName"`
	Phone         string    `json:"phone,omitempty"`
	Price         float64   `json:"price"`
	Paid          bool      `json:"paid"`
	TransactionID *string   `json:"transactionId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type CreateBookingResponse struct {
	Success bool            `json:"success"`
	Booking BookingResponse `json:"booking"`
	Message string          `json:"message,omitempty"`
}

type PaymentIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
}

type UserResponse struct {
	Email   string         `json:"email"`
	Role    string         `json:"role,omitempty"`
	Profile map[string]any `json:"profile"`
}

type UpsertUserResult struct {
	Email   string `json:"email"`
	Created bool   `json:"created"`
}

type UpsertUserResponse struct {
	Result UpsertUserResult `json:"result"`
	Token  string           `json:"token"`
}

type RoleResponse struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type AdminResponse struct {
	Admin bool `json:"admin"`
}

type DeletedResponse struct {
	Deleted bool `json:"deleted"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toTreatmentResponse(t catalog.Treatment) TreatmentResponse {
	return TreatmentResponse{
		ID:    t.ID,
		Name:  t.Name,
		Price: t.Price,
		Slots: t.Slots,
		Image: t.Image,
	}
}

func toBookingResponse(b booking.Booking) BookingResponse {
	return BookingResponse{
		ID:            b.ID,
		Treatment:     b.Treatment,
		Date:          b.Date,
		Slot:          b.Slot,
		Patient:       b.Patient,
		PatientName:   b.PatientName,
		Phone:         b.Phone,
		Price:         b.Price,
		Paid:          b.Paid,
		TransactionID: b.TransactionID,
		CreatedAt:     b.CreatedAt,
	}
}

func toAvailabilityResponse(o availability.Option) AvailabilityResponse {
	return AvailabilityResponse{
		ID:    o.ID,
		Name:  o.Name,
		Price: o.Price,
		Image: o.Image,
		Slots: o.Slots,
	}
}

func toUserResponse(u user.User) UserResponse {
	return UserResponse{Email: u.Email, Role: u.Role, Profile: u.Profile}
}
