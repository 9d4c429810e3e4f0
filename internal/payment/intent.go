package payment

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

var (
	ErrInvalidAmount = errors.New("price must be greater than zero")
	ErrNotConfigured = errors.New("payment processor is not configured")
)

// IntentCreator opens a card payment for a price in major currency units and
// returns the client secret the browser confirms it with.
type IntentCreator interface {
	CreateIntent(ctx context.Context, price float64) (string, error)
}

type StripeIntents struct {
	api      *client.API
	currency string
}

func NewStripeIntents(secretKey, currency string) *StripeIntents {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &StripeIntents{api: sc, currency: currency}
}

func (s *StripeIntents) CreateIntent(ctx context.Context, price float64) (string, error) {
	amount, err := MinorUnits(price)
	if err != nil {
		return "", err
	}

	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amount),
		Currency:           stripe.String(s.currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return "", fmt.Errorf("create payment intent: %w", err)
	}
	return pi.ClientSecret, nil
}

// MinorUnits converts 12.34 to 1234.
func MinorUnits(price float64) (int64, error) {
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, ErrInvalidAmount
	}
	return int64(math.Round(price * 100)), nil
}

// Unconfigured is used when no processor key is set.
type Unconfigured struct{}

func (Unconfigured) CreateIntent(context.Context, float64) (string, error) {
	return "", ErrNotConfigured
}
