package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

var ErrUnknownKey = errors.New("unknown routing key")

// Worker turns booking events into patient e-mails.
type Worker struct {
	mailer  Mailer
	brand   string
	timeout time.Duration
	log     logrus.FieldLogger
}

func NewWorker(mailer Mailer, brand string, timeout time.Duration, log logrus.FieldLogger) *Worker {
	return &Worker{mailer: mailer, brand: brand, timeout: timeout, log: log}
}

func (w *Worker) Handle(ctx context.Context, key string, body []byte) error {
	if key != RKBookingCreated && key != RKBookingPaid {
		return ErrUnknownKey
	}

	ev, err := decode[BookingEvent](body)
	if err != nil {
		return err
	}
	if ev.Patient == "" {
		return fmt.Errorf("event %s for booking %s has no patient", key, ev.BookingID)
	}

	email, err := Render(key, ev, w.brand)
	if err != nil {
		return err
	}

	sendCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if err := w.mailer.Send(sendCtx, email); err != nil {
		return err
	}

	w.log.WithFields(logrus.Fields{"key": key, "booking_id": ev.BookingID}).Info("email sent")
	return nil
}

// Run consumes until ctx is done or the channel closes. Failed deliveries are
// dropped without requeue so a bad message cannot loop forever.
func (w *Worker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			err := w.Handle(ctx, d.RoutingKey, d.Body)
			switch {
			case errors.Is(err, ErrUnknownKey):
				w.log.WithField("key", d.RoutingKey).Warn("skip unknown key")
				_ = d.Ack(false)
			case err != nil:
				w.log.WithError(err).WithField("key", d.RoutingKey).Error("handle delivery failed, dropping")
				_ = d.Nack(false, false)
			default:
				_ = d.Ack(false)
			}
		}
	}
}
