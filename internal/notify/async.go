package notify

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hackgods/treatment-booking/internal/booking"
)

type JSONPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// ErrorHook observes a notice that could not be handed to the broker.
type ErrorHook func(n booking.Notice, err error)

// AsyncNotifier publishes each notice on its own goroutine so the request
// that produced it never waits on the broker.
type AsyncNotifier struct {
	pub     JSONPublisher
	timeout time.Duration
	onError ErrorHook
	wg      sync.WaitGroup
}

func NewAsyncNotifier(pub JSONPublisher, timeout time.Duration, onError ErrorHook) *AsyncNotifier {
	return &AsyncNotifier{pub: pub, timeout: timeout, onError: onError}
}

func (a *AsyncNotifier) Notify(ctx context.Context, n booking.Notice) {
	// the request context is about to be cancelled; keep its values only
	detached := context.WithoutCancel(ctx)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		pubCtx, cancel := context.WithTimeout(detached, a.timeout)
		defer cancel()

		if err := a.pub.PublishJSON(pubCtx, string(n.Kind), EventFromNotice(n)); err != nil && a.onError != nil {
			a.onError(n, err)
		}
	}()
}

// Wait blocks until in-flight publishes finish. Used on shutdown.
func (a *AsyncNotifier) Wait() {
	a.wg.Wait()
}

// LogNotifier stands in when no broker is configured.
type LogNotifier struct {
	log logrus.FieldLogger
}

func NewLogNotifier(log logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Notify(_ context.Context, n booking.Notice) {
	l.log.WithFields(logrus.Fields{
		"kind":       n.Kind,
		"booking_id": n.Booking.ID,
		"patient":    n.Booking.Patient,
	}).Info("notice (no broker configured)")
}
