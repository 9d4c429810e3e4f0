package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

var ErrPublisherClosed = errors.New("publisher closed")

// session is one broker connection plus the channel notices go out on.
type session interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

type amqpSession struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func (s *amqpSession) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return s.ch.PublishWithContext(ctx, exchange, key, mandatory, immediate, msg)
}

func (s *amqpSession) IsClosed() bool {
	return s.conn.IsClosed() || s.ch.IsClosed()
}

func (s *amqpSession) Close() error {
	_ = s.ch.Close()
	return s.conn.Close()
}

func dialSession(url, exchange string) (session, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &amqpSession{conn: conn, ch: ch}, nil
}

// Publisher sends booking events to a topic exchange. A session lost to a
// broker restart is redialled on the next publish.
type Publisher struct {
	mu       sync.Mutex
	sess     session
	dial     func() (session, error)
	exchange string
	closed   bool
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	return newPublisher(exchange, func() (session, error) { return dialSession(url, exchange) })
}

func newPublisher(exchange string, dial func() (session, error)) (*Publisher, error) {
	sess, err := dial()
	if err != nil {
		return nil, err
	}
	return &Publisher{sess: sess, dial: dial, exchange: exchange}, nil
}

func (p *Publisher) PublishJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         b,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureSession(); err != nil {
		return err
	}
	err = p.sess.PublishWithContext(ctx, p.exchange, key, false, false, msg)
	if err == nil || !p.sess.IsClosed() {
		return err
	}

	// the session died under us; one fresh attempt
	if err := p.ensureSession(); err != nil {
		return err
	}
	return p.sess.PublishWithContext(ctx, p.exchange, key, false, false, msg)
}

// ensureSession redials when the current session is gone. Callers hold mu.
func (p *Publisher) ensureSession() error {
	if p.closed {
		return ErrPublisherClosed
	}
	if p.sess != nil && !p.sess.IsClosed() {
		return nil
	}
	if p.sess != nil {
		_ = p.sess.Close()
		p.sess = nil
	}

	sess, err := p.dial()
	if err != nil {
		return fmt.Errorf("reconnect rabbitmq: %w", err)
	}
	p.sess = sess
	return nil
}

// Ping reports whether the broker connection is open, redialling if needed.
func (p *Publisher) Ping(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ensureSession()
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if p.sess == nil {
		return nil
	}
	err := p.sess.Close()
	p.sess = nil
	return err
}
