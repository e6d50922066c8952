package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/lewisedginton/whatsapp_router/pkg/logger"
	"github.com/lewisedginton/whatsapp_router/pkg/prefixed_uuid"
)

// Publisher sends envelopes under a routing key.
type Publisher interface {
	Publish(ctx context.Context, key string, msg Envelope) error
	Close() error
}

// ErrNotConfirmed is returned when the broker nacks a publish.
var ErrNotConfirmed = errors.New("publish not confirmed by broker")

// MaxDialDelay caps the reconnect backoff.
const MaxDialDelay = 60 * time.Second

// ConnectionOptions controls DialWithRetry.
type ConnectionOptions struct {
	URL           string
	RetryAttempts int
	Delay         time.Duration
	Logger        logger.Logger
}

// DialWithRetry tries to connect to RabbitMQ with exponential backoff.
// It respects context cancellation for graceful shutdown.
func DialWithRetry(ctx context.Context, cfg ConnectionOptions) (*amqp091.Connection, error) {
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 1
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	var lastErr error
	for i := 1; i <= cfg.RetryAttempts; i++ {
		conn, err := amqp091.Dial(cfg.URL)
		if err == nil {
			if i > 1 {
				log.Info("RabbitMQ connected", logger.IntField("attempt", i))
			}
			return conn, nil
		}
		lastErr = err
		if i == cfg.RetryAttempts {
			break
		}

		sleep := backoff(cfg.Delay, i)
		log.Warn("RabbitMQ dial failed",
			logger.IntField("attempt", i),
			logger.DurationField("sleep", sleep),
			logger.ErrorField(err))

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("dial cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}

	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", cfg.RetryAttempts, lastErr)
}

func backoff(base time.Duration, attempt int) time.Duration {
	sleep := base * time.Duration(math.Pow(2, float64(attempt-1)))
	if sleep > MaxDialDelay || sleep < 0 {
		sleep = MaxDialDelay
	}
	return sleep
}

// AMQPPublisher publishes persistent JSON messages with publisher confirms.
// A channel is opened per publish, so it is safe for concurrent use.
type AMQPPublisher struct {
	conn     *amqp091.Connection
	exchange string
	log      logger.Logger
}

// Options configures NewAMQPPublisher.
type Options struct {
	Connection ConnectionOptions
	Exchange   string
}

// NewAMQPPublisher dials the broker and declares the durable topic exchange.
func NewAMQPPublisher(ctx context.Context, opts Options) (*AMQPPublisher, error) {
	log := opts.Connection.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	conn, err := DialWithRetry(ctx, opts.Connection)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(opts.Exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", opts.Exchange, err)
	}

	return &AMQPPublisher{
		conn:     conn,
		exchange: opts.Exchange,
		log:      log.WithFields(logger.StringField("exchange", opts.Exchange)),
	}, nil
}

// Publish sends msg and waits for the broker confirm or ctx.
func (p *AMQPPublisher) Publish(ctx context.Context, key string, msg Envelope) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Confirm(false); err != nil {
		return fmt.Errorf("enable confirms: %w", err)
	}

	if msg.Meta.ID.IsZero() {
		msg.Meta.ID = prefixed_uuid.New(IDPrefix)
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	var cid string
	if msg.Meta.CorrelationID != nil {
		cid = *msg.Meta.CorrelationID
	}

	confirm, err := ch.PublishWithDeferredConfirmWithContext(
		ctx, p.exchange, key, false, false,
		amqp091.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp091.Persistent,
			MessageId:     msg.Meta.ID.String(),
			CorrelationId: cid,
			Timestamp:     time.Now(),
			Type:          msg.Meta.Type,
			Body:          body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("await confirm for %s: %w", key, err)
	}
	if !acked {
		return fmt.Errorf("%s: %w", key, ErrNotConfirmed)
	}

	p.log.Debug("Event published", logger.StringField("key", key), logger.StringField("event_id", msg.Meta.ID.String()))
	return nil
}

// Check reports whether the broker connection is open. It satisfies the
// health.Check contract together with Name.
func (p *AMQPPublisher) Check(context.Context) error {
	if p.conn.IsClosed() {
		return errors.New("amqp connection closed")
	}
	return nil
}

// Name identifies the publisher in health reports.
func (p *AMQPPublisher) Name() string {
	return "amqp"
}

// Close closes the broker connection.
func (p *AMQPPublisher) Close() error {
	if p.conn.IsClosed() {
		return nil
	}
	return p.conn.Close()
}

// NopPublisher discards every event. It is used when the feed is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, Envelope) error { return nil }
func (NopPublisher) Close() error                                    { return nil }
