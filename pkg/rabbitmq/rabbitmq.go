// Package rabbitmq publishes letter delivery events to a durable queue and
// consumes them back.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/streadway/amqp"
	"go.uber.org/zap"

	"mindmail/internal/events"
	"mindmail/internal/logger"
)

// DefaultQueue is where delivery events go when Config.Queue is empty.
const DefaultQueue = "letter_deliveries"

const deliveryType = "letter.delivered"

// Config holds RabbitMQ connection details.
type Config struct {
	URL   string
	Queue string
	// MaxDialTime bounds how long NewClient keeps retrying the first dial.
	MaxDialTime time.Duration
}

// Client holds the RabbitMQ connection and channel. An amqp.Channel is not
// safe for concurrent publishes, so mu guards it.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	logger  *zap.Logger

	mu sync.Mutex
}

// NewClient connects to RabbitMQ, retrying with exponential backoff, and
// declares the durable delivery queue.
func NewClient(ctx context.Context, cfg Config, log *zap.Logger) (*Client, error) {
	log = logger.OrNop(log)
	if cfg.Queue == "" {
		cfg.Queue = DefaultQueue
	}
	if cfg.MaxDialTime <= 0 {
		cfg.MaxDialTime = 30 * time.Second
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 500 * time.Millisecond
	exp.MaxElapsedTime = cfg.MaxDialTime

	var conn *amqp.Connection
	dial := func() error {
		c, err := amqp.Dial(cfg.URL)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}
	notify := func(err error, wait time.Duration) {
		log.Warn("rabbitmq dial failed, retrying", zap.Duration("wait", wait), zap.Error(err))
	}
	if err := backoff.RetryNotify(dial, backoff.WithContext(exp, ctx), notify); err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := declare(ch, cfg.Queue); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare %s: %w", cfg.Queue, err)
	}

	log.Info("rabbitmq client connected", zap.String("queue", cfg.Queue))
	return &Client{conn: conn, channel: ch, queue: cfg.Queue, logger: log}, nil
}

func declare(ch *amqp.Channel, queue string) (amqp.Queue, error) {
	return ch.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Ping fails once the connection has been closed by either side.
func (c *Client) Ping(context.Context) error {
	if c.conn == nil || c.conn.IsClosed() {
		return errors.New("rabbitmq connection closed")
	}
	return nil
}

// PublishDelivery sends evt as a persistent JSON message.
func (c *Client) PublishDelivery(_ context.Context, evt events.DeliveryEvent) error {
	msg, err := Encode(evt)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel == nil {
		return errors.New("RabbitMQ channel is not available")
	}
	if err := c.channel.Publish("", c.queue, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish delivery of %s: %w", evt.LetterID, err)
	}
	c.logger.Debug("delivery event published", zap.String("letter_id", evt.LetterID), zap.String("source", string(evt.Source)))
	return nil
}

// Encode builds the message for evt.
func Encode(evt events.DeliveryEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal delivery event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		Type:         deliveryType,
		MessageId:    evt.LetterID,
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    evt.DeliveredAt,
	}, nil
}

// HandlerFunc processes one delivery event.
type HandlerFunc func(ctx context.Context, evt events.DeliveryEvent) error

// ConsumeDeliveries feeds every queued delivery event to handler until ctx is
// canceled or the channel closes.
func (c *Client) ConsumeDeliveries(ctx context.Context, handler HandlerFunc) error {
	c.mu.Lock()
	if c.channel == nil {
		c.mu.Unlock()
		return errors.New("RabbitMQ channel is not available for consumption")
	}
	msgs, err := c.channel.Consume(
		c.queue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("consuming delivery events", zap.String("queue", c.queue))
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			Dispatch(ctx, msg, handler, c.logger)
		}
	}
}

// Dispatch decodes msg and hands it to handler. A message that cannot be
// decoded is rejected for good; a handler failure requeues it.
func Dispatch(ctx context.Context, msg amqp.Delivery, handler HandlerFunc, log *zap.Logger) {
	log = logger.OrNop(log)

	var evt events.DeliveryEvent
	if err := json.Unmarshal(msg.Body, &evt); err != nil {
		log.Error("undecodable delivery event dropped", zap.Uint64("tag", msg.DeliveryTag), zap.Error(err))
		if nackErr := msg.Nack(false, false); nackErr != nil {
			log.Error("nack failed", zap.Uint64("tag", msg.DeliveryTag), zap.Error(nackErr))
		}
		return
	}

	if err := handler(ctx, evt); err != nil {
		log.Warn("delivery event handler failed, requeueing", zap.String("letter_id", evt.LetterID), zap.Error(err))
		if nackErr := msg.Nack(false, true); nackErr != nil {
			log.Error("nack failed", zap.Uint64("tag", msg.DeliveryTag), zap.Error(nackErr))
		}
		return
	}

	if ackErr := msg.Ack(false); ackErr != nil {
		log.Error("ack failed", zap.Uint64("tag", msg.DeliveryTag), zap.Error(ackErr))
	}
}

// LogDeliveries is a HandlerFunc that records each delivery in the log, the
// process's stand-in for a push notification.
func LogDeliveries(log *zap.Logger) HandlerFunc {
	log = logger.OrNop(log)
	return func(_ context.Context, evt events.DeliveryEvent) error {
		msg := "you have a letter from past you"
		if evt.Repeat {
			msg = "daily reminder from past you"
		}
		log.Info(msg,
			zap.String("letter_id", evt.LetterID),
			zap.String("subject", evt.Subject),
			zap.Time("delivered_at", evt.DeliveredAt),
			zap.String("source", string(evt.Source)),
		)
		return nil
	}
}
