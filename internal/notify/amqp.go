package notify

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/HerbHall/hakagen/pkg/detection"
)

// DefaultRoutingKey is used when notify.target is empty.
const DefaultRoutingKey = "hakagen.run.completed"

// amqpChannel is the subset of *amqp.Channel the notifier uses.
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQP publishes the JSON payload to an exchange.
type AMQP struct {
	cfg        AMQPConfig
	routingKey string
	logger     *zap.Logger
	open       func(url string) (amqpChannel, func() error, error)
}

// NewAMQP returns an AMQP notifier. Each notification opens its own
// connection, since a run sends exactly one.
func NewAMQP(cfg AMQPConfig, routingKey string, logger *zap.Logger) (*AMQP, error) {
	if cfg.URL == "" {
		return nil, detection.NewValidationError("notify.amqp.url", "required for amqp notifier")
	}
	if routingKey == "" {
		routingKey = DefaultRoutingKey
	}
	if cfg.ExchangeType == "" {
		cfg.ExchangeType = "topic"
	}
	return &AMQP{cfg: cfg, routingKey: routingKey, logger: logger, open: dialAMQP}, nil
}

func dialAMQP(url string) (amqpChannel, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("amqp channel: %w", err)
	}
	return ch, conn.Close, nil
}

func (a *AMQP) Notify(ctx context.Context, c Completion) error {
	body, err := marshalPayload(c)
	if err != nil {
		return err
	}
	ch, closeConn, err := a.open(a.cfg.URL)
	if err != nil {
		return err
	}
	defer closeConn()
	defer ch.Close()

	if err := ch.ExchangeDeclare(a.cfg.Exchange, a.cfg.ExchangeType, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", a.cfg.Exchange, err)
	}
	err = ch.PublishWithContext(ctx, a.cfg.Exchange, a.routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    c.RunID,
		Timestamp:    c.FinishedAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}

	a.logger.Debug("amqp notification published",
		zap.String("exchange", a.cfg.Exchange),
		zap.String("routing_key", a.routingKey),
		zap.String("run_id", c.RunID),
	)
	return nil
}

func (a *AMQP) Close() error { return nil }
