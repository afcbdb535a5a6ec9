package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dwikikusuma/rocketshoes-cart/internal/cart/app"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "cart_notifications"
	ExchangeType = "topic"
)

// AMQP publishes notifications to a topic exchange with routing key cart.<kind>.
type AMQP struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	log  *slog.Logger
}

// DialAMQP connects, retrying a few times for broker startup, and declares the exchange.
func DialAMQP(url string, log *slog.Logger) (*AMQP, error) {
	if log == nil {
		log = slog.Default()
	}

	var conn *amqp.Connection
	var err error
	for i := 0; i < 5; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		log.Warn("amqp dial failed", slog.Int("attempt", i+1), slog.Any("err", err))
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("could not connect to amqp broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("could not open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		ExchangeName, // name
		ExchangeType, // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("could not declare exchange: %w", err)
	}

	return &AMQP{conn: conn, ch: ch, log: log}, nil
}

func RoutingKey(kind app.NotificationKind) string {
	return "cart." + string(kind)
}

func (p *AMQP) Notify(ctx context.Context, n app.Notification) {
	if err := p.Publish(ctx, n); err != nil {
		p.log.ErrorContext(ctx, "publish notification failed",
			slog.String("notification_id", n.ID), slog.Any("err", err))
	}
}

func (p *AMQP) Publish(ctx context.Context, n app.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("could not marshal notification: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(ctx,
		ExchangeName,       // exchange
		RoutingKey(n.Kind), // routing key
		false,              // mandatory
		false,              // immediate
		amqp.Publishing{
			ContentType: "application/json",
			MessageId:   n.ID,
			Timestamp:   n.At,
			Body:        body,
		},
	)
}

func (p *AMQP) Close() error {
	if err := p.ch.Close(); err != nil {
		_ = p.conn.Close()
		return err
	}
	return p.conn.Close()
}
