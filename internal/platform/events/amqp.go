package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Connection opens channels on the broker.
type Connection interface {
	Channel() (Channel, error)
	Close() error
}

// NotifyingConnection is a Connection that reports when it is lost.
type NotifyingConnection interface {
	Connection
	NotifyClose(receiver chan *amqp.Error) chan *amqp.Error
}

// Channel is the subset of *amqp.Channel the publisher needs.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type amqpConnection struct {
	conn *amqp.Connection
}

// Dial connects to the broker at url.
func Dial(url string) (NotifyingConnection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	return &amqpConnection{conn: conn}, nil
}

func (c *amqpConnection) Channel() (Channel, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return ch, nil
}

func (c *amqpConnection) NotifyClose(receiver chan *amqp.Error) chan *amqp.Error {
	return c.conn.NotifyClose(receiver)
}

func (c *amqpConnection) Close() error {
	if c.conn.IsClosed() {
		return nil
	}
	return c.conn.Close()
}

// AMQPPublisher publishes events to a durable topic exchange, routed by
// event type ("order.created", "patient.updated").
type AMQPPublisher struct {
	conn     Connection
	exchange string

	mu       sync.Mutex
	declared bool
}

func NewAMQPPublisher(conn Connection, exchange string) *AMQPPublisher {
	return &AMQPPublisher{conn: conn, exchange: exchange}
}

func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	ch, err := p.conn.Channel()
	if err != nil {
		p.redeclare()
		return err
	}
	defer ch.Close()

	if err := p.declare(ch); err != nil {
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = ch.PublishWithContext(ctx, p.exchange, event.Type, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    event.Timestamp,
		Type:         event.Type,
		Body:         body,
	})
	if err != nil {
		p.redeclare()
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// redeclare makes the next publish declare the exchange again, which a
// restarted broker may have lost.
func (p *AMQPPublisher) redeclare() {
	p.mu.Lock()
	p.declared = false
	p.mu.Unlock()
}

func (p *AMQPPublisher) declare(ch Channel) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.declared {
		return nil
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}
	p.declared = true
	return nil
}

func (p *AMQPPublisher) Close() error {
	return p.conn.Close()
}
