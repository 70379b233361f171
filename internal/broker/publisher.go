// Package broker publishes ingestion requests to the CentralEGA message broker.
package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/nbisweden/lega-e2e/internal/models"
	srvErrors "github.com/nbisweden/lega-e2e/pkg/errors"
)

const (
	DefaultExchange   = "localega.v1"
	DefaultRoutingKey = "files"

	contentTypeJSON = "application/json"
	contentEncoding = "UTF-8"
)

// Channel is the part of *amqp.Channel the publisher uses.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Connection is the part of *amqp.Connection the publisher uses.
type Connection interface {
	Channel() (Channel, error)
	Close() error
}

// Dialer opens a broker connection for a URL of the form
// amqp://<user>:<password>@<host>:<port>/<vhost>.
type Dialer func(url string) (Connection, error)

type amqpConnection struct {
	*amqp.Connection
}

func (c amqpConnection) Channel() (Channel, error) {
	ch, err := c.Connection.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// DialAMQP is the Dialer backed by amqp091-go.
func DialAMQP(url string) (Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return amqpConnection{conn}, nil
}

type Option func(*Publisher)

func WithExchange(exchange string) Option {
	return func(p *Publisher) {
		p.exchange = exchange
	}
}

// WithRoutingKey scopes messages to a deployment instance.
func WithRoutingKey(key string) Option {
	return func(p *Publisher) {
		p.routingKey = key
	}
}

func WithDialer(d Dialer) Option {
	return func(p *Publisher) {
		p.dial = d
	}
}

// Publisher sends one persistent JSON message per request. It opens a
// connection for each publish and never retries.
type Publisher struct {
	url        string
	exchange   string
	routingKey string
	dial       Dialer
}

func NewPublisher(url string, opts ...Option) *Publisher {
	p := &Publisher{
		url:        url,
		exchange:   DefaultExchange,
		routingKey: DefaultRoutingKey,
		dial:       DialAMQP,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Publisher) Publish(ctx context.Context, req models.IngestionRequest) error {
	body, err := json.Marshal(req.Message())
	if err != nil {
		return srvErrors.NewPublishError(req.StableID, fmt.Errorf("failed to marshal message: %w", err))
	}

	conn, err := p.dial(p.url)
	if err != nil {
		return srvErrors.NewPublishError(req.StableID, fmt.Errorf("failed to connect to broker: %w", err))
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return srvErrors.NewPublishError(req.StableID, fmt.Errorf("failed to open channel: %w", err))
	}
	defer ch.Close()

	msg := amqp.Publishing{
		ContentType:     contentTypeJSON,
		ContentEncoding: contentEncoding,
		DeliveryMode:    amqp.Persistent,
		CorrelationId:   uuid.NewString(),
		Body:            body,
	}
	if err := ch.PublishWithContext(ctx, p.exchange, p.routingKey, false, false, msg); err != nil {
		return srvErrors.NewPublishError(req.StableID, err)
	}

	zap.S().Named("broker").Debugw("message published",
		"exchange", p.exchange, "routing_key", p.routingKey, "stable_id", req.StableID, "correlation_id", msg.CorrelationId)
	return nil
}
