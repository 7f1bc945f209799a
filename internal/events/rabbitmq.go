package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// RabbitMQConfig holds the configuration for RabbitMQ
type RabbitMQConfig struct {
	URL      string
	Exchange string
	Retries  int
}

// RabbitMQPublisher publishes events to a durable topic exchange
type RabbitMQPublisher struct {
	conn     *amqp.Connection
	mu       sync.Mutex
	channel  *amqp.Channel
	exchange string
	log      *zap.Logger
}

// NewRabbitMQPublisher connects with retry, then declares the exchange and
// the order placed queue
func NewRabbitMQPublisher(cfg RabbitMQConfig, log *zap.Logger) (*RabbitMQPublisher, error) {
	if cfg.Exchange == "" {
		return nil, fmt.Errorf("exchange name cannot be empty")
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 5
	}
	if log == nil {
		log = zap.NewNop()
	}

	var conn *amqp.Connection
	var err error
	for i := 0; i < cfg.Retries; i++ {
		conn, err = amqp.Dial(cfg.URL)
		if err == nil {
			break
		}
		retryTime := time.Duration(i*i)*time.Second + time.Second
		log.Warn("rabbitmq_connect_retry", zap.Duration("retry_in", retryTime), zap.Error(err))
		if i < cfg.Retries-1 {
			time.Sleep(retryTime)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ after retries: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareTopology(channel, cfg.Exchange); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}
	log.Info("rabbitmq_ready", zap.String("exchange", cfg.Exchange), zap.String("queue", OrderPlacedQueue))

	return &RabbitMQPublisher{
		conn:     conn,
		channel:  channel,
		exchange: cfg.Exchange,
		log:      log,
	}, nil
}

func declareTopology(ch *amqp.Channel, exchange string) error {
	err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	q, err := ch.QueueDeclare(
		OrderPlacedQueue, // name
		true,             // durable
		false,            // delete when unused
		false,            // exclusive
		false,            // no-wait
		nil,              // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", OrderPlacedQueue, err)
	}

	if err := ch.QueueBind(q.Name, OrderPlacedRoutingKey, exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s to exchange %s: %w", q.Name, exchange, err)
	}
	return nil
}

// PublishOrderPlaced publishes a persistent JSON message with routing key order.placed
func (p *RabbitMQPublisher) PublishOrderPlaced(ctx context.Context, event OrderPlaced) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		OrderPlacedRoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.OrderID,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message to exchange %s with routing key %s: %w",
			p.exchange, OrderPlacedRoutingKey, err)
	}

	p.log.Debug("order_event_published", zap.String("order_id", event.OrderID))
	return nil
}

// Close closes the channel and the connection
func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			return err
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
