package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/weheartit/whi-url-fetcher/config"
	"github.com/weheartit/whi-url-fetcher/handler"
	"github.com/weheartit/whi-url-fetcher/observability"
)

// RabbitMQAdapter consumes fetch jobs from a RabbitMQ queue.
type RabbitMQAdapter struct {
	handler *handler.Handler
	config  *config.RabbitMQConfig
	logger  observability.Logger
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewRabbitMQAdapter creates a new RabbitMQ adapter.
func NewRabbitMQAdapter(h *handler.Handler, cfg *config.RabbitMQConfig, logger observability.Logger) *RabbitMQAdapter {
	return &RabbitMQAdapter{
		handler: h,
		config:  cfg,
		logger:  logger.WithFields(observability.Fields{"component": "rabbitmq_adapter"}),
	}
}

// Start begins consuming messages. It blocks until the channel closes.
func (a *RabbitMQAdapter) Start() error {
	conn, err := amqp.Dial(a.config.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	a.conn = conn

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}
	a.channel = ch

	if a.config.PrefetchCount > 0 {
		if err := ch.Qos(a.config.PrefetchCount, 0, false); err != nil {
			ch.Close()
			conn.Close()
			return fmt.Errorf("failed to set QoS: %w", err)
		}
	}

	// Idempotent, creates the queue if it does not exist
	q, err := ch.QueueDeclare(
		a.config.Queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	msgs, err := ch.Consume(
		q.Name,
		"",    // consumer tag (auto-generated)
		false, // auto-ack (we ack manually)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to consume: %w", err)
	}

	a.logger.Info(context.Background(), "RabbitMQ consumer started", observability.Fields{
		"queue":    a.config.Queue,
		"prefetch": a.config.PrefetchCount,
	})

	for msg := range msgs {
		a.processMessage(msg)
	}

	return nil
}

// processMessage handles a single delivery
func (a *RabbitMQAdapter) processMessage(msg amqp.Delivery) {
	start := time.Now()

	ctx := context.Background()
	if a.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
	}

	req := handler.Request{
		ID:        msg.MessageId,
		Source:    "rabbitmq",
		Type:      a.extractType(msg),
		Payload:   json.RawMessage(msg.Body),
		Metadata:  a.buildMetadata(msg),
		Timestamp: msg.Timestamp,
	}
	if req.ID == "" {
		req.ID = fmt.Sprintf("rmq-%d", msg.DeliveryTag)
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now().UTC()
	}

	resp, err := a.handler.Handle(ctx, req)

	if err == nil && resp.Success {
		if err := msg.Ack(false); err != nil {
			a.logger.Error(ctx, "Failed to ack message", err, observability.Fields{"id": req.ID})
		}
		a.logger.Info(ctx, "Message processed", observability.Fields{
			"id":          req.ID,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return
	}

	// Requeue retryable failures once; permanent failures and second
	// attempts are dropped to the broker's dead-letter setup.
	retryable := err != nil || (resp.Error != nil && resp.Error.Retryable)
	requeue := retryable && !msg.Redelivered
	if err := msg.Nack(false, requeue); err != nil {
		a.logger.Error(ctx, "Failed to nack message", err, observability.Fields{"id": req.ID})
	}
	a.logger.Warn(ctx, "Message processing failed", observability.Fields{
		"id":       req.ID,
		"requeued": requeue,
	})
}

// Stop gracefully shuts down the consumer
func (a *RabbitMQAdapter) Stop(ctx context.Context) error {
	if a.channel != nil {
		a.channel.Close()
	}
	if a.conn != nil {
		a.conn.Close()
	}
	a.logger.Info(ctx, "RabbitMQ consumer stopped", nil)
	return nil
}

// extractType gets the message type from headers or the routing key
func (a *RabbitMQAdapter) extractType(msg amqp.Delivery) string {
	if t, ok := msg.Headers["type"]; ok {
		return fmt.Sprintf("%v", t)
	}
	if msg.RoutingKey != "" {
		return msg.RoutingKey
	}
	return "message"
}

// buildMetadata creates metadata from message properties
func (a *RabbitMQAdapter) buildMetadata(msg amqp.Delivery) map[string]string {
	meta := make(map[string]string)

	if msg.RoutingKey != "" {
		meta["routing_key"] = msg.RoutingKey
	}
	if msg.Exchange != "" {
		meta["exchange"] = msg.Exchange
	}
	if msg.CorrelationId != "" {
		meta["correlation_id"] = msg.CorrelationId
	}
	if msg.Redelivered {
		meta["redelivered"] = "true"
	}

	return meta
}
