// Package events publishes schedule lifecycle notifications to Kafka so
// downstream consumers (reminder pipelines, dashboards) learn when the
// served snapshot changes.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const TopicSnapshotRefreshed = "schedule.snapshot.refreshed.v1"

type Publisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewPublisher returns nil when no brokers are configured; a nil Publisher
// drops every event, so callers need no enabled/disabled branching.
func NewPublisher(brokers string, logger *slog.Logger) *Publisher {
	list := SplitBrokers(brokers)
	if len(list) == 0 {
		logger.Warn("event publishing disabled (no kafka brokers configured)")
		return nil
	}
	return &Publisher{
		writer: kafka.NewWriter(kafka.WriterConfig{
			Brokers:  list,
			Balancer: &kafka.Hash{},
		}),
		logger: logger,
	}
}

// Publish sends one event. Failures are logged, not returned: refresh
// notifications are advisory and must never block a snapshot swap.
func (p *Publisher) Publish(ctx context.Context, topic string, payload any) {
	if p == nil {
		return
	}
	value, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("event payload marshal failed", "err", err, "topic", topic)
		return
	}

	eventID := uuid.NewString()
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(eventID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(eventID)},
			{Key: "event_type", Value: []byte(topic)},
		},
	}
	msg.Headers = injectTraceHeaders(ctx, msg.Headers)

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("event publish failed", "err", err, "topic", topic, "event_id", eventID)
	}
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}

func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// injectTraceHeaders appends W3C trace context headers to Kafka headers.
func injectTraceHeaders(ctx context.Context, headers []kafka.Header) []kafka.Header {
	carrier := &kafkaHeaderCarrier{headers: headers}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return carrier.headers
}

type kafkaHeaderCarrier struct {
	headers []kafka.Header
}

func (c *kafkaHeaderCarrier) Get(key string) string {
	for _, h := range c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *kafkaHeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(c.headers))
	for _, h := range c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}

func (c *kafkaHeaderCarrier) Set(key string, value string) {
	for i := range c.headers {
		if c.headers[i].Key == key {
			c.headers[i].Value = []byte(value)
			return
		}
	}
	c.headers = append(c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

var _ propagation.TextMapCarrier = (*kafkaHeaderCarrier)(nil)
