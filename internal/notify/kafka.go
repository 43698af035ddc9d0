// Package notify delivers customer and administrator notifications.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rookgm/orderflow/internal/models"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaEmitter publishes notifications to a Kafka topic, keyed by order id
type KafkaEmitter struct {
	writer messageWriter
}

// NewKafkaWriter creates a writer for topic on brokers
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 5 * time.Second,
	}
}

// NewKafkaEmitter creates new KafkaEmitter instance
func NewKafkaEmitter(writer messageWriter) *KafkaEmitter {
	return &KafkaEmitter{writer: writer}
}

type envelope struct {
	models.Notification
	CreatedAt time.Time `json:"createdAt"`
}

// Notify publishes n
func (e *KafkaEmitter) Notify(ctx context.Context, n models.Notification) error {
	value, err := json.Marshal(envelope{Notification: n, CreatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(n.OrderID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(n.Kind)},
		},
	}
	if err := e.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s notification: %w", n.Kind, err)
	}

	return nil
}

// Close closes the underlying writer
func (e *KafkaEmitter) Close() error {
	return e.writer.Close()
}

// LogEmitter only logs notifications, used when no broker is configured
type LogEmitter struct {
	log *zap.Logger
}

// NewLogEmitter creates new LogEmitter instance
func NewLogEmitter(log *zap.Logger) *LogEmitter {
	return &LogEmitter{log: log}
}

// Notify logs n
func (e *LogEmitter) Notify(_ context.Context, n models.Notification) error {
	e.log.Info("notification",
		zap.String("kind", string(n.Kind)),
		zap.String("recipient", n.Recipient),
		zap.String("order_id", n.OrderID),
		zap.String("business_id", n.BusinessID))
	return nil
}

// ParseBrokers splits a comma separated broker list
func ParseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
