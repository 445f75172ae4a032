package alerting

import (
	"context"
	"time"

	"MarketWatch/internal/domain/models"
	"MarketWatch/pkg/kafka"
	"MarketWatch/pkg/logger"
)

// alertEvent is the wire shape published to the alert topic.
type alertEvent struct {
	Type      string         `json:"type"`
	Severity  string         `json:"severity"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// KafkaChannel publishes alerts to a topic so other systems can
// consume the alert stream.
type KafkaChannel struct {
	producer *kafka.Producer
	topic    string
	log      *logger.Logger
}

// NewKafkaChannel creates the alert event bus channel.
func NewKafkaChannel(log *logger.Logger, producer *kafka.Producer, topic string) *KafkaChannel {
	if log == nil {
		log = logger.Nop()
	}
	return &KafkaChannel{producer: producer, topic: topic, log: log}
}

func (k *KafkaChannel) Name() string { return "kafka" }

func (k *KafkaChannel) Deliver(ctx context.Context, alert *models.Alert) bool {
	if k.producer == nil || k.topic == "" {
		k.log.Warn("kafka alert topic not configured, skipping kafka alert")
		return false
	}

	event := alertEvent{
		Type:      string(alert.Type),
		Severity:  string(alert.Severity),
		Title:     alert.Title,
		Message:   alert.Message,
		Timestamp: alert.Timestamp,
		Metadata:  alert.Metadata,
	}

	// Key by severity so consumers can partition on urgency.
	if err := k.producer.Publish(ctx, k.topic, []byte(alert.Severity), event); err != nil {
		k.log.Error("kafka alert publish failed", logger.Error(err))
		return false
	}
	return true
}
