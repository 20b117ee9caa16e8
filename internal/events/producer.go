package events

import (
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"charge-gateway/internal/logger"
	"charge-gateway/internal/models"
)

// Lifecycle event types published when an attempt reaches a notable status.
const (
	EventSucceeded      = "charge.succeeded"
	EventFailed         = "charge.failed"
	EventRequiresAction = "charge.requires_action"
)

// Producer publishes charge lifecycle events. In mock mode (brokers not
// configured) events are logged instead of sent, so the pipeline behaves the
// same with or without Kafka.
type Producer struct {
	producer sarama.SyncProducer
	mockMode bool
	log      *logger.Logger
}

func NewProducer(brokers []string, mockMode bool, log *logger.Logger) (*Producer, error) {
	if mockMode {
		log.LogKafka("MOCK_MODE", "producer", "Running in mock mode - no actual Kafka connection")
		return &Producer{mockMode: true, log: log}, nil
	}

	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	log.LogKafka("CONNECTED", "producer", fmt.Sprintf("Connected to Kafka brokers: %v", brokers))
	return &Producer{producer: producer, log: log}, nil
}

func (p *Producer) PublishChargeEvent(event *models.ChargeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	topic := topicForEvent(event.Type)

	if p.mockMode {
		p.log.LogKafka("MOCK_PUBLISH", topic, fmt.Sprintf("Mock publishing %s for charge %s", event.Type, event.Reference))
		return nil
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(event.Reference),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.log.Error("KAFKA", fmt.Sprintf("Failed to send message to topic %s: %v", topic, err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.log.LogKafka("PUBLISHED", topic, fmt.Sprintf("Message sent to partition %d at offset %d for charge %s", partition, offset, event.Reference))
	return nil
}

func topicForEvent(eventType string) string {
	switch eventType {
	case EventSucceeded:
		return "charge-succeeded"
	case EventFailed:
		return "charge-failed"
	case EventRequiresAction:
		return "charge-requires-action"
	default:
		return "charge-events"
	}
}

func (p *Producer) Close() error {
	if p.mockMode {
		p.log.LogKafka("MOCK_CLOSE", "producer", "Mock producer closed")
		return nil
	}
	if p.producer != nil {
		p.log.LogKafka("CLOSING", "producer", "Closing Kafka producer connection")
		return p.producer.Close()
	}
	return nil
}
