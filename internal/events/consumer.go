package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"charge-gateway/internal/logger"
	"charge-gateway/internal/models"
)

// Consumer folds charge events published by sibling replicas into the local
// attempt store, so every replica sees terminal statuses regardless of which
// one handled the confirmation or webhook.
type Consumer struct {
	consumer sarama.ConsumerGroup
	topics   []string
	log      *logger.Logger
}

func NewChargeConsumer(brokers []string, groupID string, log *logger.Logger) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	config.Consumer.Offsets.Initial = sarama.OffsetNewest

	consumer, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	topics := []string{"charge-succeeded", "charge-failed", "charge-requires-action", "charge-events"}

	return &Consumer{
		consumer: consumer,
		topics:   topics,
		log:      log,
	}, nil
}

func (c *Consumer) ConsumeChargeEvents(ctx context.Context, handler func(*models.ChargeEvent) error) error {
	consumerHandler := &chargeConsumerHandler{handler: handler, log: c.log}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := c.consumer.Consume(ctx, c.topics, consumerHandler); err != nil {
				c.log.Error("KAFKA", fmt.Sprintf("Error consuming messages: %v", err))
				return err
			}
		}
	}
}

func (c *Consumer) Close() error {
	return c.consumer.Close()
}

type chargeConsumerHandler struct {
	handler func(*models.ChargeEvent) error
	log     *logger.Logger
}

func (h *chargeConsumerHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *chargeConsumerHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *chargeConsumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		var event models.ChargeEvent
		if err := json.Unmarshal(message.Value, &event); err != nil {
			h.log.Error("KAFKA", fmt.Sprintf("Failed to unmarshal message: %v", err))
			continue
		}

		if err := h.handler(&event); err != nil {
			h.log.Error("KAFKA", fmt.Sprintf("Failed to handle charge event: %v", err))
			continue
		}

		session.MarkMessage(message, "")
	}

	return nil
}
