package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/ysalameh/paywatch/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// KafkaPublisher mirrors link updates to a Kafka topic for external
// consumers. Publish failures are logged and swallowed: the websocket hub,
// not Kafka, is the delivery path viewers depend on.
type KafkaPublisher struct {
	writer       *kafka.Writer
	writeTimeout time.Duration
}

func NewKafkaPublisher(brokers []string, topic string, writeTimeout time.Duration) *KafkaPublisher {
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			BatchTimeout:           10 * time.Millisecond,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		writeTimeout: writeTimeout,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev LinkUpdate) {
	value, err := json.Marshal(ev)
	if err != nil {
		logger.Error("failed to marshal link update", zap.Error(err), zap.String("link_id", ev.Data.ID))
		return
	}

	writeCtx, cancel := context.WithTimeout(ctx, p.writeTimeout)
	defer cancel()

	err = p.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(ev.Data.ID),
		Value: value,
		Time:  ev.Data.LastCheckedAt,
	})
	if err != nil {
		logger.Warn("failed to publish link update to kafka",
			zap.Error(err),
			zap.String("link_id", ev.Data.ID),
		)
	}
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
