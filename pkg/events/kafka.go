package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/uhyunpark/minimatch/pkg/app/exchange"
)

// KafkaPublisher writes one message per trade, keyed by buyer id.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, trades []exchange.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(trades))
	for _, t := range trades {
		m, err := tradeMessage(t)
		if err != nil {
			return err
		}
		msgs = append(msgs, m)
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka write %d trades: %w", len(msgs), err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func tradeMessage(t exchange.Trade) (kafka.Message, error) {
	val, err := json.Marshal(t)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal trade %d: %w", t.Number, err)
	}
	return kafka.Message{
		Key:   []byte(strconv.Itoa(int(t.Buyer))),
		Value: val,
		Time:  t.Time,
	}, nil
}
