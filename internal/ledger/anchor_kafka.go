package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaSink publishes checkpoints to a Kafka topic, keyed so that all
// checkpoints of one ledger land on one partition in order.
type KafkaSink struct {
	client *kgo.Client
	topic  string
	key    []byte
}

func NewKafkaSink(client *kgo.Client, topic, ledgerName string) *KafkaSink {
	return &KafkaSink{client: client, topic: topic, key: []byte(ledgerName)}
}

func (s *KafkaSink) Publish(ctx context.Context, cp Checkpoint) error {
	value, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	rec := &kgo.Record{
		Topic: s.topic,
		Key:   s.key,
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "checkpoint_id", Value: []byte(cp.ID)},
			{Key: "algorithm", Value: []byte(cp.Algorithm)},
		},
	}
	if err := s.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce checkpoint: %w", err)
	}
	return nil
}
