/*
Copyright 2025 The Glimpse Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/segmentio/kafka-go"
)

// kafkaWriter is the subset of kafka.Writer the publisher needs; tests
// substitute a fake.
type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher is a write-only Store that streams snapshots to a topic for
// out-of-process aggregation. Load always reports ErrNotFound; hosts that
// need read-back pair the publisher with a readable store.
type KafkaPublisher struct {
	writer     kafkaWriter
	serializer Serializer
}

// KafkaConfig configures a KafkaPublisher.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// NewKafkaPublisher creates a KafkaPublisher writing to the configured topic.
func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	brokers := make([]string, 0, len(cfg.Brokers))
	for _, b := range cfg.Brokers {
		if trimmed := strings.TrimSpace(b); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	if len(brokers) == 0 {
		return nil, fmt.Errorf("persistence: kafka brokers required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, fmt.Errorf("persistence: kafka topic required")
	}
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    cfg.Topic,
		Balancer: &kafka.Hash{},
	}
	return &KafkaPublisher{writer: w, serializer: JSONSerializer{}}, nil
}

func (p *KafkaPublisher) Save(ctx context.Context, snapshot *Snapshot) error {
	payload, err := p.serializer.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("persistence: marshal snapshot: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(snapshot.RequestID),
		Value: payload,
	})
}

func (p *KafkaPublisher) SaveMetadata(ctx context.Context, metadata *Metadata) error {
	payload, err := p.serializer.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("persistence: marshal metadata: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(metadataKey),
		Value: payload,
	})
}

func (p *KafkaPublisher) Load(_ context.Context, _ string) (*Snapshot, error) {
	return nil, ErrNotFound
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
