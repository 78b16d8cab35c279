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
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisKeyPrefix = "glimpse:"
	defaultRedisTTL       = 24 * time.Hour

	metadataKey = "metadata"
)

// RedisStore persists snapshots as JSON values with a TTL.
type RedisStore struct {
	client     redis.UniversalClient
	serializer Serializer
	keyPrefix  string
	ttl        time.Duration
}

// RedisOption customizes a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisKeyPrefix overrides the key prefix.
func WithRedisKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.keyPrefix = prefix }
}

// WithRedisTTL overrides the snapshot time-to-live. Zero disables expiry.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) { s.ttl = ttl }
}

// WithRedisSerializer overrides the wire serializer.
func WithRedisSerializer(serializer Serializer) RedisOption {
	return func(s *RedisStore) { s.serializer = serializer }
}

// NewRedisStore creates a RedisStore over an established client.
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("persistence: redis client required")
	}
	s := &RedisStore{
		client:     client,
		serializer: JSONSerializer{},
		keyPrefix:  defaultRedisKeyPrefix,
		ttl:        defaultRedisTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *RedisStore) Save(ctx context.Context, snapshot *Snapshot) error {
	payload, err := s.serializer.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("persistence: marshal snapshot: %w", err)
	}
	return s.client.Set(ctx, s.keyPrefix+snapshot.RequestID, payload, s.ttl).Err()
}

func (s *RedisStore) SaveMetadata(ctx context.Context, metadata *Metadata) error {
	payload, err := s.serializer.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("persistence: marshal metadata: %w", err)
	}
	// Metadata describes the running process; it does not expire.
	return s.client.Set(ctx, s.keyPrefix+metadataKey, payload, 0).Err()
}

func (s *RedisStore) Load(ctx context.Context, requestID string) (*Snapshot, error) {
	payload, err := s.client.Get(ctx, s.keyPrefix+requestID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	snapshot := &Snapshot{}
	if err := s.serializer.Unmarshal(payload, snapshot); err != nil {
		return nil, fmt.Errorf("persistence: unmarshal snapshot: %w", err)
	}
	return snapshot, nil
}
