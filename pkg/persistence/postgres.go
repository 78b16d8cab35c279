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

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgxQuerier is the subset of pgxpool.Pool the store needs; tests substitute
// a fake.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	postgresSchemaSQL = `
CREATE TABLE IF NOT EXISTS glimpse_snapshots (
	request_id TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS glimpse_metadata (
	id      INT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	payload JSONB NOT NULL
);`

	postgresSaveSQL = `
INSERT INTO glimpse_snapshots (request_id, payload) VALUES ($1, $2)
ON CONFLICT (request_id) DO UPDATE SET payload = EXCLUDED.payload`

	postgresSaveMetadataSQL = `
INSERT INTO glimpse_metadata (id, payload) VALUES (1, $1)
ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload`

	postgresLoadSQL = `SELECT payload FROM glimpse_snapshots WHERE request_id = $1`
)

// PostgresStore persists snapshots in a postgres table as JSONB rows.
type PostgresStore struct {
	db         pgxQuerier
	serializer Serializer
}

// PostgresOption customizes a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithPostgresSerializer overrides the wire serializer.
func WithPostgresSerializer(serializer Serializer) PostgresOption {
	return func(s *PostgresStore) { s.serializer = serializer }
}

// NewPostgresStore creates a PostgresStore over an established pool.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("persistence: postgres pool required")
	}
	return newPostgresStore(pool, opts...), nil
}

func newPostgresStore(db pgxQuerier, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{db: db, serializer: JSONSerializer{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureSchema creates the backing tables when they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, postgresSchemaSQL)
	return err
}

func (s *PostgresStore) Save(ctx context.Context, snapshot *Snapshot) error {
	payload, err := s.serializer.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("persistence: marshal snapshot: %w", err)
	}
	_, err = s.db.Exec(ctx, postgresSaveSQL, snapshot.RequestID, payload)
	return err
}

func (s *PostgresStore) SaveMetadata(ctx context.Context, metadata *Metadata) error {
	payload, err := s.serializer.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("persistence: marshal metadata: %w", err)
	}
	_, err = s.db.Exec(ctx, postgresSaveMetadataSQL, payload)
	return err
}

func (s *PostgresStore) Load(ctx context.Context, requestID string) (*Snapshot, error) {
	var payload []byte
	err := s.db.QueryRow(ctx, postgresLoadSQL, requestID).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
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
