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
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

// mockPostgres implements pgxQuerier over an in-memory row map.
type mockPostgres struct {
	rows     map[string][]byte
	execSQL  []string
	execErr  error
	queryErr error
}

func newMockPostgres() *mockPostgres {
	return &mockPostgres{rows: map[string][]byte{}}
}

func (m *mockPostgres) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	m.execSQL = append(m.execSQL, sql)
	if m.execErr != nil {
		return pgconn.CommandTag{}, m.execErr
	}
	if sql == postgresSaveSQL {
		m.rows[args[0].(string)] = args[1].([]byte)
	}
	return pgconn.CommandTag{}, nil
}

func (m *mockPostgres) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	if m.queryErr != nil {
		return mockRow{err: m.queryErr}
	}
	payload, ok := m.rows[args[0].(string)]
	if !ok {
		return mockRow{err: pgx.ErrNoRows}
	}
	return mockRow{payload: payload}
}

type mockRow struct {
	payload []byte
	err     error
}

func (r mockRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*[]byte)) = r.payload
	return nil
}

// --- Tests ---

func TestPostgresStore_SaveLoad(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newMockPostgres()
	s := newPostgresStore(db)

	require.NoError(t, s.Save(ctx, testSnapshot("req-1")))

	loaded, err := s.Load(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, "req-1", loaded.RequestID)
	assert.Equal(t, "/orders", loaded.Metadata["path"])

	_, err = s.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_SaveMetadata(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newMockPostgres()
	s := newPostgresStore(db)

	require.NoError(t, s.SaveMetadata(ctx, &Metadata{Version: "1.0.0-test"}))
	require.Len(t, db.execSQL, 1)
	assert.Equal(t, postgresSaveMetadataSQL, db.execSQL[0])
}

func TestPostgresStore_EnsureSchema(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newMockPostgres()
	s := newPostgresStore(db)

	require.NoError(t, s.EnsureSchema(ctx))
	require.Len(t, db.execSQL, 1)
	assert.Equal(t, postgresSchemaSQL, db.execSQL[0])
}

func TestNewPostgresStore_RequiresPool(t *testing.T) {
	t.Parallel()
	_, err := NewPostgresStore(nil)
	assert.Error(t, err)
}
