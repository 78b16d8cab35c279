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
	"sync"
)

const defaultMemoryCapacity = 500

// MemoryStore keeps the most recent snapshots in process memory. Intended
// for development hosts and tests; eviction is oldest-first once capacity is
// reached.
type MemoryStore struct {
	mu       sync.Mutex
	capacity int
	order    []string
	items    map[string]*Snapshot
	metadata *Metadata
}

// NewMemoryStore initializes a MemoryStore. A non-positive capacity selects
// the default.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &MemoryStore{
		capacity: capacity,
		items:    make(map[string]*Snapshot, capacity),
	}
}

func (s *MemoryStore) Save(_ context.Context, snapshot *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[snapshot.RequestID]; !exists {
		s.order = append(s.order, snapshot.RequestID)
	}
	s.items[snapshot.RequestID] = snapshot
	for len(s.order) > s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.items, oldest)
	}
	return nil
}

func (s *MemoryStore) SaveMetadata(_ context.Context, metadata *Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata = metadata
	return nil
}

func (s *MemoryStore) Load(_ context.Context, requestID string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot, ok := s.items[requestID]
	if !ok {
		return nil, ErrNotFound
	}
	return snapshot, nil
}

// LoadMetadata returns the persisted process metadata, or nil when none was
// saved yet.
func (s *MemoryStore) LoadMetadata() *Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metadata
}

// Len reports the number of retained snapshots.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
