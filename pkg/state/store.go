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

// Package state provides the key-value stores scoped to a request and to
// each collector within a request. The per-request store is supplied by the
// host adapter; per-collector stores are nested inside it, keyed by the
// collector's identifier.
package state

import (
	"fmt"
	"sync"
)

// Reserved request-store keys used by the runtime. Collectors own every
// other key in their nested stores.
const (
	KeyRuntimePolicy   = "__glimpse.runtimePolicy"
	KeyTabResults      = "__glimpse.tabResults"
	KeyDisplayResults  = "__glimpse.displayResults"
	KeyRequestTimer    = "__glimpse.executionTimer"
	KeyScriptsRendered = "__glimpse.scriptsRendered"

	tabStorePrefix = "__glimpse.tabStore."
)

// Store is a request-scoped key-value store.
type Store interface {
	// Get retrieves the value stored under key.
	Get(key string) (any, bool)
	// Set stores value under key, overwriting any previous value.
	Set(key string, value any)
	// Delete removes key.
	Delete(key string)
}

// MemoryStore is the default Store, backed by a sync.Map. It is safe for
// concurrent use, although a request store is normally touched only from the
// request's own goroutine.
type MemoryStore struct {
	data sync.Map
}

// NewMemoryStore initializes an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get(key string) (any, bool) {
	return s.data.Load(key)
}

func (s *MemoryStore) Set(key string, value any) {
	s.data.Store(key, value)
}

func (s *MemoryStore) Delete(key string) {
	s.data.Delete(key)
}

// TabStoreFor returns the per-collector store nested inside the request
// store, creating it on first use. Repeated calls with the same identifier
// return the same nested store.
func TabStoreFor(req Store, identifier string) Store {
	key := tabStorePrefix + identifier
	if v, ok := req.Get(key); ok {
		if s, ok := v.(Store); ok {
			return s
		}
	}
	s := NewMemoryStore()
	req.Set(key, s)
	return s
}

// Read retrieves the value stored under key and asserts it to type T.
// Returns false when the key is absent; returns an error when the stored
// value has an unexpected type.
func Read[T any](s Store, key string) (T, bool) {
	var zero T
	raw, ok := s.Get(key)
	if !ok {
		return zero, false
	}
	val, ok := raw.(T)
	if !ok {
		return zero, false
	}
	return val, true
}

// MustRead is Read for callers that treat a type mismatch as a defect.
func MustRead[T any](s Store, key string) (T, error) {
	var zero T
	raw, ok := s.Get(key)
	if !ok {
		return zero, fmt.Errorf("state: key %q not found", key)
	}
	val, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("state: unexpected type for key %q: got %T", key, raw)
	}
	return val, nil
}
