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

package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()

	_, ok := s.Get("missing")
	assert.False(t, ok)

	s.Set("k", 42)
	v, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	s.Set("k", "replaced")
	v, _ = s.Get("k")
	assert.Equal(t, "replaced", v)

	s.Delete("k")
	_, ok = s.Get("k")
	assert.False(t, ok)
}

func TestTabStoreFor(t *testing.T) {
	t.Parallel()
	req := NewMemoryStore()

	a := TabStoreFor(req, "Request/tab")
	b := TabStoreFor(req, "Request/tab")
	other := TabStoreFor(req, "Environment/tab")

	assert.Same(t, a, b, "repeated lookups must return the same nested store")

	a.Set("k", "v")
	_, ok := other.Get("k")
	assert.False(t, ok, "stores of different collectors must be isolated")
	_, ok = req.Get("k")
	assert.False(t, ok, "nested keys must not leak into the request store")
}

func TestRead(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()
	s.Set("n", 7)

	n, ok := Read[int](s, "n")
	require.True(t, ok)
	assert.Equal(t, 7, n)

	_, ok = Read[string](s, "n")
	assert.False(t, ok, "type mismatch reads as absent")

	_, ok = Read[int](s, "missing")
	assert.False(t, ok)
}

func TestMustRead(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()
	s.Set("n", 7)

	n, err := MustRead[int](s, "n")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = MustRead[string](s, "n")
	assert.Error(t, err)

	_, err = MustRead[int](s, "missing")
	assert.Error(t, err)
}
