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

package runtime

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterLookupUnregister(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	rc := &RequestContext{ID: uuid.New(), Adapter: newMockAdapter(), Mode: ModeRegular}

	handle := r.Register(rc)
	assert.True(t, handle.Available())
	assert.Equal(t, rc.ID, handle.RequestID())
	assert.Equal(t, ModeRegular, handle.Mode())

	got, ok := r.Lookup(rc.ID)
	require.True(t, ok)
	assert.Same(t, rc, got)

	handle.Dispose()
	_, ok = r.Lookup(rc.ID)
	assert.False(t, ok)
	assert.False(t, handle.Available())
}

func TestRegistry_UnknownLookup(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	_, ok := r.Lookup(uuid.New())
	assert.False(t, ok)

	// Unregistering an unknown id must not panic.
	r.Unregister(uuid.New())
}

func TestHandle_DisposeIsIdempotent(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	first := r.Register(&RequestContext{ID: uuid.New(), Adapter: newMockAdapter(), Mode: ModeRegular})
	second := r.Register(&RequestContext{ID: uuid.New(), Adapter: newMockAdapter(), Mode: ModeRegular})

	first.Dispose()
	first.Dispose()
	first.Dispose()

	assert.Equal(t, 1, r.Count(), "repeated disposal must only remove the handle's own context")
	_, ok := r.Lookup(second.RequestID())
	assert.True(t, ok)
}

func TestHandle_Unavailable(t *testing.T) {
	t.Parallel()
	h := newUnavailableHandle()
	assert.False(t, h.Available())
	assert.Equal(t, ModeUnhandled, h.Mode())
	assert.Equal(t, uuid.Nil, h.RequestID())
	h.Dispose() // no-op
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	const workers = 50

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			rc := &RequestContext{ID: uuid.New(), Adapter: newMockAdapter(), Mode: ModeRegular}
			h := r.Register(rc)
			_, ok := r.Lookup(rc.ID)
			assert.True(t, ok)
			h.Dispose()
			h.Dispose()
		}()
	}
	wg.Wait()

	assert.Zero(t, r.Count())
}

func TestMode_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Unhandled", ModeUnhandled.String())
	assert.Equal(t, "RegularRequest", ModeRegular.String())
	assert.Equal(t, "ResourceRequest", ModeResource.String())
}
