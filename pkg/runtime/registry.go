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

	"github.com/google/uuid"

	"github.com/llenroc/Glimpse/pkg/adapter"
	"github.com/llenroc/Glimpse/pkg/policy"
	"github.com/llenroc/Glimpse/pkg/state"
)

// Mode classifies how a request is handled.
type Mode int

const (
	// ModeUnhandled marks a request rejected at admission.
	ModeUnhandled Mode = iota
	// ModeRegular marks an ordinary application request.
	ModeRegular
	// ModeResource marks a request aimed at the diagnostics endpoint.
	ModeResource
)

func (m Mode) String() string {
	switch m {
	case ModeRegular:
		return "RegularRequest"
	case ModeResource:
		return "ResourceRequest"
	}
	return "Unhandled"
}

// RequestContext identifies one in-flight request. The Registry is the sole
// owner; exactly one RequestContext is live per request id at any time.
type RequestContext struct {
	// ID is the opaque, globally unique request identifier.
	ID uuid.UUID
	// Adapter provides transport I/O for the request.
	Adapter adapter.Adapter
	// Mode is the request's handling classification.
	Mode Mode
}

// Store returns the request-scoped store supplied by the adapter.
func (rc *RequestContext) Store() state.Store {
	return rc.Adapter.RequestStore()
}

// ActivePolicy returns the accumulated policy stored for the request, or the
// given default when none has been stored yet.
func (rc *RequestContext) ActivePolicy(defaultPolicy policy.Policy) policy.Policy {
	if p, ok := state.Read[policy.Policy](rc.Store(), state.KeyRuntimePolicy); ok {
		return p
	}
	return defaultPolicy
}

// Registry is the process-wide map from request id to request context. It is
// safe under concurrent registration, lookup, and removal of distinct keys
// without cross-request contention.
type Registry struct {
	entries sync.Map
}

// NewRegistry initializes an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds the request context and returns a handle that unregisters it
// on disposal.
func (r *Registry) Register(rc *RequestContext) *Handle {
	r.entries.Store(rc.ID, rc)
	return &Handle{id: rc.ID, mode: rc.Mode, registry: r}
}

// Lookup resolves a request id. An unknown id is a recoverable not-found,
// never a crash.
func (r *Registry) Lookup(id uuid.UUID) (*RequestContext, bool) {
	v, ok := r.entries.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*RequestContext), true
}

// Unregister removes a request id. Idempotent.
func (r *Registry) Unregister(id uuid.UUID) {
	r.entries.Delete(id)
}

// Count reports the number of in-flight requests; used by hosts for
// teardown diagnostics.
func (r *Registry) Count() int {
	n := 0
	r.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
