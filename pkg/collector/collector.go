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

// Package collector defines the pluggable diagnostic collectors ("tabs" and
// "displays") and the orchestrator that executes them at request lifecycle
// events while isolating their failures.
package collector

import (
	"context"
	"reflect"

	"github.com/go-logr/logr"

	"github.com/llenroc/Glimpse/pkg/adapter"
	"github.com/llenroc/Glimpse/pkg/policy"
	"github.com/llenroc/Glimpse/pkg/state"
)

const separator = "/"

// TypedName is a utility struct providing a type and a name to collectors.
type TypedName struct {
	// Type returns the kind of collector ("tab", "display").
	Type string
	// Name returns the name of the collector instance.
	Name string
}

// String returns the type and name rendered as "<name>/<type>".
func (tn TypedName) String() string {
	return tn.Name + separator + tn.Type
}

// Context carries the per-request inputs handed to a collector invocation.
type Context struct {
	// RequestID is the opaque identifier of the current request.
	RequestID string
	// Adapter is the host adapter for the current request.
	Adapter adapter.Adapter
	// RequestStore is the request-scoped store.
	RequestStore state.Store
	// TabStore is the store scoped to the collector being invoked. Set by
	// the orchestrator before each invocation.
	TabStore state.Store
	// Logger is the runtime logger.
	Logger logr.Logger
}

// Tab is a lifecycle-scoped diagnostic collector, invoked at the request
// events it declares.
type Tab interface {
	// TypedName returns the type and name tuple of this collector instance.
	TypedName() TypedName
	// ExecuteOn returns the mask of lifecycle events the tab collects on.
	ExecuteOn() policy.RuntimeEvent
	// Collect gathers the tab's diagnostic payload for the current request.
	Collect(ctx context.Context, tc *Context) (any, error)
}

// Display is a render-time collector, invoked once at end-of-request
// regardless of event.
type Display interface {
	// TypedName returns the type and name tuple of this collector instance.
	TypedName() TypedName
	// Collect gathers the display's payload for the current request.
	Collect(ctx context.Context, tc *Context) (any, error)
}

// Optional collector capabilities. Capabilities are queried once at
// registration time, never repeatedly at call time.

// Documented is implemented by collectors that publish help text. The text
// is persisted to the process metadata store at initialization.
type Documented interface {
	Documentation() string
}

// LaidOut is implemented by collectors that publish a layout definition for
// rendering their payload. Persisted alongside documentation.
type LaidOut interface {
	Layout() any
}

// Configurable is implemented by collectors that need a one-time setup pass
// at runtime initialization.
type Configurable interface {
	Setup(ctx context.Context, logger logr.Logger) error
}

// ContextConstrained is implemented by collectors that only apply to hosts
// whose runtime-context value is of (or assignable to) the returned type.
// Collectors without the constraint run on every host.
type ContextConstrained interface {
	RuntimeContextType() reflect.Type
}

// Builder is implemented by lazily-built structured payloads. The
// orchestrator materializes such payloads by invoking Build inside the same
// failure boundary as the collection itself.
type Builder interface {
	Build() any
}

// Result is the outcome of one collector invocation: the collector's name
// and its opaque data payload, or the captured failure description.
type Result struct {
	Name string `json:"name"`
	Data any    `json:"data"`
}

// matchesRuntimeContext reports whether the collector's declared context
// constraint is absent or matches the host's runtime-context value, by type
// identity or assignability.
func matchesRuntimeContext(c any, runtimeContext any) bool {
	constrained, ok := c.(ContextConstrained)
	if !ok {
		return true
	}
	want := constrained.RuntimeContextType()
	if want == nil {
		return true
	}
	got := reflect.TypeOf(runtimeContext)
	if got == nil {
		return false
	}
	return got == want || got.AssignableTo(want)
}
