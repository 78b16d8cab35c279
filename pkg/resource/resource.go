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

// Package resource defines named server-side operations reachable through
// the diagnostics endpoint, and the dispatcher that resolves and executes
// them under the active runtime policy.
package resource

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/llenroc/Glimpse/pkg/adapter"
	"github.com/llenroc/Glimpse/pkg/persistence"
)

// Parameter declares one caller-suppliable parameter of a resource.
type Parameter struct {
	Name     string
	Required bool
}

// Context carries the inputs of one resource invocation.
type Context struct {
	// RequestID is the opaque identifier of the current request.
	RequestID string
	// Parameters are the caller-supplied invocation parameters.
	Parameters map[string]string
	// Logger is the runtime logger.
	Logger logr.Logger
}

// Resource is a named, parameterized server operation.
type Resource interface {
	// Name returns the resource name; resolution is case-insensitive.
	Name() string
	// Parameters declares the parameters the resource understands.
	Parameters() []Parameter
	// Execute runs the operation with a minimal context.
	Execute(ctx context.Context, rc *Context) Result
}

// Configurator is the configuration view handed to privileged resources.
// The runtime configuration satisfies this interface.
type Configurator interface {
	// FrameworkVersion returns the runtime version string.
	FrameworkVersion() string
	// ContentHash returns the configuration content hash.
	ContentHash() string
	// Persistence returns the snapshot store.
	Persistence() persistence.Store
	// ResourceEndpoint returns the diagnostics endpoint base URI.
	ResourceEndpoint() string
}

// PrivilegedResource is an optional capability: resources that need the
// configuration and the host adapter execute through ExecutePrivileged
// instead of Execute.
type PrivilegedResource interface {
	Resource
	ExecutePrivileged(ctx context.Context, rc *Context, cfg Configurator, a adapter.Adapter) Result
}

// Dependent is an optional capability: the default diagnostic resource
// declares the resources its client-side output calls back into, so those
// share its policy derivation.
type Dependent interface {
	Dependencies() []string
}
