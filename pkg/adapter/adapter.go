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

// Package adapter defines the contract a host framework fulfils to embed the
// diagnostics runtime. The runtime never touches transport primitives
// directly; it goes through a per-request Adapter.
package adapter

import (
	"github.com/llenroc/Glimpse/pkg/state"
)

// RequestMetadata exposes read-only attributes of the inbound request.
type RequestMetadata interface {
	// Path returns the request path, starting with "/".
	Path() string
	// Method returns the HTTP method.
	Method() string
	// Cookie returns the named cookie value, or "" when absent.
	Cookie(name string) string
	// ClientID identifies the requesting client, or "" when unknown.
	ClientID() string
}

// Adapter is the per-request accessor the host supplies to every lifecycle
// entry point. One Adapter instance serves exactly one request.
type Adapter interface {
	// RequestMetadata returns the inbound request attributes.
	RequestMetadata() RequestMetadata

	// RuntimeContext returns the host's native request context value. Its
	// dynamic type is matched against collector context-type constraints.
	RuntimeContext() any

	// RequestStore returns the key-value store scoped to this request.
	// The same store must be returned for the lifetime of the request.
	RequestStore() state.Store

	// SetResponseHeader sets a response header. Calls after the host started
	// writing the body are dropped.
	SetResponseHeader(name, value string)

	// SetCookie sets a response cookie.
	SetCookie(name, value string)

	// InjectResponseBody schedules content to be injected into the outgoing
	// response body before it is flushed to the client.
	InjectResponseBody(content string)

	// PreventResponseHeaderWrites signals that no further header mutation
	// may occur for this response.
	PreventResponseHeaderWrites()

	// WriteResponse writes a complete response for resource-endpoint
	// requests, replacing the host application's output.
	WriteResponse(status int, contentType string, body []byte) error
}
