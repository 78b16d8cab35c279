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
	"sync/atomic"

	"github.com/google/uuid"
)

// Handle is the disposable capability token returned to the host adapter at
// begin-request. Disposing it unregisters the corresponding request context;
// disposal is idempotent.
type Handle struct {
	id       uuid.UUID
	mode     Mode
	registry *Registry
	disposed atomic.Bool
}

// newUnavailableHandle returns the degenerate handle representing a request
// rejected at admission. It carries no id and disposal is a no-op.
func newUnavailableHandle() *Handle {
	return &Handle{mode: ModeUnhandled}
}

// RequestID returns the request id the handle references. The zero UUID for
// an unavailable handle.
func (h *Handle) RequestID() uuid.UUID {
	return h.id
}

// Mode returns the handling mode derived at begin-request.
func (h *Handle) Mode() Mode {
	return h.mode
}

// Available reports whether the handle references a live request.
func (h *Handle) Available() bool {
	return h != nil && h.registry != nil && !h.disposed.Load()
}

// Dispose unregisters the referenced request. Safe to call more than once;
// the second and later calls have no observable effect.
func (h *Handle) Dispose() {
	if h == nil || h.registry == nil {
		return
	}
	if h.disposed.CompareAndSwap(false, true) {
		h.registry.Unregister(h.id)
	}
}
