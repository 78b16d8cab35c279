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
	"time"

	"github.com/llenroc/Glimpse/pkg/state"
)

// ExecutionTimer measures the diagnostics execution window of one request.
type ExecutionTimer struct {
	start   time.Time
	elapsed time.Duration
	stopped bool
}

// Elapsed returns the time measured so far, or the final value once stopped.
func (t *ExecutionTimer) Elapsed() time.Duration {
	if t.stopped {
		return t.elapsed
	}
	return time.Since(t.start)
}

// Stop freezes the timer and returns the final elapsed value. Idempotent.
func (t *ExecutionTimer) Stop() time.Duration {
	if !t.stopped {
		t.elapsed = time.Since(t.start)
		t.stopped = true
	}
	return t.elapsed
}

// startTimer returns the request's timer, starting one on first use so a
// repeated begin-request event reuses the original start point.
func startTimer(store state.Store) *ExecutionTimer {
	if t, ok := state.Read[*ExecutionTimer](store, state.KeyRequestTimer); ok {
		return t
	}
	t := &ExecutionTimer{start: time.Now()}
	store.Set(state.KeyRequestTimer, t)
	return t
}

// stopTimer stops the request's timer when one was started. Returns zero
// elapsed time when no timer exists.
func stopTimer(store state.Store) time.Duration {
	if t, ok := state.Read[*ExecutionTimer](store, state.KeyRequestTimer); ok {
		return t.Stop()
	}
	return 0
}
