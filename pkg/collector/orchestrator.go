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

package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/llenroc/Glimpse/pkg/metrics"
	"github.com/llenroc/Glimpse/pkg/policy"
	"github.com/llenroc/Glimpse/pkg/state"
	logutil "github.com/llenroc/Glimpse/pkg/util/logging"
)

// Orchestrator invokes registered collectors at the appropriate lifecycle
// event. One collector's failure never prevents another collector from
// running and never aborts the request lifecycle.
type Orchestrator struct {
	tabs     []Tab
	displays []Display
}

// NewOrchestrator creates an Orchestrator over the registered collectors,
// preserving registration order.
func NewOrchestrator(tabs []Tab, displays []Display) *Orchestrator {
	return &Orchestrator{tabs: tabs, displays: displays}
}

// RunTabs invokes every registered tab whose declared events include event
// and whose context-type constraint matches the host's runtime context.
// Results overwrite previous results for repeated events, keyed by the
// collector identifier.
func (o *Orchestrator) RunTabs(ctx context.Context, event policy.RuntimeEvent, tc *Context) {
	loggerDebug := logutil.FromContext(ctx).V(logutil.DEBUG)
	results := resultsFor(tc.RequestStore, state.KeyTabResults)
	runtimeContext := tc.Adapter.RuntimeContext()

	for _, tab := range o.tabs {
		if !event.Matches(tab.ExecuteOn()) {
			continue
		}
		if !matchesRuntimeContext(tab, runtimeContext) {
			continue
		}
		tn := tab.TypedName()
		loggerDebug.Info("Running tab", "tab", tn, "event", event.String())
		invocation := *tc
		invocation.TabStore = state.TabStoreFor(tc.RequestStore, tn.String())
		before := time.Now()
		results[resultKey(tn)] = collectSafely(ctx, tn, func(ctx context.Context) (any, error) {
			return tab.Collect(ctx, &invocation)
		})
		metrics.RecordCollectorLatency(tn.Type, tn.Name, time.Since(before))
	}

	tc.RequestStore.Set(state.KeyTabResults, results)
}

// RunDisplays invokes every registered display exactly once, at
// end-of-request, unconditioned by event matching. Results are written to
// the display-results mapping, separate from tab results.
func (o *Orchestrator) RunDisplays(ctx context.Context, tc *Context) {
	loggerDebug := logutil.FromContext(ctx).V(logutil.DEBUG)
	results := resultsFor(tc.RequestStore, state.KeyDisplayResults)

	for _, display := range o.displays {
		tn := display.TypedName()
		loggerDebug.Info("Running display", "display", tn)
		invocation := *tc
		invocation.TabStore = state.TabStoreFor(tc.RequestStore, tn.String())
		before := time.Now()
		results[resultKey(tn)] = collectSafely(ctx, tn, func(ctx context.Context) (any, error) {
			return display.Collect(ctx, &invocation)
		})
		metrics.RecordCollectorLatency(tn.Type, tn.Name, time.Since(before))
	}

	tc.RequestStore.Set(state.KeyDisplayResults, results)
}

// collectSafely runs one collection step inside a failure boundary. A
// collector that returns an error or panics yields a Result whose payload is
// the failure description; siblings keep running.
func collectSafely(ctx context.Context, tn TypedName, collect func(ctx context.Context) (any, error)) Result {
	logger := logutil.FromContext(ctx)
	data, err := func() (data any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("collector panic: %v", r)
			}
		}()
		data, err = collect(ctx)
		if err != nil {
			return nil, err
		}
		if builder, ok := data.(Builder); ok {
			data = builder.Build()
		}
		return data, nil
	}()
	if err != nil {
		logger.Error(err, "Collector failed", "collector", tn)
		metrics.RecordCollectorFailure(tn.Type, tn.Name)
		return Result{Name: tn.Name, Data: err.Error()}
	}
	return Result{Name: tn.Name, Data: data}
}

// resultsFor returns the named results mapping from the request store,
// creating it on first use.
func resultsFor(store state.Store, key string) map[string]Result {
	if results, ok := state.Read[map[string]Result](store, key); ok {
		return results
	}
	return make(map[string]Result)
}

func resultKey(tn TypedName) string {
	return strings.ToLower(tn.Name)
}
