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

package resource

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"github.com/llenroc/Glimpse/pkg/adapter"
	"github.com/llenroc/Glimpse/pkg/metrics"
	"github.com/llenroc/Glimpse/pkg/policy"
	logutil "github.com/llenroc/Glimpse/pkg/util/logging"
)

// Execution bundles the inputs of one dispatch. The caller has already
// validated the handle's handling mode and resolved the active policy.
type Execution struct {
	RequestID  string
	Adapter    adapter.Adapter
	Config     Configurator
	Policy     policy.Policy
	Name       string
	Parameters map[string]string
}

// Dispatcher resolves resource names against the registered collection and
// executes the match under the active policy. Dispatch always returns
// normally: every outcome, including execution failures, is rendered into
// the response as a result.
type Dispatcher struct {
	resources   []Resource
	defaultName string
	bypassNames map[string]struct{}
}

// NewDispatcher creates a Dispatcher over the registered resources. The
// default resource's declared dependencies are resolved once here, not per
// call.
func NewDispatcher(resources []Resource, defaultName string) *Dispatcher {
	d := &Dispatcher{
		resources:   resources,
		defaultName: strings.ToLower(defaultName),
		bypassNames: make(map[string]struct{}),
	}
	if d.defaultName == "" {
		return d
	}
	d.bypassNames[d.defaultName] = struct{}{}
	for _, r := range resources {
		if !strings.EqualFold(r.Name(), defaultName) {
			continue
		}
		if dep, ok := r.(Dependent); ok {
			for _, name := range dep.Dependencies() {
				d.bypassNames[strings.ToLower(name)] = struct{}{}
			}
		}
	}
	return d
}

// BypassesPolicy reports whether the named resource derives its policy from
// the configured default instead of the request's accumulated value. Only
// the designated default diagnostic resource and its declared dependencies
// qualify; this keeps the diagnostics UI's own calls functional when the
// page-level policy degraded.
func (d *Dispatcher) BypassesPolicy(name string) bool {
	_, ok := d.bypassNames[strings.ToLower(name)]
	return ok
}

// Execute resolves and runs the named resource, then renders the outcome
// into the response. It never propagates resource or rendering failures.
func (d *Dispatcher) Execute(ctx context.Context, ex *Execution) {
	logger := logutil.FromContext(ctx).WithValues("resource", ex.Name, "requestID", ex.RequestID)

	var result Result
	if ex.Policy == policy.Off {
		message := fmt.Sprintf("execution of resource %q blocked by runtime policy", ex.Name)
		logger.V(logutil.DEFAULT).Info("Resource execution blocked", "policy", ex.Policy.String())
		result = NewForbidden(message)
	} else {
		result = d.resolveAndRun(ctx, logger, ex)
	}

	metrics.RecordResourceResponse(result.StatusCode())

	if err := respondSafely(result, ex.Adapter); err != nil {
		// The response may be partially written at this point; dispatch
		// still returns normally.
		logger.Error(err, "Fatal: writing resource result to the response failed")
	}
}

func (d *Dispatcher) resolveAndRun(ctx context.Context, logger logr.Logger, ex *Execution) Result {
	matches := make([]Resource, 0, 1)
	for _, r := range d.resources {
		if strings.EqualFold(r.Name(), ex.Name) {
			matches = append(matches, r)
		}
	}
	switch len(matches) {
	case 0:
		logger.V(logutil.DEFAULT).Info("Resource not found")
		return NewNotFound(ex.Name)
	case 1:
		return d.run(ctx, logger, matches[0], ex)
	default:
		logger.Error(nil, "Ambiguous resource registration", "matches", len(matches))
		return NewAmbiguous(ex.Name, len(matches))
	}
}

// run executes one resolved resource inside a failure boundary, preferring
// the privileged path when the resource supports it.
func (d *Dispatcher) run(ctx context.Context, logger logr.Logger, r Resource, ex *Execution) (result Result) {
	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("resource panic: %v", rec)
			logger.Error(err, "Resource execution failed")
			result = NewExecutionError(ex.Name, err)
		}
	}()

	rc := &Context{
		RequestID:  ex.RequestID,
		Parameters: ex.Parameters,
		Logger:     logger,
	}
	if privileged, ok := r.(PrivilegedResource); ok && ex.Config != nil {
		result = privileged.ExecutePrivileged(ctx, rc, ex.Config, ex.Adapter)
	} else {
		result = r.Execute(ctx, rc)
	}
	if result == nil {
		result = NewExecutionError(ex.Name, fmt.Errorf("resource returned no result"))
	}
	return result
}

func respondSafely(result Result, a adapter.Adapter) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("result rendering panic: %v", rec)
		}
	}()
	return result.Respond(a)
}
