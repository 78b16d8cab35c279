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

// Package policy defines the runtime policy lattice and the evaluator that
// reduces registered policy rules into a single admitted policy level for a
// request lifecycle event.
package policy

import (
	"fmt"
	"strings"
)

// Policy is the admission/feature-gating decision level for a request.
// Individual capabilities are flags; the numeric value orders policies from
// Off (most restrictive) to On (least restrictive). Evaluation may only
// narrow a policy, never widen it.
type Policy uint8

const (
	// Off disables all diagnostics work for the request. Off is absorbing:
	// once a request reaches Off no collector or resource runs for it.
	Off Policy = 0

	// PersistResults allows the end-of-request snapshot to be saved.
	PersistResults Policy = 1 << 0
	// ModifyResponseBody allows content to be injected into the response body.
	ModifyResponseBody Policy = 1 << 1
	// ModifyResponseHeaders allows the identifying header and client cookie
	// to be written.
	ModifyResponseHeaders Policy = 1 << 2
	// DisplayGlimpseClient allows the diagnostic client script markup to be
	// generated and injected.
	DisplayGlimpseClient Policy = 1 << 3
	// ExecuteResources allows named resources to be executed.
	ExecuteResources Policy = 1 << 4

	// On enables every capability.
	On = PersistResults | ModifyResponseBody | ModifyResponseHeaders | DisplayGlimpseClient | ExecuteResources
)

// Has reports whether every capability bit in flag is present in p.
func (p Policy) Has(flag Policy) bool {
	if flag == Off {
		return p == Off
	}
	return p&flag == flag
}

// Narrow returns the more restrictive of p and other.
func (p Policy) Narrow(other Policy) Policy {
	if other < p {
		return other
	}
	return p
}

// String renders the policy for logs and metrics labels.
func (p Policy) String() string {
	switch p {
	case Off:
		return "Off"
	case On:
		return "On"
	}
	parts := make([]string, 0, 5)
	for _, f := range []struct {
		flag Policy
		name string
	}{
		{PersistResults, "PersistResults"},
		{ModifyResponseBody, "ModifyResponseBody"},
		{ModifyResponseHeaders, "ModifyResponseHeaders"},
		{DisplayGlimpseClient, "DisplayGlimpseClient"},
		{ExecuteResources, "ExecuteResources"},
	} {
		if p&f.flag != 0 {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, "|")
}

// Parse converts a policy name (as used in configuration files) to a Policy.
func Parse(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "off":
		return Off, nil
	case "on":
		return On, nil
	case "persistresults":
		return PersistResults, nil
	case "modifyresponsebody":
		return ModifyResponseBody, nil
	case "modifyresponseheaders":
		return ModifyResponseHeaders, nil
	case "displayglimpseclient":
		return DisplayGlimpseClient, nil
	case "executeresources":
		return ExecuteResources, nil
	}
	return Off, fmt.Errorf("unknown runtime policy %q", name)
}
