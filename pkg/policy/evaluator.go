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

package policy

import (
	"context"
	"fmt"

	logutil "github.com/llenroc/Glimpse/pkg/util/logging"
)

// RequestSignals exposes the request attributes rules may inspect when
// voting. The host adapter's request metadata satisfies this interface.
type RequestSignals interface {
	// Path returns the request path.
	Path() string
	// Method returns the request HTTP method.
	Method() string
	// Cookie returns the named request cookie value, or "" when absent.
	Cookie(name string) string
	// ClientID identifies the requesting client, or "" when unknown.
	ClientID() string
}

// Request carries the per-request inputs handed to each rule.
type Request struct {
	RequestID string
	Signals   RequestSignals
}

// Rule is a single admission/runtime policy check. Rules vote a policy level
// for the lifecycle events they declare; the evaluator reduces the votes.
type Rule interface {
	// Name identifies the rule in logs.
	Name() string
	// AppliesOn returns the mask of lifecycle events the rule votes on.
	AppliesOn() RuntimeEvent
	// Evaluate returns the rule's vote. An error vote is treated as Off.
	Evaluate(ctx context.Context, req Request) (Policy, error)
}

// Evaluator reduces an ordered rule chain to a single admitted policy level
// for a lifecycle event. The reduction starts from the accumulated policy of
// the request and can only narrow it.
type Evaluator struct {
	rules []Rule
}

// NewEvaluator creates an Evaluator over the registered rules, preserving
// registration order.
func NewEvaluator(rules []Rule) *Evaluator {
	return &Evaluator{rules: rules}
}

// Evaluate runs every rule applicable to event, in registration order,
// narrowing current with each vote. A failing rule votes Off. Evaluation
// short-circuits as soon as the running value reaches Off, since Off can
// never be raised back up.
func (e *Evaluator) Evaluate(ctx context.Context, event RuntimeEvent, current Policy, req Request) Policy {
	logger := logutil.FromContext(ctx)
	result := current
	for _, rule := range e.rules {
		if result == Off {
			break
		}
		if !event.Matches(rule.AppliesOn()) {
			continue
		}
		vote := e.safeEvaluate(ctx, rule, req)
		result = result.Narrow(vote)
		logger.V(logutil.TRACE).Info("Policy rule evaluated",
			"rule", rule.Name(), "event", event.String(), "vote", vote.String(), "running", result.String())
	}
	return result
}

// safeEvaluate invokes a single rule inside a failure boundary. A rule that
// returns an error or panics votes Off; the defect is logged and evaluation
// of the request continues.
func (e *Evaluator) safeEvaluate(ctx context.Context, rule Rule, req Request) (vote Policy) {
	logger := logutil.FromContext(ctx)
	defer func() {
		if r := recover(); r != nil {
			logger.Error(fmt.Errorf("policy rule panic: %v", r), "Policy rule failed, treating vote as Off",
				"rule", rule.Name(), "requestID", req.RequestID)
			vote = Off
		}
	}()
	vote, err := rule.Evaluate(ctx, req)
	if err != nil {
		logger.Error(err, "Policy rule failed, treating vote as Off",
			"rule", rule.Name(), "requestID", req.RequestID)
		return Off
	}
	return vote
}
