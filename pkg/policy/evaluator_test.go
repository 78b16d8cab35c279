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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	logutil "github.com/llenroc/Glimpse/pkg/util/logging"
)

// --- Mocks ---

type mockRule struct {
	name      string
	appliesOn RuntimeEvent
	vote      Policy
	err       error
	panics    bool
	called    int
}

func (m *mockRule) Name() string            { return m.name }
func (m *mockRule) AppliesOn() RuntimeEvent { return m.appliesOn }

func (m *mockRule) Evaluate(_ context.Context, _ Request) (Policy, error) {
	m.called++
	if m.panics {
		panic("rule exploded")
	}
	return m.vote, m.err
}

type mockSignals struct{}

func (mockSignals) Path() string         { return "/orders" }
func (mockSignals) Method() string       { return "GET" }
func (mockSignals) Cookie(string) string { return "" }
func (mockSignals) ClientID() string     { return "" }

func testRequest() Request {
	return Request{RequestID: "req-1", Signals: mockSignals{}}
}

func TestEvaluator_Evaluate(t *testing.T) {
	t.Parallel()
	ctx := logutil.NewTestLoggerIntoContext(context.Background())

	testCases := []struct {
		name    string
		rules   []*mockRule
		event   RuntimeEvent
		current Policy
		expect  Policy
	}{
		{
			name:    "no_rules_keeps_current",
			rules:   nil,
			event:   BeginRequest,
			current: On,
			expect:  On,
		},
		{
			name: "votes_reduce_to_most_restrictive",
			rules: []*mockRule{
				{name: "a", appliesOn: BeginRequest, vote: On},
				{name: "b", appliesOn: BeginRequest, vote: PersistResults},
				{name: "c", appliesOn: BeginRequest, vote: ModifyResponseBody | PersistResults},
			},
			event:   BeginRequest,
			current: On,
			expect:  PersistResults,
		},
		{
			name: "non_matching_event_skipped",
			rules: []*mockRule{
				{name: "a", appliesOn: EndRequest, vote: Off},
			},
			event:   BeginRequest,
			current: On,
			expect:  On,
		},
		{
			name: "error_vote_is_off",
			rules: []*mockRule{
				{name: "a", appliesOn: BeginRequest, vote: On, err: errors.New("boom")},
			},
			event:   BeginRequest,
			current: On,
			expect:  Off,
		},
		{
			name: "panic_vote_is_off",
			rules: []*mockRule{
				{name: "a", appliesOn: BeginRequest, panics: true},
			},
			event:   BeginRequest,
			current: On,
			expect:  Off,
		},
		{
			name: "rules_cannot_widen",
			rules: []*mockRule{
				{name: "a", appliesOn: BeginRequest, vote: On},
			},
			event:   BeginRequest,
			current: PersistResults,
			expect:  PersistResults,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rules := make([]Rule, 0, len(tc.rules))
			for _, r := range tc.rules {
				rules = append(rules, r)
			}
			got := NewEvaluator(rules).Evaluate(ctx, tc.event, tc.current, testRequest())
			assert.Equal(t, tc.expect, got)
		})
	}
}

func TestEvaluator_ShortCircuitsAtOff(t *testing.T) {
	t.Parallel()
	ctx := logutil.NewTestLoggerIntoContext(context.Background())

	first := &mockRule{name: "first", appliesOn: BeginRequest, vote: Off}
	second := &mockRule{name: "second", appliesOn: BeginRequest, vote: On}

	got := NewEvaluator([]Rule{first, second}).Evaluate(ctx, BeginRequest, On, testRequest())

	assert.Equal(t, Off, got)
	assert.Equal(t, 1, first.called)
	assert.Zero(t, second.called, "rules after an Off decision must not run")
}

func TestEvaluator_OffCurrentRunsNoRules(t *testing.T) {
	t.Parallel()
	ctx := logutil.NewTestLoggerIntoContext(context.Background())

	rule := &mockRule{name: "a", appliesOn: BeginRequest, vote: On}
	got := NewEvaluator([]Rule{rule}).Evaluate(ctx, BeginRequest, Off, testRequest())

	assert.Equal(t, Off, got)
	assert.Zero(t, rule.called)
}
