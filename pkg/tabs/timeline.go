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

package tabs

import (
	"context"

	"github.com/llenroc/Glimpse/pkg/collector"
	rt "github.com/llenroc/Glimpse/pkg/runtime"
	"github.com/llenroc/Glimpse/pkg/state"
)

// TimelineDisplay reports how long the request has been executing, read from
// the runtime's per-request timer at render time.
type TimelineDisplay struct{}

var _ collector.Display = TimelineDisplay{}
var _ collector.Documented = TimelineDisplay{}

type timelinePayload struct {
	ElapsedMilliseconds float64 `json:"elapsedMs"`
}

func (TimelineDisplay) TypedName() collector.TypedName {
	return collector.TypedName{Type: displayType, Name: "Timeline"}
}

func (TimelineDisplay) Documentation() string {
	return "Summarizes request execution time as measured by the diagnostics runtime."
}

func (TimelineDisplay) Collect(ctx context.Context, tc *collector.Context) (any, error) {
	timer, ok := state.Read[*rt.ExecutionTimer](tc.RequestStore, state.KeyRequestTimer)
	if !ok {
		return timelinePayload{}, nil
	}
	return timelinePayload{
		ElapsedMilliseconds: float64(timer.Elapsed().Microseconds()) / 1000,
	}, nil
}
