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
	"os"
	"runtime"

	"github.com/go-logr/logr"

	"github.com/llenroc/Glimpse/pkg/collector"
	"github.com/llenroc/Glimpse/pkg/policy"
)

// EnvironmentTab collects static process and host facts. The facts are
// gathered once at runtime initialization; per-request collection only reads
// the cached value.
type EnvironmentTab struct {
	payload environmentPayload
}

var _ collector.Tab = (*EnvironmentTab)(nil)
var _ collector.Configurable = (*EnvironmentTab)(nil)
var _ collector.Documented = (*EnvironmentTab)(nil)
var _ collector.LaidOut = (*EnvironmentTab)(nil)

type environmentPayload struct {
	Hostname     string `json:"hostname"`
	OS           string `json:"os"`
	Architecture string `json:"architecture"`
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	PID          int    `json:"pid"`
}

func NewEnvironmentTab() *EnvironmentTab {
	return &EnvironmentTab{}
}

func (*EnvironmentTab) TypedName() collector.TypedName {
	return collector.TypedName{Type: tabType, Name: "Environment"}
}

func (*EnvironmentTab) ExecuteOn() policy.RuntimeEvent {
	return policy.BeginRequest
}

func (*EnvironmentTab) Documentation() string {
	return "Displays the host process environment: machine, operating system, and Go runtime details."
}

func (*EnvironmentTab) Layout() any {
	return map[string]any{
		"rows": []string{"hostname", "os", "architecture", "goVersion", "numCpu", "pid"},
	}
}

func (t *EnvironmentTab) Setup(ctx context.Context, logger logr.Logger) error {
	hostname, err := os.Hostname()
	if err != nil {
		logger.Error(err, "Resolving hostname failed, leaving it empty")
	}
	t.payload = environmentPayload{
		Hostname:     hostname,
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		PID:          os.Getpid(),
	}
	return nil
}

func (t *EnvironmentTab) Collect(ctx context.Context, tc *collector.Context) (any, error) {
	return t.payload, nil
}
