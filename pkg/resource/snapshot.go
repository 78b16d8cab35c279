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
	"encoding/json"
	"errors"
	"net/http"

	"github.com/llenroc/Glimpse/pkg/adapter"
	"github.com/llenroc/Glimpse/pkg/persistence"
)

// SnapshotResource fetches a persisted diagnostic snapshot by request id.
// It needs the persistence store, so it only works through the privileged
// execution path.
type SnapshotResource struct{}

func (SnapshotResource) Name() string {
	return SnapshotResourceName
}

func (SnapshotResource) Parameters() []Parameter {
	return []Parameter{{Name: "requestId", Required: true}}
}

func (SnapshotResource) Execute(_ context.Context, _ *Context) Result {
	return &StatusResult{
		Code:    http.StatusInternalServerError,
		Message: "snapshot resource requires privileged execution",
	}
}

func (SnapshotResource) ExecutePrivileged(ctx context.Context, rc *Context, cfg Configurator, _ adapter.Adapter) Result {
	requestID := rc.Parameters["requestId"]
	if requestID == "" {
		return &StatusResult{Code: http.StatusBadRequest, Message: "parameter requestId is required"}
	}
	snapshot, err := cfg.Persistence().Load(ctx, requestID)
	if errors.Is(err, persistence.ErrNotFound) {
		return NewNotFound(requestID)
	}
	if err != nil {
		return NewExecutionError(SnapshotResourceName, err)
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return NewExecutionError(SnapshotResourceName, err)
	}
	return &ContentResult{
		ContentType: "application/json; charset=utf-8",
		Content:     payload,
	}
}
