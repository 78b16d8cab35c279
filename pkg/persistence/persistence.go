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

// Package persistence defines the diagnostic snapshot shapes and the store
// backends they are saved to. Save failures are logged and swallowed by
// callers; they are never fatal to a request.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned by Load when no snapshot exists for a request id.
var ErrNotFound = errors.New("persistence: snapshot not found")

// Snapshot is the consolidated diagnostic record saved at end-of-request.
type Snapshot struct {
	RequestID      string            `json:"requestId"`
	Metadata       map[string]string `json:"metadata"`
	TabResults     map[string]any    `json:"tabResults"`
	DisplayResults map[string]any    `json:"displayResults"`
	Elapsed        time.Duration     `json:"elapsed"`
}

// TabMetadata is the per-collector documentation/layout published once at
// initialization.
type TabMetadata struct {
	Documentation string `json:"documentation,omitempty"`
	Layout        any    `json:"layout,omitempty"`
}

// Metadata is the process-wide record written once at initialization.
type Metadata struct {
	Version   string                 `json:"version"`
	Hash      string                 `json:"hash"`
	Tabs      map[string]TabMetadata `json:"tabs"`
	Resources map[string]string      `json:"resources"`
}

// Store persists snapshots and process metadata.
type Store interface {
	// Save persists one end-of-request snapshot. May fail; callers log and
	// continue.
	Save(ctx context.Context, snapshot *Snapshot) error
	// SaveMetadata persists the process-wide metadata record.
	SaveMetadata(ctx context.Context, metadata *Metadata) error
	// Load retrieves a previously saved snapshot, or ErrNotFound.
	Load(ctx context.Context, requestID string) (*Snapshot, error)
}

// Serializer converts snapshots to and from their wire form. The zero-config
// choice is JSON.
type Serializer interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONSerializer is the default Serializer.
type JSONSerializer struct{}

func (JSONSerializer) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONSerializer) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
