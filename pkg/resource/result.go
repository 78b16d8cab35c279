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
	"fmt"
	"net/http"

	"github.com/llenroc/Glimpse/pkg/adapter"
)

// Result is the outcome of a resource invocation. Results render themselves
// into the response through the host adapter.
type Result interface {
	// StatusCode returns the HTTP status the result responds with.
	StatusCode() int
	// Respond writes the result into the response.
	Respond(a adapter.Adapter) error
}

// StatusResult is a plain status-and-message outcome. Resolution failures
// (missing or ambiguous resources) and policy denials are StatusResults, not
// errors.
type StatusResult struct {
	Code    int
	Message string
}

func (r *StatusResult) StatusCode() int {
	return r.Code
}

func (r *StatusResult) Respond(a adapter.Adapter) error {
	return a.WriteResponse(r.Code, "text/plain; charset=utf-8", []byte(r.Message))
}

// NewForbidden produces the 403 result used when policy blocks execution.
func NewForbidden(message string) *StatusResult {
	return &StatusResult{Code: http.StatusForbidden, Message: message}
}

// NewNotFound produces the 404 result used when no resource matches.
func NewNotFound(name string) *StatusResult {
	return &StatusResult{Code: http.StatusNotFound, Message: fmt.Sprintf("resource %q not found", name)}
}

// NewAmbiguous produces the 500 result used when a name matches more than
// one registered resource. Ambiguous registration is a configuration error,
// not a request error.
func NewAmbiguous(name string, count int) *StatusResult {
	return &StatusResult{
		Code:    http.StatusInternalServerError,
		Message: fmt.Sprintf("resource %q matched %d registrations", name, count),
	}
}

// NewExecutionError wraps an unexpected resource failure as a 500 result
// carrying the failure detail.
func NewExecutionError(name string, err error) *StatusResult {
	return &StatusResult{
		Code:    http.StatusInternalServerError,
		Message: fmt.Sprintf("resource %q failed: %v", name, err),
	}
}

// ContentResult responds with arbitrary content and content type.
type ContentResult struct {
	ContentType string
	Content     []byte
	Code        int
}

func (r *ContentResult) StatusCode() int {
	if r.Code == 0 {
		return http.StatusOK
	}
	return r.Code
}

func (r *ContentResult) Respond(a adapter.Adapter) error {
	return a.WriteResponse(r.StatusCode(), r.ContentType, r.Content)
}
