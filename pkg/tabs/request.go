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

// Package tabs ships the built-in diagnostic collectors: the request tab,
// the environment tab, and the timeline display.
package tabs

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/llenroc/Glimpse/pkg/collector"
	"github.com/llenroc/Glimpse/pkg/policy"
)

const (
	tabType     = "tab"
	displayType = "display"
)

// RequestTab collects the inbound HTTP request attributes. It is constrained
// to hosts whose runtime context is a *http.Request, so non-HTTP hosts skip
// it without being configured differently.
type RequestTab struct{}

var _ collector.Tab = RequestTab{}
var _ collector.ContextConstrained = RequestTab{}
var _ collector.Documented = RequestTab{}

func (RequestTab) TypedName() collector.TypedName {
	return collector.TypedName{Type: tabType, Name: "Request"}
}

func (RequestTab) ExecuteOn() policy.RuntimeEvent {
	return policy.EndRequest
}

func (RequestTab) RuntimeContextType() reflect.Type {
	return reflect.TypeOf(&http.Request{})
}

func (RequestTab) Documentation() string {
	return "Displays the attributes of the inbound HTTP request: URL, method, headers, and cookies."
}

type requestPayload struct {
	Method        string            `json:"method"`
	Path          string            `json:"path"`
	RawQuery      string            `json:"rawQuery,omitempty"`
	Protocol      string            `json:"protocol"`
	Host          string            `json:"host"`
	RemoteAddr    string            `json:"remoteAddr"`
	ContentLength int64             `json:"contentLength"`
	Headers       map[string]string `json:"headers"`
	Cookies       map[string]string `json:"cookies"`
}

func (RequestTab) Collect(ctx context.Context, tc *collector.Context) (any, error) {
	r, ok := tc.Adapter.RuntimeContext().(*http.Request)
	if !ok {
		return nil, fmt.Errorf("runtime context is %T, want *http.Request", tc.Adapter.RuntimeContext())
	}

	headers := make(map[string]string, len(r.Header))
	for name, values := range r.Header {
		headers[name] = strings.Join(values, ", ")
	}
	cookies := map[string]string{}
	for _, c := range r.Cookies() {
		cookies[c.Name] = c.Value
	}

	return requestPayload{
		Method:        r.Method,
		Path:          r.URL.Path,
		RawQuery:      r.URL.RawQuery,
		Protocol:      r.Proto,
		Host:          r.Host,
		RemoteAddr:    r.RemoteAddr,
		ContentLength: r.ContentLength,
		Headers:       headers,
		Cookies:       cookies,
	}, nil
}
