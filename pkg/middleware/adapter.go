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

package middleware

import (
	"net/http"
	"strings"

	"github.com/llenroc/Glimpse/pkg/adapter"
	"github.com/llenroc/Glimpse/pkg/runtime"
	"github.com/llenroc/Glimpse/pkg/state"
)

// httpMetadata adapts *http.Request to the read-only request attributes the
// runtime inspects.
type httpMetadata struct {
	request *http.Request
}

func (m httpMetadata) Path() string {
	return m.request.URL.Path
}

func (m httpMetadata) Method() string {
	return m.request.Method
}

func (m httpMetadata) Cookie(name string) string {
	c, err := m.request.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func (m httpMetadata) ClientID() string {
	return m.Cookie(runtime.ClientIDCookie)
}

// httpAdapter is the per-request adapter for net/http hosts. One instance
// serves exactly one request; all response mutation goes through the
// buffered writer so it can still happen after the application handler
// returned.
type httpAdapter struct {
	request        *http.Request
	writer         *bufferedWriter
	store          state.Store
	injections     strings.Builder
	headersBlocked bool
}

var _ adapter.Adapter = (*httpAdapter)(nil)

func newHTTPAdapter(w *bufferedWriter, r *http.Request) *httpAdapter {
	return &httpAdapter{
		request: r,
		writer:  w,
		store:   state.NewMemoryStore(),
	}
}

func (a *httpAdapter) RequestMetadata() adapter.RequestMetadata {
	return httpMetadata{request: a.request}
}

func (a *httpAdapter) RuntimeContext() any {
	return a.request
}

func (a *httpAdapter) RequestStore() state.Store {
	return a.store
}

func (a *httpAdapter) SetResponseHeader(name, value string) {
	if a.headersBlocked {
		return
	}
	a.writer.Header().Set(name, value)
}

func (a *httpAdapter) SetCookie(name, value string) {
	if a.headersBlocked {
		return
	}
	http.SetCookie(a.writer, &http.Cookie{
		Name:  name,
		Value: value,
		Path:  "/",
	})
}

func (a *httpAdapter) InjectResponseBody(content string) {
	a.injections.WriteString(content)
}

func (a *httpAdapter) PreventResponseHeaderWrites() {
	a.headersBlocked = true
}

func (a *httpAdapter) WriteResponse(status int, contentType string, body []byte) error {
	if contentType != "" {
		a.writer.Header().Set("Content-Type", contentType)
	}
	a.writer.WriteHeader(status)
	_, err := a.writer.Write(body)
	return err
}

func (a *httpAdapter) injectedMarkup() string {
	return a.injections.String()
}
