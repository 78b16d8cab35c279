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
	"bytes"
	"net/http"
	"strconv"
	"strings"
)

// bufferedWriter delays the response until the diagnostics lifecycle has
// completed, so end-of-request header mutation and body injection can still
// happen after the application handler returned.
type bufferedWriter struct {
	underlying http.ResponseWriter
	buf        bytes.Buffer
	status     int
	flushed    bool
}

func newBufferedWriter(w http.ResponseWriter) *bufferedWriter {
	return &bufferedWriter{underlying: w, status: http.StatusOK}
}

func (w *bufferedWriter) Header() http.Header {
	return w.underlying.Header()
}

func (w *bufferedWriter) WriteHeader(statusCode int) {
	w.status = statusCode
}

func (w *bufferedWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

// flush writes the buffered response to the wire, injecting markup before
// the closing body tag when the payload looks like an HTML document. A
// missing body tag appends the markup instead of dropping it.
func (w *bufferedWriter) flush(injected string) error {
	if w.flushed {
		return nil
	}
	w.flushed = true

	body := w.buf.Bytes()
	if injected != "" && injectable(w.Header().Get("Content-Type"), body) {
		body = injectBeforeBodyClose(body, injected)
	}

	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.underlying.WriteHeader(w.status)
	_, err := w.underlying.Write(body)
	return err
}

func injectable(contentType string, body []byte) bool {
	if contentType != "" && !strings.Contains(strings.ToLower(contentType), "text/html") {
		return false
	}
	return len(body) > 0
}

func injectBeforeBodyClose(body []byte, injected string) []byte {
	idx := bytes.LastIndex(bytes.ToLower(body), []byte("</body>"))
	if idx < 0 {
		return append(body, injected...)
	}
	out := make([]byte, 0, len(body)+len(injected))
	out = append(out, body[:idx]...)
	out = append(out, injected...)
	out = append(out, body[idx:]...)
	return out
}
