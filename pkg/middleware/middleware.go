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

// Package middleware embeds the diagnostics runtime into net/http hosts. The
// middleware drives the full request lifecycle: admission at begin-request,
// resource dispatch for endpoint requests, and end-of-request collection,
// persistence, and response decoration for everything else.
package middleware

import (
	"net/http"

	logutil "github.com/llenroc/Glimpse/pkg/util/logging"

	"github.com/llenroc/Glimpse/pkg/runtime"
)

// ResourceNameParam is the query parameter naming the resource to execute on
// diagnostics endpoint requests.
const ResourceNameParam = "n"

// Middleware returns a net/http middleware driving the given runtime. The
// runtime must be initialized before the first request arrives.
func Middleware(rt *runtime.Runtime) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return NewHandler(rt, next)
	}
}

// NewHandler wraps next with the diagnostics lifecycle.
func NewHandler(rt *runtime.Runtime, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		bw := newBufferedWriter(w)
		a := newHTTPAdapter(bw, r)

		handle, err := rt.BeginRequest(ctx, a)
		if err != nil {
			// An uninitialized runtime must never break the application.
			logutil.FromContext(ctx).Error(err, "Diagnostics begin-request failed, passing request through")
			next.ServeHTTP(w, r)
			return
		}
		if !handle.Available() {
			next.ServeHTTP(w, r)
			return
		}

		if handle.Mode() == runtime.ModeResource {
			serveResource(rt, handle, a, bw, r)
			return
		}

		defer handle.Dispose()
		next.ServeHTTP(bw, r)
		if err := rt.EndRequest(ctx, handle); err != nil {
			logutil.FromContext(ctx).Error(err, "Diagnostics end-request failed")
		}
		if err := bw.flush(a.injectedMarkup()); err != nil {
			logutil.FromContext(ctx).Error(err, "Flushing buffered response failed")
		}
	})
}

// serveResource handles a diagnostics endpoint request: the application
// handler never runs, the resource result is the whole response.
func serveResource(rt *runtime.Runtime, handle *runtime.Handle, a *httpAdapter, bw *bufferedWriter, r *http.Request) {
	ctx := r.Context()
	defer handle.Dispose()

	query := r.URL.Query()
	parameters := make(map[string]string, len(query))
	for key := range query {
		parameters[key] = query.Get(key)
	}
	name := parameters[ResourceNameParam]
	if name == "" {
		bw.Header().Set("Content-Type", "text/plain; charset=utf-8")
		bw.WriteHeader(http.StatusNotFound)
		bw.Write([]byte("unknown resource"))
	} else if err := rt.ExecuteResource(ctx, handle, name, parameters); err != nil {
		logutil.FromContext(ctx).Error(err, "Resource execution failed", "resource", name)
		bw.WriteHeader(http.StatusInternalServerError)
	}

	if err := rt.EndRequest(ctx, handle); err != nil {
		logutil.FromContext(ctx).Error(err, "Diagnostics end-request failed", "resource", name)
	}
	if err := bw.flush(""); err != nil {
		logutil.FromContext(ctx).Error(err, "Flushing resource response failed")
	}
}
