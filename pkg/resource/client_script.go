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
	"net/http"
)

// Built-in resource names.
const (
	ClientScriptResourceName = "glimpse_client"
	SnapshotResourceName     = "glimpse_snapshot"
)

// clientBootstrap is the script served to browsers. It fetches the persisted
// snapshot for the originating request and logs it to the console; richer
// clients replace this resource with their own bundle.
const clientBootstrap = `(function (window) {
	'use strict';
	var script = document.currentScript || (function () {
		var all = document.getElementsByTagName('script');
		return all[all.length - 1];
	})();
	var src = script && script.src ? new URL(script.src, window.location.href) : null;
	if (!src) { return; }
	var requestId = src.searchParams.get('requestId');
	if (!requestId) { return; }
	var dataUri = src.origin + src.pathname + '?n=` + SnapshotResourceName + `&requestId=' + encodeURIComponent(requestId);
	fetch(dataUri, { credentials: 'same-origin' })
		.then(function (res) { return res.ok ? res.json() : null; })
		.then(function (data) {
			if (!data) { return; }
			window.glimpse = { requestId: requestId, data: data };
			if (window.console && window.console.debug) {
				console.debug('[glimpse]', requestId, data);
			}
		})
		.catch(function () { /* diagnostics are best-effort */ });
})(window);
`

// ClientScriptResource serves the diagnostic client bootstrap script. It is
// the designated default resource; its declared dependencies share its
// policy derivation so the client keeps working when the page-level policy
// degraded.
type ClientScriptResource struct{}

func (ClientScriptResource) Name() string {
	return ClientScriptResourceName
}

func (ClientScriptResource) Parameters() []Parameter {
	return []Parameter{
		{Name: "requestId", Required: false},
		{Name: "version", Required: false},
		{Name: "hash", Required: false},
	}
}

func (ClientScriptResource) Dependencies() []string {
	return []string{SnapshotResourceName}
}

func (ClientScriptResource) Execute(_ context.Context, _ *Context) Result {
	return &ContentResult{
		ContentType: "application/javascript; charset=utf-8",
		Content:     []byte(clientBootstrap),
		Code:        http.StatusOK,
	}
}
