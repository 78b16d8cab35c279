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

// Package script generates the diagnostic client script markup injected into
// host responses. Script URIs are either resolved through the resource
// endpoint URI template or supplied statically per version.
package script

import (
	"html"
	"sort"
	"strings"

	"github.com/go-logr/logr"

	logutil "github.com/llenroc/Glimpse/pkg/util/logging"
)

// Template tokens understood by Resolve.
const (
	TokenBase      = "{base}"
	TokenResource  = "{resource}"
	TokenRequestID = "{requestId}"
	TokenVersion   = "{version}"
	TokenHash      = "{hash}"
)

// DefaultTemplate is the resource endpoint URI template used when the
// configuration does not supply one.
const DefaultTemplate = "{base}?n={resource}&requestId={requestId}&version={version}&hash={hash}"

// Encoder escapes text for use in HTML attribute values.
type Encoder interface {
	Encode(s string) string
}

// HTMLEncoder is the default Encoder, backed by the standard library's HTML
// escaping.
type HTMLEncoder struct{}

func (HTMLEncoder) Encode(s string) string {
	return html.EscapeString(s)
}

// ClientScript describes one script tag to emit. Tags are emitted in
// ascending declared order.
type ClientScript interface {
	Order() int
}

// Dynamic is a ClientScript whose URI is resolved through the resource
// endpoint URI template against a named resource.
type Dynamic interface {
	ClientScript
	ResourceName() string
}

// Static is a ClientScript with a fixed, versioned URI.
type Static interface {
	ClientScript
	URI(version string) string
}

// ParameterOverrider is an optional Dynamic capability supplying additional
// template substitutions for that script.
type ParameterOverrider interface {
	OverrideParameters() map[string]string
}

// Generator renders the ordered script tag markup for a request.
type Generator struct {
	BaseURI  string
	Template string
	Version  string
	Hash     string
	Scripts  []ClientScript
	Encoder  Encoder
}

// Generate returns the concatenated script tags for the given request id, in
// declared order. Scripts that resolve to an empty URI are skipped.
// Per-request idempotence is enforced by the caller via the request store.
func (g *Generator) Generate(requestID string, logger logr.Logger) string {
	template := g.Template
	if template == "" {
		template = DefaultTemplate
	}
	encoder := g.Encoder
	if encoder == nil {
		encoder = HTMLEncoder{}
	}

	ordered := make([]ClientScript, len(g.Scripts))
	copy(ordered, g.Scripts)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order() < ordered[j].Order() })

	var markup strings.Builder
	for _, cs := range ordered {
		uri := g.resolveURI(cs, template, requestID)
		if uri == "" {
			logger.V(logutil.DEBUG).Info("Client script resolved to an empty URI, skipping", "order", cs.Order())
			continue
		}
		markup.WriteString(`<script type="text/javascript" src="`)
		markup.WriteString(encoder.Encode(uri))
		markup.WriteString(`"></script>`)
	}
	return markup.String()
}

func (g *Generator) resolveURI(cs ClientScript, template, requestID string) string {
	switch s := cs.(type) {
	case Dynamic:
		params := map[string]string{
			TokenBase:      g.BaseURI,
			TokenResource:  s.ResourceName(),
			TokenRequestID: requestID,
			TokenVersion:   g.Version,
			TokenHash:      g.Hash,
		}
		if overrider, ok := cs.(ParameterOverrider); ok {
			for k, v := range overrider.OverrideParameters() {
				params["{"+k+"}"] = v
			}
		}
		return Resolve(template, params)
	case Static:
		return s.URI(g.Version)
	}
	return ""
}

// Resolve substitutes the given token values into a URI template. Tokens
// without a value are left intact.
func Resolve(template string, params map[string]string) string {
	resolved := template
	for token, value := range params {
		resolved = strings.ReplaceAll(resolved, token, value)
	}
	return resolved
}
