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

// Package config assembles the pieces a host registers with the diagnostics
// runtime: collectors, policy rules, resources, storage, scripts, and the
// endpoint settings.
package config

import (
	"fmt"
	"hash/fnv"

	"github.com/go-logr/logr"

	"github.com/llenroc/Glimpse/pkg/collector"
	"github.com/llenroc/Glimpse/pkg/persistence"
	"github.com/llenroc/Glimpse/pkg/policy"
	"github.com/llenroc/Glimpse/pkg/resource"
	"github.com/llenroc/Glimpse/pkg/script"
	"github.com/llenroc/Glimpse/version"
)

// DefaultEndpointBaseURI is the diagnostics endpoint path used when the host
// does not configure one.
const DefaultEndpointBaseURI = "/glimpse"

// Config is the runtime configuration. A Config is registered exactly once;
// re-initializing the runtime with a different Config is an error.
type Config struct {
	// DefaultRuntimePolicy is the policy evaluation starts from when no
	// value has been stored for the request yet.
	DefaultRuntimePolicy policy.Policy

	// Tabs are the lifecycle-scoped collectors, in registration order.
	Tabs []collector.Tab
	// Displays are the render-time collectors, in registration order.
	Displays []collector.Display
	// Policies are the runtime policy rules, in registration order.
	Policies []policy.Rule
	// Resources are the named operations reachable through the endpoint.
	Resources []resource.Resource
	// DefaultResource names the designated default diagnostic resource.
	DefaultResource string

	// Storage persists end-of-request snapshots and process metadata.
	Storage persistence.Store
	// Serializer converts snapshots to their wire form.
	Serializer persistence.Serializer
	// Logger receives runtime log output.
	Logger logr.Logger

	// HTMLEncoder escapes generated markup attribute values.
	HTMLEncoder script.Encoder
	// ClientScripts describe the script tags injected into host responses.
	ClientScripts []script.ClientScript

	// EndpointBaseURI is the path prefix the diagnostics endpoint answers on.
	EndpointBaseURI string
	// EndpointTemplate is the URI template resource script URIs resolve
	// through.
	EndpointTemplate string

	// Version stamps generated URIs and persisted metadata.
	Version string
	// Hash is the configuration content hash; derived when empty.
	Hash string
}

// Validate normalizes defaults and rejects configurations the runtime cannot
// operate with.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config: nil configuration")
	}
	for i, t := range c.Tabs {
		if t == nil {
			return fmt.Errorf("config: tab at index %d is nil", i)
		}
	}
	for i, d := range c.Displays {
		if d == nil {
			return fmt.Errorf("config: display at index %d is nil", i)
		}
	}
	for i, p := range c.Policies {
		if p == nil {
			return fmt.Errorf("config: policy rule at index %d is nil", i)
		}
	}
	for i, r := range c.Resources {
		if r == nil {
			return fmt.Errorf("config: resource at index %d is nil", i)
		}
	}

	if c.EndpointBaseURI == "" {
		c.EndpointBaseURI = DefaultEndpointBaseURI
	}
	if c.EndpointTemplate == "" {
		c.EndpointTemplate = script.DefaultTemplate
	}
	if c.DefaultResource == "" {
		c.DefaultResource = resource.ClientScriptResourceName
	}
	if c.Storage == nil {
		c.Storage = persistence.NewMemoryStore(0)
	}
	if c.Serializer == nil {
		c.Serializer = persistence.JSONSerializer{}
	}
	if c.HTMLEncoder == nil {
		c.HTMLEncoder = script.HTMLEncoder{}
	}
	if c.Logger.IsZero() {
		c.Logger = logr.Discard()
	}
	if c.Version == "" {
		c.Version = version.Version
	}
	if c.Hash == "" {
		c.Hash = c.contentHash()
	}
	return nil
}

// contentHash derives a stable stamp from the registered surface, used to
// bust client caches when the configuration changes.
func (c *Config) contentHash() string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%s", c.Version, c.EndpointBaseURI, c.DefaultResource)
	for _, t := range c.Tabs {
		fmt.Fprintf(h, "|tab:%s", t.TypedName())
	}
	for _, d := range c.Displays {
		fmt.Fprintf(h, "|display:%s", d.TypedName())
	}
	for _, r := range c.Resources {
		fmt.Fprintf(h, "|resource:%s", r.Name())
	}
	for _, p := range c.Policies {
		fmt.Fprintf(h, "|policy:%s", p.Name())
	}
	return fmt.Sprintf("%x", h.Sum64())
}

// The accessors below satisfy the configuration view handed to privileged
// resources.

func (c *Config) FrameworkVersion() string {
	return c.Version
}

func (c *Config) ContentHash() string {
	return c.Hash
}

func (c *Config) Persistence() persistence.Store {
	return c.Storage
}

func (c *Config) ResourceEndpoint() string {
	return c.EndpointBaseURI
}
