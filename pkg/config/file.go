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

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/llenroc/Glimpse/pkg/policy"
)

// FileSettings are the host-tunable defaults loadable from a YAML file.
// Collectors, rules, and resources are code and stay programmatic.
type FileSettings struct {
	DefaultPolicy   string `yaml:"defaultPolicy"`
	EndpointBaseURI string `yaml:"endpointBaseUri"`
	Version         string `yaml:"version"`
}

// LoadFile reads FileSettings from a YAML file.
func LoadFile(path string) (*FileSettings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	settings := &FileSettings{}
	if err := yaml.Unmarshal(raw, settings); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return settings, nil
}

// Apply copies the populated settings onto the configuration.
func (f *FileSettings) Apply(c *Config) error {
	if f.DefaultPolicy != "" {
		p, err := policy.Parse(f.DefaultPolicy)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		c.DefaultRuntimePolicy = p
	}
	if f.EndpointBaseURI != "" {
		c.EndpointBaseURI = f.EndpointBaseURI
	}
	if f.Version != "" {
		c.Version = f.Version
	}
	return nil
}
