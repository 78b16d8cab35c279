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

package script

// DynamicScript is the standard Dynamic implementation: a script tag whose
// URI resolves through the endpoint template against a named resource.
type DynamicScript struct {
	Resource string
	Ordering int
}

var _ Dynamic = DynamicScript{}

func (s DynamicScript) Order() int {
	return s.Ordering
}

func (s DynamicScript) ResourceName() string {
	return s.Resource
}

// StaticScript is the standard Static implementation: a script tag with a
// fixed URI, optionally stamped with the framework version.
type StaticScript struct {
	Location string
	Ordering int
}

var _ Static = StaticScript{}

func (s StaticScript) Order() int {
	return s.Ordering
}

func (s StaticScript) URI(version string) string {
	return Resolve(s.Location, map[string]string{TokenVersion: version})
}
