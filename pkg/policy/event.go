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

package policy

// RuntimeEvent identifies a point in the request lifecycle. Values are flags
// so that rules and collectors can declare several applicable events at once.
type RuntimeEvent uint8

const (
	BeginRequest RuntimeEvent = 1 << iota
	BeginSessionAccess
	EndSessionAccess
	ExecuteResource
	EndRequest
)

// Matches reports whether e is contained in the given event mask.
func (e RuntimeEvent) Matches(mask RuntimeEvent) bool {
	return e&mask != 0
}

func (e RuntimeEvent) String() string {
	switch e {
	case BeginRequest:
		return "BeginRequest"
	case BeginSessionAccess:
		return "BeginSessionAccess"
	case EndSessionAccess:
		return "EndSessionAccess"
	case ExecuteResource:
		return "ExecuteResource"
	case EndRequest:
		return "EndRequest"
	}
	return "Unknown"
}
