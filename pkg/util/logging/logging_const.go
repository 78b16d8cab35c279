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

package logging

const (
	// DEFAULT is the default logging level.
	DEFAULT = 2
	// VERBOSE is between DEFAULT and DEBUG.
	VERBOSE = 3
	// DEBUG is used for development debugging.
	DEBUG = 4
	// TRACE is used for high-frequency per-request details.
	TRACE = 5
)
