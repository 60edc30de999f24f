// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package orchestrator drives one request through intent analysis,
// handler dispatch and response assembly, with optional session history
// and batch processing.
package orchestrator

import "sync"

// Tool step names. The response is assembled from these capture keys,
// never from free-text narration.
const (
	stepAnalyzeQuery   = "analyze_query"
	stepRouteToAgent   = "route_to_agent"
	stepFormatResponse = "format_response"
)

// toolResultCapture records each tool step's structured output for one
// request. An instance is owned by the request that created it; it is
// never shared across requests.
type toolResultCapture struct {
	mu      sync.Mutex
	results map[string]any
}

func newToolResultCapture() *toolResultCapture {
	return &toolResultCapture{results: make(map[string]any)}
}

func (c *toolResultCapture) put(step string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[step] = value
}

func (c *toolResultCapture) get(step string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.results[step]
	return value, ok
}

func (c *toolResultCapture) getAll() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]any, len(c.results))
	for k, v := range c.results {
		out[k] = v
	}
	return out
}

func (c *toolResultCapture) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = make(map[string]any)
}
