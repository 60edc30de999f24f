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

package orchestrator

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/intent"
)

// RoutingResult is the structured output of the route_to_agent step.
type RoutingResult struct {
	Success       bool   `json:"success" mapstructure:"success"`
	Intent        string `json:"intent" mapstructure:"intent"`
	AgentName     string `json:"agent_name" mapstructure:"agent_name"`
	Result        any    `json:"result,omitempty" mapstructure:"result"`
	Error         string `json:"error,omitempty" mapstructure:"error"`
	ErrorCategory string `json:"error_category,omitempty" mapstructure:"error_category"`
}

// decodeAnalysis reads an analyze_query capture entry. Entries written
// by this process are the typed struct; entries replayed from a tool
// transcript arrive as maps, hence the mapstructure fallback.
func decodeAnalysis(value any) (intent.Result, error) {
	switch v := value.(type) {
	case intent.Result:
		return v, nil
	case *intent.Result:
		return *v, nil
	}

	var result intent.Result
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &result,
	})
	if err != nil {
		return intent.Result{}, err
	}
	if err := decoder.Decode(value); err != nil {
		return intent.Result{}, fmt.Errorf("decoding analyze_query capture: %w", err)
	}
	return result, nil
}

// decodeRouting reads a route_to_agent capture entry.
func decodeRouting(value any) (RoutingResult, error) {
	switch v := value.(type) {
	case RoutingResult:
		return v, nil
	case *RoutingResult:
		return *v, nil
	}

	var result RoutingResult
	if err := mapstructure.Decode(value, &result); err != nil {
		return RoutingResult{}, fmt.Errorf("decoding route_to_agent capture: %w", err)
	}
	return result, nil
}

// formatResult renders a one-line summary of the routing outcome. The
// format_response step is cosmetic; correctness never depends on it.
func formatResult(routing RoutingResult) string {
	if !routing.Success {
		if routing.Error != "" {
			return fmt.Sprintf("%s could not complete the request: %s", routing.AgentName, routing.Error)
		}
		return fmt.Sprintf("%s could not complete the request", routing.AgentName)
	}
	return fmt.Sprintf("%s handled a %s request", routing.AgentName, routing.Intent)
}
