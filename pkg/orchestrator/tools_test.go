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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/intent"
)

func TestDecodeAnalysis_TypedAndMapForms(t *testing.T) {
	typed := intent.Result{Intent: intent.DeductibleOOP, AgentName: "DeductibleHandler", Confidence: 0.75}

	decoded, err := decodeAnalysis(typed)
	require.NoError(t, err)
	assert.Equal(t, typed, decoded)

	decoded, err = decodeAnalysis(&typed)
	require.NoError(t, err)
	assert.Equal(t, typed, decoded)

	// Tool-transcript replay: the step output arrives as a JSON map.
	decoded, err = decodeAnalysis(map[string]any{
		"intent":     "deductible_oop",
		"agent_name": "DeductibleHandler",
		"confidence": 0.75,
		"entities":   map[string]any{"member_id": "M1001"},
	})
	require.NoError(t, err)
	assert.Equal(t, intent.DeductibleOOP, decoded.Intent)
	assert.Equal(t, 0.75, decoded.Confidence)
	assert.Equal(t, "M1001", decoded.Entities.MemberID)
}

func TestDecodeRouting_MapForm(t *testing.T) {
	decoded, err := decodeRouting(map[string]any{
		"success":    true,
		"intent":     "member_verification",
		"agent_name": "MemberHandler",
		"result":     map[string]any{"valid": true},
	})
	require.NoError(t, err)
	assert.True(t, decoded.Success)
	assert.Equal(t, "MemberHandler", decoded.AgentName)
}

func TestFormatResult(t *testing.T) {
	assert.Equal(t, "MemberHandler handled a member_verification request",
		formatResult(RoutingResult{Success: true, Intent: "member_verification", AgentName: "MemberHandler"}))

	assert.Contains(t,
		formatResult(RoutingResult{AgentName: "DeductibleHandler", Error: "member id is required"}),
		"member id is required")

	assert.Contains(t,
		formatResult(RoutingResult{AgentName: "DeductibleHandler"}),
		"could not complete")
}
