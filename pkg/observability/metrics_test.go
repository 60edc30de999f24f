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

package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitMetrics_Disabled(t *testing.T) {
	m, err := InitMetrics(false)
	require.NoError(t, err)
	require.NotNil(t, m)

	// Disabled recorders must be safe to call.
	m.RecordOrchestration(context.Background(), "member_verification", time.Second, true, "")
	m.RecordRAGQuery(context.Background(), "benefits", time.Second, true)
	m.RecordIndexing(context.Background(), "benefits", 10, 2)
}

func TestMetrics_NilReceiverSafe(t *testing.T) {
	var m *Metrics
	m.RecordOrchestration(context.Background(), "x", time.Second, false, "internal")
	m.RecordRAGQuery(context.Background(), "x", time.Second, false)
	m.RecordIndexing(context.Background(), "x", 0, 0)
}

func TestInitMetrics_Enabled(t *testing.T) {
	m, err := InitMetrics(true)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.NotNil(t, m.requestsTotal)

	m.RecordOrchestration(context.Background(), "deductible_oop", 20*time.Millisecond, false, "validation")
	m.RecordRAGQuery(context.Background(), "benefits", 50*time.Millisecond, true)
	m.RecordIndexing(context.Background(), "benefits", 42, 1)
}
