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

package handlers

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/intent"
)

func TestParseAccumulatorMetric(t *testing.T) {
	tests := []struct {
		name   string
		want   accumulatorMetric
		wantOK bool
	}{
		{"Massage Therapy Used", accumulatorMetric{"Massage Therapy", kindUsed}, true},
		{"Massage Therapy Limit", accumulatorMetric{"Massage Therapy", kindLimit}, true},
		{"Chiropractic Remaining", accumulatorMetric{"Chiropractic", kindRemaining}, true},
		{"Physical Therapy used", accumulatorMetric{"Physical Therapy", kindUsed}, true},
		{"Acupuncture", accumulatorMetric{}, false},
		{"Massage Therapy Total", accumulatorMetric{}, false},
	}
	for _, tt := range tests {
		got, ok := parseAccumulatorMetric(tt.name)
		assert.Equal(t, tt.wantOK, ok, "metric %q", tt.name)
		if ok {
			assert.Equal(t, tt.want, got, "metric %q", tt.name)
		}
	}
}

func TestAccumulatorHandler(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT "Metric", "M1001" FROM benefit_accumulators`).
		WillReturnRows(sqlmock.NewRows([]string{"Metric", "M1001"}).
			AddRow("Massage Therapy Used", 4.0).
			AddRow("Massage Therapy Limit", 12.0).
			AddRow("Chiropractic Used", 2.0).
			AddRow("Chiropractic Limit", 20.0))

	h := NewAccumulatorHandler(store, "benefit_accumulators")
	result, err := h.Handle(context.Background(), Request{
		Query:    "How many massage therapy visits has member M1001 used?",
		Entities: intent.Entities{MemberID: "M1001", Service: "Massage Therapy"},
	})
	require.NoError(t, err)

	acc := result.(AccumulatorResult)
	assert.True(t, acc.Found)
	require.Contains(t, acc.Services, "Massage Therapy")
	usage := acc.Services["Massage Therapy"]
	assert.Equal(t, 4.0, usage.Used)
	assert.Equal(t, 12.0, usage.Limit)
	assert.Equal(t, 8.0, usage.Remaining)
	assert.Len(t, acc.Services, 1, "named service narrows the result")
}

func TestAccumulatorHandler_AllServicesWhenNoneNamed(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT "Metric", "M1001" FROM benefit_accumulators`).
		WillReturnRows(sqlmock.NewRows([]string{"Metric", "M1001"}).
			AddRow("Massage Therapy Used", 4.0).
			AddRow("Massage Therapy Limit", 12.0).
			AddRow("Chiropractic Used", 2.0).
			AddRow("Chiropractic Limit", 20.0))

	h := NewAccumulatorHandler(store, "benefit_accumulators")
	result, err := h.Handle(context.Background(), Request{
		Entities: intent.Entities{MemberID: "M1001"},
	})
	require.NoError(t, err)

	acc := result.(AccumulatorResult)
	assert.Len(t, acc.Services, 2)
}

func TestAccumulatorHandler_ReportedRemainingWins(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT "Metric", "M1001" FROM benefit_accumulators`).
		WillReturnRows(sqlmock.NewRows([]string{"Metric", "M1001"}).
			AddRow("Acupuncture Used", 3.0).
			AddRow("Acupuncture Limit", 10.0).
			AddRow("Acupuncture Remaining", 6.0))

	h := NewAccumulatorHandler(store, "benefit_accumulators")
	result, err := h.Handle(context.Background(), Request{
		Entities: intent.Entities{MemberID: "M1001"},
	})
	require.NoError(t, err)

	acc := result.(AccumulatorResult)
	assert.Equal(t, 6.0, acc.Services["Acupuncture"].Remaining)
}

func TestAccumulatorHandler_UnknownService(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT "Metric", "M1001" FROM benefit_accumulators`).
		WillReturnRows(sqlmock.NewRows([]string{"Metric", "M1001"}).
			AddRow("Massage Therapy Used", 4.0))

	h := NewAccumulatorHandler(store, "benefit_accumulators")
	result, err := h.Lookup(context.Background(), "M1001", "Vision")
	require.NoError(t, err)

	acc := result
	assert.False(t, acc.Found)
	assert.Contains(t, acc.Message, "Vision")
}

func TestAccumulatorHandler_ServiceSubstringFilter(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT "Metric", "M1001" FROM benefit_accumulators`).
		WillReturnRows(sqlmock.NewRows([]string{"Metric", "M1001"}).
			AddRow("Massage Therapy Used", 4.0).
			AddRow("Massage Therapy Limit", 12.0).
			AddRow("Physical Therapy Used", 6.0).
			AddRow("Physical Therapy Limit", 30.0))

	h := NewAccumulatorHandler(store, "benefit_accumulators")
	result, err := h.Lookup(context.Background(), "M1001", "massage")
	require.NoError(t, err)

	assert.True(t, result.Found)
	assert.Len(t, result.Services, 1)
	assert.Contains(t, result.Services, "Massage Therapy")
}

func TestAccumulatorHandler_MissingMemberID(t *testing.T) {
	store, _ := newMockStore(t)
	h := NewAccumulatorHandler(store, "benefit_accumulators")

	_, err := h.Handle(context.Background(), Request{
		Entities: intent.Entities{Service: "Massage Therapy"},
	})
	var herr *Error
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, CategoryValidation, herr.Category)
}

func TestGeneralHandler(t *testing.T) {
	h := NewGeneralHandler()
	result, err := h.Handle(context.Background(), Request{Query: "Hello"})
	require.NoError(t, err)

	general := result.(GeneralResult)
	assert.NotEmpty(t, general.Message)
	assert.Contains(t, general.Message, "benefits")
}
