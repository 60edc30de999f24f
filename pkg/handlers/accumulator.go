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
	"errors"
	"log/slog"
	"strings"

	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/sqlstore"
)

// ServiceUsage is the accumulator picture for one benefit service.
// Remaining is computed as max(limit - used, 0) unless reported directly.
type ServiceUsage struct {
	Used      float64 `json:"used"`
	Limit     float64 `json:"limit"`
	Remaining float64 `json:"remaining"`
}

// AccumulatorResult maps canonical service names to their usage.
type AccumulatorResult struct {
	Found    bool                    `json:"found"`
	MemberID string                  `json:"member_id"`
	Services map[string]ServiceUsage `json:"services,omitempty"`
	Message  string                  `json:"message,omitempty"`
}

// AccumulatorHandler answers benefit-usage questions from the transposed
// accumulators table.
type AccumulatorHandler struct {
	store  *sqlstore.Store
	table  string
	logger *slog.Logger
}

func NewAccumulatorHandler(store *sqlstore.Store, table string) *AccumulatorHandler {
	return &AccumulatorHandler{
		store:  store,
		table:  table,
		logger: slog.Default().With("handler", "accumulator"),
	}
}

func (h *AccumulatorHandler) Name() string {
	return "AccumulatorHandler"
}

// serviceAcc accumulates raw metric values before remaining resolution.
type serviceAcc struct {
	used, limit  float64
	remaining    float64
	hasRemaining bool
}

// Handle projects the member's accumulator column, narrowed to the named
// service when the query extracted one.
func (h *AccumulatorHandler) Handle(ctx context.Context, req Request) (any, error) {
	memberID := req.Entities.MemberID
	if memberID == "" {
		return nil, Validation("a member id is required to look up benefit usage")
	}
	return h.Lookup(ctx, memberID, req.Entities.Service)
}

// Lookup fetches the member's accumulator metrics, filtered to services
// whose names contain the requested service (case-insensitive). A member
// or service without accumulator rows yields found=false.
func (h *AccumulatorHandler) Lookup(ctx context.Context, memberID, service string) (AccumulatorResult, error) {
	if memberID == "" {
		return AccumulatorResult{}, Validation("a member id is required to look up benefit usage")
	}

	metrics, err := fetchMemberMetrics(ctx, h.store, h.table, memberID)
	if err != nil {
		var herr *Error
		if errors.As(err, &herr) && herr.Category == CategoryNotFound {
			return AccumulatorResult{
				Found:    false,
				MemberID: memberID,
				Message:  "no benefit usage found for member " + memberID,
			}, nil
		}
		return AccumulatorResult{}, err
	}

	accs := map[string]*serviceAcc{}
	for _, mv := range metrics {
		parsed, ok := parseAccumulatorMetric(mv.Metric)
		if !ok {
			h.logger.Debug("skipping unrecognized metric", "metric", mv.Metric)
			continue
		}
		if !mv.Value.Valid {
			continue
		}

		acc := accs[parsed.service]
		if acc == nil {
			acc = &serviceAcc{}
			accs[parsed.service] = acc
		}
		switch parsed.kind {
		case kindUsed:
			acc.used = mv.Value.Float64
		case kindLimit:
			acc.limit = mv.Value.Float64
		case kindRemaining:
			acc.remaining = mv.Value.Float64
			acc.hasRemaining = true
		}
	}

	services := make(map[string]ServiceUsage, len(accs))
	for name, acc := range accs {
		if service != "" && !strings.Contains(strings.ToLower(name), strings.ToLower(service)) {
			continue
		}
		usage := ServiceUsage{Used: acc.used, Limit: acc.limit}
		if acc.hasRemaining {
			usage.Remaining = acc.remaining
		} else {
			usage.Remaining = nonNegative(acc.limit - acc.used)
		}
		services[name] = usage
	}

	if len(services) == 0 {
		msg := "no accumulator metrics found for member " + memberID
		if service != "" {
			msg = "no accumulator found for service " + service + " and member " + memberID
		}
		return AccumulatorResult{Found: false, MemberID: memberID, Message: msg}, nil
	}

	return AccumulatorResult{Found: true, MemberID: memberID, Services: services}, nil
}
