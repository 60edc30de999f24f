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
	"strings"

	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/sqlstore"
)

// fetchMemberMetrics reads a member's column from a transposed wide table
// and maps store failures onto the error taxonomy.
func fetchMemberMetrics(ctx context.Context, store *sqlstore.Store, table, memberID string) ([]sqlstore.MetricValue, error) {
	metrics, err := store.MemberMetrics(ctx, table, memberID)
	if err == nil {
		return metrics, nil
	}

	var invalid *sqlstore.InvalidIdentifierError
	if errors.As(err, &invalid) {
		return nil, Validation("member id contains invalid characters")
	}
	var notFound *sqlstore.NotFoundError
	if errors.As(err, &notFound) {
		return nil, NewError(CategoryNotFound, "no benefit data found for member "+memberID, err)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil, NewError(CategoryCancelled, "benefit lookup cancelled", err)
	}
	return nil, NewError(CategoryIntegrationTransient, "benefit data source unavailable", err)
}

// metricKind is the trailing qualifier of a metric name.
type metricKind int

const (
	kindBase metricKind = iota
	kindMet
	kindRemaining
	kindUsed
	kindLimit
)

// deductibleMetric is a parsed row of the deductibles table. Metric names
// follow "<Family> <Coverage> <Tier> [met|Remaining]", e.g.
// "Deductible IND PPO met".
type deductibleMetric struct {
	family   string // "deductible" or "oop"
	coverage string // "individual" or "family"
	tier     string // "ppo", "par", "oon"
	kind     metricKind
}

// parseDeductibleMetric parses a deductibles-table metric name. The
// second return is false for metric names outside the scheme.
func parseDeductibleMetric(name string) (deductibleMetric, bool) {
	tokens := strings.Fields(name)
	if len(tokens) < 3 || len(tokens) > 4 {
		return deductibleMetric{}, false
	}

	var m deductibleMetric
	switch strings.ToLower(tokens[0]) {
	case "deductible":
		m.family = "deductible"
	case "oop":
		m.family = "oop"
	default:
		return deductibleMetric{}, false
	}

	switch strings.ToUpper(tokens[1]) {
	case "IND":
		m.coverage = "individual"
	case "FAM":
		m.coverage = "family"
	default:
		return deductibleMetric{}, false
	}

	switch strings.ToUpper(tokens[2]) {
	case "PPO":
		m.tier = "ppo"
	case "PAR":
		m.tier = "par"
	case "OON":
		m.tier = "oon"
	default:
		return deductibleMetric{}, false
	}

	m.kind = kindBase
	if len(tokens) == 4 {
		switch strings.ToLower(tokens[3]) {
		case "met":
			m.kind = kindMet
		case "remaining":
			m.kind = kindRemaining
		default:
			return deductibleMetric{}, false
		}
	}
	return m, true
}

// accumulatorMetric is a parsed row of the accumulators table. Metric
// names follow "<Service> Used|Limit|Remaining".
type accumulatorMetric struct {
	service string
	kind    metricKind
}

func parseAccumulatorMetric(name string) (accumulatorMetric, bool) {
	tokens := strings.Fields(name)
	if len(tokens) < 2 {
		return accumulatorMetric{}, false
	}

	var kind metricKind
	switch strings.ToLower(tokens[len(tokens)-1]) {
	case "used":
		kind = kindUsed
	case "limit":
		kind = kindLimit
	case "remaining":
		kind = kindRemaining
	default:
		return accumulatorMetric{}, false
	}

	return accumulatorMetric{
		service: strings.Join(tokens[:len(tokens)-1], " "),
		kind:    kind,
	}, true
}
