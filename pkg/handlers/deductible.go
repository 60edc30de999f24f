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

// TierAmounts is the deductible/OOP picture for one network tier. Fields
// the table has no value for stay nil and are omitted from the response.
// Remaining values are computed as max(base - met, 0) when the table does
// not report them directly and both inputs are present.
type TierAmounts struct {
	Deductible          *float64 `json:"deductible,omitempty"`
	DeductibleMet       *float64 `json:"deductible_met,omitempty"`
	DeductibleRemaining *float64 `json:"deductible_remaining,omitempty"`
	OOP                 *float64 `json:"oop,omitempty"`
	OOPMet              *float64 `json:"oop_met,omitempty"`
	OOPRemaining        *float64 `json:"oop_remaining,omitempty"`
}

func amount(v float64) *float64 { return &v }

// DeductibleResult groups tier amounts by coverage level. Tier keys are
// "ppo", "par" and "oon".
type DeductibleResult struct {
	Found      bool                   `json:"found"`
	MemberID   string                 `json:"member_id"`
	Individual map[string]TierAmounts `json:"individual,omitempty"`
	Family     map[string]TierAmounts `json:"family,omitempty"`
	Message    string                 `json:"message,omitempty"`
}

// DeductibleHandler answers deductible and out-of-pocket questions from
// the transposed deductibles table.
type DeductibleHandler struct {
	store  *sqlstore.Store
	table  string
	logger *slog.Logger
}

func NewDeductibleHandler(store *sqlstore.Store, table string) *DeductibleHandler {
	return &DeductibleHandler{
		store:  store,
		table:  table,
		logger: slog.Default().With("handler", "deductible"),
	}
}

func (h *DeductibleHandler) Name() string {
	return "DeductibleHandler"
}

// tierAcc accumulates raw metric values for one tier before remaining
// values are resolved.
type tierAcc struct {
	deductible, deductibleMet, deductibleRemaining float64
	oop, oopMet, oopRemaining                      float64

	hasDeductible, hasDeductibleMet, hasDeductibleRemaining bool
	hasOOP, hasOOPMet, hasOOPRemaining                      bool
}

func (a *tierAcc) finalize() TierAmounts {
	var t TierAmounts
	if a.hasDeductible {
		t.Deductible = amount(a.deductible)
	}
	if a.hasDeductibleMet {
		t.DeductibleMet = amount(a.deductibleMet)
	}
	switch {
	case a.hasDeductibleRemaining:
		t.DeductibleRemaining = amount(a.deductibleRemaining)
	case a.hasDeductible && a.hasDeductibleMet:
		t.DeductibleRemaining = amount(nonNegative(a.deductible - a.deductibleMet))
	}

	if a.hasOOP {
		t.OOP = amount(a.oop)
	}
	if a.hasOOPMet {
		t.OOPMet = amount(a.oopMet)
	}
	switch {
	case a.hasOOPRemaining:
		t.OOPRemaining = amount(a.oopRemaining)
	case a.hasOOP && a.hasOOPMet:
		t.OOPRemaining = amount(nonNegative(a.oop - a.oopMet))
	}
	return t
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// Handle projects the member's deductible column and assembles the
// per-coverage, per-tier result.
func (h *DeductibleHandler) Handle(ctx context.Context, req Request) (any, error) {
	memberID := req.Entities.MemberID
	if memberID == "" {
		return nil, Validation("a member id is required to look up deductible information")
	}
	return h.Lookup(ctx, memberID, "", "")
}

// Lookup fetches the member's deductible metrics, optionally restricted
// to a plan type ("individual"/"family") and network tier
// ("ppo"/"par"/"oon"). A member without deductible rows yields found=false
// rather than an error.
func (h *DeductibleHandler) Lookup(ctx context.Context, memberID, planType, network string) (DeductibleResult, error) {
	if memberID == "" {
		return DeductibleResult{}, Validation("a member id is required to look up deductible information")
	}
	planType = normalizePlanType(planType)
	network = strings.ToLower(network)

	metrics, err := fetchMemberMetrics(ctx, h.store, h.table, memberID)
	if err != nil {
		var herr *Error
		if errors.As(err, &herr) && herr.Category == CategoryNotFound {
			return DeductibleResult{
				Found:    false,
				MemberID: memberID,
				Message:  "no deductible information found for member " + memberID,
			}, nil
		}
		return DeductibleResult{}, err
	}

	accs := map[string]map[string]*tierAcc{
		"individual": {},
		"family":     {},
	}
	for _, mv := range metrics {
		parsed, ok := parseDeductibleMetric(mv.Metric)
		if !ok {
			h.logger.Debug("skipping unrecognized metric", "metric", mv.Metric)
			continue
		}
		if !mv.Value.Valid {
			continue
		}
		if planType != "" && parsed.coverage != planType {
			continue
		}
		if network != "" && parsed.tier != network {
			continue
		}

		tiers := accs[parsed.coverage]
		acc := tiers[parsed.tier]
		if acc == nil {
			acc = &tierAcc{}
			tiers[parsed.tier] = acc
		}

		v := mv.Value.Float64
		switch parsed.family {
		case "deductible":
			switch parsed.kind {
			case kindBase:
				acc.deductible = v
				acc.hasDeductible = true
			case kindMet:
				acc.deductibleMet = v
				acc.hasDeductibleMet = true
			case kindRemaining:
				acc.deductibleRemaining = v
				acc.hasDeductibleRemaining = true
			}
		case "oop":
			switch parsed.kind {
			case kindBase:
				acc.oop = v
				acc.hasOOP = true
			case kindMet:
				acc.oopMet = v
				acc.hasOOPMet = true
			case kindRemaining:
				acc.oopRemaining = v
				acc.hasOOPRemaining = true
			}
		}
	}

	result := DeductibleResult{Found: true, MemberID: memberID}
	if tiers := finalizeTiers(accs["individual"]); len(tiers) > 0 {
		result.Individual = tiers
	}
	if tiers := finalizeTiers(accs["family"]); len(tiers) > 0 {
		result.Family = tiers
	}

	if result.Individual == nil && result.Family == nil {
		result.Found = false
		result.Message = "no deductible metrics found for member " + memberID
	}
	return result, nil
}

// normalizePlanType maps the table's IND/FAM vocabulary onto the result
// bucket names.
func normalizePlanType(planType string) string {
	switch strings.ToLower(planType) {
	case "ind", "individual":
		return "individual"
	case "fam", "family":
		return "family"
	default:
		return ""
	}
}

func finalizeTiers(accs map[string]*tierAcc) map[string]TierAmounts {
	if len(accs) == 0 {
		return nil
	}
	tiers := make(map[string]TierAmounts, len(accs))
	for tier, acc := range accs {
		tiers[tier] = acc.finalize()
	}
	return tiers
}
