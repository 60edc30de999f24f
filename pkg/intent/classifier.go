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

// Package intent classifies free-text benefit queries into a closed intent
// taxonomy and extracts the entities the downstream handlers need.
//
// Classification is pure pattern matching over keyword vocabularies; it
// performs no I/O and never fails. Queries that match nothing fall back to
// general_inquiry.
package intent

import (
	"fmt"
	"sort"
	"strings"
)

// Intent names one of the six routable query categories.
type Intent string

const (
	MemberVerification Intent = "member_verification"
	DeductibleOOP      Intent = "deductible_oop"
	BenefitAccumulator Intent = "benefit_accumulator"
	BenefitCoverageRAG Intent = "benefit_coverage_rag"
	LocalRAG           Intent = "local_rag"
	GeneralInquiry     Intent = "general_inquiry"
)

// All lists every intent in tie-break priority order.
var All = []Intent{
	MemberVerification,
	DeductibleOOP,
	BenefitAccumulator,
	BenefitCoverageRAG,
	LocalRAG,
	GeneralInquiry,
}

// Valid reports whether the intent belongs to the closed set.
func (i Intent) Valid() bool {
	for _, known := range All {
		if i == known {
			return true
		}
	}
	return false
}

// AgentName returns the handler that serves this intent. general_inquiry
// is answered by the orchestrator itself.
func (i Intent) AgentName() string {
	switch i {
	case MemberVerification:
		return "MemberHandler"
	case DeductibleOOP:
		return "DeductibleHandler"
	case BenefitAccumulator:
		return "AccumulatorHandler"
	case BenefitCoverageRAG:
		return "BenefitCoverageHandler"
	case LocalRAG:
		return "LocalDocHandler"
	default:
		return "OrchestrationAgent"
	}
}

// Result is the full classification outcome with provenance.
type Result struct {
	Intent         Intent         `json:"intent"`
	AgentName      string         `json:"agent_name"`
	Confidence     float64        `json:"confidence"`
	Reasoning      string         `json:"reasoning"`
	Entities       Entities       `json:"entities"`
	PatternMatches map[Intent]int `json:"pattern_matches"`
	FallbackIntent Intent         `json:"fallback_intent"`
}

var (
	documentTokens = []string{"uploaded", "upload", "document", "pdf", "attachment"}
	greetingTokens = []string{"hello", "hi", "hey", "help", "thanks", "thank you", "what can you do"}
)

// Classifier pattern-matches queries against the intent taxonomy.
type Classifier struct{}

// NewClassifier returns a stateless classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

var defaultClassifier = NewClassifier()

// Classify runs the default classifier. The classifier is stateless, so
// callers that do not need their own instance use this.
func Classify(query string, context map[string]any) Result {
	return defaultClassifier.Classify(query, context)
}

// Classify maps a query to an intent with extracted entities and a
// confidence score. It never fails; unmatchable queries return
// general_inquiry at confidence 0.3.
//
// Tie-break rules, in order:
//  1. benefit_accumulator wins over member_verification when both match
//     and a service is named.
//  2. member_id presence alone never outranks a usage or financial intent.
//  3. A query naming both a service and an uploaded document classifies
//     as local_rag: an explicit document reference always points at a
//     specific artifact, not at the general policy index.
//  4. Nothing scores: general_inquiry, confidence 0.3.
func (c *Classifier) Classify(query string, context map[string]any) Result {
	lower := strings.ToLower(query)
	entities := ExtractEntities(query, context)
	groups := GroupScores(lower)

	scores := c.scoreIntents(lower, entities, groups)

	winner, topScore := pickWinner(scores, entities)

	if topScore < 1 {
		return Result{
			Intent:         GeneralInquiry,
			AgentName:      GeneralInquiry.AgentName(),
			Confidence:     0.3,
			Reasoning:      "no intent patterns matched; defaulting to general inquiry",
			Entities:       entities,
			PatternMatches: scores,
			FallbackIntent: fallbackFor(scores, GeneralInquiry, entities),
		}
	}

	confidence := clamp01(0.3 + 0.15*float64(topScore) + 0.1*float64(entities.Count()))
	if entities.Count() > 0 && confidence < 0.5 {
		confidence = 0.5
	}

	return Result{
		Intent:         winner,
		AgentName:      winner.AgentName(),
		Confidence:     confidence,
		Reasoning:      buildReasoning(winner, topScore, entities),
		Entities:       entities,
		PatternMatches: scores,
		FallbackIntent: fallbackFor(scores, winner, entities),
	}
}

// scoreIntents counts pattern hits per intent from the group scores and
// extracted entities.
func (c *Classifier) scoreIntents(lower string, e Entities, groups map[QueryType]int) map[Intent]int {
	scores := map[Intent]int{
		MemberVerification: 0,
		DeductibleOOP:      0,
		BenefitAccumulator: 0,
		BenefitCoverageRAG: 0,
		LocalRAG:           0,
		GeneralInquiry:     0,
	}

	status := groups[QueryTypeStatus]
	usage := groups[QueryTypeUsageCount]
	financial := groups[QueryTypeFinancial]
	coverage := groups[QueryTypeCoverage]

	docHits := 0
	for _, tok := range documentTokens {
		if containsToken(lower, tok) {
			docHits++
		}
	}

	// member_verification: member id plus status vocabulary, unless the
	// usage group dominates the status group.
	if e.MemberID != "" && status > 0 && usage <= status {
		scores[MemberVerification] = 1 + status
	}

	// deductible_oop: financial vocabulary plus a member id.
	if financial > 0 && e.MemberID != "" {
		scores[DeductibleOOP] = 1 + financial
	}

	// benefit_accumulator: usage vocabulary plus a service or member id.
	// A named service is an extra signal (tie-break rule 1).
	if usage > 0 && (e.Service != "" || e.MemberID != "") {
		scores[BenefitAccumulator] = 1 + usage
		if e.Service != "" {
			scores[BenefitAccumulator]++
		}
	}

	// benefit_coverage_rag: coverage vocabulary with no member id and no
	// usage dominance.
	if coverage > 0 && e.MemberID == "" && usage == 0 && docHits == 0 {
		scores[BenefitCoverageRAG] = 1 + coverage
	}

	// local_rag: explicit document reference with no member id. Outranks
	// coverage when both would fire (tie-break rule 3).
	if docHits > 0 && e.MemberID == "" {
		scores[LocalRAG] = 1 + docHits
		if coverage > 0 {
			scores[LocalRAG]++
		}
	}

	for _, tok := range greetingTokens {
		if containsToken(lower, tok) {
			scores[GeneralInquiry]++
		}
	}

	return scores
}

// pickWinner selects the highest-scoring intent using the priority order
// of All, then applies the service tie-break.
func pickWinner(scores map[Intent]int, e Entities) (Intent, int) {
	winner := GeneralInquiry
	top := 0
	for _, i := range All {
		if scores[i] > top {
			winner = i
			top = scores[i]
		}
	}

	// Tie-break rule 1: a named service steers member/accumulator ties
	// toward the accumulator.
	if winner == MemberVerification && e.Service != "" &&
		scores[BenefitAccumulator] >= scores[MemberVerification] && scores[BenefitAccumulator] > 0 {
		winner = BenefitAccumulator
		top = scores[BenefitAccumulator]
	}

	return winner, top
}

// fallbackFor returns the second-highest scoring intent, or the closest
// intent by entity signals when nothing else scored.
func fallbackFor(scores map[Intent]int, winner Intent, e Entities) Intent {
	type scored struct {
		intent Intent
		score  int
	}
	rest := make([]scored, 0, len(scores))
	for _, i := range All {
		if i == winner {
			continue
		}
		rest = append(rest, scored{i, scores[i]})
	}
	sort.SliceStable(rest, func(a, b int) bool { return rest[a].score > rest[b].score })

	if len(rest) > 0 && rest[0].score > 0 {
		return rest[0].intent
	}
	if e.MemberID != "" && winner != MemberVerification {
		return MemberVerification
	}
	return GeneralInquiry
}

func buildReasoning(winner Intent, score int, e Entities) string {
	parts := []string{fmt.Sprintf("matched %d %s signal(s)", score, winner)}
	if e.MemberID != "" {
		parts = append(parts, "member_id extracted")
	}
	if e.Service != "" {
		parts = append(parts, fmt.Sprintf("service %q recognized", e.Service))
	}
	if e.QueryType != "" && e.QueryType != QueryTypeGeneral {
		parts = append(parts, fmt.Sprintf("query type %s", e.QueryType))
	}
	return strings.Join(parts, "; ")
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
