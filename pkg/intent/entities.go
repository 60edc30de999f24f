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

package intent

import (
	"regexp"
	"strings"
)

// QueryType categorizes what a query is asking for.
type QueryType string

const (
	QueryTypeStatus     QueryType = "status"
	QueryTypeCoverage   QueryType = "coverage"
	QueryTypeUsageCount QueryType = "usage_count"
	QueryTypeFinancial  QueryType = "financial"
	QueryTypeGeneral    QueryType = "general"
)

// Entities holds the structured values extracted from a query.
type Entities struct {
	MemberID  string    `json:"member_id,omitempty"`
	DOB       string    `json:"dob,omitempty"`
	Name      string    `json:"name,omitempty"`
	Service   string    `json:"service,omitempty"`
	QueryType QueryType `json:"query_type,omitempty"`
}

// Count returns the number of extracted entity signals. A non-general
// query type counts as a signal.
func (e Entities) Count() int {
	n := 0
	if e.MemberID != "" {
		n++
	}
	if e.DOB != "" {
		n++
	}
	if e.Name != "" {
		n++
	}
	if e.Service != "" {
		n++
	}
	if e.QueryType != "" && e.QueryType != QueryTypeGeneral {
		n++
	}
	return n
}

var (
	memberIDPattern = regexp.MustCompile(`[A-Za-z][0-9]{3,}`)
	dobPattern      = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
)

// serviceVocabulary maps recognized service phrases to their canonical
// form, matching the metric naming in the accumulator table. Longest
// phrase wins, so "massage therapy" is tried before "massage".
var serviceVocabulary = []struct {
	phrase    string
	canonical string
}{
	{"massage therapy", "Massage Therapy"},
	{"physical therapy", "Physical Therapy"},
	{"chiropractic", "Chiropractic"},
	{"chiropractor", "Chiropractic"},
	{"acupuncture", "Acupuncture"},
	{"massage", "Massage Therapy"},
	{"pt", "Physical Therapy"},
}

var keywordGroups = map[QueryType][]string{
	QueryTypeStatus:     {"active", "eligible", "valid", "verify"},
	QueryTypeUsageCount: {"how many", "count", "used", "visits", "remaining"},
	QueryTypeFinancial:  {"deductible", "oop", "out-of-pocket", "copay"},
	QueryTypeCoverage:   {"covered", "coverage", "includes", "benefits"},
}

// ExtractEntities pulls structured entities out of free text. Context
// values (member_id, dob, name) supplement what the text yields; the text
// always wins when both are present.
func ExtractEntities(query string, context map[string]any) Entities {
	e := Entities{}
	lower := strings.ToLower(query)

	if m := memberIDPattern.FindString(query); m != "" {
		e.MemberID = strings.ToUpper(m)
	}
	if d := dobPattern.FindString(query); d != "" {
		e.DOB = d
	}
	e.Service = matchService(lower)
	e.QueryType = inferQueryType(lower, e.Service)

	if context != nil {
		if e.MemberID == "" {
			if v, ok := context["member_id"].(string); ok {
				e.MemberID = strings.ToUpper(v)
			}
		}
		if e.DOB == "" {
			if v, ok := context["dob"].(string); ok {
				e.DOB = v
			}
		}
		if v, ok := context["name"].(string); ok {
			e.Name = v
		}
	}

	return e
}

// matchService returns the canonical service for the longest vocabulary
// phrase found in the query, or "".
func matchService(lower string) string {
	best := ""
	bestLen := 0
	for _, entry := range serviceVocabulary {
		if !containsToken(lower, entry.phrase) {
			continue
		}
		if len(entry.phrase) > bestLen {
			best = entry.canonical
			bestLen = len(entry.phrase)
		}
	}
	return best
}

// containsToken reports whether phrase occurs in s on word boundaries.
// Plain substring matching would turn "department" into "pt".
func containsToken(s, phrase string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], phrase)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(phrase)
		beforeOK := start == 0 || !isWordChar(s[start-1])
		afterOK := end == len(s) || !isWordChar(s[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// GroupScores counts keyword hits per query-type group. The "how many"
// bigram is a strong usage signal and counts double.
func GroupScores(lower string) map[QueryType]int {
	scores := make(map[QueryType]int, len(keywordGroups))
	for group, words := range keywordGroups {
		for _, w := range words {
			if containsToken(lower, w) {
				if w == "how many" {
					scores[group] += 2
				} else {
					scores[group]++
				}
			}
		}
	}
	return scores
}

// inferQueryType picks the dominant keyword group. Ties go to usage_count
// when a service is named (a counted service strongly implies a usage
// question), otherwise financial > coverage > status.
func inferQueryType(lower, service string) QueryType {
	scores := GroupScores(lower)

	max := 0
	for _, s := range scores {
		if s > max {
			max = s
		}
	}
	if max == 0 {
		return QueryTypeGeneral
	}

	order := []QueryType{QueryTypeFinancial, QueryTypeCoverage, QueryTypeStatus, QueryTypeUsageCount}
	if service != "" {
		order = []QueryType{QueryTypeUsageCount, QueryTypeFinancial, QueryTypeCoverage, QueryTypeStatus}
	}
	for _, qt := range order {
		if scores[qt] == max {
			return qt
		}
	}
	return QueryTypeGeneral
}
