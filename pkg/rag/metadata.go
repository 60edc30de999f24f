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

package rag

import "strings"

const maxCPTCodes = 10

// detectSectionTitle returns the first heading-like line: a markdown
// heading or a short line ending in a colon.
func detectSectionTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			return strings.TrimSpace(strings.TrimLeft(line, "# "))
		}
		if strings.HasSuffix(line, ":") && len(strings.Fields(line)) <= 8 {
			return strings.TrimSuffix(line, ":")
		}
	}
	return ""
}

var benefitCategories = []struct {
	category string
	keywords []string
}{
	{"therapy", []string{"therapy", "therapist", "chiropract", "acupuncture", "massage", "rehabilitation"}},
	{"diagnostic", []string{"diagnostic", "x-ray", "imaging", "laboratory", "lab test", "mri", "ct scan"}},
	{"preventive", []string{"preventive", "screening", "immunization", "vaccine", "wellness", "checkup"}},
}

// detectBenefitCategory maps chunk text onto a coarse benefit family.
func detectBenefitCategory(content string) string {
	lower := strings.ToLower(content)
	for _, bc := range benefitCategories {
		for _, kw := range bc.keywords {
			if strings.Contains(lower, kw) {
				return bc.category
			}
		}
	}
	return ""
}

// detectCoverageType classifies the coverage stance of a chunk. Exclusion
// wording is checked before the bare "covered" keyword: "not covered"
// must not read as covered.
func detectCoverageType(content string) string {
	lower := strings.ToLower(content)
	switch {
	case strings.Contains(lower, "not covered"),
		strings.Contains(lower, "excluded"),
		strings.Contains(lower, "exclusion"):
		return "excluded"
	case strings.Contains(lower, "prior authorization"),
		strings.Contains(lower, "pre-authorization"),
		strings.Contains(lower, "preauthorization"):
		return "prior_auth_required"
	case strings.Contains(lower, "covered"), strings.Contains(lower, "coverage"):
		return "covered"
	default:
		return ""
	}
}

// extractCPTCodes collects up to 10 distinct 5-digit procedure codes in
// order of appearance.
func extractCPTCodes(content string) []string {
	matches := cptCodePattern.FindAllString(content, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	var codes []string
	for _, m := range matches {
		if seen[m] {
			continue
		}
		seen[m] = true
		codes = append(codes, m)
		if len(codes) == maxCPTCodes {
			break
		}
	}
	return codes
}
