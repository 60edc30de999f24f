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

import (
	"regexp"
	"strings"
)

// Chunk is the unit of embedding and retrieval: a contiguous slice of
// page text plus enriched metadata.
type Chunk struct {
	Content         string   `json:"content"`
	Source          string   `json:"source"`
	Page            int      `json:"page"`
	SectionTitle    string   `json:"section_title,omitempty"`
	BenefitCategory string   `json:"benefit_category,omitempty"`
	CoverageType    string   `json:"coverage_type,omitempty"`
	CPTCodes        []string `json:"cpt_codes,omitempty"`
	HasCostInfo     bool     `json:"has_cost_info"`
	HasTables       bool     `json:"has_tables"`
}

// Adaptive chunk-size targets in characters by paragraph content type.
const (
	chunkTargetTable   = 600
	chunkTargetDefault = 1000
	chunkTargetSparse  = 1500
)

var (
	paragraphSplit = regexp.MustCompile(`\n\s*\n`)
	columnRun      = regexp.MustCompile(`\S {3,}\S`)
	cptCodePattern = regexp.MustCompile(`\b\d{5}\b`)
)

// chunkTarget classifies a paragraph and returns its target chunk size.
// Table-like content gets small chunks so a single row neighborhood stays
// coherent; sparse text gets large chunks to keep enough context.
func chunkTarget(paragraph string) int {
	if strings.Contains(paragraph, "|") ||
		strings.Contains(paragraph, "[TABLE:") ||
		columnRun.MatchString(paragraph) ||
		cptCodePattern.MatchString(paragraph) {
		return chunkTargetTable
	}
	if len(strings.Fields(paragraph)) < 20 {
		return chunkTargetSparse
	}
	return chunkTargetDefault
}

// ChunkDocument splits a document at blank-line boundaries and
// accumulates paragraphs into chunks of adaptive size. Paragraphs are
// never split mid-way; a paragraph larger than its target becomes a
// chunk of its own. defaultSize overrides the default target when > 0.
func ChunkDocument(doc Document, defaultSize int) []Chunk {
	paragraphs := paragraphSplit.Split(doc.Content, -1)

	var chunks []Chunk
	var current strings.Builder

	flush := func() {
		content := strings.TrimSpace(current.String())
		current.Reset()
		if content == "" {
			return
		}
		chunks = append(chunks, enrichChunk(content, doc))
	}

	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		target := chunkTarget(p)
		if target == chunkTargetDefault && defaultSize > 0 {
			target = defaultSize
		}

		if current.Len() > 0 && current.Len()+len(p) > target {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
	}
	flush()

	return chunks
}

// enrichChunk attaches the detected metadata to a chunk's content.
func enrichChunk(content string, doc Document) Chunk {
	return Chunk{
		Content:         content,
		Source:          doc.Source,
		Page:            doc.Page,
		SectionTitle:    detectSectionTitle(content),
		BenefitCategory: detectBenefitCategory(content),
		CoverageType:    detectCoverageType(content),
		CPTCodes:        extractCPTCodes(content),
		HasCostInfo:     strings.Contains(content, "$"),
		HasTables:       doc.HasTables && strings.Contains(content, "[TABLE:"),
	}
}
