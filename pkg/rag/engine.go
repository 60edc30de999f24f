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
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/config"
	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/embedder"
	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/llms"
	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/vector"
)

const sourceContentLimit = 500

const groundedSystemPrompt = `You are a medical benefits assistant. Answer the question using ONLY the numbered sources below. Cite sources as [1], [2] and so on. If the sources do not contain the answer, say so plainly. Never invent benefit amounts, limits, or coverage rules.`

// SourceRef is one retrieved source as surfaced to the caller. Content is
// truncated for transport; the full text stays in the vector store.
type SourceRef struct {
	SourceID    int            `json:"source_id"`
	Content     string         `json:"content"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Similarity  float32        `json:"similarity"`
	RerankScore *float64       `json:"rerank_score,omitempty"`
}

// QueryResult is the grounded-answer payload.
type QueryResult struct {
	Success            bool        `json:"success"`
	Answer             string      `json:"answer,omitempty"`
	Sources            []SourceRef `json:"sources,omitempty"`
	Question           string      `json:"question"`
	RetrievedDocsCount int         `json:"retrieved_docs_count"`
	Error              string      `json:"error,omitempty"`
}

// Engine answers questions grounded in an indexed document set.
type Engine struct {
	vectors  vector.Provider
	embedder embedder.Provider
	llm      llms.Provider
	reranker Reranker
	cfg      *config.RAGConfig
	retryer  *Retryer
	logger   *slog.Logger
}

// NewEngine wires the query engine. reranker may be nil.
func NewEngine(vectors vector.Provider, emb embedder.Provider, llm llms.Provider, reranker Reranker, cfg *config.RAGConfig, logger *slog.Logger) *Engine {
	return &Engine{
		vectors:  vectors,
		embedder: emb,
		llm:      llm,
		reranker: reranker,
		cfg:      cfg,
		retryer:  NewRetryer(),
		logger:   logger,
	}
}

// Query embeds the question, retrieves candidates, optionally reranks,
// and generates a grounded answer. Retrieval failures return an error;
// generation failures return a result with the sources and Success false
// so the caller can still show what was found.
func (e *Engine) Query(ctx context.Context, question, indexName string, k int, useReranker bool) (*QueryResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question cannot be empty")
	}
	if indexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if k <= 0 {
		k = e.cfg.TopK
	}

	queryVec, err := DoWithResult(ctx, e.retryer, func() ([]float32, error) {
		return e.embedder.EmbedWithContext(ctx, question, embedder.InputQuery)
	})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	// Over-fetch so the reranker has candidates to discard.
	fetchK := 2 * k
	if fetchK > e.cfg.CandidateCap {
		fetchK = e.cfg.CandidateCap
	}
	candidates, err := e.vectors.Search(ctx, indexName, queryVec, fetchK)
	if err != nil {
		return nil, &SearchError{Collection: indexName, Err: err}
	}
	if len(candidates) == 0 {
		return &QueryResult{
			Success:  true,
			Answer:   "No relevant documents were found for this question.",
			Question: question,
		}, nil
	}

	sources := e.selectSources(ctx, question, candidates, k, useReranker)

	if e.llm == nil {
		return &QueryResult{
			Success:            false,
			Sources:            sources,
			Question:           question,
			RetrievedDocsCount: len(candidates),
			Error:              "generation unavailable: no LLM configured",
		}, nil
	}

	prompt := e.buildPrompt(question, sources)
	answer, err := e.llm.Generate(ctx, prompt, llms.GenerateOptions{
		System: groundedSystemPrompt,
	})
	if err != nil {
		e.logger.Error("answer generation failed",
			"index", indexName,
			"error", err)
		return &QueryResult{
			Success:            false,
			Sources:            sources,
			Question:           question,
			RetrievedDocsCount: len(candidates),
			Error:              fmt.Sprintf("generation failed: %v", err),
		}, nil
	}

	return &QueryResult{
		Success:            true,
		Answer:             answer,
		Sources:            sources,
		Question:           question,
		RetrievedDocsCount: len(candidates),
	}, nil
}

// selectSources orders candidates, via the reranker when enabled, and
// trims to k. A rerank failure degrades to retrieval order.
func (e *Engine) selectSources(ctx context.Context, question string, candidates []vector.Result, k int, useReranker bool) []SourceRef {
	type picked struct {
		result      vector.Result
		rerankScore *float64
	}

	var ordered []picked
	if useReranker && e.reranker != nil {
		docs := make([]string, len(candidates))
		for i, c := range candidates {
			docs[i] = c.Content
		}
		ranked, err := e.reranker.Rerank(ctx, question, docs, k)
		if err != nil {
			e.logger.Warn("rerank failed, using retrieval order", "error", err)
		} else {
			for _, r := range ranked {
				score := r.Score
				ordered = append(ordered, picked{result: candidates[r.Index], rerankScore: &score})
			}
		}
	}
	if ordered == nil {
		for _, c := range candidates {
			ordered = append(ordered, picked{result: c})
		}
	}
	if len(ordered) > k {
		ordered = ordered[:k]
	}

	sources := make([]SourceRef, len(ordered))
	for i, p := range ordered {
		content := p.result.Content
		if len(content) > sourceContentLimit {
			content = content[:sourceContentLimit] + "..."
		}
		sources[i] = SourceRef{
			SourceID:    i + 1,
			Content:     content,
			Metadata:    p.result.Metadata,
			Similarity:  p.result.Score,
			RerankScore: p.rerankScore,
		}
	}
	return sources
}

// buildPrompt joins numbered source texts under the context token budget
// and appends the question. Sources that would blow the budget are
// dropped, never truncated mid-text.
func (e *Engine) buildPrompt(question string, sources []SourceRef) string {
	var b strings.Builder
	b.WriteString("Sources:\n\n")

	budget := e.cfg.ContextTokenBudget
	used := countTokens(b.String())
	for _, s := range sources {
		entry := fmt.Sprintf("[%d] %s\n\n", s.SourceID, s.Content)
		cost := countTokens(entry)
		if budget > 0 && used+cost > budget {
			break
		}
		b.WriteString(entry)
		used += cost
	}

	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}
