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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/config"
	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/httpclient"
)

// RerankResult reports a candidate's position in the original slice and
// its cross-encoder relevance score.
type RerankResult struct {
	Index int
	Score float64
}

// Reranker reorders retrieval candidates by relevance to the query.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string, topK int) ([]RerankResult, error)
}

// CohereReranker calls the Cohere rerank API through the shared retrying
// HTTP client.
type CohereReranker struct {
	client  *httpclient.Client
	apiKey  string
	baseURL string
	model   string
}

type cohereRerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n,omitempty"`
}

type cohereRerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// NewCohereReranker builds the reranker from config.
func NewCohereReranker(cfg *config.RerankerConfig) (*CohereReranker, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required for Cohere reranker")
	}

	model := cfg.Model
	if model == "" {
		model = "rerank-english-v3.0"
	}

	baseURL := cfg.Host
	if baseURL == "" {
		baseURL = "https://api.cohere.ai/v1"
	}

	timeout := 30 * time.Second
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}

	client := httpclient.New(
		httpclient.WithHTTPClient(&http.Client{Timeout: timeout}),
		httpclient.WithMaxRetries(maxRetries),
		httpclient.WithHeaderParser(httpclient.ParseCohereHeaders),
	)

	return &CohereReranker{
		client:  client,
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		model:   model,
	}, nil
}

// Rerank scores documents against the query and returns up to topK results
// ordered by descending relevance.
func (r *CohereReranker) Rerank(ctx context.Context, query string, documents []string, topK int) ([]RerankResult, error) {
	if len(documents) == 0 {
		return nil, nil
	}
	if topK <= 0 || topK > len(documents) {
		topK = len(documents)
	}

	req := cohereRerankRequest{
		Model:     r.model,
		Query:     query,
		Documents: documents,
		TopN:      topK,
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling rerank request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/rerank", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("creating rerank request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling Cohere rerank API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading rerank response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp struct {
			Message string `json:"message"`
		}
		if jsonErr := json.Unmarshal(body, &errorResp); jsonErr == nil && errorResp.Message != "" {
			return nil, fmt.Errorf("Cohere API error: %s", errorResp.Message)
		}
		return nil, fmt.Errorf("Cohere API returned status %d: %s", resp.StatusCode, string(body))
	}

	var response cohereRerankResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("decoding rerank response: %w", err)
	}

	results := make([]RerankResult, 0, len(response.Results))
	for _, res := range response.Results {
		if res.Index < 0 || res.Index >= len(documents) {
			continue
		}
		results = append(results, RerankResult{Index: res.Index, Score: res.RelevanceScore})
	}
	return results, nil
}
