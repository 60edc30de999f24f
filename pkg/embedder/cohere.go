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

package embedder

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

// CohereEmbedder calls the Cohere embeddings API. Requests go through the
// shared retrying HTTP client with Cohere's rate-limit headers honored.
type CohereEmbedder struct {
	client    *httpclient.Client
	apiKey    string
	baseURL   string
	model     string
	dimension int
}

type cohereEmbedRequest struct {
	Texts     []string `json:"texts"`
	Model     string   `json:"model,omitempty"`
	InputType string   `json:"input_type,omitempty"`
	Truncate  string   `json:"truncate,omitempty"`
}

type cohereEmbedResponse struct {
	ID         string      `json:"id"`
	Texts      []string    `json:"texts"`
	Embeddings [][]float32 `json:"embeddings"`
}

type cohereErrorResponse struct {
	Message string `json:"message"`
}

// NewCohereEmbedder builds the remote embedder from config.
func NewCohereEmbedder(cfg *config.EmbedderConfig) (*CohereEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required for Cohere embedder")
	}

	model := cfg.Model
	if model == "" {
		model = "embed-english-v3.0"
	}

	dimension := cfg.Dimension
	if dimension == 0 {
		switch model {
		case "embed-english-v3.0", "embed-multilingual-v3.0":
			dimension = 1024
		case "embed-english-light-v3.0", "embed-multilingual-light-v3.0":
			dimension = 384
		default:
			dimension = 1024
		}
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

	return &CohereEmbedder{
		client:    client,
		apiKey:    cfg.APIKey,
		baseURL:   baseURL,
		model:     model,
		dimension: dimension,
	}, nil
}

// EmbedWithContext embeds a single text.
func (e *CohereEmbedder) EmbedWithContext(ctx context.Context, text string, inputType InputType) ([]float32, error) {
	req := cohereEmbedRequest{
		Texts:     []string{text},
		Model:     e.model,
		InputType: string(inputType),
		Truncate:  "END",
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling embed request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embed", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("creating embed request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling Cohere embed API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading embed response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp cohereErrorResponse
		if jsonErr := json.Unmarshal(body, &errorResp); jsonErr == nil && errorResp.Message != "" {
			return nil, fmt.Errorf("Cohere API error: %s", errorResp.Message)
		}
		return nil, fmt.Errorf("Cohere API returned status %d: %s", resp.StatusCode, string(body))
	}

	var response cohereEmbedResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("decoding embed response: %w", err)
	}
	if len(response.Embeddings) == 0 {
		return nil, fmt.Errorf("received empty embedding from Cohere")
	}
	return response.Embeddings[0], nil
}

func (e *CohereEmbedder) GetDimension() int {
	return e.dimension
}

func (e *CohereEmbedder) GetModelName() string {
	return e.model
}

func (e *CohereEmbedder) Close() error {
	return nil
}
