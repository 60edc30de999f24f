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
	"sync"
	"time"

	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/config"
)

// OllamaEmbedder calls a local Ollama instance. Embeds are serialized:
// a local model under concurrent load degrades badly, and the local
// document store never needs throughput.
type OllamaEmbedder struct {
	client    *http.Client
	baseURL   string
	model     string
	dimension int

	mu sync.Mutex
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// NewOllamaEmbedder builds the local embedder from config.
func NewOllamaEmbedder(cfg *config.EmbedderConfig) (*OllamaEmbedder, error) {
	model := cfg.Model
	if model == "" {
		model = "nomic-embed-text"
	}
	baseURL := cfg.Host
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	dimension := cfg.Dimension
	if dimension == 0 {
		dimension = 768
	}
	timeout := 60 * time.Second
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}

	return &OllamaEmbedder{
		client:    &http.Client{Timeout: timeout},
		baseURL:   baseURL,
		model:     model,
		dimension: dimension,
	}, nil
}

// EmbedWithContext embeds one text. Ollama's embedding endpoint is
// symmetric, so the input type is ignored.
func (e *OllamaEmbedder) EmbedWithContext(ctx context.Context, text string, _ InputType) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	reqBody, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshaling embed request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embeddings", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("creating embed request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling Ollama embed API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading embed response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Ollama API returned status %d: %s", resp.StatusCode, string(body))
	}

	var response ollamaEmbedResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("decoding embed response: %w", err)
	}
	if len(response.Embedding) == 0 {
		return nil, fmt.Errorf("received empty embedding from Ollama")
	}
	return response.Embedding, nil
}

func (e *OllamaEmbedder) GetDimension() int {
	return e.dimension
}

func (e *OllamaEmbedder) GetModelName() string {
	return e.model
}

func (e *OllamaEmbedder) Close() error {
	return nil
}
