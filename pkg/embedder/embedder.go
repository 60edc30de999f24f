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

// Package embedder provides text-embedding providers: a remote
// Cohere-style API for the policy index and a local Ollama instance for
// uploaded documents.
package embedder

import (
	"context"
	"fmt"

	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/config"
)

// InputType distinguishes document embeddings from query embeddings for
// providers whose models are asymmetric.
type InputType string

const (
	InputDocument InputType = "search_document"
	InputQuery    InputType = "search_query"
)

// Provider is the embedding contract.
type Provider interface {
	// EmbedWithContext embeds one text.
	EmbedWithContext(ctx context.Context, text string, inputType InputType) ([]float32, error)

	// GetDimension returns the vector size this provider produces.
	GetDimension() int

	// GetModelName returns the underlying model identifier.
	GetModelName() string

	Close() error
}

// New builds a provider from configuration.
func New(cfg *config.EmbedderConfig) (Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("embedder config cannot be nil")
	}
	switch cfg.Type {
	case "cohere":
		return NewCohereEmbedder(cfg)
	case "ollama":
		return NewOllamaEmbedder(cfg)
	default:
		return nil, fmt.Errorf("unsupported embedder type: %s", cfg.Type)
	}
}
