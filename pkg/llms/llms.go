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

// Package llms provides the text-generation provider used for grounded
// RAG answers and intent disambiguation.
package llms

import (
	"context"
	"fmt"

	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/config"
)

// GenerateOptions tune a single generation call. Zero values fall back to
// provider defaults.
type GenerateOptions struct {
	System      string
	Temperature float64
	MaxTokens   int
}

// Provider is the generation contract.
type Provider interface {
	// Generate produces a completion for the prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// ModelName returns the underlying model identifier.
	ModelName() string

	Close() error
}

// New builds a provider from configuration.
func New(cfg *config.LLMConfig) (Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("llm config cannot be nil")
	}
	switch cfg.Type {
	case "anthropic":
		return NewAnthropicProvider(cfg)
	default:
		return nil, fmt.Errorf("unsupported llm type: %s", cfg.Type)
	}
}
