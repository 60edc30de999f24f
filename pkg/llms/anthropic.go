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

package llms

import (
	"context"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/config"
)

// messageService is the slice of the Anthropic SDK the provider uses.
// Tests substitute a fake.
type messageService interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// AnthropicProvider generates text through the Anthropic Messages API.
type AnthropicProvider struct {
	messages    messageService
	model       string
	temperature float64
	maxTokens   int
}

// NewAnthropicProvider builds the provider from config.
func NewAnthropicProvider(cfg *config.LLMConfig) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required for Anthropic provider")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required for Anthropic provider")
	}

	client := sdk.NewClient(option.WithAPIKey(cfg.APIKey))

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2000
	}

	return &AnthropicProvider{
		messages:    &client.Messages,
		model:       cfg.Model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}, nil
}

// Generate runs a single-turn completion and concatenates the text blocks
// of the response.
func (p *AnthropicProvider) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.maxTokens
	}
	temperature := opts.Temperature
	if temperature == 0 {
		temperature = p.temperature
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(p.model),
		MaxTokens: int64(maxTokens),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	}
	params.Temperature = sdk.Float(temperature)
	if opts.System != "" {
		params.System = []sdk.TextBlockParam{{Text: opts.System}}
	}

	msg, err := p.messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("calling Anthropic API: %w", err)
	}
	if msg == nil {
		return "", fmt.Errorf("Anthropic API returned nil message")
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			sb.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("Anthropic API returned no text content")
	}
	return text, nil
}

func (p *AnthropicProvider) ModelName() string {
	return p.model
}

func (p *AnthropicProvider) Close() error {
	return nil
}
