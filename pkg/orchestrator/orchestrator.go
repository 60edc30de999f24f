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

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/config"
	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/handlers"
	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/intent"
	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/llms"
)

// Request is one orchestration call.
type Request struct {
	Prompt    string         `json:"prompt"`
	SessionID string         `json:"session_id,omitempty"`
	Context   map[string]any `json:"context,omitempty"`

	// PreserveHistory overrides the configured default when set.
	PreserveHistory *bool `json:"preserve_history,omitempty"`
}

// Response is the structured outcome of one orchestration call.
type Response struct {
	Success           bool            `json:"success"`
	Intent            string          `json:"intent"`
	Agent             string          `json:"agent"`
	Confidence        float64         `json:"confidence"`
	Result            any             `json:"result,omitempty"`
	Reasoning         string          `json:"reasoning,omitempty"`
	ExtractedEntities intent.Entities `json:"extracted_entities"`
	Query             string          `json:"query"`
	Formatted         string          `json:"formatted_response,omitempty"`
	Error             string          `json:"error,omitempty"`
	ErrorCategory     string          `json:"error_category,omitempty"`
}

// Orchestrator routes prompts to registered handlers. Dispatch is
// deterministic code-path dispatch; the LLM is consulted only to
// disambiguate intent when classifier confidence is below the configured
// threshold, and its answer is constrained to the known intent set.
type Orchestrator struct {
	registry map[intent.Intent]handlers.Handler
	llm      llms.Provider
	cfg      *config.OrchestratorConfig
	sessions *SessionStore
	logger   *slog.Logger
}

// New builds an orchestrator. llm may be nil, which disables
// disambiguation.
func New(cfg *config.OrchestratorConfig, llm llms.Provider, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		registry: make(map[intent.Intent]handlers.Handler),
		llm:      llm,
		cfg:      cfg,
		sessions: NewSessionStore(cfg.MaxHistory),
		logger:   logger,
	}
}

// Register binds a handler to an intent. Not safe to call concurrently
// with Process; registration happens at startup.
func (o *Orchestrator) Register(in intent.Intent, h handlers.Handler) {
	o.registry[in] = h
}

// Sessions exposes the history store for the query/clear operations.
func (o *Orchestrator) Sessions() *SessionStore {
	return o.sessions
}

// Process runs one prompt through the tool sequence: analyze_query,
// route_to_agent, then optional format_response, and assembles the
// response from the capture.
func (o *Orchestrator) Process(ctx context.Context, req Request) *Response {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return &Response{
			Success:       false,
			Query:         req.Prompt,
			Error:         "prompt cannot be empty",
			ErrorCategory: string(handlers.CategoryValidation),
		}
	}

	reqID := uuid.NewString()
	capture := newToolResultCapture()

	analysis := intent.Classify(prompt, req.Context)
	analysis = o.maybeDisambiguate(ctx, prompt, analysis)
	capture.put(stepAnalyzeQuery, analysis)

	routing := o.route(ctx, analysis, prompt, req.Context)
	capture.put(stepRouteToAgent, routing)

	capture.put(stepFormatResponse, formatResult(routing))

	response := o.assemble(ctx, capture, prompt, req.Context)

	if req.SessionID != "" && o.preserve(req.PreserveHistory) {
		o.sessions.Append(req.SessionID, HistoryItem{
			Query:      prompt,
			Intent:     response.Intent,
			Confidence: response.Confidence,
			Agent:      response.Agent,
			Success:    response.Success,
		})
	}

	o.logger.Debug("request processed",
		"request_id", reqID,
		"intent", response.Intent,
		"agent", response.Agent,
		"success", response.Success)

	capture.clear()
	return response
}

func (o *Orchestrator) preserve(override *bool) bool {
	if override != nil {
		return *override
	}
	return o.cfg.PreserveHistory
}

// maybeDisambiguate asks the LLM to pick an intent when the classifier
// is unsure. Anything outside the known intent set is discarded and the
// classifier result stands.
func (o *Orchestrator) maybeDisambiguate(ctx context.Context, prompt string, analysis intent.Result) intent.Result {
	threshold := o.cfg.DisambiguationThreshold
	if o.llm == nil || threshold <= 0 || analysis.Confidence >= threshold {
		return analysis
	}

	labels := make([]string, len(intent.All))
	for i, in := range intent.All {
		labels[i] = string(in)
	}
	disambiguationPrompt := fmt.Sprintf(
		"Classify this medical benefits question into exactly one of these intents: %s.\nQuestion: %s\nReply with only the intent label.",
		strings.Join(labels, ", "), prompt)

	reply, err := o.llm.Generate(ctx, disambiguationPrompt, llms.GenerateOptions{MaxTokens: 30})
	if err != nil {
		o.logger.Warn("intent disambiguation failed", "error", err)
		return analysis
	}

	candidate := intent.Intent(strings.ToLower(strings.TrimSpace(reply)))
	if !candidate.Valid() || candidate == analysis.Intent {
		return analysis
	}

	o.logger.Debug("intent disambiguated",
		"from", analysis.Intent,
		"to", candidate,
		"confidence", analysis.Confidence)
	analysis.Intent = candidate
	analysis.AgentName = candidate.AgentName()
	analysis.Reasoning = analysis.Reasoning + "; low confidence, disambiguated"
	return analysis
}

// route dispatches to the registered handler and folds failures into a
// structured RoutingResult. Handler errors never escape as Go errors.
func (o *Orchestrator) route(ctx context.Context, analysis intent.Result, prompt string, reqCtx map[string]any) RoutingResult {
	routing := RoutingResult{
		Intent:    string(analysis.Intent),
		AgentName: analysis.AgentName,
	}

	handler, ok := o.registry[analysis.Intent]
	if !ok {
		routing.Error = fmt.Sprintf("no handler registered for intent %s", analysis.Intent)
		routing.ErrorCategory = string(handlers.CategoryInternal)
		return routing
	}

	result, err := handler.Handle(ctx, handlers.Request{
		Query:    prompt,
		Entities: analysis.Entities,
		Context:  reqCtx,
	})
	if err != nil {
		var handlerErr *handlers.Error
		if errors.As(err, &handlerErr) {
			routing.Error = handlerErr.Message
			routing.ErrorCategory = string(handlerErr.Category)
		} else if ctx.Err() != nil {
			routing.Error = "cancelled"
			routing.ErrorCategory = string(handlers.CategoryCancelled)
		} else {
			routing.Error = "request failed"
			routing.ErrorCategory = string(handlers.CategoryInternal)
		}
		o.logger.Warn("handler failed",
			"agent", analysis.AgentName,
			"category", routing.ErrorCategory,
			"error", err)
		return routing
	}

	routing.Success = true
	routing.Result = result
	return routing
}

// assemble builds the response purely from the capture. If the routing
// step is missing (an LLM tool loop can skip it), the handler is invoked
// synchronously from the cached analysis before composing.
func (o *Orchestrator) assemble(ctx context.Context, capture *toolResultCapture, prompt string, reqCtx map[string]any) *Response {
	rawAnalysis, ok := capture.get(stepAnalyzeQuery)
	if !ok {
		return &Response{
			Success:       false,
			Query:         prompt,
			Error:         "analysis step missing",
			ErrorCategory: string(handlers.CategoryInternal),
		}
	}
	analysis, err := decodeAnalysis(rawAnalysis)
	if err != nil {
		return &Response{
			Success:       false,
			Query:         prompt,
			Error:         "analysis step unreadable",
			ErrorCategory: string(handlers.CategoryInternal),
		}
	}

	rawRouting, ok := capture.get(stepRouteToAgent)
	if !ok {
		// Repair: run the missing route step from the cached analysis.
		repaired := o.route(ctx, analysis, prompt, reqCtx)
		capture.put(stepRouteToAgent, repaired)
		rawRouting = repaired
	}
	routing, err := decodeRouting(rawRouting)
	if err != nil {
		return &Response{
			Success:       false,
			Query:         prompt,
			Error:         "routing step unreadable",
			ErrorCategory: string(handlers.CategoryInternal),
		}
	}

	response := &Response{
		Success:           routing.Success,
		Intent:            string(analysis.Intent),
		Agent:             analysis.AgentName,
		Confidence:        analysis.Confidence,
		Result:            routing.Result,
		Reasoning:         analysis.Reasoning,
		ExtractedEntities: analysis.Entities,
		Query:             prompt,
		Error:             routing.Error,
		ErrorCategory:     routing.ErrorCategory,
	}
	if formatted, ok := capture.get(stepFormatResponse); ok {
		if text, isString := formatted.(string); isString {
			response.Formatted = text
		}
	}
	return response
}
