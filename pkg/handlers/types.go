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

// Package handlers implements the intent-specific agents: member
// verification, deductible/OOP lookup, benefit accumulators, document
// coverage queries and the general-inquiry responder.
package handlers

import (
	"context"
	"fmt"

	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/intent"
)

// Category classifies handler failures for the orchestrator and the HTTP
// surface. The set is closed.
type Category string

const (
	CategoryValidation           Category = "validation"
	CategoryNotFound             Category = "not_found"
	CategoryIntegrationTransient Category = "integration_transient"
	CategoryIntegrationPermanent Category = "integration_permanent"
	CategoryCancelled            Category = "cancelled"
	CategoryInternal             Category = "internal"
)

// Error is a categorized handler failure. It crosses the orchestrator
// boundary as data, never as a panic.
type Error struct {
	Category Category `json:"category"`
	Message  string   `json:"message"`
	Err      error    `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a categorized error.
func NewError(category Category, message string, err error) *Error {
	return &Error{Category: category, Message: message, Err: err}
}

// Validation is shorthand for a validation failure.
func Validation(message string) *Error {
	return &Error{Category: CategoryValidation, Message: message}
}

// Request carries a routed query into a handler.
type Request struct {
	Query    string
	Entities intent.Entities
	// Context holds caller-supplied values (member_id, dob) that
	// supplement entity extraction.
	Context map[string]any
}

// Handler is the agent contract. Handle returns a JSON-serializable
// result or a categorized *Error.
type Handler interface {
	Name() string
	Handle(ctx context.Context, req Request) (any, error)
}

// Source is a retrieval citation attached to a document-grounded answer.
type Source struct {
	Content  string         `json:"content"`
	Score    float32        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Answer is the result of a document-grounded query.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// DocQuerier answers free-text questions against an indexed document
// collection. Implemented by the RAG query engine and the local document
// store.
type DocQuerier interface {
	Answer(ctx context.Context, query string, topK int) (*Answer, error)
}
