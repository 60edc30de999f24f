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

package handlers

import (
	"context"
	"strings"
)

// BenefitCoverageHandler answers policy coverage questions from the
// indexed plan documents.
type BenefitCoverageHandler struct {
	querier DocQuerier
	topK    int
}

func NewBenefitCoverageHandler(querier DocQuerier, topK int) *BenefitCoverageHandler {
	if topK <= 0 {
		topK = 5
	}
	return &BenefitCoverageHandler{querier: querier, topK: topK}
}

func (h *BenefitCoverageHandler) Name() string {
	return "BenefitCoverageHandler"
}

func (h *BenefitCoverageHandler) Handle(ctx context.Context, req Request) (any, error) {
	return handleDocQuery(ctx, h.querier, req, h.topK)
}

// LocalDocHandler answers questions about locally uploaded documents.
type LocalDocHandler struct {
	querier DocQuerier
	topK    int
}

func NewLocalDocHandler(querier DocQuerier, topK int) *LocalDocHandler {
	if topK <= 0 {
		topK = 5
	}
	return &LocalDocHandler{querier: querier, topK: topK}
}

func (h *LocalDocHandler) Name() string {
	return "LocalDocHandler"
}

func (h *LocalDocHandler) Handle(ctx context.Context, req Request) (any, error) {
	return handleDocQuery(ctx, h.querier, req, h.topK)
}

func handleDocQuery(ctx context.Context, querier DocQuerier, req Request, topK int) (any, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, Validation("a question is required")
	}

	answer, err := querier.Answer(ctx, req.Query, topK)
	if err != nil {
		if ctx.Err() != nil {
			return nil, NewError(CategoryCancelled, "document query cancelled", err)
		}
		return nil, NewError(CategoryIntegrationTransient, "document query failed", err)
	}
	return answer, nil
}
