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

import "context"

// capabilitiesMessage is the fixed general-inquiry response. Routing is
// mandatory for every intent, so greetings land here instead of being
// improvised by a model.
const capabilitiesMessage = "I can help you with medical benefits questions: " +
	"verifying membership, checking deductible and out-of-pocket amounts, " +
	"tracking benefit usage such as therapy visit counts, and answering " +
	"coverage questions from your plan documents. Include your member id " +
	"(for example M1001) for member-specific questions."

// GeneralResult is the general-inquiry response body.
type GeneralResult struct {
	Message string `json:"message"`
}

// GeneralHandler answers greetings and out-of-scope questions with a
// capabilities message.
type GeneralHandler struct{}

func NewGeneralHandler() *GeneralHandler {
	return &GeneralHandler{}
}

func (h *GeneralHandler) Name() string {
	return "OrchestrationAgent"
}

func (h *GeneralHandler) Handle(_ context.Context, _ Request) (any, error) {
	return GeneralResult{Message: capabilitiesMessage}, nil
}
