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

import "context"

// BatchResult summarizes an orchestrate_batch call.
type BatchResult struct {
	Results    []*Response    `json:"results"`
	Total      int            `json:"total"`
	Successful int            `json:"successful"`
	Failed     int            `json:"failed"`
	Intents    map[string]int `json:"intents"`
}

// ProcessBatch runs prompts in order without touching session history.
// Results keep the input order; a failed prompt never stops the batch.
func (o *Orchestrator) ProcessBatch(ctx context.Context, prompts []string, reqCtx map[string]any) *BatchResult {
	batch := &BatchResult{
		Results: make([]*Response, 0, len(prompts)),
		Total:   len(prompts),
		Intents: make(map[string]int),
	}

	for _, prompt := range prompts {
		response := o.Process(ctx, Request{Prompt: prompt, Context: reqCtx})
		batch.Results = append(batch.Results, response)
		if response.Success {
			batch.Successful++
		} else {
			batch.Failed++
		}
		if response.Intent != "" {
			batch.Intents[response.Intent]++
		}
	}
	return batch
}
