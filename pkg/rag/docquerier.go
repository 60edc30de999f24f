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

package rag

import (
	"context"
	"fmt"

	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/handlers"
)

// IndexQuerier binds the query engine to one collection so it can serve
// as a handler's document backend.
type IndexQuerier struct {
	engine      *Engine
	indexName   string
	useReranker bool
}

// NewIndexQuerier builds the adapter for a fixed index.
func NewIndexQuerier(engine *Engine, indexName string, useReranker bool) *IndexQuerier {
	return &IndexQuerier{
		engine:      engine,
		indexName:   indexName,
		useReranker: useReranker,
	}
}

// Answer runs a grounded query and flattens the result for the handler.
func (q *IndexQuerier) Answer(ctx context.Context, query string, topK int) (*handlers.Answer, error) {
	result, err := q.engine.Query(ctx, query, q.indexName, topK, q.useReranker)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, fmt.Errorf("query failed: %s", result.Error)
	}

	sources := make([]handlers.Source, len(result.Sources))
	for i, s := range result.Sources {
		sources[i] = handlers.Source{
			Content:  s.Content,
			Score:    s.Similarity,
			Metadata: s.Metadata,
		}
	}
	return &handlers.Answer{Answer: result.Answer, Sources: sources}, nil
}
