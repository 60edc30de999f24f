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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/config"
)

func rerankServer(t *testing.T, lastReq *cohereRerankRequest, results ...map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rerank", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(lastReq))
		_ = json.NewEncoder(w).Encode(map[string]any{"results": results})
	}))
}

func newTestReranker(t *testing.T, host string) *CohereReranker {
	t.Helper()
	r, err := NewCohereReranker(&config.RerankerConfig{
		APIKey: "test-key",
		Host:   host,
	})
	require.NoError(t, err)
	return r
}

func TestCohereReranker_Rerank(t *testing.T) {
	var lastReq cohereRerankRequest
	srv := rerankServer(t, &lastReq,
		map[string]any{"index": 2, "relevance_score": 0.99},
		map[string]any{"index": 0, "relevance_score": 0.41},
	)
	defer srv.Close()

	r := newTestReranker(t, srv.URL)
	docs := []string{"deductible text", "oop text", "massage text"}

	results, err := r.Rerank(context.Background(), "massage limits", docs, 2)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, 2, results[0].Index)
	assert.Equal(t, 0.99, results[0].Score)
	assert.Equal(t, 0, results[1].Index)

	assert.Equal(t, "rerank-english-v3.0", lastReq.Model)
	assert.Equal(t, "massage limits", lastReq.Query)
	assert.Equal(t, docs, lastReq.Documents)
	assert.Equal(t, 2, lastReq.TopN)
}

func TestCohereReranker_TopKClampedToDocCount(t *testing.T) {
	var lastReq cohereRerankRequest
	srv := rerankServer(t, &lastReq,
		map[string]any{"index": 0, "relevance_score": 0.8},
	)
	defer srv.Close()

	r := newTestReranker(t, srv.URL)
	_, err := r.Rerank(context.Background(), "q", []string{"a", "b"}, 50)
	require.NoError(t, err)
	assert.Equal(t, 2, lastReq.TopN)
}

func TestCohereReranker_SkipsOutOfRangeIndices(t *testing.T) {
	var lastReq cohereRerankRequest
	srv := rerankServer(t, &lastReq,
		map[string]any{"index": 9, "relevance_score": 0.9},
		map[string]any{"index": 1, "relevance_score": 0.7},
	)
	defer srv.Close()

	r := newTestReranker(t, srv.URL)
	results, err := r.Rerank(context.Background(), "q", []string{"a", "b"}, 2)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Index)
}

func TestCohereReranker_EmptyDocuments(t *testing.T) {
	r := newTestReranker(t, "http://unused.invalid")
	results, err := r.Rerank(context.Background(), "q", nil, 5)
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestCohereReranker_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "invalid model"})
	}))
	defer srv.Close()

	r := newTestReranker(t, srv.URL)
	_, err := r.Rerank(context.Background(), "q", []string{"a"}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid model")
}

func TestNewCohereReranker_RequiresAPIKey(t *testing.T) {
	_, err := NewCohereReranker(&config.RerankerConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}
