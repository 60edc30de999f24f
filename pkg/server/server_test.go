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

package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/config"
	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/handlers"
	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/intent"
	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/orchestrator"
	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/rag"
)

type stubIndexer struct {
	result  *rag.PrepareResult
	err     error
	lastReq rag.PrepareRequest
}

func (s *stubIndexer) Prepare(_ context.Context, req rag.PrepareRequest) (*rag.PrepareResult, error) {
	s.lastReq = req
	return s.result, s.err
}

type stubEngine struct {
	result          *rag.QueryResult
	err             error
	lastUseReranker bool
}

func (s *stubEngine) Query(_ context.Context, question, indexName string, k int, useReranker bool) (*rag.QueryResult, error) {
	s.lastUseReranker = useReranker
	return s.result, s.err
}

type stubMembers struct {
	result handlers.MemberResult
	err    error
}

func (s *stubMembers) Verify(_ context.Context, memberID, dob, name string) (handlers.MemberResult, error) {
	return s.result, s.err
}

type stubDeductibles struct {
	result   handlers.DeductibleResult
	err      error
	planType string
	network  string
}

func (s *stubDeductibles) Lookup(_ context.Context, memberID, planType, network string) (handlers.DeductibleResult, error) {
	s.planType = planType
	s.network = network
	return s.result, s.err
}

type stubAccumulators struct {
	result  handlers.AccumulatorResult
	err     error
	service string
}

func (s *stubAccumulators) Lookup(_ context.Context, memberID, service string) (handlers.AccumulatorResult, error) {
	s.service = service
	return s.result, s.err
}

type echoHandler struct{ name string }

func (h *echoHandler) Name() string { return h.name }

func (h *echoHandler) Handle(_ context.Context, req handlers.Request) (any, error) {
	return map[string]any{"query": req.Query}, nil
}

func testOrchestrator() *orchestrator.Orchestrator {
	cfg := config.Default()
	cfg.Orchestrator.PreserveHistory = true
	o := orchestrator.New(&cfg.Orchestrator, nil, slog.New(slog.DiscardHandler))
	for _, in := range intent.All {
		o.Register(in, &echoHandler{name: in.AgentName()})
	}
	return o
}

func newTestServer(deps Deps) *Server {
	deps.Logger = slog.New(slog.DiscardHandler)
	return New(deps)
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestOrchestrateEndpoint(t *testing.T) {
	srv := newTestServer(Deps{Orchestrator: testOrchestrator()})
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/v1/orchestrate", `{"prompt":"Is member M1001 active?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var response orchestrator.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.True(t, response.Success)
	assert.Equal(t, "member_verification", response.Intent)
	assert.Equal(t, "MemberHandler", response.Agent)
	assert.Equal(t, "M1001", response.ExtractedEntities.MemberID)
}

func TestOrchestrateEndpoint_BadBody(t *testing.T) {
	srv := newTestServer(Deps{Orchestrator: testOrchestrator()})
	rec := doJSON(t, srv.Router(), http.MethodPost, "/v1/orchestrate", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrchestrateEndpoint_EmptyPromptIsStructured(t *testing.T) {
	srv := newTestServer(Deps{Orchestrator: testOrchestrator()})
	rec := doJSON(t, srv.Router(), http.MethodPost, "/v1/orchestrate", `{"prompt":"   "}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var response orchestrator.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.False(t, response.Success)
	assert.Equal(t, "validation", response.ErrorCategory)
}

func TestBatchEndpoint(t *testing.T) {
	srv := newTestServer(Deps{Orchestrator: testOrchestrator()})
	rec := doJSON(t, srv.Router(), http.MethodPost, "/v1/orchestrate/batch",
		`{"prompts":["Is member M1001 active?","Hello"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var batch orchestrator.BatchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &batch))
	assert.Equal(t, 2, batch.Total)
	assert.Equal(t, 2, batch.Successful)
	assert.Equal(t, 1, batch.Intents["member_verification"])
}

func TestBatchEndpoint_EmptyPrompts(t *testing.T) {
	srv := newTestServer(Deps{Orchestrator: testOrchestrator()})
	rec := doJSON(t, srv.Router(), http.MethodPost, "/v1/orchestrate/batch", `{"prompts":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryEndpoints(t *testing.T) {
	srv := newTestServer(Deps{Orchestrator: testOrchestrator()})
	router := srv.Router()

	doJSON(t, router, http.MethodPost, "/v1/orchestrate",
		`{"prompt":"Is member M1001 active?","session_id":"s1"}`)

	rec := doJSON(t, router, http.MethodGet, "/v1/sessions/s1/history", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		SessionID string                     `json:"session_id"`
		History   []orchestrator.HistoryItem `json:"history"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.History, 1)
	assert.Equal(t, "member_verification", payload.History[0].Intent)
	assert.True(t, payload.History[0].Success)

	rec = doJSON(t, router, http.MethodDelete, "/v1/sessions/s1/history", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/v1/sessions/s1/history", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Empty(t, payload.History)
}

func TestRAGPrepareEndpoint(t *testing.T) {
	indexer := &stubIndexer{result: &rag.PrepareResult{
		Success: true, IndexName: "benefits", DocCount: 3, ChunksCount: 12,
	}}
	srv := newTestServer(Deps{Indexer: indexer})

	rec := doJSON(t, srv.Router(), http.MethodPost, "/v1/rag/prepare",
		`{"prefix":"docs/plan","index_name":"benefits","chunk_size":800}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "docs/plan", indexer.lastReq.Prefix)
	assert.Equal(t, 800, indexer.lastReq.ChunkSize)

	var result rag.PrepareResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 12, result.ChunksCount)
}

func TestRAGPrepareEndpoint_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"overlap", &rag.UnsupportedOverlapError{Overlap: 100}, http.StatusBadRequest},
		{"bucket mismatch", &rag.BucketMismatchError{Requested: "other", Bound: "docs"}, http.StatusBadRequest},
		{"no pages", &rag.NoPageFilesError{Prefix: "docs/empty"}, http.StatusNotFound},
		{"dimension", &rag.DimensionMismatchError{Collection: "b", Expected: 1024, Actual: 768}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(Deps{Indexer: &stubIndexer{err: tt.err}})
			rec := doJSON(t, srv.Router(), http.MethodPost, "/v1/rag/prepare",
				`{"prefix":"docs","index_name":"b"}`)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestRAGQueryEndpoint(t *testing.T) {
	engine := &stubEngine{result: &rag.QueryResult{
		Success:            true,
		Answer:             "Acupuncture is covered [1].",
		Question:           "Is acupuncture covered?",
		RetrievedDocsCount: 4,
	}}
	srv := newTestServer(Deps{Engine: engine})

	rec := doJSON(t, srv.Router(), http.MethodPost, "/v1/rag/query",
		`{"question":"Is acupuncture covered?","index_name":"benefits","k":3,"use_reranker":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result rag.QueryResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "Acupuncture is covered [1].", result.Answer)
	assert.True(t, engine.lastUseReranker)
}

func TestRAGQueryEndpoint_RerankerDefaultsOn(t *testing.T) {
	engine := &stubEngine{result: &rag.QueryResult{Success: true}}
	srv := newTestServer(Deps{Engine: engine})

	rec := doJSON(t, srv.Router(), http.MethodPost, "/v1/rag/query",
		`{"question":"Is acupuncture covered?","index_name":"benefits"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, engine.lastUseReranker)
}

func TestRAGQueryEndpoint_RerankerExplicitlyDisabled(t *testing.T) {
	engine := &stubEngine{result: &rag.QueryResult{Success: true}}
	srv := newTestServer(Deps{Engine: engine})

	rec := doJSON(t, srv.Router(), http.MethodPost, "/v1/rag/query",
		`{"question":"Is acupuncture covered?","index_name":"benefits","use_reranker":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, engine.lastUseReranker)
}

func TestVerifyEndpoint(t *testing.T) {
	members := &stubMembers{result: handlers.MemberResult{
		Valid: true, MemberID: "M1001", Name: "Brandi Kim", DOB: "2005-05-23",
	}}
	srv := newTestServer(Deps{Members: members})

	rec := doJSON(t, srv.Router(), http.MethodPost, "/v1/members/verify",
		`{"member_id":"M1001","dob":"2005-05-23"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result handlers.MemberResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Valid)
	assert.Equal(t, "Brandi Kim", result.Name)
}

func TestDeductibleEndpoint_QueryParams(t *testing.T) {
	deductibles := &stubDeductibles{result: handlers.DeductibleResult{Found: true, MemberID: "M1001"}}
	srv := newTestServer(Deps{Deductibles: deductibles})

	rec := doJSON(t, srv.Router(), http.MethodGet,
		"/v1/benefits/M1001/deductible?plan_type=IND&network=PPO", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "IND", deductibles.planType)
	assert.Equal(t, "PPO", deductibles.network)
}

func TestDeductibleEndpoint_ValidationError(t *testing.T) {
	deductibles := &stubDeductibles{err: handlers.Validation("member id is required")}
	srv := newTestServer(Deps{Deductibles: deductibles})

	rec := doJSON(t, srv.Router(), http.MethodGet, "/v1/benefits/x/deductible", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "validation", body.Category)
}

func TestAccumulatorEndpoint(t *testing.T) {
	accumulators := &stubAccumulators{result: handlers.AccumulatorResult{
		Found:    true,
		MemberID: "M1001",
		Services: map[string]handlers.ServiceUsage{
			"Massage Therapy": {Used: 4, Limit: 12, Remaining: 8},
		},
	}}
	srv := newTestServer(Deps{Accumulators: accumulators})

	rec := doJSON(t, srv.Router(), http.MethodGet,
		"/v1/benefits/M1001/accumulator?service=massage", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "massage", accumulators.service)

	var result handlers.AccumulatorResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 8.0, result.Services["Massage Therapy"].Remaining)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(Deps{Health: map[string]HealthCheck{
		"database":     func(context.Context) bool { return true },
		"object_store": func(context.Context) bool { return true },
		"vector_store": func(context.Context) bool { return false },
	}})

	rec := doJSON(t, srv.Router(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var payload struct {
		Status   string          `json:"status"`
		Adapters map[string]bool `json:"adapters"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "degraded", payload.Status)
	assert.True(t, payload.Adapters["database"])
	assert.False(t, payload.Adapters["vector_store"])
}

func TestHealthEndpoint_AllHealthy(t *testing.T) {
	srv := newTestServer(Deps{Health: map[string]HealthCheck{
		"database": func(context.Context) bool { return true },
	}})

	rec := doJSON(t, srv.Router(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnconfiguredDependenciesReturn503(t *testing.T) {
	srv := newTestServer(Deps{})
	router := srv.Router()

	paths := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodPost, "/v1/orchestrate", `{"prompt":"x"}`},
		{http.MethodPost, "/v1/rag/prepare", `{}`},
		{http.MethodPost, "/v1/rag/query", `{}`},
		{http.MethodPost, "/v1/members/verify", `{}`},
		{http.MethodGet, "/v1/benefits/M1001/deductible", ""},
		{http.MethodGet, "/v1/benefits/M1001/accumulator", ""},
	}
	for _, p := range paths {
		rec := doJSON(t, router, p.method, p.path, p.body)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, p.path)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(Deps{})
	rec := doJSON(t, srv.Router(), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
