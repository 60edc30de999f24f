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
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/handlers"
	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/orchestrator"
	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/rag"
)

type errorResponse struct {
	Error    string `json:"error"`
	Category string `json:"category,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encoding response failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message, category string) {
	s.writeJSON(w, status, errorResponse{Error: message, Category: category})
}

// writeHandlerError maps the error taxonomy onto HTTP statuses.
func (s *Server) writeHandlerError(w http.ResponseWriter, err error) {
	var handlerErr *handlers.Error
	if errors.As(err, &handlerErr) {
		status := http.StatusInternalServerError
		switch handlerErr.Category {
		case handlers.CategoryValidation:
			status = http.StatusBadRequest
		case handlers.CategoryNotFound:
			status = http.StatusNotFound
		case handlers.CategoryIntegrationTransient:
			status = http.StatusServiceUnavailable
		case handlers.CategoryIntegrationPermanent:
			status = http.StatusBadGateway
		case handlers.CategoryCancelled:
			status = http.StatusServiceUnavailable
		}
		s.writeError(w, status, handlerErr.Message, string(handlerErr.Category))
		return
	}
	s.writeError(w, http.StatusInternalServerError, "request failed", string(handlers.CategoryInternal))
}

func (s *Server) handleOrchestrate(w http.ResponseWriter, r *http.Request) {
	if s.deps.Orchestrator == nil {
		s.writeError(w, http.StatusServiceUnavailable, "orchestrator not configured", "")
		return
	}

	var req orchestrator.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", string(handlers.CategoryValidation))
		return
	}

	start := time.Now()
	response := s.deps.Orchestrator.Process(r.Context(), req)
	s.deps.Metrics.RecordOrchestration(r.Context(), response.Intent, time.Since(start), response.Success, response.ErrorCategory)

	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleOrchestrateBatch(w http.ResponseWriter, r *http.Request) {
	if s.deps.Orchestrator == nil {
		s.writeError(w, http.StatusServiceUnavailable, "orchestrator not configured", "")
		return
	}

	var req struct {
		Prompts []string       `json:"prompts"`
		Context map[string]any `json:"context,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", string(handlers.CategoryValidation))
		return
	}
	if len(req.Prompts) == 0 {
		s.writeError(w, http.StatusBadRequest, "prompts cannot be empty", string(handlers.CategoryValidation))
		return
	}

	s.writeJSON(w, http.StatusOK, s.deps.Orchestrator.ProcessBatch(r.Context(), req.Prompts, req.Context))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.Orchestrator == nil {
		s.writeError(w, http.StatusServiceUnavailable, "orchestrator not configured", "")
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	s.writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"history":    s.deps.Orchestrator.Sessions().History(sessionID),
	})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.Orchestrator == nil {
		s.writeError(w, http.StatusServiceUnavailable, "orchestrator not configured", "")
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	s.deps.Orchestrator.Sessions().ClearHistory(sessionID)
	s.writeJSON(w, http.StatusOK, map[string]any{"session_id": sessionID, "cleared": true})
}

func (s *Server) handleRAGPrepare(w http.ResponseWriter, r *http.Request) {
	if s.deps.Indexer == nil {
		s.writeError(w, http.StatusServiceUnavailable, "indexer not configured", "")
		return
	}

	var req rag.PrepareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", string(handlers.CategoryValidation))
		return
	}

	result, err := s.deps.Indexer.Prepare(r.Context(), req)
	if err != nil {
		var overlapErr *rag.UnsupportedOverlapError
		var bucketErr *rag.BucketMismatchError
		var noPages *rag.NoPageFilesError
		var mismatch *rag.DimensionMismatchError
		switch {
		case errors.As(err, &overlapErr), errors.As(err, &bucketErr):
			s.writeError(w, http.StatusBadRequest, err.Error(), string(handlers.CategoryValidation))
		case errors.As(err, &noPages):
			s.writeError(w, http.StatusNotFound, err.Error(), string(handlers.CategoryNotFound))
		case errors.As(err, &mismatch):
			s.writeError(w, http.StatusBadGateway, err.Error(), string(handlers.CategoryIntegrationPermanent))
		default:
			s.logger.Error("rag prepare failed", "error", err)
			s.writeError(w, http.StatusInternalServerError, "indexing failed", string(handlers.CategoryInternal))
		}
		return
	}

	s.deps.Metrics.RecordIndexing(r.Context(), result.IndexName, result.ChunksCount, result.FailedChunks)
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRAGQuery(w http.ResponseWriter, r *http.Request) {
	if s.deps.Engine == nil {
		s.writeError(w, http.StatusServiceUnavailable, "query engine not configured", "")
		return
	}

	var req struct {
		Question  string `json:"question"`
		IndexName string `json:"index_name"`
		K         int    `json:"k,omitempty"`

		// UseReranker defaults to true when omitted.
		UseReranker *bool `json:"use_reranker,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", string(handlers.CategoryValidation))
		return
	}
	useReranker := req.UseReranker == nil || *req.UseReranker

	start := time.Now()
	result, err := s.deps.Engine.Query(r.Context(), req.Question, req.IndexName, req.K, useReranker)
	if err != nil {
		s.logger.Error("rag query failed", "index", req.IndexName, "error", err)
		s.writeError(w, http.StatusInternalServerError, "query failed", string(handlers.CategoryInternal))
		return
	}
	s.deps.Metrics.RecordRAGQuery(r.Context(), req.IndexName, time.Since(start), result.Success)

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if s.deps.Members == nil {
		s.writeError(w, http.StatusServiceUnavailable, "member handler not configured", "")
		return
	}

	var req struct {
		MemberID string `json:"member_id,omitempty"`
		DOB      string `json:"dob,omitempty"`
		Name     string `json:"name,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", string(handlers.CategoryValidation))
		return
	}

	result, err := s.deps.Members.Verify(r.Context(), req.MemberID, req.DOB, req.Name)
	if err != nil {
		s.writeHandlerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDeductible(w http.ResponseWriter, r *http.Request) {
	if s.deps.Deductibles == nil {
		s.writeError(w, http.StatusServiceUnavailable, "deductible handler not configured", "")
		return
	}

	memberID := chi.URLParam(r, "memberID")
	planType := r.URL.Query().Get("plan_type")
	network := r.URL.Query().Get("network")

	result, err := s.deps.Deductibles.Lookup(r.Context(), memberID, planType, network)
	if err != nil {
		s.writeHandlerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAccumulator(w http.ResponseWriter, r *http.Request) {
	if s.deps.Accumulators == nil {
		s.writeError(w, http.StatusServiceUnavailable, "accumulator handler not configured", "")
		return
	}

	memberID := chi.URLParam(r, "memberID")
	service := r.URL.Query().Get("service")

	result, err := s.deps.Accumulators.Lookup(r.Context(), memberID, service)
	if err != nil {
		s.writeHandlerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	adapters := make(map[string]bool, len(s.deps.Health))
	healthy := true
	for name, check := range s.deps.Health {
		ok := check(r.Context())
		adapters[name] = ok
		if !ok {
			healthy = false
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, map[string]any{
		"status":   statusLabel(healthy),
		"adapters": adapters,
	})
}

func statusLabel(healthy bool) string {
	if healthy {
		return "ok"
	}
	return "degraded"
}
