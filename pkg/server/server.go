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

// Package server binds the orchestration and retrieval operations onto a
// JSON HTTP surface. The binding is thin: decode, call core, encode. All
// semantics live in the core packages.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/handlers"
	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/observability"
	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/orchestrator"
	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/rag"
)

// Orchestrating is the orchestrator slice the server consumes.
type Orchestrating interface {
	Process(ctx context.Context, req orchestrator.Request) *orchestrator.Response
	ProcessBatch(ctx context.Context, prompts []string, reqCtx map[string]any) *orchestrator.BatchResult
	Sessions() *orchestrator.SessionStore
}

// Indexing runs rag_prepare.
type Indexing interface {
	Prepare(ctx context.Context, req rag.PrepareRequest) (*rag.PrepareResult, error)
}

// Querying runs rag_query.
type Querying interface {
	Query(ctx context.Context, question, indexName string, k int, useReranker bool) (*rag.QueryResult, error)
}

// MemberVerifier is the verify passthrough.
type MemberVerifier interface {
	Verify(ctx context.Context, memberID, dob, name string) (handlers.MemberResult, error)
}

// DeductibleLookup is the deductible passthrough.
type DeductibleLookup interface {
	Lookup(ctx context.Context, memberID, planType, network string) (handlers.DeductibleResult, error)
}

// AccumulatorLookup is the accumulator passthrough.
type AccumulatorLookup interface {
	Lookup(ctx context.Context, memberID, service string) (handlers.AccumulatorResult, error)
}

// HealthCheck reports one adapter's liveness.
type HealthCheck func(ctx context.Context) bool

// Deps wires the server. Nil fields disable their endpoints with 503.
type Deps struct {
	Orchestrator Orchestrating
	Indexer      Indexing
	Engine       Querying
	Members      MemberVerifier
	Deductibles  DeductibleLookup
	Accumulators AccumulatorLookup
	Health       map[string]HealthCheck
	Metrics      *observability.Metrics
	Logger       *slog.Logger
}

// Server is the HTTP surface.
type Server struct {
	deps   Deps
	logger *slog.Logger
}

// New builds a server from its dependencies.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{deps: deps, logger: logger}
}

// Router assembles the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/orchestrate", s.handleOrchestrate)
		r.Post("/orchestrate/batch", s.handleOrchestrateBatch)
		r.Get("/sessions/{sessionID}/history", s.handleHistory)
		r.Delete("/sessions/{sessionID}/history", s.handleClearHistory)
		r.Post("/rag/prepare", s.handleRAGPrepare)
		r.Post("/rag/query", s.handleRAGQuery)
		r.Post("/members/verify", s.handleVerify)
		r.Get("/benefits/{memberID}/deductible", s.handleDeductible)
		r.Get("/benefits/{memberID}/accumulator", s.handleAccumulator)
	})

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// Run serves until ctx is cancelled, then drains with a short grace
// period.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info("http server listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		err := <-errCh
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
