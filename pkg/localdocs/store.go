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

package localdocs

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/config"
	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/embedder"
	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/handlers"
	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/llms"
	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/rag"
	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/vector"
)

// Store indexes locally extracted documents into an embedded vector
// store and answers questions against them. Indexing and querying share
// the page-file pipeline; only the adapters differ: directory instead of
// object store, local embedding model, chromem instead of qdrant.
// Reranking is skipped; the local model set has no cross-encoder.
type Store struct {
	indexer    *rag.Indexer
	querier    *rag.IndexQuerier
	docsPath   string
	collection string
	logger     *slog.Logger

	// reindexMu serializes watcher-triggered reindex runs.
	reindexMu sync.Mutex
}

// New wires a store over a directory of extraction files. llm may be a
// remote provider; generation is not required to be local.
func New(cfg *config.LocalStoreConfig, vectors vector.Provider, emb embedder.Provider, llm llms.Provider, ragCfg *config.RAGConfig, logger *slog.Logger) *Store {
	dir := NewDirStore(cfg.WatchPath)
	engine := rag.NewEngine(vectors, emb, llm, nil, ragCfg, logger)
	return &Store{
		indexer:    rag.NewIndexer(dir, vectors, emb, ragCfg, logger),
		querier:    rag.NewIndexQuerier(engine, cfg.Collection, false),
		docsPath:   cfg.WatchPath,
		collection: cfg.Collection,
		logger:     logger,
	}
}

// Reindex rebuilds the collection from the directory contents. Safe to
// call repeatedly; deterministic chunk ids make it an upsert.
func (s *Store) Reindex(ctx context.Context) (*rag.PrepareResult, error) {
	s.reindexMu.Lock()
	defer s.reindexMu.Unlock()

	result, err := s.indexer.Prepare(ctx, rag.PrepareRequest{
		Prefix:    "",
		IndexName: s.collection,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("local documents reindexed",
		"path", s.docsPath,
		"collection", s.collection,
		"chunks", result.ChunksCount)
	return result, nil
}

// Answer responds to a question against the local collection.
func (s *Store) Answer(ctx context.Context, query string, topK int) (*handlers.Answer, error) {
	return s.querier.Answer(ctx, query, topK)
}
