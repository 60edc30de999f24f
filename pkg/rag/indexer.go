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
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/config"
	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/embedder"
	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/vector"
)

// Indexer builds a vector index from pre-extracted page files held in an
// object store.
type Indexer struct {
	store    ObjectStore
	vectors  vector.Provider
	embedder embedder.Provider
	cfg      *config.RAGConfig
	retryer  *Retryer
	logger   *slog.Logger
}

// NewIndexer wires the indexer from its adapters.
func NewIndexer(store ObjectStore, vectors vector.Provider, emb embedder.Provider, cfg *config.RAGConfig, logger *slog.Logger) *Indexer {
	return &Indexer{
		store:    store,
		vectors:  vectors,
		embedder: emb,
		cfg:      cfg,
		retryer:  NewRetryer(),
		logger:   logger,
	}
}

// BucketBound is implemented by object stores bound to a single bucket.
// Prepare uses it to reject requests naming a different bucket.
type BucketBound interface {
	Bucket() string
}

// PrepareRequest describes one indexing run.
type PrepareRequest struct {
	// Bucket names the source bucket. Optional; when set it must match
	// the bucket the object store is bound to.
	Bucket string `json:"bucket,omitempty"`

	// Prefix is the object-store prefix holding page_NNNN.json files,
	// either directly or one job-id subprefix down.
	Prefix string `json:"prefix"`

	// IndexName is the target collection name.
	IndexName string `json:"index_name"`

	// ChunkSize overrides the default chunk target when > 0.
	ChunkSize int `json:"chunk_size,omitempty"`

	// ChunkOverlap must be zero; overlap is not implemented.
	ChunkOverlap int `json:"chunk_overlap,omitempty"`
}

// PrepareResult reports what an indexing run accomplished.
type PrepareResult struct {
	Success      bool   `json:"success"`
	IndexName    string `json:"index_name"`
	DocCount     int    `json:"doc_count"`
	ChunksCount  int    `json:"chunks_count"`
	FailedChunks int    `json:"failed_chunks"`
}

// chunkID derives a deterministic UUID-shaped id from chunk content, so
// re-indexing the same corpus upserts rather than duplicates.
func chunkID(content string) string {
	sum := sha256.Sum256([]byte(content))
	h := hex.EncodeToString(sum[:])
	return fmt.Sprintf("%s-%s-%s-%s-%s", h[0:8], h[8:12], h[12:16], h[16:20], h[20:32])
}

// Prepare discovers, parses, chunks, embeds and upserts a document set.
// The first chunk doubles as a dimension probe: its embedding both
// validates the collection dimension and gets reused for the upsert.
func (ix *Indexer) Prepare(ctx context.Context, req PrepareRequest) (*PrepareResult, error) {
	if req.ChunkOverlap != 0 {
		return nil, &UnsupportedOverlapError{Overlap: req.ChunkOverlap}
	}
	if req.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if req.Bucket != "" {
		if bound, ok := ix.store.(BucketBound); ok && bound.Bucket() != req.Bucket {
			return nil, &BucketMismatchError{Requested: req.Bucket, Bound: bound.Bucket()}
		}
	}

	keys, err := DiscoverPageFiles(ctx, ix.store, req.Prefix)
	if err != nil {
		return nil, err
	}

	chunkSize := req.ChunkSize
	if chunkSize == 0 {
		chunkSize = ix.cfg.ChunkSize
	}

	var chunks []Chunk
	docCount := 0
	for _, key := range keys {
		data, err := ix.store.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("fetching page file %s: %w", key, err)
		}
		doc, err := ParsePageFile(key, data)
		if err != nil {
			return nil, fmt.Errorf("parsing page file %s: %w", key, err)
		}
		docCount++
		chunks = append(chunks, ChunkDocument(doc, chunkSize)...)
	}

	if len(chunks) == 0 {
		return nil, &NoPageFilesError{Prefix: req.Prefix}
	}

	ix.logger.Info("indexing document set",
		"prefix", req.Prefix,
		"index", req.IndexName,
		"pages", docCount,
		"chunks", len(chunks))

	// Probe: embed the first chunk once, verify the dimension, reuse it.
	probe, err := DoWithResult(ctx, ix.retryer, func() ([]float32, error) {
		return ix.embedChunk(ctx, chunks[0])
	})
	if err != nil {
		return nil, fmt.Errorf("probe embedding failed: %w", err)
	}
	expected := ix.embedder.GetDimension()
	if len(probe) != expected {
		return nil, &DimensionMismatchError{
			Collection: req.IndexName,
			Expected:   expected,
			Actual:     len(probe),
		}
	}

	if err := ix.vectors.EnsureCollection(ctx, req.IndexName, expected); err != nil {
		var mismatch *vector.CollectionMismatchError
		if errors.As(err, &mismatch) {
			return nil, &DimensionMismatchError{
				Collection: mismatch.Collection,
				Expected:   mismatch.Existing,
				Actual:     mismatch.Requested,
			}
		}
		return nil, fmt.Errorf("ensuring collection %s: %w", req.IndexName, err)
	}

	points := make([]vector.Point, len(chunks))
	failed := make([]bool, len(chunks))

	var wg sync.WaitGroup
	sem := make(chan struct{}, ix.cfg.MaxConcurrentIndexing)
	for i := range chunks {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			var vec []float32
			var embedErr error
			if i == 0 {
				vec = probe
			} else {
				vec, embedErr = DoWithResult(ctx, ix.retryer, func() ([]float32, error) {
					return ix.embedChunk(ctx, chunks[i])
				})
			}
			if embedErr != nil || len(vec) == 0 {
				failed[i] = true
				ix.logger.Warn("chunk embedding failed",
					"index", req.IndexName,
					"chunk", i,
					"error", embedErr)
				return
			}

			points[i] = vector.Point{
				ID:       chunkID(chunks[i].Content),
				Vector:   vec,
				Content:  chunks[i].Content,
				Metadata: chunkMetadata(chunks[i]),
			}
		}(i)
	}
	wg.Wait()

	var upsert []vector.Point
	failedCount := 0
	for i := range points {
		if failed[i] {
			failedCount++
			continue
		}
		upsert = append(upsert, points[i])
	}
	if len(upsert) == 0 {
		return nil, fmt.Errorf("all %d chunks failed to embed", len(chunks))
	}

	if err := ix.vectors.Upsert(ctx, req.IndexName, upsert); err != nil {
		return nil, fmt.Errorf("upserting %d points to %s: %w", len(upsert), req.IndexName, err)
	}

	return &PrepareResult{
		Success:      true,
		IndexName:    req.IndexName,
		DocCount:     docCount,
		ChunksCount:  len(upsert),
		FailedChunks: failedCount,
	}, nil
}

// embedChunk embeds chunk content, truncated to the provider's input cap.
func (ix *Indexer) embedChunk(ctx context.Context, c Chunk) ([]float32, error) {
	text := c.Content
	if limit := ix.cfg.EmbedCharCap; limit > 0 && len(text) > limit {
		text = text[:limit]
	}
	vec, err := ix.embedder.EmbedWithContext(ctx, text, embedder.InputDocument)
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("provider returned empty embedding")
	}
	return vec, nil
}

// chunkMetadata flattens chunk fields into point metadata.
func chunkMetadata(c Chunk) map[string]any {
	m := map[string]any{
		"source": c.Source,
		"page":   c.Page,
	}
	if c.SectionTitle != "" {
		m["section_title"] = c.SectionTitle
	}
	if c.BenefitCategory != "" {
		m["benefit_category"] = c.BenefitCategory
	}
	if c.CoverageType != "" {
		m["coverage_type"] = c.CoverageType
	}
	if len(c.CPTCodes) > 0 {
		m["cpt_codes"] = c.CPTCodes
	}
	if c.HasCostInfo {
		m["has_cost_info"] = true
	}
	if c.HasTables {
		m["has_tables"] = true
	}
	return m
}
