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
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/config"
	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/embedder"
	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/vector"
)

type fakeEmbedder struct {
	mu        sync.Mutex
	dimension int
	outputDim int
	failOn    string
	calls     []string
}

func newFakeEmbedder(dim int) *fakeEmbedder {
	return &fakeEmbedder{dimension: dim, outputDim: dim}
}

func (e *fakeEmbedder) EmbedWithContext(ctx context.Context, text string, inputType embedder.InputType) ([]float32, error) {
	e.mu.Lock()
	e.calls = append(e.calls, text)
	e.mu.Unlock()

	if e.failOn != "" && strings.Contains(text, e.failOn) {
		return nil, errors.New("embedding provider unavailable")
	}
	vec := make([]float32, e.outputDim)
	for i := range vec {
		vec[i] = float32(len(text) % 7)
	}
	return vec, nil
}

func (e *fakeEmbedder) GetDimension() int    { return e.dimension }
func (e *fakeEmbedder) GetModelName() string { return "fake-embed" }
func (e *fakeEmbedder) Close() error         { return nil }

type fakeVectorStore struct {
	mu          sync.Mutex
	collections map[string]int
	points      map[string]map[string]vector.Point
	searchHits  []vector.Result
	searchErr   error
	upsertErr   error
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{
		collections: make(map[string]int),
		points:      make(map[string]map[string]vector.Point),
	}
}

func (s *fakeVectorStore) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.collections[collection]; ok {
		if existing != dimension {
			return &vector.CollectionMismatchError{
				Collection: collection,
				Existing:   existing,
				Requested:  dimension,
			}
		}
		return nil
	}
	s.collections[collection] = dimension
	s.points[collection] = make(map[string]vector.Point)
	return nil
}

func (s *fakeVectorStore) Upsert(ctx context.Context, collection string, points []vector.Point) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range points {
		s.points[collection][p.ID] = p
	}
	return nil
}

func (s *fakeVectorStore) Search(ctx context.Context, collection string, vec []float32, topK int) ([]vector.Result, error) {
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	if topK > len(s.searchHits) {
		topK = len(s.searchHits)
	}
	return s.searchHits[:topK], nil
}

func (s *fakeVectorStore) Count(ctx context.Context, collection string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint64(len(s.points[collection])), nil
}

func (s *fakeVectorStore) DeleteCollection(ctx context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, collection)
	delete(s.points, collection)
	return nil
}

func (s *fakeVectorStore) Healthy(ctx context.Context) bool { return true }
func (s *fakeVectorStore) Close() error                     { return nil }

func testRAGConfig() *config.RAGConfig {
	cfg := config.Default()
	return &cfg.RAG
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func indexerFixtureStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string][]byte{
		"docs/plan/page_0001.json": pageJSON(
			"Physical Therapy Benefits:",
			"",
			"Covered at 80% after deductible. Limit of 12 visits per year applies to all plan members.",
		),
		"docs/plan/page_0002.json": pageJSON(
			"Massage Therapy:",
			"",
			"Massage therapy is not covered under this plan except when medically necessary.",
		),
		"docs/plan/manifest.json": []byte(`{}`),
	}}
}

func TestIndexerPrepare_Success(t *testing.T) {
	store := indexerFixtureStore()
	vectors := newFakeVectorStore()
	emb := newFakeEmbedder(4)

	ix := NewIndexer(store, vectors, emb, testRAGConfig(), testLogger())
	result, err := ix.Prepare(context.Background(), PrepareRequest{
		Prefix:    "docs/plan",
		IndexName: "benefits",
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "benefits", result.IndexName)
	assert.Equal(t, 2, result.DocCount)
	assert.Equal(t, 2, result.ChunksCount)
	assert.Zero(t, result.FailedChunks)

	assert.Equal(t, 4, vectors.collections["benefits"])
	count, err := vectors.Count(context.Background(), "benefits")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestIndexerPrepare_Idempotent(t *testing.T) {
	store := indexerFixtureStore()
	vectors := newFakeVectorStore()
	ix := NewIndexer(store, vectors, newFakeEmbedder(4), testRAGConfig(), testLogger())

	req := PrepareRequest{Prefix: "docs/plan", IndexName: "benefits"}
	_, err := ix.Prepare(context.Background(), req)
	require.NoError(t, err)
	_, err = ix.Prepare(context.Background(), req)
	require.NoError(t, err)

	// Same content hashes to the same ids; the second run replaces, not
	// duplicates.
	count, err := vectors.Count(context.Background(), "benefits")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestIndexerPrepare_RejectsOverlap(t *testing.T) {
	ix := NewIndexer(indexerFixtureStore(), newFakeVectorStore(), newFakeEmbedder(4), testRAGConfig(), testLogger())

	_, err := ix.Prepare(context.Background(), PrepareRequest{
		Prefix:       "docs/plan",
		IndexName:    "benefits",
		ChunkOverlap: 200,
	})

	var overlapErr *UnsupportedOverlapError
	require.ErrorAs(t, err, &overlapErr)
	assert.Equal(t, 200, overlapErr.Overlap)
}

type boundStore struct {
	*fakeObjectStore
	bucket string
}

func (b boundStore) Bucket() string { return b.bucket }

func TestIndexerPrepare_BucketMismatch(t *testing.T) {
	store := boundStore{indexerFixtureStore(), "benefits-docs"}
	ix := NewIndexer(store, newFakeVectorStore(), newFakeEmbedder(4), testRAGConfig(), testLogger())

	_, err := ix.Prepare(context.Background(), PrepareRequest{
		Bucket:    "someone-elses-bucket",
		Prefix:    "docs/plan",
		IndexName: "benefits",
	})

	var bucketErr *BucketMismatchError
	require.ErrorAs(t, err, &bucketErr)
	assert.Equal(t, "someone-elses-bucket", bucketErr.Requested)
	assert.Equal(t, "benefits-docs", bucketErr.Bound)
}

func TestIndexerPrepare_MatchingBucketAccepted(t *testing.T) {
	store := boundStore{indexerFixtureStore(), "benefits-docs"}
	ix := NewIndexer(store, newFakeVectorStore(), newFakeEmbedder(4), testRAGConfig(), testLogger())

	result, err := ix.Prepare(context.Background(), PrepareRequest{
		Bucket:    "benefits-docs",
		Prefix:    "docs/plan",
		IndexName: "benefits",
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestIndexerPrepare_DimensionMismatch(t *testing.T) {
	emb := newFakeEmbedder(1024)
	emb.outputDim = 768

	ix := NewIndexer(indexerFixtureStore(), newFakeVectorStore(), emb, testRAGConfig(), testLogger())
	_, err := ix.Prepare(context.Background(), PrepareRequest{
		Prefix:    "docs/plan",
		IndexName: "benefits",
	})

	var mismatch *DimensionMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 1024, mismatch.Expected)
	assert.Equal(t, 768, mismatch.Actual)
}

func TestIndexerPrepare_ExistingCollectionDimensionMismatch(t *testing.T) {
	vectors := newFakeVectorStore()
	vectors.collections["benefits"] = 1024
	vectors.points["benefits"] = make(map[string]vector.Point)

	ix := NewIndexer(indexerFixtureStore(), vectors, newFakeEmbedder(768), testRAGConfig(), testLogger())
	_, err := ix.Prepare(context.Background(), PrepareRequest{
		Prefix:    "docs/plan",
		IndexName: "benefits",
	})

	var mismatch *DimensionMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "benefits", mismatch.Collection)
	assert.Equal(t, 1024, mismatch.Expected)
	assert.Equal(t, 768, mismatch.Actual)
}

func TestIndexerPrepare_PartialFailureReported(t *testing.T) {
	emb := newFakeEmbedder(4)
	emb.failOn = "Massage"

	vectors := newFakeVectorStore()
	ix := NewIndexer(indexerFixtureStore(), vectors, emb, testRAGConfig(), testLogger())

	result, err := ix.Prepare(context.Background(), PrepareRequest{
		Prefix:    "docs/plan",
		IndexName: "benefits",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.ChunksCount)
	assert.Equal(t, 1, result.FailedChunks)

	count, err := vectors.Count(context.Background(), "benefits")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestIndexerPrepare_AllFail(t *testing.T) {
	emb := newFakeEmbedder(4)
	emb.failOn = "Therapy"

	ix := NewIndexer(indexerFixtureStore(), newFakeVectorStore(), emb, testRAGConfig(), testLogger())
	_, err := ix.Prepare(context.Background(), PrepareRequest{
		Prefix:    "docs/plan",
		IndexName: "benefits",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "probe embedding failed")
}

func TestIndexerPrepare_NoPages(t *testing.T) {
	store := &fakeObjectStore{objects: map[string][]byte{}}
	ix := NewIndexer(store, newFakeVectorStore(), newFakeEmbedder(4), testRAGConfig(), testLogger())

	_, err := ix.Prepare(context.Background(), PrepareRequest{
		Prefix:    "docs/empty",
		IndexName: "benefits",
	})
	var notFound *NoPageFilesError
	require.ErrorAs(t, err, &notFound)
}

func TestIndexerPrepare_RequiresIndexName(t *testing.T) {
	ix := NewIndexer(indexerFixtureStore(), newFakeVectorStore(), newFakeEmbedder(4), testRAGConfig(), testLogger())
	_, err := ix.Prepare(context.Background(), PrepareRequest{Prefix: "docs/plan"})
	require.Error(t, err)
}

func TestChunkMetadata_Flattening(t *testing.T) {
	meta := chunkMetadata(Chunk{
		Content:         "x",
		Source:          "docs/page_0001.json",
		Page:            1,
		SectionTitle:    "Deductibles",
		BenefitCategory: "therapy",
		CoverageType:    "covered",
		CPTCodes:        []string{"97110"},
		HasCostInfo:     true,
		HasTables:       true,
	})

	assert.Equal(t, "docs/page_0001.json", meta["source"])
	assert.Equal(t, 1, meta["page"])
	assert.Equal(t, "Deductibles", meta["section_title"])
	assert.Equal(t, true, meta["has_tables"])

	sparse := chunkMetadata(Chunk{Content: "x", Source: "s", Page: 2})
	assert.NotContains(t, sparse, "section_title")
	assert.NotContains(t, sparse, "has_cost_info")
}
