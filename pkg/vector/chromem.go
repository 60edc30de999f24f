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

package vector

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/philippgille/chromem-go"
)

// ChromemConfig configures the embedded store.
type ChromemConfig struct {
	// PersistPath enables on-disk persistence. Empty means memory only.
	PersistPath string
	// Compress gzips the persisted database.
	Compress bool
}

// ChromemProvider implements Provider with an embedded chromem-go store.
// It backs the local-document collections: single-process, no external
// service, vectors held in RAM with optional file persistence.
type ChromemProvider struct {
	db     *chromem.DB
	logger *slog.Logger

	mu          sync.RWMutex
	collections map[string]*chromem.Collection
	dimensions  map[string]int
}

// NewChromemProvider opens (or creates) the embedded store.
func NewChromemProvider(cfg ChromemConfig) (*ChromemProvider, error) {
	var db *chromem.DB
	var err error

	if cfg.PersistPath != "" {
		db, err = chromem.NewPersistentDB(cfg.PersistPath, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("opening chromem store at %s: %w", cfg.PersistPath, err)
		}
	} else {
		db = chromem.NewDB()
	}

	return &ChromemProvider{
		db:          db,
		logger:      slog.Default().With("component", "vector.chromem"),
		collections: make(map[string]*chromem.Collection),
		dimensions:  make(map[string]int),
	}, nil
}

// getCollection gets or creates a collection, caching the reference.
func (p *ChromemProvider) getCollection(name string) (*chromem.Collection, error) {
	p.mu.RLock()
	if col, ok := p.collections[name]; ok {
		p.mu.RUnlock()
		return col, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if col, ok := p.collections[name]; ok {
		return col, nil
	}

	// Vectors arrive pre-computed; the embedding function must never run.
	identityEmbed := func(ctx context.Context, text string) ([]float32, error) {
		return nil, fmt.Errorf("embedding function called but vectors are pre-computed")
	}

	col, err := p.db.GetOrCreateCollection(name, nil, identityEmbed)
	if err != nil {
		return nil, fmt.Errorf("getting collection %q: %w", name, err)
	}
	p.collections[name] = col
	return col, nil
}

// EnsureCollection creates the collection if missing. chromem derives the
// stored dimension from the first vector it sees, so the provider tracks
// the declared dimension itself and rejects a conflicting redeclaration.
func (p *ChromemProvider) EnsureCollection(_ context.Context, collection string, dimension int) error {
	if _, err := p.getCollection(collection); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.dimensions[collection]; ok && dimension > 0 && existing != dimension {
		return &CollectionMismatchError{
			Collection: collection,
			Existing:   existing,
			Requested:  dimension,
		}
	}
	if dimension > 0 {
		p.dimensions[collection] = dimension
	}
	return nil
}

// Upsert writes a batch of pre-embedded documents.
func (p *ChromemProvider) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	col, err := p.getCollection(collection)
	if err != nil {
		return err
	}

	p.mu.Lock()
	if _, ok := p.dimensions[collection]; !ok && len(points[0].Vector) > 0 {
		p.dimensions[collection] = len(points[0].Vector)
	}
	p.mu.Unlock()

	docs := make([]chromem.Document, 0, len(points))
	for _, pt := range points {
		// chromem metadata is string-valued.
		strMetadata := make(map[string]string, len(pt.Metadata))
		for k, v := range pt.Metadata {
			strMetadata[k] = fmt.Sprint(v)
		}
		docs = append(docs, chromem.Document{
			ID:        pt.ID,
			Content:   pt.Content,
			Metadata:  strMetadata,
			Embedding: pt.Vector,
		})
	}

	if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("upserting %d documents into %q: %w", len(points), collection, err)
	}
	return nil
}

// Search queries by pre-computed vector. topK is clamped to the collection
// size; chromem rejects oversized result requests.
func (p *ChromemProvider) Search(ctx context.Context, collection string, vector []float32, topK int) ([]Result, error) {
	col, err := p.getCollection(collection)
	if err != nil {
		return nil, err
	}

	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	results, err := col.QueryEmbedding(ctx, vector, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", collection, err)
	}

	out := make([]Result, 0, len(results))
	for _, r := range results {
		metadata := make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			metadata[k] = v
		}
		out = append(out, Result{
			ID:       r.ID,
			Score:    r.Similarity,
			Content:  r.Content,
			Metadata: metadata,
		})
	}
	return out, nil
}

// Count reports the number of stored documents.
func (p *ChromemProvider) Count(_ context.Context, collection string) (uint64, error) {
	col, err := p.getCollection(collection)
	if err != nil {
		return 0, err
	}
	return uint64(col.Count()), nil
}

// DeleteCollection drops the collection and forgets the cached reference.
func (p *ChromemProvider) DeleteCollection(_ context.Context, collection string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.db.DeleteCollection(collection); err != nil {
		return fmt.Errorf("deleting collection %q: %w", collection, err)
	}
	delete(p.collections, collection)
	delete(p.dimensions, collection)
	return nil
}

// Healthy always reports true: the store is in-process.
func (p *ChromemProvider) Healthy(_ context.Context) bool {
	return true
}

// Close is a no-op; persistence happens on write.
func (p *ChromemProvider) Close() error {
	return nil
}
