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

// Package vector defines the vector-store adapter interface and its two
// implementations: a remote Qdrant store for the policy index and an
// embedded chromem store for local documents.
package vector

import (
	"context"
	"fmt"
)

// CollectionMismatchError reports that a collection already exists with a
// vector size different from the one requested. Searching or upserting
// against it would silently return wrong results, so providers refuse.
type CollectionMismatchError struct {
	Collection string
	Existing   int
	Requested  int
}

func (e *CollectionMismatchError) Error() string {
	return fmt.Sprintf("collection %q has dimension %d, requested %d",
		e.Collection, e.Existing, e.Requested)
}

// Point is a vector with its content and metadata, ready to upsert.
// IDs are deterministic (derived from content), so re-upserting the same
// content is idempotent.
type Point struct {
	ID       string
	Vector   []float32
	Content  string
	Metadata map[string]any
}

// Result is a similarity-search hit. Score is higher-is-better.
type Result struct {
	ID       string         `json:"id"`
	Score    float32        `json:"score"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// Provider is the vector-store adapter contract.
type Provider interface {
	// EnsureCollection creates the collection with the given dimension if
	// it does not already exist. An existing collection with a different
	// dimension yields a *CollectionMismatchError.
	EnsureCollection(ctx context.Context, collection string, dimension int) error

	// Upsert writes a batch of points. Points with existing ids are
	// replaced.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search returns up to topK most similar points.
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]Result, error)

	// Count reports the number of points in a collection.
	Count(ctx context.Context, collection string) (uint64, error)

	// DeleteCollection drops a collection and its points.
	DeleteCollection(ctx context.Context, collection string) error

	// Healthy reports store reachability.
	Healthy(ctx context.Context) bool

	// Close releases the underlying connection.
	Close() error
}
