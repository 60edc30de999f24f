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
	"strings"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig configures the remote store connection.
type QdrantConfig struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// QdrantProvider implements Provider over a remote Qdrant instance. It
// holds the policy-document collections used by the RAG index.
type QdrantProvider struct {
	client *qdrant.Client
	logger *slog.Logger
}

// NewQdrantProvider connects to Qdrant over gRPC.
func NewQdrantProvider(cfg QdrantConfig) (*QdrantProvider, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("creating qdrant client: %w", err)
	}
	return &QdrantProvider{
		client: client,
		logger: slog.Default().With("component", "vector.qdrant"),
	}, nil
}

// EnsureCollection creates the collection with cosine distance if it does
// not exist. An existing collection is verified against the requested
// dimension. A concurrent create by another process is not an error.
func (p *QdrantProvider) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	exists, err := p.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("checking collection %q: %w", collection, err)
	}
	if exists {
		info, err := p.client.GetCollectionInfo(ctx, collection)
		if err != nil {
			return fmt.Errorf("inspecting collection %q: %w", collection, err)
		}
		existing := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
		if existing != 0 && existing != uint64(dimension) {
			return &CollectionMismatchError{
				Collection: collection,
				Existing:   int(existing),
				Requested:  dimension,
			}
		}
		return nil
	}

	err = p.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return nil
		}
		return fmt.Errorf("creating collection %q: %w", collection, err)
	}

	p.logger.Info("created collection", "collection", collection, "dimension", dimension)
	return nil
}

// Upsert writes points in a single batch.
func (p *QdrantProvider) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	qpoints := make([]*qdrant.PointStruct, 0, len(points))
	for _, pt := range points {
		payload := make(map[string]*qdrant.Value, len(pt.Metadata)+1)
		for key, value := range pt.Metadata {
			val, err := qdrant.NewValue(value)
			if err != nil {
				return fmt.Errorf("converting metadata value for key %s: %w", key, err)
			}
			payload[key] = val
		}
		contentVal, err := qdrant.NewValue(pt.Content)
		if err != nil {
			return fmt.Errorf("converting content payload: %w", err)
		}
		payload["content"] = contentVal

		qpoints = append(qpoints, &qdrant.PointStruct{
			Id:      qdrant.NewID(pt.ID),
			Vectors: qdrant.NewVectors(pt.Vector...),
			Payload: payload,
		})
	}

	_, err := p.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         qpoints,
	})
	if err != nil {
		return fmt.Errorf("upserting %d points into %q: %w", len(points), collection, err)
	}
	return nil
}

// Search runs similarity search with payloads attached.
func (p *QdrantProvider) Search(ctx context.Context, collection string, vector []float32, topK int) ([]Result, error) {
	searchRequest := &qdrant.SearchPoints{
		CollectionName: collection,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload:    qdrant.NewWithPayload(true),
	}

	searchResult, err := p.client.GetPointsClient().Search(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", collection, err)
	}

	results := make([]Result, 0, len(searchResult.Result))
	for _, point := range searchResult.Result {
		var id string
		if point.Id != nil && point.Id.PointIdOptions != nil {
			switch idType := point.Id.PointIdOptions.(type) {
			case *qdrant.PointId_Uuid:
				id = idType.Uuid
			case *qdrant.PointId_Num:
				id = fmt.Sprintf("%d", idType.Num)
			}
		}

		metadata := decodePayload(point.Payload)

		content := ""
		if c, ok := metadata["content"].(string); ok {
			content = c
			delete(metadata, "content")
		}

		results = append(results, Result{
			ID:       id,
			Score:    point.Score,
			Content:  content,
			Metadata: metadata,
		})
	}
	return results, nil
}

// decodePayload converts the Qdrant payload map back into plain Go values.
func decodePayload(payload map[string]*qdrant.Value) map[string]any {
	metadata := make(map[string]any, len(payload))
	for key, value := range payload {
		metadata[key] = decodeValue(value)
	}
	return metadata
}

func decodeValue(value *qdrant.Value) any {
	switch v := value.Kind.(type) {
	case *qdrant.Value_StringValue:
		return v.StringValue
	case *qdrant.Value_IntegerValue:
		return v.IntegerValue
	case *qdrant.Value_DoubleValue:
		return v.DoubleValue
	case *qdrant.Value_BoolValue:
		return v.BoolValue
	case *qdrant.Value_ListValue:
		if v.ListValue == nil {
			return nil
		}
		list := make([]any, len(v.ListValue.Values))
		for i, item := range v.ListValue.Values {
			list[i] = decodeValue(item)
		}
		return list
	default:
		return value
	}
}

// Count reports the point count, used to verify idempotent re-indexing.
func (p *QdrantProvider) Count(ctx context.Context, collection string) (uint64, error) {
	count, err := p.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
	})
	if err != nil {
		return 0, fmt.Errorf("counting points in %q: %w", collection, err)
	}
	return count, nil
}

// DeleteCollection drops the collection.
func (p *QdrantProvider) DeleteCollection(ctx context.Context, collection string) error {
	if err := p.client.DeleteCollection(ctx, collection); err != nil {
		return fmt.Errorf("deleting collection %q: %w", collection, err)
	}
	return nil
}

// Healthy reports whether the Qdrant instance answers.
func (p *QdrantProvider) Healthy(ctx context.Context) bool {
	if _, err := p.client.HealthCheck(ctx); err != nil {
		p.logger.Warn("qdrant health check failed", "error", err)
		return false
	}
	return true
}

// Close closes the gRPC connection.
func (p *QdrantProvider) Close() error {
	return p.client.Close()
}
