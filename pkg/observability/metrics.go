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

// Package observability exposes service metrics through an OpenTelemetry
// meter with a Prometheus exporter. Disabled metrics degrade to no-ops;
// recording is always nil-safe.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics records orchestration and retrieval measurements.
type Metrics struct {
	requestDuration metric.Float64Histogram
	requestsTotal   metric.Int64Counter
	handlerErrors   metric.Int64Counter

	ragQueryDuration metric.Float64Histogram
	ragIndexedChunks metric.Int64Counter
	ragFailedChunks  metric.Int64Counter
}

// InitMetrics builds the meter and its instruments. With enabled false
// it returns an empty recorder whose methods do nothing.
func InitMetrics(enabled bool) (*Metrics, error) {
	if !enabled {
		return &Metrics{}, nil
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	meter := meterProvider.Meter("mba")

	requestDuration, err := meter.Float64Histogram(
		"mba_orchestrate_duration_seconds",
		metric.WithDescription("Orchestration request duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request duration histogram: %w", err)
	}

	requestsTotal, err := meter.Int64Counter(
		"mba_orchestrate_requests_total",
		metric.WithDescription("Total orchestration requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create requests counter: %w", err)
	}

	handlerErrors, err := meter.Int64Counter(
		"mba_handler_errors_total",
		metric.WithDescription("Total handler failures by error category"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create handler errors counter: %w", err)
	}

	ragQueryDuration, err := meter.Float64Histogram(
		"mba_rag_query_duration_seconds",
		metric.WithDescription("RAG query duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rag query histogram: %w", err)
	}

	ragIndexedChunks, err := meter.Int64Counter(
		"mba_rag_indexed_chunks_total",
		metric.WithDescription("Total chunks indexed"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create indexed chunks counter: %w", err)
	}

	ragFailedChunks, err := meter.Int64Counter(
		"mba_rag_failed_chunks_total",
		metric.WithDescription("Total chunks that failed to embed"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create failed chunks counter: %w", err)
	}

	return &Metrics{
		requestDuration:  requestDuration,
		requestsTotal:    requestsTotal,
		handlerErrors:    handlerErrors,
		ragQueryDuration: ragQueryDuration,
		ragIndexedChunks: ragIndexedChunks,
		ragFailedChunks:  ragFailedChunks,
	}, nil
}

// RecordOrchestration records one orchestrate call.
func (m *Metrics) RecordOrchestration(ctx context.Context, intent string, duration time.Duration, success bool, errorCategory string) {
	if m == nil || m.requestsTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("intent", intent),
		attribute.Bool("success", success),
	}
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.requestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))

	if !success && errorCategory != "" && m.handlerErrors != nil {
		m.handlerErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("category", errorCategory),
		))
	}
}

// RecordRAGQuery records one grounded query.
func (m *Metrics) RecordRAGQuery(ctx context.Context, index string, duration time.Duration, success bool) {
	if m == nil || m.ragQueryDuration == nil {
		return
	}
	m.ragQueryDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("index", index),
		attribute.Bool("success", success),
	))
}

// RecordIndexing records the outcome of one prepare run.
func (m *Metrics) RecordIndexing(ctx context.Context, index string, indexed, failed int) {
	if m == nil || m.ragIndexedChunks == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("index", index))
	m.ragIndexedChunks.Add(ctx, int64(indexed), attrs)
	if failed > 0 && m.ragFailedChunks != nil {
		m.ragFailedChunks.Add(ctx, int64(failed), attrs)
	}
}
