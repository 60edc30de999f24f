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

// Package mba is a medical benefits administration service.
//
// A single orchestrator classifies each member question into one of six
// intents and routes it to a specialized handler: member verification,
// deductible and out-of-pocket lookup, benefit accumulators, policy
// document retrieval (RAG), locally extracted documents, and a general
// fallback. Handlers share one contract and one error taxonomy, so the
// orchestrator and the HTTP surface treat them uniformly.
//
// The RAG path indexes pre-extracted page files from an object store
// into Qdrant with adaptive chunking and deterministic chunk ids, then
// answers questions with embedding search, optional cross-encoder
// reranking, and grounded LLM synthesis that cites its sources.
//
// Start the server:
//
//	mba serve --config config.yaml
//
// See config.example.yaml for the full configuration surface.
package mba
