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

// Package config defines the service configuration and its loader.
//
// Configuration is a single YAML document with ${ENV} / ${ENV:-default}
// expansion applied to every string value before decoding. Each section
// carries its own SetDefaults and Validate methods so components can be
// constructed from a section in isolation (tests do this a lot).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root service configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Logging      LoggingConfig      `yaml:"logging"`
	Database     DatabaseConfig     `yaml:"database"`
	ObjectStore  ObjectStoreConfig  `yaml:"object_store"`
	VectorStore  VectorStoreConfig  `yaml:"vector_store"`
	LocalStore   LocalStoreConfig   `yaml:"local_store"`
	Embedder     EmbedderConfig     `yaml:"embedder"`
	Reranker     RerankerConfig     `yaml:"reranker"`
	LLM          LLMConfig          `yaml:"llm"`
	RAG          RAGConfig          `yaml:"rag"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is "simple" (level + message) or "verbose" (adds timestamps).
	Format string `yaml:"format"`

	// File redirects log output to a file when set.
	File string `yaml:"file,omitempty"`
}

// DatabaseConfig configures the relational backing store (Postgres).
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password,omitempty"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`

	MaxOpenConns int `yaml:"max_open_conns"`
	MaxIdleConns int `yaml:"max_idle_conns"`

	// MembersTable, DeductiblesTable and AccumulatorsTable name the backing
	// tables. The latter two are transposed wide tables (one column per
	// member id, row key column "Metric").
	MembersTable      string `yaml:"members_table"`
	DeductiblesTable  string `yaml:"deductibles_table"`
	AccumulatorsTable string `yaml:"accumulators_table"`
}

// DSN renders a lib/pq connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// ObjectStoreConfig configures the S3-style object store that holds
// pre-extracted page files.
type ObjectStoreConfig struct {
	Region string `yaml:"region"`
	Bucket string `yaml:"bucket"`

	// Endpoint overrides the S3 endpoint (for localstack/minio).
	Endpoint string `yaml:"endpoint,omitempty"`

	// UsePathStyle forces path-style addressing (required by minio).
	UsePathStyle bool `yaml:"use_path_style,omitempty"`
}

// VectorStoreConfig configures the remote vector database (Qdrant).
type VectorStoreConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	APIKey    string `yaml:"api_key,omitempty"`
	EnableTLS *bool  `yaml:"enable_tls,omitempty"`

	// Collection is the default collection queried by the benefit
	// coverage handler. Prepare requests may target other collections.
	Collection string `yaml:"collection"`

	// Dimension is the collection vector size. It must match the embedding
	// provider's output; prepare validates this with a probe embedding.
	Dimension int `yaml:"dimension"`
}

// LocalStoreConfig configures the embedded chromem store used by the
// local-document handler.
type LocalStoreConfig struct {
	// PersistPath for on-disk persistence. Empty means in-memory only.
	PersistPath string `yaml:"persist_path,omitempty"`

	// Compress enables gzip compression for persisted vectors.
	Compress bool `yaml:"compress,omitempty"`

	// Collection is the collection name for locally extracted documents.
	Collection string `yaml:"collection"`

	// WatchPath enables re-indexing when extraction files under this
	// directory change.
	WatchPath string `yaml:"watch_path,omitempty"`
}

// EmbedderConfig configures an embedding provider.
type EmbedderConfig struct {
	// Type is "cohere" (remote) or "ollama" (local).
	Type      string `yaml:"type"`
	Model     string `yaml:"model"`
	Host      string `yaml:"host,omitempty"`
	APIKey    string `yaml:"api_key,omitempty"`
	Dimension int    `yaml:"dimension"`

	// Timeout in seconds for a single embedding request.
	Timeout    int `yaml:"timeout"`
	MaxRetries int `yaml:"max_retries"`

	// Local configures the local (Ollama) embedder used by the
	// local-document handler. Only meaningful on the top-level section.
	Local *EmbedderConfig `yaml:"local,omitempty"`
}

// RerankerConfig configures the cross-encoder rerank provider.
type RerankerConfig struct {
	Model      string `yaml:"model"`
	Host       string `yaml:"host,omitempty"`
	APIKey     string `yaml:"api_key,omitempty"`
	Timeout    int    `yaml:"timeout"`
	MaxRetries int    `yaml:"max_retries"`
}

// LLMConfig configures the generation provider.
type LLMConfig struct {
	// Type is the provider type; only "anthropic" is wired today.
	Type        string  `yaml:"type"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key,omitempty"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// RAGConfig configures indexing and retrieval behavior.
type RAGConfig struct {
	// ChunkSize is the default adaptive chunking target in characters.
	ChunkSize int `yaml:"chunk_size"`

	// ChunkOverlap is accepted for API compatibility. Non-zero values are
	// rejected with a typed error; overlap is not implemented.
	ChunkOverlap int `yaml:"chunk_overlap"`

	// TopK is the default number of sources returned by a query.
	TopK int `yaml:"top_k"`

	// CandidateCap bounds the pre-rerank retrieval size (min(2*k, cap)).
	CandidateCap int `yaml:"candidate_cap"`

	// EmbedCharCap truncates chunk text before embedding (provider limit).
	EmbedCharCap int `yaml:"embed_char_cap"`

	// ContextTokenBudget caps the joined source text in the grounded prompt.
	ContextTokenBudget int `yaml:"context_token_budget"`

	// MaxConcurrentIndexing bounds the embedding worker pool.
	MaxConcurrentIndexing int `yaml:"max_concurrent_indexing"`
}

// OrchestratorConfig configures request orchestration.
type OrchestratorConfig struct {
	// MaxHistory bounds per-session history length.
	MaxHistory int `yaml:"max_history"`

	// PreserveHistory enables session history by default.
	PreserveHistory bool `yaml:"preserve_history"`

	// DisambiguationThreshold: classifier confidence below this consults
	// the LLM to disambiguate intent. Zero disables LLM disambiguation.
	DisambiguationThreshold float64 `yaml:"disambiguation_threshold"`
}

// MetricsConfig configures the Prometheus metrics exporter.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// SetDefaults applies defaults to every section.
func (c *Config) SetDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "simple"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.MembersTable == "" {
		c.Database.MembersTable = "members"
	}
	if c.Database.DeductiblesTable == "" {
		c.Database.DeductiblesTable = "deductibles_oop"
	}
	if c.Database.AccumulatorsTable == "" {
		c.Database.AccumulatorsTable = "benefit_accumulators"
	}
	if c.VectorStore.Port == 0 {
		c.VectorStore.Port = 6334
	}
	if c.VectorStore.Dimension == 0 {
		c.VectorStore.Dimension = 1024
	}
	if c.VectorStore.Collection == "" {
		c.VectorStore.Collection = "benefit_documents"
	}
	if c.LocalStore.Collection == "" {
		c.LocalStore.Collection = "local_documents"
	}
	if c.Embedder.Type == "" {
		c.Embedder.Type = "cohere"
	}
	if c.Embedder.Model == "" {
		c.Embedder.Model = "embed-english-v3.0"
	}
	if c.Embedder.Dimension == 0 {
		c.Embedder.Dimension = 1024
	}
	if c.Embedder.Timeout == 0 {
		c.Embedder.Timeout = 30
	}
	if c.Embedder.MaxRetries == 0 {
		c.Embedder.MaxRetries = 3
	}
	if c.Embedder.Local == nil {
		c.Embedder.Local = &EmbedderConfig{}
	}
	if c.Embedder.Local.Type == "" {
		c.Embedder.Local.Type = "ollama"
	}
	if c.Embedder.Local.Model == "" {
		c.Embedder.Local.Model = "nomic-embed-text"
	}
	if c.Embedder.Local.Host == "" {
		c.Embedder.Local.Host = "http://localhost:11434"
	}
	if c.Embedder.Local.Dimension == 0 {
		c.Embedder.Local.Dimension = 768
	}
	if c.Embedder.Local.Timeout == 0 {
		c.Embedder.Local.Timeout = 30
	}
	if c.Embedder.Local.MaxRetries == 0 {
		c.Embedder.Local.MaxRetries = 3
	}
	if c.Reranker.Model == "" {
		c.Reranker.Model = "rerank-english-v3.0"
	}
	if c.Reranker.Timeout == 0 {
		c.Reranker.Timeout = 30
	}
	if c.Reranker.MaxRetries == 0 {
		c.Reranker.MaxRetries = 3
	}
	if c.LLM.Type == "" {
		c.LLM.Type = "anthropic"
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.3
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 2000
	}
	if c.RAG.ChunkSize == 0 {
		c.RAG.ChunkSize = 1000
	}
	if c.RAG.TopK == 0 {
		c.RAG.TopK = 5
	}
	if c.RAG.CandidateCap == 0 {
		c.RAG.CandidateCap = 20
	}
	if c.RAG.EmbedCharCap == 0 {
		c.RAG.EmbedCharCap = 8000
	}
	if c.RAG.ContextTokenBudget == 0 {
		c.RAG.ContextTokenBudget = 6000
	}
	if c.RAG.MaxConcurrentIndexing == 0 {
		c.RAG.MaxConcurrentIndexing = 4
	}
	if c.Orchestrator.MaxHistory == 0 {
		c.Orchestrator.MaxHistory = 50
	}
	if c.Orchestrator.DisambiguationThreshold == 0 {
		c.Orchestrator.DisambiguationThreshold = 0.45
	}
}

// Validate checks cross-field constraints that SetDefaults cannot repair.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.VectorStore.Dimension != c.Embedder.Dimension {
		return fmt.Errorf("vector store dimension %d does not match embedder dimension %d",
			c.VectorStore.Dimension, c.Embedder.Dimension)
	}
	if c.RAG.ChunkOverlap < 0 {
		return fmt.Errorf("chunk_overlap must be >= 0, got %d", c.RAG.ChunkOverlap)
	}
	return nil
}

// Load reads, env-expands, decodes, defaults and validates a config file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	expanded := expandEnvVars(string(raw))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &cfg, nil
}

// Default returns a fully defaulted configuration without reading a file.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}
