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

// Command mba runs the medical benefits administration service.
//
// Usage:
//
//	mba serve --config config.yaml
//	mba validate --config config.yaml
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/config"
	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/embedder"
	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/handlers"
	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/intent"
	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/llms"
	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/localdocs"
	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/logger"
	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/objectstore"
	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/observability"
	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/orchestrator"
	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/rag"
	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/server"
	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/sqlstore"
	"github.com/rohitsmagdum13/MBA-CT-sub000/pkg/vector"
)

// CLI defines the command-line interface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Serve    ServeCmd    `cmd:"" help:"Start the benefits administration server."`
	Validate ValidateCmd `cmd:"" help:"Validate configuration file."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)."`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple or verbose)."`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("mba version %s\n", version)
	return nil
}

// ValidateCmd checks a configuration file without starting anything.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	if cli.Config == "" {
		return fmt.Errorf("--config is required for validate")
	}
	if _, err := config.Load(cli.Config); err != nil {
		return err
	}
	fmt.Printf("%s: OK\n", cli.Config)
	return nil
}

// ServeCmd starts the HTTP server with every adapter the configuration
// names. Adapters that cannot be constructed leave their endpoints
// disabled rather than failing startup; the health endpoint reports them.
type ServeCmd struct {
	Port int `help:"Override the configured listen port."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}
	cleanup, err := initLogging(cli, cfg)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}
	log := slog.Default()

	metrics, err := observability.InitMetrics(cfg.Metrics.Enabled)
	if err != nil {
		return fmt.Errorf("initializing metrics: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := server.Deps{
		Health:  map[string]server.HealthCheck{},
		Metrics: metrics,
		Logger:  log,
	}

	// Relational adapter: member verification, deductibles, accumulators.
	var store *sqlstore.Store
	if cfg.Database.Host != "" {
		store, err = sqlstore.Open(cfg.Database.DSN(), cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
		if err != nil {
			log.Warn("database unavailable, member endpoints disabled", "error", err)
		} else {
			defer store.Close()
			deps.Health["database"] = func(ctx context.Context) bool {
				return store.Ping(ctx) == nil
			}
		}
	}

	// Object store holding pre-extracted page files.
	var objStore *objectstore.Store
	if cfg.ObjectStore.Bucket != "" {
		objStore, err = objectstore.New(ctx, objectstore.Config{
			Bucket:       cfg.ObjectStore.Bucket,
			Region:       cfg.ObjectStore.Region,
			Endpoint:     cfg.ObjectStore.Endpoint,
			UsePathStyle: cfg.ObjectStore.UsePathStyle,
		})
		if err != nil {
			log.Warn("object store unavailable, indexing disabled", "error", err)
		} else {
			deps.Health["object_store"] = objStore.Healthy
		}
	}

	// Remote vector store backing the policy-document collections.
	var vectors vector.Provider
	if cfg.VectorStore.Host != "" {
		qdrant, err := vector.NewQdrantProvider(vector.QdrantConfig{
			Host:   cfg.VectorStore.Host,
			Port:   cfg.VectorStore.Port,
			APIKey: cfg.VectorStore.APIKey,
			UseTLS: cfg.VectorStore.EnableTLS != nil && *cfg.VectorStore.EnableTLS,
		})
		if err != nil {
			log.Warn("vector store unavailable, retrieval disabled", "error", err)
		} else {
			defer qdrant.Close()
			vectors = qdrant
			deps.Health["vector_store"] = qdrant.Healthy
		}
	}

	emb, err := embedder.New(&cfg.Embedder)
	if err != nil {
		log.Warn("embedder unavailable, retrieval disabled", "error", err)
		emb = nil
	}

	llm, err := llms.New(&cfg.LLM)
	if err != nil {
		log.Warn("LLM unavailable, generation and disambiguation disabled", "error", err)
		llm = nil
	}

	var reranker rag.Reranker
	if r, err := rag.NewCohereReranker(&cfg.Reranker); err != nil {
		log.Warn("reranker unavailable, queries fall back to retrieval order", "error", err)
	} else {
		reranker = r
	}

	// RAG indexing and query paths.
	var engine *rag.Engine
	if vectors != nil && emb != nil {
		if objStore != nil {
			deps.Indexer = rag.NewIndexer(objStore, vectors, emb, &cfg.RAG, log)
		}
		engine = rag.NewEngine(vectors, emb, llm, reranker, &cfg.RAG, log)
		deps.Engine = engine
	}

	// Local extracted-document store on the embedded vector database.
	var local *localdocs.Store
	if cfg.LocalStore.WatchPath != "" {
		localEmb, err := embedder.New(cfg.Embedder.Local)
		if err != nil {
			log.Warn("local embedder unavailable, local documents disabled", "error", err)
		} else {
			chromem, err := vector.NewChromemProvider(vector.ChromemConfig{
				PersistPath: cfg.LocalStore.PersistPath,
				Compress:    cfg.LocalStore.Compress,
			})
			if err != nil {
				log.Warn("embedded vector store unavailable, local documents disabled", "error", err)
			} else {
				local = localdocs.New(&cfg.LocalStore, chromem, localEmb, llm, &cfg.RAG, log)
				watcher, err := localdocs.NewWatcher(local, 0, log)
				if err != nil {
					log.Warn("document watcher unavailable", "error", err)
				} else if err := watcher.Start(ctx); err != nil {
					log.Warn("document watcher failed to start", "error", err)
				} else {
					defer func() { _ = watcher.Stop() }()
				}
			}
		}
	}

	orch := orchestrator.New(&cfg.Orchestrator, llm, log)
	orch.Register(intent.GeneralInquiry, handlers.NewGeneralHandler())
	if store != nil {
		member := handlers.NewMemberHandler(store, cfg.Database.MembersTable)
		deduct := handlers.NewDeductibleHandler(store, cfg.Database.DeductiblesTable)
		accum := handlers.NewAccumulatorHandler(store, cfg.Database.AccumulatorsTable)
		orch.Register(intent.MemberVerification, member)
		orch.Register(intent.DeductibleOOP, deduct)
		orch.Register(intent.BenefitAccumulator, accum)
		deps.Members = member
		deps.Deductibles = deduct
		deps.Accumulators = accum
	}
	if engine != nil {
		querier := rag.NewIndexQuerier(engine, cfg.VectorStore.Collection, true)
		orch.Register(intent.BenefitCoverageRAG, handlers.NewBenefitCoverageHandler(querier, cfg.RAG.TopK))
	}
	if local != nil {
		orch.Register(intent.LocalRAG, handlers.NewLocalDocHandler(local, cfg.RAG.TopK))
	}
	deps.Orchestrator = orch

	port := cfg.Server.Port
	if c.Port != 0 {
		port = c.Port
	}
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, port)
	log.Info("starting server", "addr", addr)
	return server.New(deps).Run(ctx, addr)
}

// loadConfig reads the config file when given one, otherwise serves on
// defaults (useful for local development against a seeded environment).
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// initLogging applies CLI overrides on top of the config logging section.
func initLogging(cli *CLI, cfg *config.Config) (func(), error) {
	levelStr := cfg.Logging.Level
	if cli.LogLevel != "" {
		levelStr = cli.LogLevel
	}
	level, err := logger.ParseLevel(levelStr)
	if err != nil {
		return nil, err
	}

	format := cfg.Logging.Format
	if cli.LogFormat != "" {
		format = cli.LogFormat
	}

	file := cfg.Logging.File
	if cli.LogFile != "" {
		file = cli.LogFile
	}

	output := os.Stderr
	var cleanup func()
	if file != "" {
		f, closeFn, err := logger.OpenLogFile(file)
		if err != nil {
			return nil, err
		}
		output = f
		cleanup = closeFn
	}

	logger.Init(level, output, format)
	return cleanup, nil
}

func main() {
	_ = config.LoadDotEnv("")

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("mba"),
		kong.Description("Medical benefits administration service"),
		kong.UsageOnError(),
	)

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
