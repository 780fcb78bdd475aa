package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/reliefworks/go-planner/api"
	"github.com/reliefworks/go-planner/config"
	"github.com/reliefworks/go-planner/database"
	"github.com/reliefworks/go-planner/embeddings"
	"github.com/reliefworks/go-planner/graph"
	"github.com/reliefworks/go-planner/retrieval"
	"github.com/reliefworks/go-planner/snapshot"
	"github.com/reliefworks/go-planner/vectors"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.WithError(err).Warn("load .env")
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}

	switch os.Args[1] {
	case "serve":
		serveCmd(cfg, logger, os.Args[2:])
	case "query":
		queryCmd(cfg, logger, os.Args[2:])
	case "load":
		loadCmd(cfg, logger, os.Args[2:])
	default:
		logger.Errorf("unknown command: %s", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func serveCmd(cfg config.Config, logger *logrus.Logger, args []string) {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := flags.String("addr", cfg.ListenAddr, "address to listen on")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse serve flags: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	engine, cleanup, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("engine setup: %v", err)
	}
	defer cleanup()

	server := &http.Server{
		Addr:    *addr,
		Handler: api.New(engine, cfg.Retrieval, logger).Handler(),
	}

	go func() {
		<-ctx.Done()
		_ = server.Shutdown(context.Background())
	}()

	logger.WithField("addr", *addr).Info("retrieval API listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("serve: %v", err)
	}
}

func queryCmd(cfg config.Config, logger *logrus.Logger, args []string) {
	flags := flag.NewFlagSet("query", flag.ExitOnError)
	query := flags.String("q", "", "query text")
	modeName := flags.String("mode", string(retrieval.ModeAutomatic), "retrieval mode: node_name, summary, content, automatic")
	topK := flags.Int("k", 5, "number of results")
	hybrid := flags.Bool("hybrid", false, "run hybrid retrieval instead of a single strategy")
	expand := flags.Int("expand", 0, "graph expansion depth for hybrid retrieval")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse query flags: %v", err)
	}
	if *query == "" {
		logger.Fatal("query text is required (-q)")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	engine, cleanup, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("engine setup: %v", err)
	}
	defer cleanup()

	var results []retrieval.Result
	switch {
	case *expand > 0:
		results, err = engine.HybridRetrieveWithGraphExpansion(ctx, *query, *topK, *expand)
	case *hybrid:
		results, err = engine.HybridRetrieve(ctx, *query, *topK, nil)
	default:
		mode, parseErr := retrieval.ParseMode(*modeName)
		if parseErr != nil {
			logger.Fatalf("parse mode: %v", parseErr)
		}
		results, err = engine.Retrieve(ctx, *query, mode, *topK)
	}
	if err != nil {
		logger.Fatalf("retrieve: %v", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(results); err != nil {
		logger.Fatalf("encode results: %v", err)
	}
}

func loadCmd(cfg config.Config, logger *logrus.Logger, args []string) {
	flags := flag.NewFlagSet("load", flag.ExitOnError)
	path := flags.String("corpus", cfg.CorpusPath, "path to the corpus snapshot")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse load flags: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	corpus, err := snapshot.Load(*path)
	if err != nil {
		logger.Fatalf("load corpus: %v", err)
	}

	pgPool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatalf("postgres connection: %v", err)
	}
	defer pgPool.Close()

	if err := database.EnsureChunkSchema(ctx, pgPool, cfg.Embeddings.Dimension); err != nil {
		logger.Fatalf("ensure schema: %v", err)
	}

	neo4jDriver, err := database.NewNeo4jDriver(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPass)
	if err != nil {
		logger.Fatalf("neo4j connection: %v", err)
	}
	defer neo4jDriver.Close(ctx)

	if err := corpus.Sync(ctx, graph.NewNeo4jStore(neo4jDriver), vectors.NewPostgresChunkStore(pgPool), logger); err != nil {
		logger.Fatalf("sync corpus: %v", err)
	}
	logger.WithField("corpus", corpus.Name).Info("corpus loaded")
}

// buildEngine wires the configured store backend, the embedding provider
// and the cache into a retrieval engine. The cleanup function closes any
// database handles the backend opened.
func buildEngine(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*retrieval.Engine, func(), error) {
	provider, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("embedder setup: %w", err)
	}
	embedder := embeddings.NewCachedEmbedder(provider, embeddings.NewCache(), cfg.Retrieval.EmbeddingBatchSize)

	cleanup := func() {}
	var graphStore graph.Store
	var chunkStore vectors.ChunkStore

	switch cfg.StoreBackend {
	case config.BackendMemory:
		corpus, err := snapshot.Load(cfg.CorpusPath)
		if err != nil {
			return nil, nil, err
		}
		memGraph, memChunks, err := corpus.LoadMemory()
		if err != nil {
			return nil, nil, err
		}
		logger.WithFields(logrus.Fields{
			"corpus": corpus.Name,
			"nodes":  memGraph.Len(),
			"chunks": memChunks.Len(),
		}).Info("corpus loaded into memory")
		graphStore, chunkStore = memGraph, memChunks

	case config.BackendDatabase:
		pgPool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres connection: %w", err)
		}
		neo4jDriver, err := database.NewNeo4jDriver(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPass)
		if err != nil {
			pgPool.Close()
			return nil, nil, fmt.Errorf("neo4j connection: %w", err)
		}
		cleanup = func() {
			pgPool.Close()
			_ = neo4jDriver.Close(context.Background())
		}
		graphStore = graph.NewNeo4jStore(neo4jDriver)
		chunkStore = vectors.NewPostgresChunkStore(pgPool)

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	engine, err := retrieval.NewEngine(graphStore, chunkStore, embedder, cfg.Retrieval, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return engine, cleanup, nil
}

func printUsage() {
	fmt.Println("usage: go-planner <command> [flags]")
	fmt.Println()
	fmt.Println("commands:")
	fmt.Println("  serve   run the retrieval HTTP API")
	fmt.Println("  query   run a single retrieval query and print the results")
	fmt.Println("  load    load a corpus snapshot into Neo4j and Postgres")
}
