package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/kailas-cloud/courserec/internal/config"
	dbRedis "github.com/kailas-cloud/courserec/internal/db/redis"
	"github.com/kailas-cloud/courserec/internal/domain"
	domvec "github.com/kailas-cloud/courserec/internal/domain/vector"
	logpkg "github.com/kailas-cloud/courserec/internal/logger"
	"github.com/kailas-cloud/courserec/internal/metrics"
	"github.com/kailas-cloud/courserec/internal/repository/catalog"
	"github.com/kailas-cloud/courserec/internal/repository/embcache"
	"github.com/kailas-cloud/courserec/internal/repository/memvector"
	"github.com/kailas-cloud/courserec/internal/repository/pgvector"
	"github.com/kailas-cloud/courserec/internal/repository/vector"
	chiTransport "github.com/kailas-cloud/courserec/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/courserec/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/courserec/internal/usecase/embedding"
	generationuc "github.com/kailas-cloud/courserec/internal/usecase/generation"
	healthuc "github.com/kailas-cloud/courserec/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/courserec/internal/usecase/ingest"
	recommenduc "github.com/kailas-cloud/courserec/internal/usecase/recommend"
	retrieveuc "github.com/kailas-cloud/courserec/internal/usecase/retrieve"
	"github.com/kailas-cloud/courserec/internal/version"
)

// vectorStore is what the pipeline needs from any vector backend.
type vectorStore interface {
	ingestuc.VectorWriter
	retrieveuc.VectorSearcher
	healthuc.DBPinger
}

// catalogSource is what ingestion and health need from the catalog.
type catalogSource interface {
	ingestuc.CatalogSource
	healthuc.DBPinger
}

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting courserec API server",
		zap.String("build", version.String()),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("catalog_driver", cfg.Catalog.Driver),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterHTTPMetrics()
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterGenerationMetrics()
	metrics.RegisterPipelineMetrics()

	ctx := context.Background()
	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}()

	mode, err := domvec.ParseMode(cfg.Ingestion.Mode)
	if err != nil {
		logger.Fatal("Invalid ingestion mode", zap.Error(err))
	}

	// Redis/Valkey store is shared by the vector index and the embedding cache.
	var redisStore *dbRedis.Store
	if cfg.Database.Driver == config.DriverRedis || cfg.Database.Driver == config.DriverValkey {
		redisStore, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create database store", zap.Error(err))
		}
		closers = append(closers, closerFunc(func() error { redisStore.Close(); return nil }))

		if err := redisStore.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Database not ready", zap.Error(err))
		}
		logger.Info("Connected to database")
	}

	docEmbedder := buildEmbedder(cfg.Embedding, cfg.Embedding.DocumentInstruction, redisStore, cfg.Storage.KeyPrefix, logger)
	queryEmbedder := buildEmbedder(cfg.Embedding, cfg.Embedding.QueryInstruction, redisStore, cfg.Storage.KeyPrefix, logger)

	dim, err := resolveDimension(ctx, cfg.Embedding.Dimensions, docEmbedder)
	if err != nil {
		logger.Fatal("Failed to determine embedding dimension", zap.Error(err))
	}
	logger.Info("Embedders created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", dim),
	)

	store, closeStore, err := buildVectorStore(ctx, cfg, redisStore, mode, dim)
	if err != nil {
		logger.Fatal("Failed to prepare vector store", zap.Error(err))
	}
	if closeStore != nil {
		closers = append(closers, closeStore)
	}

	src, closeCatalog, err := buildCatalog(ctx, cfg.Catalog)
	if err != nil {
		logger.Fatal("Failed to open catalog", zap.Error(err))
	}
	closers = append(closers, closeCatalog)

	genClient := openaiTransport.NewGenerator(&openaiTransport.Config{
		APIKey:   cfg.Generation.APIKey,
		BaseURL:  cfg.Generation.BaseURL,
		Model:    cfg.Generation.Model,
		Provider: cfg.Generation.Provider,
		Logger:   logger,
	})
	genSvc := generationuc.New(genClient, generationuc.Config{
		Temperature:     cfg.Generation.Temperature,
		Timeout:         time.Duration(cfg.Generation.TimeoutSec) * time.Second,
		MaxRetries:      cfg.Generation.Retries(),
		Backoff:         time.Duration(cfg.Generation.BackoffMS) * time.Millisecond,
		BreakerFailures: cfg.Generation.BreakerFailures,
		BreakerTimeout:  time.Duration(cfg.Generation.BreakerTimeoutSec) * time.Second,
	}, logger)

	// Create use case services
	ingestSvc := ingestuc.New(src, store, docEmbedder, logger).
		WithBatchSize(cfg.Ingestion.BatchSize).
		WithWorkers(cfg.Ingestion.Workers)
	retrieveSvc := retrieveuc.New(store, queryEmbedder).
		WithMaxK(cfg.Retrieval.MaxK)
	recommendSvc := recommenduc.New(retrieveSvc, genSvc, logger)
	healthSvc := healthuc.New(store).
		WithCatalog(src).
		WithEmbedding(newEmbeddingHealthChecker(docEmbedder)).
		WithGeneration(genSvc)

	server := chiTransport.NewServer(ingestSvc, recommendSvc, healthSvc, logger).
		WithDefaultK(cfg.Retrieval.DefaultK)

	r := chi.NewRouter()
	r.Use(chiTransport.JSONRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiTransport.WideEventMiddleware(logger))
	if cfg.HTTP.RequestsPerMinute > 0 {
		r.Use(httprate.LimitByIP(cfg.HTTP.RequestsPerMinute, time.Minute))
	}
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// buildVectorStore opens the configured backend and pins its dimension.
func buildVectorStore(
	ctx context.Context, cfg config.Config, redisStore *dbRedis.Store, mode domvec.Mode, dim int,
) (vectorStore, io.Closer, error) {
	switch cfg.Database.Driver {
	case config.DriverRedis, config.DriverValkey:
		repo := vector.New(redisStore, cfg.Storage.KeyPrefix, mode, vector.HNSWConfig{
			M:              cfg.Index.HNSWM,
			EFConstruction: cfg.Index.HNSWEFConstruct,
		})
		if err := repo.EnsureIndex(ctx, dim); err != nil {
			return nil, nil, err
		}
		return repo, nil, nil
	case config.DriverPGVector:
		pool, err := pgvector.Connect(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, nil, err
		}
		repo := pgvector.New(pool, cfg.Database.Table, mode)
		if err := repo.EnsureSchema(ctx, dim); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repo, closerFunc(func() error { pool.Close(); return nil }), nil
	case config.DriverMemory:
		return memvector.New(mode), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

// buildCatalog opens the read-only course catalog.
func buildCatalog(ctx context.Context, cfg config.CatalogConfig) (catalogSource, io.Closer, error) {
	switch cfg.Driver {
	case config.CatalogSQLite:
		s, err := catalog.OpenSQLite(cfg.DSN, cfg.Table)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.CatalogPostgres:
		pool, err := catalog.Connect(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return catalog.NewPostgres(pool, cfg.Table), closerFunc(func() error { pool.Close(); return nil }), nil
	default:
		return nil, nil, fmt.Errorf("unknown catalog driver %q", cfg.Driver)
	}
}

// resolveDimension returns the configured dimension, probing the provider when it is unset.
func resolveDimension(ctx context.Context, configured int, e domain.Embedder) (int, error) {
	if configured > 0 {
		return configured, nil
	}
	res, err := e.Embed(ctx, "dimension probe")
	if err != nil {
		return 0, fmt.Errorf("probe embedding: %w", err)
	}
	if len(res.Embedding) == 0 {
		return 0, fmt.Errorf("probe embedding: provider returned an empty vector")
	}
	return len(res.Embedding), nil
}

// embeddingHealthChecker wraps domain.Embedder to implement health.ProviderChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	cfg config.EmbeddingConfig,
	instruction string,
	cacheStore *dbRedis.Store,
	keyPrefix string,
	logger *zap.Logger,
) domain.Embedder {
	// Base provider (with transport metrics built-in)
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		User:       cfg.User,
		Provider:   cfg.Provider,
		Logger:     logger,
	})

	// Cached
	var embedder domain.Embedder = base
	if cfg.Cache && cacheStore != nil {
		embedder = embcache.New(base, cacheStore, keyPrefix, cfg.Model, metrics.EmbeddingCacheTotal, logger)
	}

	// Throttled
	embedder = embeddinguc.NewInstrumentedEmbedder(
		embedder, cfg.Provider, cfg.Model, embeddinguc.NewLimiter(cfg.RequestsPerSecond), logger,
	)

	// Instruction prefix (outermost, cache key includes instruction)
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}

	return embedder
}
