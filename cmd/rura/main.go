package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/rura-ai/rura/internal/config"
	"github.com/rura-ai/rura/internal/crawler"
	"github.com/rura-ai/rura/internal/db"
	dbQdrant "github.com/rura-ai/rura/internal/db/qdrant"
	dbRedis "github.com/rura-ai/rura/internal/db/redis"
	"github.com/rura-ai/rura/internal/domain"
	"github.com/rura-ai/rura/internal/encoder"
	logpkg "github.com/rura-ai/rura/internal/logger"
	"github.com/rura-ai/rura/internal/metrics"
	"github.com/rura-ai/rura/internal/progress"
	"github.com/rura-ai/rura/internal/store"
	chiTransport "github.com/rura-ai/rura/internal/transport/chi"
	openaiTransport "github.com/rura-ai/rura/internal/transport/openai"
	answeruc "github.com/rura-ai/rura/internal/usecase/answer"
	ingestuc "github.com/rura-ai/rura/internal/usecase/ingest"
	"github.com/rura-ai/rura/internal/version"
)

func main() {
	app := &cli.App{
		Name:    "rura",
		Usage:   "crawl sites into a vector store and answer questions over them",
		Version: fmt.Sprintf("%s (%s)", version.Version, version.Commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "base-collection",
				Usage:   "logical base name for the vector collections",
				EnvVars: []string{"RURA_BASE_COLLECTION"},
			},
			&cli.StringFlag{
				Name:    "filter-collections",
				Usage:   "comma-separated collection tags to operate on",
				EnvVars: []string{"RURA_FILTER_COLLECTIONS"},
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			uploadCommand(),
			queryCommand(),
			dropCommand(),
			singleDocCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// components holds the wired pipeline shared by the serve and CLI paths.
type components struct {
	cfg      config.Config
	logger   *zap.Logger
	store    db.Store
	adapter  *store.Adapter
	crawler  *crawler.Crawler
	worker   *encoder.Worker
	progress *progress.Store
	ingest   *ingestuc.Service
	answer   *answeruc.Service
	embedder *openaiTransport.Embedder

	cancelJobs context.CancelFunc
}

func (c *components) close() {
	c.cancelJobs()
	c.store.Close()
	_ = c.logger.Sync()
}

// build wires the whole pipeline and starts the embedding worker. The
// returned components must be closed by the caller.
func build(c *cli.Context) (*components, error) {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if v := c.String("base-collection"); v != "" {
		cfg.Ingest.BaseCollection = v
	}
	if v := c.String("filter-collections"); v != "" {
		if _, err := domain.ParseCollections(v); err != nil {
			return nil, err
		}
		cfg.Ingest.FilterCollections = nil
		for _, col := range mustParseCollections(v) {
			cfg.Ingest.FilterCollections = append(cfg.Ingest.FilterCollections, string(col))
		}
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	logger.Info("Starting rura",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.String("db_driver", cfg.Database.Driver),
	)

	var dbStore db.Store
	switch cfg.Database.Driver {
	case "redis":
		dbStore, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
	case "qdrant":
		dbStore, err = dbQdrant.NewStore(dbQdrant.Config{
			URL:    cfg.Database.URL,
			APIKey: cfg.Database.APIKey,
		})
	default:
		err = fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("create database store: %w", err)
	}

	readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
	if err := dbStore.WaitForReady(context.Background(), readiness); err != nil {
		dbStore.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database")

	metrics.RegisterPipelineMetrics()

	weights, err := cfg.Weights()
	if err != nil {
		dbStore.Close()
		return nil, err
	}
	filter, err := cfg.FilterCollections()
	if err != nil {
		dbStore.Close()
		return nil, err
	}

	embedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})

	progressStore := progress.NewStore(time.Duration(cfg.Ingest.ProgressTTLSec) * time.Second)

	worker := encoder.New(embedder, progressStore, logger,
		encoder.WithQueueCapacity(cfg.Ingest.QueueCapacity),
		encoder.WithMetaFragments(cfg.Ingest.MetaFragments),
	)

	// Background jobs outlive the requests that start them; jobCtx is the
	// shutdown switch for all of them, the worker included.
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go func() {
		if err := worker.Run(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("embedding worker stopped", zap.Error(err))
		}
	}()
	progressStore.StartReaper(jobCtx, time.Minute)

	adapter := store.New(dbStore, weights, logger)
	crawl := crawler.New(logger, crawler.WithConcurrency(cfg.Ingest.Concurrency))

	summarizerFactory := func(host string, port int, model string) ingestuc.Summarizer {
		gen := openaiTransport.NewGeneratorForHost(host, port, logger)
		return answeruc.NewSummarizer(gen, model)
	}

	ingestSvc := ingestuc.NewService(jobCtx, crawl, worker, adapter, progressStore,
		summarizerFactory,
		ingestuc.Defaults{
			BaseCollection: cfg.Ingest.BaseCollection,
			Filter:         filter,
			OllamaHost:     cfg.Ollama.Host,
			OllamaPort:     cfg.Ollama.Port,
			OllamaModel:    cfg.Ollama.Model,
			Dimensions:     cfg.Embedding.Dimensions,
		},
		logger,
	)

	answerSvc := answeruc.NewService(embedder, adapter, logger)

	return &components{
		cfg:        cfg,
		logger:     logger,
		store:      dbStore,
		adapter:    adapter,
		crawler:    crawl,
		worker:     worker,
		progress:   progressStore,
		ingest:     ingestSvc,
		answer:     answerSvc,
		embedder:   embedder,
		cancelJobs: cancelJobs,
	}, nil
}

func mustParseCollections(csv string) []domain.Collection {
	cols, _ := domain.ParseCollections(csv)
	return cols
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "address",
				Usage:   "listen address, overrides the config",
				EnvVars: []string{"RURA_ADDRESS"},
			},
		},
		Action: func(c *cli.Context) error {
			comps, err := build(c)
			if err != nil {
				return err
			}
			defer comps.close()
			return serve(c, comps)
		},
	}
}

func serve(c *cli.Context, comps *components) error {
	cfg, logger := comps.cfg, comps.logger

	server := chiTransport.NewServer(comps.ingest, comps.progress, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	r.Handle("/metrics", promhttp.Handler())
	server.Routes(r)

	addr := cfg.HTTP.Addr()
	if v := c.String("address"); v != "" {
		addr = v
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}

func uploadCommand() *cli.Command {
	return &cli.Command{
		Name:  "upload",
		Usage: "crawl a sitemap and ingest every page synchronously",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Usage: "site base or sitemap url", Required: true},
		},
		Action: func(c *cli.Context) error {
			comps, err := build(c)
			if err != nil {
				return err
			}
			defer comps.close()

			ctx := c.Context
			docs, err := comps.crawler.Sitemap(ctx, c.String("url"))
			if err != nil {
				return err
			}
			if err := comps.ingest.IngestDocuments(ctx, docs, ingestuc.Params{URL: c.String("url")}); err != nil {
				return err
			}
			fmt.Printf("ingested %d documents\n", len(docs))
			return nil
		},
	}
}

func queryCommand() *cli.Command {
	return &cli.Command{
		Name:  "query",
		Usage: "answer a question from the ingested content",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "query", Usage: "the question to answer", Required: true},
			&cli.IntFlag{Name: "limit", Usage: "context documents to retrieve"},
			&cli.StringFlag{Name: "ollama-host", Usage: "generation backend host"},
			&cli.IntFlag{Name: "ollama-port", Usage: "generation backend port"},
			&cli.StringFlag{Name: "ollama-model", Usage: "generation model"},
		},
		Action: func(c *cli.Context) error {
			comps, err := build(c)
			if err != nil {
				return err
			}
			defer comps.close()
			cfg := comps.cfg

			limit := cfg.Retrieval.Limit
			if c.Int("limit") > 0 {
				limit = c.Int("limit")
			}
			filter, err := cfg.FilterCollections()
			if err != nil {
				return err
			}

			ctx := c.Context
			result, err := comps.answer.Answer(ctx, c.String("query"),
				cfg.Ingest.BaseCollection, filter, limit)
			if err != nil {
				return err
			}

			host, port, model := cfg.Ollama.Host, cfg.Ollama.Port, cfg.Ollama.Model
			if v := c.String("ollama-host"); v != "" {
				host = v
			}
			if v := c.Int("ollama-port"); v > 0 {
				port = v
			}
			if v := c.String("ollama-model"); v != "" {
				model = v
			}

			gen := openaiTransport.NewGeneratorForHost(host, port, comps.logger)
			if err := gen.GenerateStream(ctx, model, result.Prompt, os.Stdout); err != nil {
				return err
			}
			fmt.Println()
			return nil
		},
	}
}

func dropCommand() *cli.Command {
	return &cli.Command{
		Name:  "drop",
		Usage: "drop the configured collections",
		Action: func(c *cli.Context) error {
			comps, err := build(c)
			if err != nil {
				return err
			}
			defer comps.close()

			filter, err := comps.cfg.FilterCollections()
			if err != nil {
				return err
			}
			return comps.adapter.DropCollections(c.Context,
				comps.cfg.Ingest.BaseCollection, filter)
		},
	}
}

func singleDocCommand() *cli.Command {
	return &cli.Command{
		Name:  "single-doc",
		Usage: "fetch and ingest one page",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Usage: "page url", Required: true},
		},
		Action: func(c *cli.Context) error {
			comps, err := build(c)
			if err != nil {
				return err
			}
			defer comps.close()

			ctx := c.Context
			doc, err := comps.crawler.FetchPage(ctx, c.String("url"))
			if err != nil {
				return err
			}
			if err := comps.ingest.IngestDocuments(ctx, []domain.Document{doc},
				ingestuc.Params{URL: c.String("url")}); err != nil {
				return err
			}
			fmt.Printf("ingested %s (%s)\n", doc.URL, doc.Title)
			return nil
		},
	}
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"error": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
