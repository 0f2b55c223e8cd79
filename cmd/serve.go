package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/minddojo/sales-assistant/db"
	"github.com/minddojo/sales-assistant/internal/api"
	"github.com/minddojo/sales-assistant/internal/chat"
	"github.com/minddojo/sales-assistant/internal/config"
	"github.com/minddojo/sales-assistant/internal/fastpath"
	"github.com/minddojo/sales-assistant/internal/index"
	"github.com/minddojo/sales-assistant/internal/log"
	"github.com/minddojo/sales-assistant/internal/observability"
	"github.com/minddojo/sales-assistant/internal/record"
	"github.com/minddojo/sales-assistant/internal/session"
)

// Server timeout configuration.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 2 * time.Minute // token streaming needs a long write window
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// runServe initializes the full service and runs the HTTP server until
// SIGINT/SIGTERM.
func runServe(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	logger := log.New(log.Config{Level: cfg.SlogLevel(), JSON: cfg.LogJSON})
	logger.Info("starting sales assistant", "version", AppVersion, "config", cfg)

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Tracing must be registered before genkit.Init so generation spans
	// reach the exporter.
	if cfg.OTLPEndpoint != "" {
		shutdownTracing, traceErr := observability.SetupTracing(ctx, observability.Config{
			Endpoint:    cfg.OTLPEndpoint,
			ServiceName: "sales-assistant",
			Logger:      logger,
		})
		if traceErr != nil {
			return fmt.Errorf("setting up tracing: %w", traceErr)
		}
		defer func() {
			flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer flushCancel()
			if err := shutdownTracing(flushCtx); err != nil {
				logger.Warn("trace shutdown", "error", err)
			}
		}()
	}

	if err = db.Migrate(cfg.DatabaseURL()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL())
	if err != nil {
		return fmt.Errorf("creating connection pool: %w", err)
	}
	defer pool.Close()
	if err = pool.Ping(ctx); err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if embedder == nil {
		return fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}

	records := record.NewStore(pool, logger)

	builder, err := index.NewBuilder(index.BuilderConfig{
		Source:       records,
		Embedding:    index.NewEmbeddingFunc(embedder),
		Path:         cfg.IndexPath,
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("creating index builder: %w", err)
	}
	retriever, err := builder.BuildOrLoad(ctx)
	if err != nil {
		return fmt.Errorf("preparing index: %w", err)
	}
	logger.Info("index ready", "chunks", retriever.Count())

	generator, err := chat.NewGenkitGenerator(chat.GenkitConfig{
		Genkit:    g,
		ModelName: cfg.ModelName,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("creating generator: %w", err)
	}

	sessions := session.New(session.NewQuerier(pool), pool, logger)

	engine, err := chat.New(chat.Config{
		Resolver: fastpath.New(fastpath.Config{
			Searcher: retriever,
			TopK:     cfg.TopK,
			Logger:   logger,
		}),
		Searcher:  retriever,
		Sessions:  sessions,
		Generator: generator,
		TopK:      cfg.TopK,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("creating chat engine: %w", err)
	}

	apiServer, err := api.NewServer(api.ServerConfig{
		Engine:      engine,
		History:     sessions,
		Pool:        pool,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	logger.Info("HTTP server ready",
		"addr", cfg.ListenAddr,
		"chat", "POST /chat-stream",
		"history", "GET /history/{session_id}",
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down HTTP server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server: %w", err)
	}
}
