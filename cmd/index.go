package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/minddojo/sales-assistant/internal/config"
	"github.com/minddojo/sales-assistant/internal/index"
	"github.com/minddojo/sales-assistant/internal/log"
	"github.com/minddojo/sales-assistant/internal/record"
)

var indexRebuild bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the semantic index from the seeded catalog",
	Long: `index embeds the seeded catalog into the on-disk semantic index.
An existing index is loaded as-is; pass --rebuild to discard it and
embed the catalog again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIndex(cmd.Context())
	},
}

func init() {
	indexCmd.Flags().BoolVar(&indexRebuild, "rebuild", false, "discard the existing index and embed the catalog again")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	logger := log.New(log.Config{Level: cfg.SlogLevel(), JSON: cfg.LogJSON})

	if indexRebuild {
		if err = os.RemoveAll(cfg.IndexPath); err != nil {
			return fmt.Errorf("removing index %q: %w", cfg.IndexPath, err)
		}
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL())
	if err != nil {
		return fmt.Errorf("creating connection pool: %w", err)
	}
	defer pool.Close()

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if embedder == nil {
		return fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}

	builder, err := index.NewBuilder(index.BuilderConfig{
		Source:       record.NewStore(pool, logger),
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
		return fmt.Errorf("building index: %w", err)
	}

	logger.Info("index ready", "path", cfg.IndexPath, "chunks", retriever.Count())
	return nil
}
