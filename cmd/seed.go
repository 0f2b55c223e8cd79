package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/minddojo/sales-assistant/db"
	"github.com/minddojo/sales-assistant/internal/config"
	"github.com/minddojo/sales-assistant/internal/log"
	"github.com/minddojo/sales-assistant/internal/record"
)

var seedFixturePath string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the course catalog into the database",
	Long: `seed replaces the courses and facilitators tables with the catalog
fixture and removes the on-disk index so the next serve rebuilds it.

Without --fixture the catalog bundled with the binary is used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSeed(cmd.Context())
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFixturePath, "fixture", "", "path to a catalog fixture JSON file")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := log.New(log.Config{Level: cfg.SlogLevel(), JSON: cfg.LogJSON})

	courses, facilitators, err := loadSeedFixture()
	if err != nil {
		return err
	}

	if err = db.Migrate(cfg.DatabaseURL()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL())
	if err != nil {
		return fmt.Errorf("creating connection pool: %w", err)
	}
	defer pool.Close()

	store := record.NewStore(pool, logger)
	if err = store.ReplaceAll(ctx, courses, facilitators); err != nil {
		return fmt.Errorf("seeding catalog: %w", err)
	}

	// The index no longer matches the catalog. Remove it so the next
	// serve rebuilds from the new records.
	if err = os.RemoveAll(cfg.IndexPath); err != nil {
		return fmt.Errorf("removing stale index %q: %w", cfg.IndexPath, err)
	}

	logger.Info("catalog seeded",
		"courses", len(courses),
		"facilitators", len(facilitators),
	)
	return nil
}

func loadSeedFixture() ([]record.Course, []record.Facilitator, error) {
	if seedFixturePath == "" {
		courses, facilitators, err := record.DefaultFixture()
		if err != nil {
			return nil, nil, fmt.Errorf("loading bundled catalog: %w", err)
		}
		return courses, facilitators, nil
	}

	f, err := os.Open(seedFixturePath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening fixture: %w", err)
	}
	defer f.Close()

	courses, facilitators, err := record.LoadFixture(f)
	if err != nil {
		return nil, nil, fmt.Errorf("loading fixture %q: %w", seedFixturePath, err)
	}
	return courses, facilitators, nil
}
