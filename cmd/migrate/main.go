package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/config"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/logger"
)

// runner is one destination's schema_migrations bookkeeping.
type runner interface {
	Ensure(ctx context.Context) error
	Applied(ctx context.Context) ([]AppliedMigration, error)
	Apply(ctx context.Context, m Migration, appliedBy string) error
	Close() error
}

func main() {
	_ = config.LoadDotEnv()

	var (
		driver        = flag.String("driver", envOr("STORE_DRIVER", config.DriverPostgres), "Destination: postgres or bigquery")
		databaseURL   = flag.String("database-url", os.Getenv("DATABASE_URL"), "Postgres connection string")
		projectID     = flag.String("project", os.Getenv("BIGQUERY_PROJECT"), "GCP project ID (bigquery)")
		datasetID     = flag.String("dataset", envOr("BIGQUERY_DATASET", "catalog"), "BigQuery dataset ID")
		appliedBy     = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
		migrationsDir = flag.String("migrations", "", "Path to migrations directory (default migrations/<driver>)")
		dryRun        = flag.Bool("dry-run", false, "List pending migrations without applying them")
	)
	flag.Parse()

	log := logger.New()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if *migrationsDir == "" {
		*migrationsDir = "migrations/" + *driver
	}

	r, vars, err := openRunner(ctx, *driver, *databaseURL, *projectID, *datasetID)
	if err != nil {
		log.Fatal().Err(err).Str("driver", *driver).Msg("Failed to connect")
	}
	defer r.Close()

	if err := migrate(ctx, log, r, *migrationsDir, vars, *appliedBy, *dryRun); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}

func openRunner(ctx context.Context, driver, databaseURL, projectID, datasetID string) (runner, map[string]string, error) {
	switch driver {
	case config.DriverPostgres:
		if databaseURL == "" {
			return nil, nil, fmt.Errorf("-database-url (or DATABASE_URL) is required for postgres")
		}
		pool, err := pgxpool.New(ctx, databaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("creating pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping: %w", err)
		}
		return &postgresRunner{pool: pool}, nil, nil

	case config.DriverBigQuery:
		if projectID == "" {
			return nil, nil, fmt.Errorf("-project (or BIGQUERY_PROJECT) is required for bigquery")
		}
		client, err := bigquery.NewClient(ctx, projectID)
		if err != nil {
			return nil, nil, fmt.Errorf("creating BigQuery client: %w", err)
		}
		vars := map[string]string{"PROJECT_ID": projectID, "DATASET_ID": datasetID}
		return &bigQueryRunner{client: client, projectID: projectID, datasetID: datasetID}, vars, nil

	case config.DriverSQLite:
		return nil, nil, fmt.Errorf("sqlite is migrated automatically when the store opens")

	default:
		return nil, nil, fmt.Errorf("unknown driver %q", driver)
	}
}

// migrate applies pending migrations from dir in version order and stops at
// the first failure.
func migrate(ctx context.Context, log zerolog.Logger, r runner, dir string, vars map[string]string, appliedBy string, dryRun bool) error {
	resolved, err := resolveDir(dir)
	if err != nil {
		return err
	}

	if err := r.Ensure(ctx); err != nil {
		return fmt.Errorf("ensuring schema_migrations table: %w", err)
	}

	migrations, skipped, err := readMigrations(resolved, vars)
	if err != nil {
		return err
	}
	for _, name := range skipped {
		log.Warn().Str("file", name).Msg("Skipping file with invalid migration name")
	}
	log.Info().Int("count", len(migrations)).Str("dir", resolved).Msg("Found migration files")

	applied, err := r.Applied(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("count", len(applied)).Msg("Found already applied migrations")

	todo, changed := pending(migrations, applied)
	for _, v := range changed {
		log.Warn().Int("version", v).Msg("Applied migration file has changed since it ran")
	}

	if len(todo) == 0 {
		log.Info().Msg("No new migrations to apply. Database is up to date.")
		return nil
	}

	for _, m := range todo {
		mlog := log.With().Int("version", m.Version).Str("name", m.Name).Logger()
		if dryRun {
			mlog.Info().Msg("[DRY RUN] Would apply migration")
			continue
		}

		mlog.Info().Msg("Applying migration")
		if err := r.Apply(ctx, m, appliedBy); err != nil {
			return fmt.Errorf("migration %s: %w", m.Filename, err)
		}
		mlog.Info().Msg("Migration applied")
	}

	if !dryRun {
		log.Info().Int("applied", len(todo)).Msg("Migrations complete")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
