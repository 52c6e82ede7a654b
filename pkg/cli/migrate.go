package cli

import (
	"context"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/argus/pkg/repository/postgres"
	"github.com/secmon-lab/argus/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdMigrate() *cli.Command {
	var projectID string
	var databaseID string
	var postgresDSN string
	var dryRun bool

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Migrate Firestore indexes and PostgreSQL schema",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "firestore-project-id",
				Usage:       "Firestore Project ID",
				Sources:     cli.EnvVars("ARGUS_FIRESTORE_PROJECT_ID"),
				Destination: &projectID,
			},
			&cli.StringFlag{
				Name:        "firestore-database-id",
				Usage:       "Firestore Database ID",
				Sources:     cli.EnvVars("ARGUS_FIRESTORE_DATABASE_ID"),
				Destination: &databaseID,
			},
			&cli.StringFlag{
				Name:        "postgres-dsn",
				Usage:       "PostgreSQL connection URL of the document store",
				Sources:     cli.EnvVars("ARGUS_POSTGRES_DSN"),
				Destination: &postgresDSN,
			},
			&cli.BoolFlag{
				Name:        "dry-run",
				Usage:       "Preview changes without applying",
				Destination: &dryRun,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if projectID == "" && postgresDSN == "" {
				return goerr.New("either firestore-project-id or postgres-dsn is required")
			}

			logging.Default().Info("Migrate configuration",
				"projectID", projectID,
				"databaseID", databaseID,
				"postgres", postgresDSN != "",
				"dryRun", dryRun)

			if projectID != "" {
				if err := migrateFirestore(ctx, projectID, databaseID, dryRun); err != nil {
					return err
				}
			}
			if postgresDSN != "" {
				if err := migratePostgres(postgresDSN, dryRun); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func migrateFirestore(ctx context.Context, projectID, databaseID string, dryRun bool) error {
	logger := logging.Default()
	if databaseID == "" {
		databaseID = defaultFirestoreDatabaseID
	}

	client, err := fireconf.New(ctx, projectID, databaseID, getIndexConfig(),
		fireconf.WithLogger(logger),
		fireconf.WithDryRun(dryRun),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to create fireconf client",
			goerr.V("project_id", projectID),
			goerr.V("database_id", databaseID))
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close fireconf client", "error", err.Error())
		}
	}()

	if dryRun {
		logger.Info("Dry run mode - previewing changes")
		current, err := client.Import(ctx, firestoreCollections()...)
		if err != nil {
			return goerr.Wrap(err, "failed to import current indexes")
		}
		diff, err := client.DiffConfigs(current)
		if err != nil {
			return goerr.Wrap(err, "failed to create migration plan")
		}

		if len(diff.Collections) == 0 {
			logger.Info("No changes required")
			return nil
		}
		for _, col := range diff.Collections {
			logger.Info("Migration step",
				"collection", col.Name,
				"action", col.Action,
				"indexes_to_add", len(col.IndexesToAdd),
				"indexes_to_delete", len(col.IndexesToDelete))
		}
		return nil
	}

	logger.Info("Applying Firestore migrations")
	if err := client.Migrate(ctx); err != nil {
		return goerr.Wrap(err, "failed to apply migrations")
	}
	logger.Info("Firestore migrations applied successfully")
	return nil
}

const defaultFirestoreDatabaseID = "(default)"

func firestoreCollections() []string {
	cfg := getIndexConfig()
	names := make([]string, len(cfg.Collections))
	for i, col := range cfg.Collections {
		names[i] = col.Name
	}
	return names
}

func migratePostgres(dsn string, dryRun bool) error {
	logger := logging.Default()

	m, err := postgres.NewMigrator(dsn)
	if err != nil {
		return err
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if err := errors.Join(srcErr, dbErr); err != nil {
			logger.Error("failed to close migrator", "error", err.Error())
		}
	}()

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return goerr.Wrap(err, "failed to read schema version")
	}
	logger.Info("PostgreSQL schema", "version", version, "dirty", dirty)

	if dryRun {
		return nil
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return goerr.Wrap(err, "failed to run migrations")
	}
	logger.Info("PostgreSQL migrations applied successfully")
	return nil
}

// getIndexConfig returns the Firestore index configuration
func getIndexConfig() *fireconf.Config {
	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				Name: "documents",
				Indexes: []fireconf.Index{
					// ListUnprocessed: processed ASC, ingested_at ASC
					{
						Fields: []fireconf.IndexField{
							{Path: "processed", Order: fireconf.OrderAscending},
							{Path: "ingested_at", Order: fireconf.OrderAscending},
						},
					},
				},
			},
			{
				Name: "notification_history",
				Indexes: []fireconf.Index{
					// Exists: insight_id, user_id
					{
						Fields: []fireconf.IndexField{
							{Path: "insight_id", Order: fireconf.OrderAscending},
							{Path: "user_id", Order: fireconf.OrderAscending},
						},
					},
					// ListByUser: user_id ASC, sent_at DESC
					{
						Fields: []fireconf.IndexField{
							{Path: "user_id", Order: fireconf.OrderAscending},
							{Path: "sent_at", Order: fireconf.OrderDescending},
						},
					},
					// ListByInsight: insight_id ASC, sent_at DESC
					{
						Fields: []fireconf.IndexField{
							{Path: "insight_id", Order: fireconf.OrderAscending},
							{Path: "sent_at", Order: fireconf.OrderDescending},
						},
					},
				},
			},
		},
	}
}
